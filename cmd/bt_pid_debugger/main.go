// BT PID debugger reads PID telemetry from a Bluetooth serial adapter,
// lets the operator retune the controller and serves the samples live.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/aggregator"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/config"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/console"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/frame"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/history"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/livefeed"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/logging"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/mqttbridge"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/pathing"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/port_reader"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/sampledb"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/summaryplot"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/tuner"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// About a minute of frames at 100 Hz
const recorderQueueSize = 8192

func main() {
	if err := run(); err != nil {
		log.Fatalf("bt_pid_debugger: %v", err)
	}
}

func run() error {
	if err := pathing.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	// Load config
	if err := config.LoadDebuggerConfig(); err != nil {
		return fmt.Errorf("failed to load config %s: %w", pathing.GetConfigPath(), err)
	}
	cfg := config.ActiveDebuggerConfig

	logCfg := cfg.Log
	if logCfg.File == "" {
		logCfg.File = pathing.GetLogPath()
	}
	logCloser, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	device, err := selectDevice(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Device selected:%s\n", device)

	// Open the adapter
	reader := port_reader.NewBTReader(port_reader.Options{
		Port:        device,
		Baudrate:    cfg.Baudrate,
		Backend:     cfg.SerialBackend,
		ReadTimeout: time.Duration(cfg.ReadTimeoutMs) * time.Millisecond,
		Codec:       frame.Codec{Checksum: cfg.FrameChecksum},
	})
	if err := reader.Connect(); err != nil {
		return err
	}
	defer reader.Disconnect()

	if cfg.Handshake.Enabled {
		err := reader.Handshake(ctx, port_reader.HandshakeOptions{
			LinkAddress: cfg.Handshake.LinkAddress,
			RetryDelay:  time.Duration(cfg.Handshake.RetryDelayMs) * time.Millisecond,
			ConnectWait: time.Duration(cfg.Handshake.ConnectWaitMs) * time.Millisecond,
		})
		if ctx.Err() != nil {
			log.Info("Interrupted during handshake")
			return nil
		}
		if err != nil {
			return fmt.Errorf("handshake failed: %w", err)
		}
	}

	hist := history.New(cfg.Live.HistoryLimit)
	pidTuner := tuner.New(reader, tuner.Options{
		Initial: types.Gains{
			Kp:       cfg.Tuning.Kp,
			Ki:       cfg.Tuning.Ki,
			Kd:       cfg.Tuning.Kd,
			Setpoint: cfg.Tuning.Setpoint,
		},
		AdoptDeviceGains: cfg.Tuning.AdoptDeviceGains,
		AutoPush:         cfg.Tuning.AutoPush,
		Tolerance:        cfg.Tuning.Tolerance,
		MinPushInterval:  time.Duration(cfg.Tuning.MinPushIntervalMs) * time.Millisecond,
	})

	// Session storage
	var db *sampledb.SampleDB
	var sessionID string
	if cfg.Storage.Enabled {
		db, err = sampledb.Open(cfg.DatabasePath())
		if err != nil {
			return err
		}
		defer db.Close()
		sessionID, err = db.StartSession(reader.Device(), time.Now())
		if err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
		log.Infof("Recording session %s to %s", sessionID, cfg.DatabasePath())
	}

	// MQTT bridge is optional, the debugger works without a broker
	var bridge *mqttbridge.Bridge
	if cfg.MQTT.BrokerURL != "" {
		bridge, err = mqttbridge.Connect(cfg.MQTT.BrokerURL, func(g types.Gains) {
			if err := pidTuner.SetGains(g); err != nil {
				log.Warnf("Ignoring gains from MQTT: %v", err)
				return
			}
			pidTuner.Push(tuner.TriggerMQTT)
		})
		if err != nil {
			log.Warnf("MQTT bridge disabled: %v", err)
			bridge = nil
		} else {
			defer bridge.Close()
		}
	}

	pidTuner.OnPush = func(g types.Gains, trigger string, pushErr error) {
		now := time.Now()
		if db != nil {
			if err := db.InsertGainPush(sessionID, now, g, trigger, pushErr); err != nil {
				log.Warnf("Failed to store gain push: %v", err)
			}
		}
		if bridge != nil {
			bridge.PublishPush(now, g, trigger, pushErr)
		}
	}

	var feed *livefeed.Server
	if cfg.Live.Enabled {
		feed = livefeed.NewServer(hist, reader.Device(), pidTuner.Local)
	}

	var recorder *sampledb.Recorder
	if db != nil {
		recorder = db.NewRecorder(sessionID, recorderQueueSize)
	}

	// Runs on the reader goroutine, everything slow is queued elsewhere
	handleSample := func(sample *types.Sample) {
		hist.Append(sample)
		pidTuner.Observe(sample)
		if recorder != nil {
			recorder.Record(sample)
		}
		if feed != nil {
			feed.Broadcast(sample)
		}
		if bridge != nil {
			bridge.PublishSample(sample)
		}
		if cfg.PrintSamples {
			log.Infof("tick=%d measured=%g setpoint=%g kp=%g ki=%g kd=%g",
				sample.Tick, sample.Measured, sample.Setpoint, sample.Kp, sample.Ki, sample.Kd)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		return reader.ReadLoop(groupCtx, handleSample)
	})
	if feed != nil {
		group.Go(func() error {
			return feed.ListenAndServe(groupCtx, cfg.ListenAddr())
		})
	}

	if cfg.Console {
		console.New(pidTuner, hist, pathing.GetPlotDir()).Run(groupCtx)
	} else {
		log.Info("Reading samples, press Ctrl-C to stop")
		<-groupCtx.Done()
	}

	// Let in-flight pushes finish before the port closes
	cancel()
	pidTuner.SetAutoPush(false)
	pidTuner.Wait()
	reader.StopReading()
	runErr := group.Wait()
	if recorder != nil {
		recorder.Close()
	}
	log.Infof("Skipped %s bytes of noise between frames", humanize.Comma(reader.SkippedBytes()))

	writeSummary(cfg, hist, db, sessionID)
	return runErr
}

func selectDevice(cfg *config.DebuggerConfig) (string, error) {
	if cfg.SerialDevice != "" {
		return cfg.SerialDevice, nil
	}
	ports, err := port_reader.ListPorts()
	if err != nil {
		return "", fmt.Errorf("failed to list serial ports: %w", err)
	}
	return console.SelectDevice(ports)
}

func writeSummary(cfg *config.DebuggerConfig, hist *history.History, db *sampledb.SampleDB, sessionID string) {
	samples := hist.Snapshot()
	if db != nil && hist.Dropped() > 0 {
		// History was capped, the database has the whole run
		stored, err := db.SessionSamples(sessionID)
		if err != nil {
			log.Warnf("Failed to read session samples, summary covers kept history only: %v", err)
		} else {
			samples = stored
		}
	}

	summary := aggregator.Summarize(samples)
	log.Info(summary.String())

	if db != nil {
		if err := db.EndSession(sessionID, time.Now(), summary); err != nil {
			log.Warnf("Failed to store session summary: %v", err)
		}
	}

	if !cfg.Plot.SummaryEnabled {
		return
	}
	path := cfg.Plot.SummaryFile
	if path == "" {
		path = filepath.Join(pathing.GetPlotDir(), console.PlotFileName(time.Now()))
	}
	err := summaryplot.SaveSummaryPlot(samples, path)
	if errors.Is(err, summaryplot.ErrNoSamples) {
		log.Info("No samples received, skipping summary plot")
		return
	}
	if err != nil {
		log.Warnf("Failed to write summary plot: %v", err)
		return
	}
	log.Infof("Summary plot written to %s", path)
}
