package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/pathing"
)

var ActiveDebuggerConfig *DebuggerConfig

var ErrInvalidConfig = errors.New("invalid config")

func DefaultDebuggerConfig() *DebuggerConfig {
	return &DebuggerConfig{
		SerialDevice:  "",
		Baudrate:      115200,
		SerialBackend: "jacobsa",
		ReadTimeoutMs: 1000,
		FrameChecksum: false,
		PrintSamples:  false,
		Console:       true,
		Handshake: HandshakeConfig{
			Enabled:       true,
			LinkAddress:   "ba,55,57083C",
			RetryDelayMs:  1000,
			ConnectWaitMs: 3000,
		},
		Tuning: TuningConfig{
			AdoptDeviceGains:  true,
			AutoPush:          true,
			Tolerance:         1e-4,
			MinPushIntervalMs: 200,
		},
		Live: LiveConfig{
			Enabled:       true,
			ListenAddress: "127.0.0.1",
			ListenPort:    9040,
			HistoryLimit:  0,
		},
		Storage: StorageConfig{
			Enabled: true,
		},
		Plot: PlotConfig{
			SummaryEnabled: true,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

func LoadDebuggerConfig() error {
	cfg, err := LoadDebuggerConfigFrom(pathing.GetConfigPath())
	if err != nil {
		return err
	}
	ActiveDebuggerConfig = cfg
	return nil
}

// LoadDebuggerConfigFrom decodes the file over the defaults, so keys missing
// from an older file keep their default value. A default file is written when
// none exists yet.
func LoadDebuggerConfigFrom(configPath string) (*DebuggerConfig, error) {
	cfg := DefaultDebuggerConfig()

	// Create default if not exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return nil, err
		}
		defer cfgFile.Close()
		if err := toml.NewEncoder(cfgFile).Encode(cfg); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		return cfg, nil
	}

	// Load existing config
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *DebuggerConfig) Validate() error {
	var errs []error
	if c.Baudrate == 0 {
		errs = append(errs, fmt.Errorf("%w: baudrate must be set", ErrInvalidConfig))
	}
	if c.SerialBackend != "jacobsa" && c.SerialBackend != "bugst" {
		errs = append(errs, fmt.Errorf("%w: unknown serial_backend %q", ErrInvalidConfig, c.SerialBackend))
	}
	if c.ReadTimeoutMs != 0 && (c.ReadTimeoutMs < 100 || c.ReadTimeoutMs > 25500) {
		// Serial drivers count the timeout in tenths of a second, one byte wide
		errs = append(errs, fmt.Errorf("%w: read_timeout_ms must be 0 or between 100 and 25500", ErrInvalidConfig))
	}
	tuning := map[string]float32{
		"kp":       c.Tuning.Kp,
		"ki":       c.Tuning.Ki,
		"kd":       c.Tuning.Kd,
		"setpoint": c.Tuning.Setpoint,
	}
	for _, name := range []string{"kp", "ki", "kd", "setpoint"} {
		if v := float64(tuning[name]); math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%w: tuning.%s must be a finite number", ErrInvalidConfig, name))
		}
	}
	if math.IsNaN(c.Tuning.Tolerance) || c.Tuning.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("%w: tuning.tolerance must not be negative", ErrInvalidConfig))
	}
	if c.Live.Enabled && (c.Live.ListenPort <= 0 || c.Live.ListenPort > 65535) {
		errs = append(errs, fmt.Errorf("%w: live.listen_port %d out of range", ErrInvalidConfig, c.Live.ListenPort))
	}
	if c.Live.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("%w: live.history_limit must not be negative", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

func (c *DebuggerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Live.ListenAddress, c.Live.ListenPort)
}

func (c *DebuggerConfig) DatabasePath() string {
	if c.Storage.DatabaseFile != "" {
		return c.Storage.DatabaseFile
	}
	return pathing.GetSampleDbPath()
}
