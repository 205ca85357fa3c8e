package feedclient

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var ErrMaxRetries = errors.New("max retries reached")

type Listener struct {
	Host           string
	MaxRetries     int
	BaseRetryDelay time.Duration
	MaxRetryDelay  time.Duration
	// Connection counts as dead after this long without a message or ping.
	IdleTimeout  time.Duration
	PingInterval time.Duration
}

func NewListener(host string) *Listener {
	return &Listener{
		Host:           host,
		MaxRetries:     10,
		BaseRetryDelay: 2 * time.Second,
		MaxRetryDelay:  60 * time.Second,
		IdleTimeout:    10 * time.Second,
		PingInterval:   30 * time.Second,
	}
}

// Manage websocket connection and call funcToCall for each sample
func StartListener(ctx context.Context, host string, funcToCall func(sample *types.Sample)) error {
	return NewListener(host).Run(ctx, funcToCall)
}

// Run returns nil once ctx is done, or ErrMaxRetries when the debugger
// stays unreachable.
func (l *Listener) Run(ctx context.Context, funcToCall func(sample *types.Sample)) error {
	// WebSocket server URL
	u := url.URL{Scheme: "ws", Host: l.Host, Path: "/ws"}

	retryCount := 0

	for {
		if ctx.Err() != nil {
			log.Info("Shutting down feed listener")
			return nil
		}

		if retryCount > 0 {
			retryDelay := l.retryDelay(retryCount)
			log.Infof("Retrying connection in %v... (attempt %d/%d)", retryDelay, retryCount+1, l.MaxRetries)
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				log.Info("Shutdown requested during retry wait")
				return nil
			}
		}

		log.Infof("Connecting to %s", u.String())

		dialer := *websocket.DefaultDialer
		dialer.HandshakeTimeout = 10 * time.Second
		c, _, err := dialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warnf("Connection failed: %v", err)
			retryCount++
			if retryCount >= l.MaxRetries {
				log.Errorf("Max retries (%d) reached. Giving up.", l.MaxRetries)
				return ErrMaxRetries
			}
			continue
		}

		log.Info("Connected! Accepting samples.")

		// Reset retry count on successful connection
		retryCount = 0

		connectionBroken := l.handleConnection(ctx, c, funcToCall)

		c.Close()

		if !connectionBroken {
			return nil
		}

		log.Warn("Connection lost, will retry...")
		retryCount = 1
	}
}

// Exponential backoff from BaseRetryDelay, capped at MaxRetryDelay
func (l *Listener) retryDelay(retryCount int) time.Duration {
	if retryCount > 30 {
		return l.MaxRetryDelay
	}
	retryDelay := time.Duration(1<<(retryCount-1)) * l.BaseRetryDelay
	if retryDelay > l.MaxRetryDelay || retryDelay <= 0 {
		retryDelay = l.MaxRetryDelay
	}
	return retryDelay
}

func (l *Listener) handleConnection(
	ctx context.Context,
	c *websocket.Conn,
	funcToCall func(sample *types.Sample),
) bool {
	done := make(chan struct{})

	// Set read deadline to detect dead connections
	c.SetReadDeadline(time.Now().Add(l.IdleTimeout))
	c.SetPingHandler(func(data string) error {
		c.SetReadDeadline(time.Now().Add(l.IdleTimeout))
		return c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	go func() {
		defer close(done)
		for {
			messageType, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warnf("WebSocket error: %v", err)
				} else {
					log.Infof("Connection closed: %v", err)
				}
				return
			}

			// Reset read deadline on successful message
			c.SetReadDeadline(time.Now().Add(l.IdleTimeout))

			if messageType != websocket.TextMessage {
				log.Debugf("Received unexpected message type: %d", messageType)
				continue
			}
			if sample := types.SampleFromJsonBytes(message); sample != nil {
				funcToCall(sample)
			} else {
				log.Warnf("Failed to parse sample: %s", string(message))
			}
		}
	}()

	ticker := time.NewTicker(l.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			// Connection broke
			return true
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				log.Warnf("Failed to send ping: %v", err)
			}
		case <-ctx.Done():
			log.Info("Closing feed connection...")
			err := c.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			if err != nil {
				log.Debugf("Error sending close message: %v", err)
			}

			// Wait for close confirmation or timeout
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return false
		}
	}
}
