// Livefeed serves the running session over HTTP and pushes every sample
// to websocket clients as it is decoded.
package livefeed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/history"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/summaryplot"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait    = 2 * time.Second
	pingInterval = 5 * time.Second
	// Samples buffered per client before new ones are dropped for it
	clientQueueSize = 64
)

// client owns one websocket. Only its writeLoop writes data frames, so a
// slow browser never holds up Broadcast.
type client struct {
	conn      *websocket.Conn
	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn:  conn,
		queue: make(chan []byte, clientQueueSize),
		done:  make(chan struct{}),
	}
}

func (c *client) enqueue(data []byte) bool {
	select {
	case c.queue <- data:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

type Server struct {
	history *history.History
	gains   func() types.Gains
	device  string
	started time.Time

	upgrader websocket.Upgrader
	mux      *http.ServeMux

	// ws clients for broadcasting live samples
	clients      map[*client]struct{}
	clientsMutex sync.RWMutex
}

// NewServer serves samples from h. gains reports the operator's local gains.
func NewServer(h *history.History, device string, gains func() types.Gains) *Server {
	s := &Server{
		history: h,
		gains:   gains,
		device:  device,
		started: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local tool, any dashboard may connect
			},
		},
		mux:     http.NewServeMux(),
		clients: make(map[*client]struct{}),
	}

	s.mux.HandleFunc("/", s.handleStatus)
	s.mux.HandleFunc("/latest", s.handleLatest)
	s.mux.HandleFunc("/history", s.handleHistory)
	s.mux.HandleFunc("/gains", s.handleGains)
	s.mux.HandleFunc("/plot.png", s.handlePlot)
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe blocks until ctx is done or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv.RegisterOnShutdown(s.closeClients)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infof("Live feed listening on http://%s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Broadcast queues the sample for every client and returns without
// waiting on the network. A client whose queue is full misses the sample.
func (s *Server) Broadcast(sample *types.Sample) {
	data := sample.ToJsonBytes()
	if data == nil {
		return
	}

	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()
	for c := range s.clients {
		c.enqueue(data)
	}
}

func (s *Server) ClientCount() int {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()
	return len(s.clients)
}

func (s *Server) addClient(c *client) {
	s.clientsMutex.Lock()
	s.clients[c] = struct{}{}
	s.clientsMutex.Unlock()
}

func (s *Server) removeClient(c *client) {
	s.clientsMutex.Lock()
	delete(s.clients, c)
	s.clientsMutex.Unlock()
	c.close()
	if n := c.dropped.Load(); n > 0 {
		log.Debugf("Websocket client %s missed %d samples", c.conn.RemoteAddr(), n)
	}
}

func (s *Server) closeClients() {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	for c := range s.clients {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "debugger shutting down"),
			time.Now().Add(writeWait),
		)
		c.close()
		delete(s.clients, c)
	}
}

// writeLoop sends queued samples and keepalive pings until the client goes.
func (s *Server) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case data := <-c.queue:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debugf("Dropping websocket client %s: %v", c.conn.RemoteAddr(), err)
				s.removeClient(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.removeClient(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	writeJson(w, http.StatusOK, map[string]any{
		"message": "Bluetooth PID Debugger",
		"status":  "running",
		"device":  s.device,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"samples": s.history.Len(),
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	latest := s.history.Last(1)
	if len(latest) == 0 {
		writeError(w, http.StatusNotFound, "No samples available yet")
		return
	}
	writeJson(w, http.StatusOK, latest[0])
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	samples := s.history.Snapshot()
	if raw := r.URL.Query().Get("last"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "last must be a non-negative integer")
			return
		}
		samples = s.history.Last(n)
	}
	if samples == nil {
		samples = []*types.Sample{}
	}
	writeJson(w, http.StatusOK, samples)
}

func (s *Server) handleGains(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, s.gains())
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := summaryplot.WriteSummaryPlot(s.history.Snapshot(), &buf)
	if errors.Is(err, summaryplot.ErrNoSamples) {
		writeError(w, http.StatusNotFound, "No samples available yet")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket upgrade error: %v", err)
		return
	}

	c := newClient(conn)

	// Send current sample immediately if available
	if latest := s.history.Last(1); len(latest) == 1 {
		c.enqueue(latest[0].ToJsonBytes())
	}
	s.addClient(c)
	go s.writeLoop(c)

	// Keep connection alive, clients have nothing to say
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.removeClient(c)
			return
		}
	}
}

func writeJson(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJson(w, status, map[string]string{
		"error": message,
	})
}
