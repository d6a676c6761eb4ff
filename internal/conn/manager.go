// Package conn owns the persistent WebSocket connection to the gesture
// controller: lifecycle, reconnect policy and the inbound/outbound frame
// channels.
package conn

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	sendChSize = 256
	recvChSize = 1024
	writeWait  = 10 * time.Second

	defaultReconnectDelay = 3 * time.Second
	defaultMaxRetries     = 10
	defaultMaxBackoff     = 30 * time.Second
)

// ErrClosed is returned by Connect after Close has been called.
var ErrClosed = errors.New("connection manager closed")

// Config holds connection settings.
type Config struct {
	URL string

	// ReconnectDelay is the delay before the first reconnect attempt of
	// an outage. Subsequent attempts back off exponentially.
	ReconnectDelay time.Duration

	// MaxRetries caps consecutive failed reconnect attempts. Once
	// exceeded the manager enters a terminal gave-up state.
	MaxRetries int

	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = defaultReconnectDelay
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	return c
}

// StateFunc is notified on every connected/disconnected transition.
type StateFunc func(connected bool)

// Manager maintains a single outbound WebSocket connection with
// reconnect-on-failure. Inbound text frames are delivered in arrival
// order on Receive; outbound frames are fire-and-forget via Send.
type Manager struct {
	mu         sync.Mutex
	conn       *ws.Conn
	connected  bool
	closed     bool
	gaveUp     bool
	attempts   int
	retryTimer *time.Timer

	sendCh chan []byte
	recvCh chan []byte
	done   chan struct{}

	reconnects atomic.Uint64

	cfg     Config
	logger  *slog.Logger
	onState StateFunc
}

// New creates a manager. onState may be nil.
func New(cfg Config, logger *slog.Logger, onState StateFunc) *Manager {
	return &Manager{
		cfg:     cfg.withDefaults(),
		sendCh:  make(chan []byte, sendChSize),
		recvCh:  make(chan []byte, recvChSize),
		done:    make(chan struct{}),
		logger:  logger,
		onState: onState,
	}
}

// Connect establishes the connection if none is open. Idempotent: a
// no-op while the connection is open or a reconnect is pending. A dial
// failure is non-fatal; it starts the reconnect policy.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.connected || m.retryTimer != nil {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	conn, err := m.dialOnce()
	if err != nil {
		m.logger.Warn("Initial dial failed", "url", m.cfg.URL, "error", err)
		m.mu.Lock()
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		return err
	}

	m.adopt(conn)
	return nil
}

func (m *Manager) dialOnce() (*ws.Conn, error) {
	conn, _, err := ws.DefaultDialer.Dial(m.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", m.cfg.URL, err)
	}
	return conn, nil
}

// adopt installs a freshly dialed connection and starts its loops.
func (m *Manager) adopt(conn *ws.Conn) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.conn = conn
	m.connected = true
	m.attempts = 0
	m.mu.Unlock()

	m.notify(true)
	go m.readLoop(conn)
	go m.writeLoop(conn)
}

// readLoop delivers inbound text frames to the receive channel in
// arrival order. Returns on read error or shutdown.
func (m *Manager) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-m.done:
			default:
				m.logger.Warn("WebSocket read error", "error", err)
				m.handleDisconnect(conn)
			}
			return
		}

		select {
		case m.recvCh <- message:
		case <-m.done:
			return
		}
	}
}

// writeLoop drains the send channel onto the socket.
func (m *Manager) writeLoop(conn *ws.Conn) {
	for {
		select {
		case <-m.done:
			return
		case data := <-m.sendCh:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				m.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				m.handleDisconnect(conn)
				return
			}
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				m.logger.Warn("WebSocket write error", "error", err)
				m.handleDisconnect(conn)
				return
			}
		}
	}
}

// handleDisconnect tears down a failed connection and schedules one
// reconnect attempt. Safe to call from both loops; only the first caller
// for a given connection acts.
func (m *Manager) handleDisconnect(conn *ws.Conn) {
	m.mu.Lock()
	if m.closed || m.conn != conn {
		m.mu.Unlock()
		return
	}
	_ = conn.Close()
	m.conn = nil
	m.connected = false
	m.scheduleReconnectLocked()
	m.mu.Unlock()

	m.notify(false)
}

// scheduleReconnectLocked arms exactly one reconnect timer, honoring the
// retry cap. Callers hold m.mu.
func (m *Manager) scheduleReconnectLocked() {
	if m.retryTimer != nil || m.closed || m.gaveUp {
		return
	}

	m.attempts++
	if m.attempts > m.cfg.MaxRetries {
		m.gaveUp = true
		m.logger.Error("Reconnect attempts exhausted, giving up",
			"maxRetries", m.cfg.MaxRetries)
		return
	}

	delay := m.backoff(m.attempts)
	m.logger.Info("Scheduling reconnect", "attempt", m.attempts, "delay", delay)
	m.retryTimer = time.AfterFunc(delay, m.tryReconnect)
}

// backoff returns the delay before the given attempt: the configured
// delay for the first, doubling after, capped at MaxBackoff.
func (m *Manager) backoff(attempt int) time.Duration {
	delay := m.cfg.ReconnectDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= m.cfg.MaxBackoff {
			return m.cfg.MaxBackoff
		}
	}
	return delay
}

func (m *Manager) tryReconnect() {
	m.mu.Lock()
	m.retryTimer = nil
	if m.closed {
		m.mu.Unlock()
		return
	}
	attempt := m.attempts
	m.mu.Unlock()

	conn, err := m.dialOnce()
	if err != nil {
		m.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
		m.mu.Lock()
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		return
	}

	m.reconnects.Add(1)
	m.logger.Info("WebSocket reconnected", "attempt", attempt)
	m.adopt(conn)
}

func (m *Manager) notify(connected bool) {
	if m.onState != nil {
		m.onState(connected)
	}
}

// Send pushes a frame to the write loop. Fire-and-forget: dropped
// silently when the connection is not open, dropped with a warning when
// the send buffer is full.
func (m *Manager) Send(data []byte) {
	m.mu.Lock()
	open := m.connected && !m.closed
	m.mu.Unlock()

	if !open {
		m.logger.Debug("Dropping outbound frame, connection not open")
		return
	}

	select {
	case m.sendCh <- data:
	default:
		m.logger.Warn("Send channel full, dropping outbound frame")
	}
}

// Receive returns the inbound frame channel.
func (m *Manager) Receive() <-chan []byte {
	return m.recvCh
}

// Done is closed when the manager shuts down.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Connected reports whether the socket is currently open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// GaveUp reports whether the retry cap was exhausted.
func (m *Manager) GaveUp() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gaveUp
}

// Reconnects returns the number of successful reconnects this session.
func (m *Manager) Reconnects() uint64 {
	return m.reconnects.Load()
}

// Close cancels any pending reconnect timer and closes the socket.
// No reconnect attempts happen after Close returns.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	conn := m.conn
	wasConnected := m.connected
	m.conn = nil
	m.connected = false
	close(m.done)
	m.mu.Unlock()

	if wasConnected {
		m.notify(false)
	}

	if conn != nil {
		_ = conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		)
		return conn.Close()
	}
	return nil
}
