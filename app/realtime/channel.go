package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/apolopay/payment-button-go/app/factory"
	"github.com/apolopay/payment-button-go/app/types"
)

// EventProcessConnect is the subscribe handshake the client sends right after
// connecting, scoping the channel to one payment process.
const EventProcessConnect = "process:connect"

type Config struct {
	URL          string
	PublicKey    string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

type subscribeFrame struct {
	Event string        `json:"event"`
	Data  subscribeData `json:"data"`
}

type subscribeData struct {
	ProcessID string `json:"processId"`
}

// Channel maintains a single logical confirmation subscription keyed by
// process id. Server pushes are reduced to exactly one terminal callback:
// onConfirmed or onFailed, never both, never twice.
//
// Every Open carries the caller's attempt epoch; Close(epoch) invalidates all
// attempts up to that epoch and never blocks on network I/O. A dial that
// completes after its attempt was invalidated discards its connection instead
// of committing it, so a torn-down session can never end up with a live
// channel.
type Channel struct {
	cfg    Config
	logger logrus.FieldLogger

	mu        sync.Mutex
	conn      *websocket.Conn
	processID string
	gen       int
	fired     bool
	barrier   int
}

func NewChannel(cfg Config) *Channel {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Channel{
		cfg:    cfg,
		logger: factory.NewModuleLogger("realtime-channel"),
	}
}

// Open establishes the channel for processID and sends the subscribe frame.
// A channel already open for the same process id is a no-op; one open for a
// different process id is replaced. The dial happens outside the channel
// mutex, so Close stays responsive while a dial is in flight. A dial or
// handshake failure is returned as a connect_error without invoking either
// callback; an open invalidated by Close(epoch) returns nil and leaves no
// connection behind.
func (c *Channel) Open(processID string, epoch int, onConfirmed func(types.ConfirmationResult), onFailed func(*types.PaymentError)) error {
	c.mu.Lock()
	if epoch <= c.barrier {
		c.mu.Unlock()
		return nil
	}
	if c.conn != nil && c.processID == processID {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	header := http.Header{}
	header.Set("x-public-key", c.cfg.PublicKey)

	conn, resp, err := dialer.Dial(c.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.logger.WithError(err).Warn("Realtime dial failed")
		return types.NewPaymentError(types.CodeConnectError, "realtime connection failed", err)
	}

	frame := subscribeFrame{Event: EventProcessConnect, Data: subscribeData{ProcessID: processID}}
	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteJSON(frame); err != nil {
		_ = conn.Close()
		return types.NewPaymentError(types.CodeConnectError, "realtime subscribe failed", err)
	}
	_ = conn.SetWriteDeadline(time.Time{})

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch <= c.barrier {
		// The attempt was torn down while the dial was in flight.
		_ = conn.Close()
		c.logger.Debug("Discarding connection for invalidated attempt")
		return nil
	}
	c.closeConnLocked()

	c.gen++
	c.conn = conn
	c.processID = processID
	c.fired = false

	logger := factory.LoggerWithProcess(c.logger, processID)
	logger.Info("Realtime channel open")

	go c.readLoop(conn, c.gen, logger, onConfirmed, onFailed)
	return nil
}

// Close tears the channel down and invalidates every attempt up to epoch.
// Idempotent; safe when nothing is open; never blocks behind an in-flight
// dial. After Close returns no new terminal callback can be claimed and no
// invalidated open can commit a connection.
func (c *Channel) Close(epoch int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch > c.barrier {
		c.barrier = epoch
	}
	if c.conn != nil {
		c.closeConnLocked()
		c.logger.Info("Realtime channel closed")
	}
	c.fired = true
	c.processID = ""
}

func (c *Channel) closeConnLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// releaseAfterTerminal drops the connection once the terminal callback has
// been claimed. It leaves the epoch barrier alone; the session controller
// follows up with Close.
func (c *Channel) releaseAfterTerminal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.closeConnLocked()
		c.logger.Debug("Realtime channel released")
	}
	c.fired = true
	c.processID = ""
}

// claim reserves the single terminal callback slot for generation gen.
func (c *Channel) claim(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.fired {
		return false
	}
	c.fired = true
	return true
}

func (c *Channel) readLoop(conn *websocket.Conn, gen int, logger logrus.FieldLogger, onConfirmed func(types.ConfirmationResult), onFailed func(*types.PaymentError)) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if c.claim(gen) {
				logger.WithError(err).Warn("Realtime connection lost")
				onFailed(types.NewPaymentError(types.CodeConnectError, "realtime connection error", err))
				c.releaseAfterTerminal()
			}
			return
		}

		var msg types.SocketMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			if c.claim(gen) {
				logger.WithError(err).Warn("Malformed realtime payload")
				onFailed(types.NewPaymentError(types.CodePaymentFailed, "malformed confirmation payload", err))
				c.releaseAfterTerminal()
			}
			return
		}

		var result types.ConfirmationResult
		if len(msg.Result) > 0 {
			_ = json.Unmarshal(msg.Result, &result)
			result.Raw = msg.Result
		}

		if !msg.Success {
			if c.claim(gen) {
				message := result.Message
				if message == "" {
					message = msg.Message
				}
				if message == "" {
					message = "payment failed"
				}
				onFailed(types.NewPaymentError(types.CodePaymentFailed, message, nil))
				c.releaseAfterTerminal()
			}
			return
		}

		if result.Status == types.StatusCompleted {
			if c.claim(gen) {
				onConfirmed(result)
				c.releaseAfterTerminal()
			}
			return
		}

		logger.WithField("status", result.Status).Debug("Ignoring non-terminal push")
	}
}
