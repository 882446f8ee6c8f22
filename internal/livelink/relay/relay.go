// Package relay subscribes to a LiveLink relay over WebSocket and keeps a
// livelink.Registry up to date with the subjects it streams.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	ws "github.com/gorilla/websocket"

	"github.com/OCAP2/facecsv/internal/livelink"
	"github.com/OCAP2/facecsv/pkg/core"
	"github.com/OCAP2/facecsv/pkg/streaming"
)

const (
	writeWait        = 10 * time.Second
	initialBackoff   = time.Second
	maxBackoff       = 30 * time.Second
	defaultMaxElapse = 5 * time.Minute
)

// ErrClosed is returned when the relay has been shut down.
var ErrClosed = errors.New("relay closed")

// Config configures the relay subscription.
type Config struct {
	URL      string
	Secret   string
	Subjects []string // empty subscribes to every subject

	// MaxElapsed bounds one reconnect cycle. Zero uses five minutes.
	MaxElapsed time.Duration
}

// Relay owns a single WebSocket connection and its reconnect loop.
type Relay struct {
	cfg      Config
	registry *livelink.Registry
	logger   *slog.Logger

	mu     sync.Mutex
	conn   *ws.Conn
	done   chan struct{}
	closed bool

	reconnects int
}

// New creates a relay that feeds registry.
func New(cfg Config, registry *livelink.Registry, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = defaultMaxElapse
	}
	return &Relay{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start dials once and starts the read loop. Later disconnects are retried
// with exponential backoff until ctx is cancelled or Close is called.
func (r *Relay) Start(ctx context.Context) error {
	conn, err := r.dialOnce(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	r.conn = conn
	r.mu.Unlock()

	go r.run(ctx, conn)
	return nil
}

// Reconnects returns how many times the connection was re-established.
func (r *Relay) Reconnects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reconnects
}

// dialOnce connects with the secret query param and sends the subscription.
func (r *Relay) dialOnce(ctx context.Context) (*ws.Conn, error) {
	u, err := url.Parse(r.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay URL: %w", err)
	}
	if r.cfg.Secret != "" {
		q := u.Query()
		q.Set("secret", r.cfg.Secret)
		u.RawQuery = q.Encode()
	}

	conn, resp, err := ws.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("relay dial failed: %w", err)
	}

	msg, err := streaming.Encode(streaming.TypeSubscribe, streaming.SubscribePayload{Subjects: r.cfg.Subjects})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteMessage(ws.TextMessage, msg); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send subscribe: %w", err)
	}
	return conn, nil
}

func (r *Relay) run(ctx context.Context, conn *ws.Conn) {
	for {
		r.readLoop(conn)

		if r.stopped(ctx) {
			return
		}

		// the relay resends static data on subscribe, so stale subjects go
		r.registry.Reset()

		next, err := r.reconnect(ctx)
		if err != nil {
			if !r.stopped(ctx) {
				r.logger.Error("Relay reconnect gave up", "error", err)
			}
			return
		}
		conn = next
	}
}

// readLoop applies messages until the connection fails.
func (r *Relay) readLoop(conn *ws.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-r.done:
			default:
				r.logger.Warn("Relay read error", "error", err)
			}
			_ = conn.Close()
			return
		}

		var env streaming.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			r.logger.Debug("Ignoring malformed relay message", "raw", string(data))
			continue
		}
		if err := Apply(r.registry, env); err != nil {
			r.logger.Debug("Ignoring relay message", "type", env.Type, "error", err)
		}
	}
}

func (r *Relay) reconnect(ctx context.Context) (*ws.Conn, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-r.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialBackoff
	bo.MaxInterval = maxBackoff
	bo.MaxElapsedTime = r.cfg.MaxElapsed

	attempt := 0
	var conn *ws.Conn
	err := backoff.Retry(func() error {
		attempt++
		c, err := r.dialOnce(ctx)
		if err != nil {
			r.logger.Warn("Relay reconnect dial failed", "attempt", attempt, "error", err)
			return err
		}
		conn = c
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = conn.Close()
		return nil, ErrClosed
	}
	r.conn = conn
	r.reconnects++
	r.mu.Unlock()

	r.logger.Info("Relay reconnected", "attempt", attempt)
	return conn, nil
}

func (r *Relay) stopped(ctx context.Context) bool {
	select {
	case <-r.done:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Close sends a close frame and stops the reconnect loop.
func (r *Relay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		return conn.Close()
	}
	return nil
}

// Apply updates registry from one relay message.
func Apply(registry *livelink.Registry, env streaming.Envelope) error {
	switch env.Type {
	case streaming.TypeSubjectStatic:
		var p streaming.SubjectStaticPayload
		if err := streaming.Decode(env, &p); err != nil {
			return err
		}
		registry.SetStatic(p.Subject, core.StaticData{PropertyNames: p.PropertyNames})
	case streaming.TypeSubjectFrame:
		var p streaming.SubjectFramePayload
		if err := streaming.Decode(env, &p); err != nil {
			return err
		}
		registry.PushFrame(p.Subject, core.FrameData{SceneTime: p.Time.ToCore(), Values: p.Values})
	case streaming.TypeSubjectRemoved:
		var p streaming.SubjectRemovedPayload
		if err := streaming.Decode(env, &p); err != nil {
			return err
		}
		registry.Remove(p.Subject)
	case streaming.TypeReset:
		registry.Reset()
	default:
		return fmt.Errorf("unknown message type %q", env.Type)
	}
	return nil
}
