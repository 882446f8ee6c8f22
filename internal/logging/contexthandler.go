package logging

import (
	"context"
	"log/slog"
	"sync"
)

// ContextProvider is a function that returns dynamic context attributes.
// It runs on every record, so it must not take locks held while logging.
type ContextProvider func() []slog.Attr

// ContextHandler wraps another handler and injects dynamic context attributes.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

// NewContextHandler creates a handler that adds dynamic context to each record.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{
		inner:    inner,
		provider: provider,
	}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds dynamic context attributes and delegates to the inner handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider()...)
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler with the given attributes.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		inner:    h.inner.WithAttrs(attrs),
		provider: h.provider,
	}
}

// WithGroup returns a new ContextHandler with the given group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:    h.inner.WithGroup(name),
		provider: h.provider,
	}
}

// SessionAttrs mirrors the recording session for log enrichment. The
// recorder logs while holding its own lock, so log records read this copy
// instead of querying the recorder.
type SessionAttrs struct {
	mu        sync.RWMutex
	subject   string
	recording bool
}

// Set updates the mirrored session state.
func (s *SessionAttrs) Set(subject string, recording bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject = subject
	s.recording = recording
}

// Provider returns a ContextProvider adding "subject" and "recording".
// Nothing is added while no subject is set.
func (s *SessionAttrs) Provider() ContextProvider {
	return func() []slog.Attr {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.subject == "" {
			return nil
		}
		return []slog.Attr{
			slog.String("subject", s.subject),
			slog.Bool("recording", s.recording),
		}
	}
}
