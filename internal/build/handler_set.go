package build

import (
	"context"
	"log/slog"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// HandlerSet is a btclog.Handler that forwards every record to a list of
// underlying handlers. The daemon uses it to write the same log stream to
// the console and to the rotating log file.
type HandlerSet struct {
	level btclog.Level
	set   []btclogv2.Handler
}

// NewHandlerSet wraps the given handlers. All of them start at the Info
// level.
func NewHandlerSet(handlers ...btclogv2.Handler) *HandlerSet {
	h := &HandlerSet{
		set:   handlers,
		level: btclog.LevelInfo,
	}
	h.SetLevel(h.level)

	return h
}

// Enabled reports whether every underlying handler accepts the level.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.set {
		if !handler.Enabled(ctx, level) {
			return false
		}
	}

	return true
}

// Handle passes the record to each handler in order, stopping at the first
// failure.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.set {
		if err := handler.Handle(ctx, record); err != nil {
			return err
		}
	}

	return nil
}

// WithAttrs returns a plain slog handler set carrying the extra attributes.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.reduce(func(s slog.Handler) slog.Handler {
		return s.WithAttrs(attrs)
	})
}

// WithGroup returns a plain slog handler set nested under the group.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) WithGroup(name string) slog.Handler {
	return h.reduce(func(s slog.Handler) slog.Handler {
		return s.WithGroup(name)
	})
}

// SubSystem tags every underlying handler with the subsystem name.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) SubSystem(tag string) btclogv2.Handler {
	return h.derive(func(b btclogv2.Handler) btclogv2.Handler {
		return b.SubSystem(tag)
	})
}

// SetLevel changes the level of all underlying handlers.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) SetLevel(level btclog.Level) {
	for _, handler := range h.set {
		handler.SetLevel(level)
	}
	h.level = level
}

// Level returns the level last applied with SetLevel.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) Level() btclog.Level {
	return h.level
}

// WithPrefix prefixes every message written by the underlying handlers.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) WithPrefix(prefix string) btclogv2.Handler {
	return h.derive(func(b btclogv2.Handler) btclogv2.Handler {
		return b.WithPrefix(prefix)
	})
}

// derive builds a new HandlerSet by applying f to each member.
func (h *HandlerSet) derive(
	f func(btclogv2.Handler) btclogv2.Handler) *HandlerSet {

	derived := &HandlerSet{
		level: h.level,
		set:   make([]btclogv2.Handler, len(h.set)),
	}
	for i, handler := range h.set {
		derived.set[i] = f(handler)
	}

	return derived
}

// reduce builds a slog-only fan-out by applying f to each member.
func (h *HandlerSet) reduce(f func(slog.Handler) slog.Handler) slog.Handler {
	reduced := &reducedSet{set: make([]slog.Handler, len(h.set))}
	for i, handler := range h.set {
		reduced.set[i] = f(handler)
	}

	return reduced
}

var _ btclogv2.Handler = (*HandlerSet)(nil)

// reducedSet is the slog.Handler produced by WithAttrs and WithGroup, which
// return slog handlers rather than btclog handlers.
type reducedSet struct {
	set []slog.Handler
}

// Enabled reports whether every member accepts the level.
func (r *reducedSet) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range r.set {
		if !handler.Enabled(ctx, level) {
			return false
		}
	}

	return true
}

// Handle forwards the record to each member.
func (r *reducedSet) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range r.set {
		if err := handler.Handle(ctx, record); err != nil {
			return err
		}
	}

	return nil
}

// WithAttrs applies the attributes to each member.
func (r *reducedSet) WithAttrs(attrs []slog.Attr) slog.Handler {
	reduced := &reducedSet{set: make([]slog.Handler, len(r.set))}
	for i, handler := range r.set {
		reduced.set[i] = handler.WithAttrs(attrs)
	}

	return reduced
}

// WithGroup applies the group to each member.
func (r *reducedSet) WithGroup(name string) slog.Handler {
	reduced := &reducedSet{set: make([]slog.Handler, len(r.set))}
	for i, handler := range r.set {
		reduced.set[i] = handler.WithGroup(name)
	}

	return reduced
}

var _ slog.Handler = (*reducedSet)(nil)
