package log

import (
	"context"
	"log/slog"
)

// SlogAdapter mirrors capture events to an slog.Logger, one record per
// event. Exchanges and state changes log at Debug, errors at Warn. The
// payload sits in a group named after the category.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter returns an adapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes one record for event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session", shortSession(event.SessionID)),
		slog.String("dir", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
	}
	if event.Server != "" {
		attrs = append(attrs, slog.String("server", event.Server))
	}
	if event.User != "" {
		attrs = append(attrs, slog.String("user", event.User))
	}

	level, msg := slog.LevelDebug, "mp "+event.Category.String()
	switch {
	case event.Exchange != nil:
		attrs = append(attrs, exchangeGroup(event.Exchange))
	case event.StateChange != nil:
		sc := event.StateChange
		state := []any{
			slog.String("entity", sc.Entity.String()),
			slog.String("from", sc.OldState),
			slog.String("to", sc.NewState),
		}
		if sc.Reason != "" {
			state = append(state, slog.String("reason", sc.Reason))
		}
		attrs = append(attrs, slog.Group("state", state...))
	case event.Error != nil:
		level = slog.LevelWarn
		e := event.Error
		fail := []any{
			slog.String("layer", e.Layer.String()),
			slog.String("message", e.Message),
		}
		if e.Code != nil {
			fail = append(fail, slog.Int("code", *e.Code))
		}
		if e.Context != "" {
			fail = append(fail, slog.String("context", e.Context))
		}
		attrs = append(attrs, slog.Group("error", fail...))
	}

	a.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func exchangeGroup(x *ExchangeEvent) slog.Attr {
	fields := []any{
		slog.String("type", x.Type.String()),
		slog.String("endpoint", x.Endpoint),
		slog.Int("bytes", x.Size),
	}
	if x.Truncated {
		fields = append(fields, slog.Bool("truncated", true))
	}
	if x.Status != nil {
		fields = append(fields, slog.Int("http", *x.Status))
	}
	if x.Code != nil {
		fields = append(fields, slog.Int("code", *x.Code))
	}
	if x.Duration != nil {
		fields = append(fields, slog.Duration("took", *x.Duration))
	}
	return slog.Group("exchange", fields...)
}

// shortSession keeps the first block of a session UUID.
func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var _ Logger = (*SlogAdapter)(nil)
