package event

import (
	"context"
	"log/slog"
)

// Notifier pushes events to the owning session (websocket hub, queue, ...).
//
// Delivery is fire-and-forget: implementations must not block the scheduler
// and have no way to fail it.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event)

func (f NotifierFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

// NoopNotifier drops every event.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, Event) {}

// LoggingNotifier writes events to a slog.Logger.
type LoggingNotifier struct {
	logger *slog.Logger
}

// NewLoggingNotifier returns a Notifier that logs through logger, or the
// default logger when nil.
func NewLoggingNotifier(logger *slog.Logger) *LoggingNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingNotifier{logger: logger}
}

func (l *LoggingNotifier) Notify(ctx context.Context, ev Event) {
	attrs := []any{"job_id", ev.JobID, "session_id", ev.SessionID}
	switch ev.Type {
	case NodeStarted, NodeFinished:
		l.logger.DebugContext(ctx, string(ev.Type), append(attrs, "node_id", ev.NodeID, "node_name", ev.NodeName)...)
	case JobError:
		if n := len(ev.Errors); n > 0 {
			attrs = append(attrs, "node_id", ev.Errors[n-1].NodeID, "err", ev.Errors[n-1].Message)
		}
		l.logger.WarnContext(ctx, string(ev.Type), attrs...)
	default:
		l.logger.InfoContext(ctx, string(ev.Type), append(attrs, "state", ev.State, "active_nodes", ev.ActiveNodes)...)
	}
}

// CompositeNotifier fans events out to multiple notifiers.
type CompositeNotifier struct {
	notifiers []Notifier
}

// NewCompositeNotifier forwards to each non-nil notifier in ns.
func NewCompositeNotifier(ns ...Notifier) Notifier {
	filtered := make([]Notifier, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			filtered = append(filtered, n)
		}
	}
	switch len(filtered) {
	case 0:
		return NoopNotifier{}
	case 1:
		return filtered[0]
	}
	return &CompositeNotifier{notifiers: filtered}
}

func (c *CompositeNotifier) Notify(ctx context.Context, ev Event) {
	for _, n := range c.notifiers {
		n.Notify(ctx, ev)
	}
}
