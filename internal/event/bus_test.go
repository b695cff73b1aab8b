package event_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/reciperunner/internal/event"
)

func TestBus_GenericAndScoped(t *testing.T) {
	b := event.NewBus()

	var all, scoped []event.Type
	unsubAll := b.Subscribe(func(ev event.Event) { all = append(all, ev.Type) })
	unsubJob := b.SubscribeJob("job-1", func(ev event.Event) { scoped = append(scoped, ev.Type) })

	b.Publish(event.Event{Type: event.JobStarted, JobID: "job-1"})
	b.Publish(event.Event{Type: event.JobStarted, JobID: "job-2"})
	require.Equal(t, []event.Type{event.JobStarted, event.JobStarted}, all)
	require.Equal(t, []event.Type{event.JobStarted}, scoped)

	unsubJob()
	unsubAll()
	b.Publish(event.Event{Type: event.JobFinished, JobID: "job-1"})
	require.Len(t, all, 2)
	require.Len(t, scoped, 1)
}

func TestCompositeNotifier(t *testing.T) {
	require.IsType(t, event.NoopNotifier{}, event.NewCompositeNotifier(nil, nil))

	var n1, n2 int
	single := event.NotifierFunc(func(context.Context, event.Event) { n1++ })
	require.NotNil(t, event.NewCompositeNotifier(nil, single))

	c := event.NewCompositeNotifier(single, event.NotifierFunc(func(context.Context, event.Event) { n2++ }))
	c.Notify(context.Background(), event.Event{Type: event.JobUpdate})
	require.Equal(t, 1, n1)
	require.Equal(t, 1, n2)
}

func TestLoggingNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	n := event.NewLoggingNotifier(logger)

	ctx := context.Background()
	n.Notify(ctx, event.Event{Type: event.NodeStarted, JobID: "j", NodeID: 3, NodeName: "join"})
	n.Notify(ctx, event.Event{Type: event.JobError, JobID: "j", Errors: []event.NodeError{{NodeID: 3, Message: "boom"}}})
	n.Notify(ctx, event.Event{Type: event.JobError, JobID: "j"})
	n.Notify(ctx, event.Event{Type: event.JobFinished, JobID: "j", State: "success"})

	out := buf.String()
	require.Contains(t, out, "node_started")
	require.Contains(t, out, "err=boom")
	require.Contains(t, out, "state=success")
}
