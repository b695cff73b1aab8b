package store_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/reciperunner/internal/event"
	"github.com/gyaneshwarpardhi/reciperunner/internal/store"
)

func record(id, recipeID, state string, finished time.Time) *store.JobRecord {
	return &store.JobRecord{
		ID:       id,
		RecipeID: recipeID,
		State:    state,
		Errors:   []event.NodeError{},
		Nodes: []store.NodeRecord{
			{ID: 1, Name: "constant", RunState: "finished", Output: map[string]interface{}{"out": "x"}},
		},
		Artifacts:  "x",
		CreatedAt:  finished.Add(-time.Second),
		FinishedAt: finished,
	}
}

// exerciseJobStore runs the behaviour every JobStore must share.
func exerciseJobStore(t *testing.T, s store.JobStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	_, err := s.GetJob(ctx, "missing")
	require.ErrorIs(t, err, store.ErrJobNotFound)

	require.NoError(t, s.SaveJob(ctx, record("a", "r1", "success", base)))
	require.NoError(t, s.SaveJob(ctx, record("b", "r1", "error", base.Add(time.Minute))))
	require.NoError(t, s.SaveJob(ctx, record("c", "r2", "success", base.Add(2*time.Minute))))

	got, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "r1", got.RecipeID)
	require.Equal(t, "x", got.Artifacts)
	require.Equal(t, "x", got.Node(1).Output["out"])
	require.True(t, got.FinishedAt.Equal(base))

	all, err := s.ListJobs(ctx, store.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "c", all[0].ID, "most recently finished first")

	r1, err := s.ListJobs(ctx, store.JobFilter{RecipeID: "r1"})
	require.NoError(t, err)
	require.Len(t, r1, 2)

	ok, err := s.ListJobs(ctx, store.JobFilter{State: "success", Limit: 1})
	require.NoError(t, err)
	require.Len(t, ok, 1)
	require.Equal(t, "c", ok[0].ID)

	// Re-saving replaces the record and its state index.
	updated := record("a", "r1", "error", base)
	require.NoError(t, s.SaveJob(ctx, updated))
	got, err = s.GetJob(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "error", got.State)

	succ, err := s.ListJobs(ctx, store.JobFilter{State: "success"})
	require.NoError(t, err)
	require.Len(t, succ, 1)
}

func TestMemoryJobStore(t *testing.T) {
	s := store.NewMemoryJobStore()
	exerciseJobStore(t, s)
	require.NoError(t, s.Close())
}

func TestMemoryJobStore_ReturnsCopies(t *testing.T) {
	s := store.NewMemoryJobStore()
	ctx := context.Background()
	require.NoError(t, s.SaveJob(ctx, record("a", "r", "success", time.Now())))

	got, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	got.State = "mutated"

	again, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "success", again.State)
}

func TestSQLiteJobStore(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Every pooled connection to :memory: would see its own database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s, err := store.NewSQLiteJobStore(db)
	require.NoError(t, err)
	exerciseJobStore(t, s)
}

func TestOpenSQLiteJobStore_File(t *testing.T) {
	path := t.TempDir() + "/jobs.db"
	s, err := store.OpenSQLiteJobStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveJob(context.Background(), record("a", "r", "success", time.Now())))
	require.NoError(t, s.Close())

	s, err = store.OpenSQLiteJobStore(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetJob(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, "success", got.State)
}

func TestRedisJobStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	prefix := "reciperunner:test:" + time.Now().Format("150405.000000") + ":"
	t.Cleanup(func() {
		iter := client.Scan(ctx, 0, prefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			_ = client.Del(ctx, iter.Val()).Err()
		}
		_ = client.Close()
	})

	exerciseJobStore(t, store.NewRedisJobStore(client, prefix))
}
