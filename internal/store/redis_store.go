package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisJobStore is a JobStore backed by Redis.
// It uses a simple key structure:
//
//	<prefix>job:<id>                => JSON-encoded JobRecord
//	<prefix>idx:all                 => SET of all job IDs
//	<prefix>idx:recipe:<recipe_id>  => SET of job IDs for a given recipe
//	<prefix>idx:state:<state>       => SET of job IDs for a given state
type RedisJobStore struct {
	client *redis.Client
	prefix string
}

var _ JobStore = (*RedisJobStore)(nil)

// NewRedisJobStore creates a RedisJobStore.
// prefix is optional but recommended (e.g. "reciperunner:").
func NewRedisJobStore(client *redis.Client, prefix string) *RedisJobStore {
	if prefix == "" {
		prefix = "reciperunner:"
	}
	return &RedisJobStore{client: client, prefix: prefix}
}

func (s *RedisJobStore) keyJob(id string) string          { return s.prefix + "job:" + id }
func (s *RedisJobStore) keyAll() string                   { return s.prefix + "idx:all" }
func (s *RedisJobStore) keyRecipe(recipeID string) string { return s.prefix + "idx:recipe:" + recipeID }
func (s *RedisJobStore) keyState(state string) string     { return s.prefix + "idx:state:" + state }

func (s *RedisJobStore) SaveJob(ctx context.Context, rec *JobRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	// A re-save may change the state; drop the old state index entry first.
	var prevState string
	if prev, err := s.GetJob(ctx, rec.ID); err == nil {
		prevState = prev.State
	} else if !errors.Is(err, ErrJobNotFound) {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyJob(rec.ID), data, 0)
	pipe.SAdd(ctx, s.keyAll(), rec.ID)
	pipe.SAdd(ctx, s.keyRecipe(rec.RecipeID), rec.ID)
	if prevState != "" && prevState != rec.State {
		pipe.SRem(ctx, s.keyState(prevState), rec.ID)
	}
	pipe.SAdd(ctx, s.keyState(rec.State), rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save job %s: %w", rec.ID, err)
	}
	return nil
}

func (s *RedisJobStore) GetJob(ctx context.Context, id string) (*JobRecord, error) {
	data, err := s.client.Get(ctx, s.keyJob(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return decodeRecord(data)
}

func (s *RedisJobStore) ListJobs(ctx context.Context, filter JobFilter) ([]*JobRecord, error) {
	keys := []string{s.keyAll()}
	if filter.RecipeID != "" {
		keys = append(keys, s.keyRecipe(filter.RecipeID))
	}
	if filter.State != "" {
		keys = append(keys, s.keyState(filter.State))
	}

	ids, err := s.client.SInter(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	jobKeys := make([]string, len(ids))
	for i, id := range ids {
		jobKeys[i] = s.keyJob(id)
	}
	vals, err := s.client.MGet(ctx, jobKeys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*JobRecord, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			// Index entry without a record; skip.
			continue
		}
		rec, err := decodeRecord([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return sortAndLimit(out, filter.Limit), nil
}

func (s *RedisJobStore) Close() error {
	return s.client.Close()
}
