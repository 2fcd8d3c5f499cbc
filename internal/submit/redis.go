package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"routined/internal/routine"
	logx "routined/pkg/logx"
)

const defaultRedisKey = "routined:submissions"

// Redis pushes each batch as JSON onto a list for an executor to BLPOP.
type Redis struct {
	client *redis.Client
	key    string
	log    logx.Logger
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, cfg RedisConfig, log logx.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedis(client, cfg.Key, log), nil
}

func NewRedis(client *redis.Client, key string, log logx.Logger) *Redis {
	key = strings.TrimSpace(key)
	if key == "" {
		key = defaultRedisKey
	}
	return &Redis{client: client, key: key, log: log.With(logx.String("submitter", "redis"))}
}

func (r *Redis) Submit(ctx context.Context, tasks []routine.Task) error {
	batch := Batch{BatchID: uuid.NewString(), SubmittedAt: time.Now().UTC(), Tasks: tasks}
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}
	if err := r.client.RPush(ctx, r.key, body).Err(); err != nil {
		return fmt.Errorf("failed to push batch: %w", err)
	}
	r.log.Debug("batch queued", logx.String("key", r.key), logx.String("batch_id", batch.BatchID), logx.Int("tasks", len(tasks)))
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }
