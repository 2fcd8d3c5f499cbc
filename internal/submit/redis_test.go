package submit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	redismodule "github.com/testcontainers/testcontainers-go/modules/redis"

	logx "routined/pkg/logx"
)

func TestRedisSubmit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := redismodule.Run(ctx, "redis:8-alpine")
	if err != nil {
		t.Skipf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})
	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Skipf("failed to get redis endpoint: %v", err)
	}

	sub, err := OpenRedis(ctx, RedisConfig{Addr: endpoint, Key: "test:queue"}, logx.Nop())
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	defer sub.Close()

	if err := sub.Submit(ctx, sampleTasks()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	defer client.Close()
	raw, err := client.LPop(ctx, "test:queue").Bytes()
	if err != nil {
		t.Fatalf("LPop: %v", err)
	}
	var got Batch
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.BatchID == "" || len(got.Tasks) != 1 || got.Tasks[0].Name != "patrol" {
		t.Fatalf("unexpected batch %+v", got)
	}
}
