package e2e

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

var (
	once           sync.Once
	redisContainer *tcredis.RedisContainer
	redisOptions   *redis.Options
	startErr       error
	wg             sync.WaitGroup
	nextDB         atomic.Int32
)

// redisDatabases is the number of logical databases a stock Redis has.
const redisDatabases = 16

// UseRedis signals that the test is using Redis.
// This will either provision or reuse a Redis container for the test.
// Each call gets its own flushed logical database, so tests sharing the
// container do not see each other's keys unless more than 16 run.
func UseRedis(t *testing.T) *redis.Client {
	t.Helper()

	once.Do(func() {
		ctx := context.Background()
		redisContainer, startErr = tcredis.Run(ctx, "redis:7")
		if startErr != nil {
			return
		}
		var connStr string
		connStr, startErr = redisContainer.ConnectionString(ctx)
		if startErr != nil {
			return
		}
		redisOptions, startErr = redis.ParseURL(connStr)
	})

	if startErr != nil {
		t.Fatalf("failed to start redis container: %v", startErr)
	}
	wg.Add(1)
	t.Cleanup(wg.Done)

	options := *redisOptions
	options.DB = int(nextDB.Add(1)-1) % redisDatabases
	client := redis.NewClient(&options)
	t.Cleanup(func() {
		client.Close()
	})

	if err := client.FlushDB(t.Context()).Err(); err != nil {
		t.Fatalf("failed to flush redis database %d: %v", options.DB, err)
	}
	return client
}

func TerminateRedisForE2E() {
	wg.Wait()
	if redisContainer != nil {
		if err := testcontainers.TerminateContainer(redisContainer); err != nil {
			fmt.Printf("failed to terminate redis container: %v", err)
		}
	}
}
