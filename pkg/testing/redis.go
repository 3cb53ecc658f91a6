package testing

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// GetRedisClientAndCtx connects to the redis at host:port and waits until it answers a ping.
// The client is closed when the test finishes.
func GetRedisClientAndCtx(t *testing.T, host, port, password string) (context.Context, *redis.Client) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	t.Logf("using redis: [%s]", net.JoinHostPort(host, port))
	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: password,
		DB:       0, // use default DB
	})
	t.Cleanup(func() {
		if err := rdb.Close(); err != nil {
			t.Logf("close redis client: %s", err)
		}
	})

	require.Eventually(t, func() bool {
		return rdb.Ping(ctx).Err() == nil
	}, 8*time.Second, 100*time.Millisecond, "redis did not answer ping")

	return ctx, rdb
}
