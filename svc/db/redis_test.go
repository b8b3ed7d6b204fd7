package db

import (
	"context"
	"os"
	"testing"
	"time"

	"pastabin/cfg"

	"github.com/stretchr/testify/require"
)

func TestRedisBackend(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	r, err := NewRedis(url, &cfg.Cfg{RedisTimeout: 2 * time.Second})
	require.NoError(t, err)
	clean := func() {
		ctx := context.Background()
		keys, _ := r.client.Keys(ctx, "paste:*").Result()
		if len(keys) > 0 {
			r.client.Del(ctx, keys...)
		}
	}
	clean()
	t.Cleanup(func() {
		clean()
		r.Close()
	})
	runBackendSuite(t, r)
}
