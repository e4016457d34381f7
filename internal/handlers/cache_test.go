package handlers

import (
	"testing"
	"time"

	"advisy-crm/config"
	"advisy-crm/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	previous := config.RDB
	config.RDB = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		config.RDB.Close()
		config.RDB = previous
	})
	return mr
}

func TestInvalidateUserCacheDeletesKey(t *testing.T) {
	mr := setupTestRedis(t)

	key := middleware.UserCacheKey(42)
	require.NoError(t, mr.Set(key, `{"userId":42}`))

	invalidateUserCache(42)

	assert.False(t, mr.Exists(key))
}

func TestInvalidateUserCacheWithoutRedis(t *testing.T) {
	previous := config.RDB
	config.RDB = nil
	defer func() { config.RDB = previous }()

	// Sans Redis configuré l'appel doit rester silencieux.
	invalidateUserCache(42)
}

func TestDashboardCacheRoundTrip(t *testing.T) {
	mr := setupTestRedis(t)

	key := dashboardCacheKey(7, 3, "agency")
	assert.Equal(t, "dashboard:agency:7", key)
	assert.Equal(t, "dashboard:user:3", dashboardCacheKey(7, 3, "user"))

	require.NoError(t, config.RDB.Set(config.Ctx, key, `{"clients":12}`, dashboardCacheTTL).Err())

	mr.FastForward(dashboardCacheTTL + time.Second)
	_, err := config.RDB.Get(config.Ctx, key).Result()
	assert.ErrorIs(t, err, redis.Nil)
}
