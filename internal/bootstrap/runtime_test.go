package bootstrap

import (
	"testing"

	"randomblog/internal/cache"
	"randomblog/internal/config"
	"randomblog/internal/models"
	"randomblog/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// An unparsable URL leaves the cache client nil without dialing anything.
const unreachableRedis = "redis://localhost:not-a-port"

func testConfig(env, redisURL string) *config.Config {
	return &config.Config{
		Env:      env,
		DBDriver: "sqlite",
		DBPath:   ":memory:",
		RedisURL: redisURL,
	}
}

func TestInitRuntime_RedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Cleanup(cache.Close)

	rt, err := InitRuntime(testConfig("test", "redis://"+mr.Addr()), Options{})
	require.NoError(t, err)
	t.Cleanup(rt.Close)

	require.NotNil(t, rt.Redis)
	assert.IsType(t, &session.RedisStore{}, rt.Sessions)
}

func TestInitRuntime_MemoryFallbackOutsideProduction(t *testing.T) {
	t.Cleanup(cache.Close)

	rt, err := InitRuntime(testConfig("development", unreachableRedis), Options{})
	require.NoError(t, err)
	t.Cleanup(rt.Close)

	assert.Nil(t, rt.Redis)
	assert.IsType(t, &session.MemoryStore{}, rt.Sessions)
}

func TestInitRuntime_ProductionRequiresRedis(t *testing.T) {
	t.Cleanup(cache.Close)

	rt, err := InitRuntime(testConfig("production", unreachableRedis), Options{})
	assert.ErrorIs(t, err, ErrSessionStoreUnavailable)
	assert.Nil(t, rt)
}

func TestInitRuntime_SeedDemo(t *testing.T) {
	t.Cleanup(cache.Close)

	rt, err := InitRuntime(testConfig("development", unreachableRedis), Options{SeedDemo: true})
	require.NoError(t, err)
	t.Cleanup(rt.Close)

	var posts int64
	require.NoError(t, rt.DB.Model(&models.Post{}).Count(&posts).Error)
	assert.Positive(t, posts)

	var staff int64
	require.NoError(t, rt.DB.Model(&models.User{}).Where("is_staff = ?", true).Count(&staff).Error)
	assert.Zero(t, staff, "boot never creates staff accounts")
}
