package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("DB_USER", "cinema")

	c, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "8080", c.Port)
	require.Equal(t, "mysql", c.DBDriver)
	require.Equal(t, "mysql", c.DriverName())
	require.True(t, c.DBMigrate)
	require.Equal(t, 10*time.Second, c.ShutdownTimeout)
	require.Equal(t, "cinema@tcp(localhost:3306)/cinema?charset=utf8mb4&parseTime=true&loc=UTC", c.DSN())

	require.True(t, c.Cache.Enabled)
	require.Equal(t, map[string]bool{"GET": true}, c.Cache.MethodSet())
	require.Equal(t, 30*time.Second, c.Cache.TTL)

	require.Equal(t, 60, c.RateLimit.Capacity)
	require.Equal(t, "ip_route", c.RateLimit.KeyStrategy)
	require.Equal(t, "localhost:6379", c.Redis.Address())
}

func TestFromEnv_Postgres(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASS", "s3cret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "catalog")

	c, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "pgx", c.DriverName())
	require.Equal(t, "postgres://app:s3cret@db:5432/catalog?sslmode=disable", c.DSN())
}

func TestFromEnv_SQLiteNeedsNoCredentials(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_NAME", ":memory:")

	c, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, ":memory:", c.DSN())
}

func TestFromEnv_ExplicitDSNWins(t *testing.T) {
	t.Setenv("DB_DSN", "root@tcp(127.0.0.1:3307)/x")

	c, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "root@tcp(127.0.0.1:3307)/x", c.DSN())
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Run("driver", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "oracle")
		_, err := FromEnv()
		require.Error(t, err)
	})
	t.Run("missing user", func(t *testing.T) {
		t.Setenv("DB_USER", "")
		_, err := FromEnv()
		require.ErrorContains(t, err, "DB_USER")
	})
	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("DB_USER", "cinema")
		t.Setenv("CACHE_TTL", "soon")
		_, err := FromEnv()
		require.Error(t, err)
	})
}

func TestFromEnv_RateLimitAliases(t *testing.T) {
	t.Setenv("DB_USER", "cinema")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2m")
	t.Setenv("RATE_LIMIT_TTL", "1m")
	t.Setenv("RATE_LIMIT_KEY_STRATEGY", "ip_user_route")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	c, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, 5, c.RateLimit.Capacity)
	require.Equal(t, 1, c.RateLimit.RefillTokens)
	require.Equal(t, 2*time.Minute, c.RateLimit.RefillInterval)
	require.Equal(t, 10*time.Minute, c.RateLimit.TTL, "ttl is at least five refill intervals")
	require.Equal(t, "ip_route", c.RateLimit.KeyStrategy)
	require.Equal(t, "cache:6380", c.Redis.Address())
}
