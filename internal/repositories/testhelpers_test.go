package repositories

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// getTestPool connects to the database named by TEST_DATABASE_URL. Tests that
// need Postgres are skipped when it is unset so the rest of the suite can run
// without infrastructure.
func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(pool.Close)
	return pool
}

// getTestRedisClient connects to the instance named by TEST_REDIS_URL, same
// skip rule as getTestPool.
func getTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err, "Failed to parse test redis URL")
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	return client
}

func cleanupPlayer(t *testing.T, pool *pgxpool.Pool, ctx context.Context, playerID string) {
	t.Helper()
	if _, err := pool.Exec(ctx, `DELETE FROM player_positions WHERE player_id = $1`, playerID); err != nil {
		t.Logf("Warning: failed to cleanup positions: %v", err)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM sessions WHERE player_id = $1`, playerID); err != nil {
		t.Logf("Warning: failed to cleanup sessions: %v", err)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM players WHERE id = $1`, playerID); err != nil {
		t.Logf("Warning: failed to cleanup player: %v", err)
	}
}
