package repositories

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelikeyan/Open-world-game/internal/models"
)

func TestPositionRepository_SaveAndLoad(t *testing.T) {
	// ARRANGE
	pool := getTestPool(t)
	repo := NewPostgresPositionRepository(pool)
	playerRepo := NewPostgresPlayerRepository(pool)
	ctx := context.Background()

	playerID := setupTestPlayer(t, ctx, playerRepo)
	defer cleanupPlayer(t, pool, ctx, playerID)

	// ACT
	position := &models.SavedPosition{
		PlayerID:  playerID,
		SessionID: "test-session",
		Payload:   json.RawMessage(`{"position":{"x":10,"y":5,"z":-2}}`),
	}
	err := repo.Save(ctx, position)

	// ASSERT
	require.NoError(t, err)
	assert.False(t, position.UpdatedAt.IsZero())

	payload, err := repo.Load(ctx, playerID)
	require.NoError(t, err)

	var decoded models.PositionPayload
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.NotNil(t, decoded.Position)
	assert.Equal(t, 10.0, decoded.Position.X)
	assert.Equal(t, -2.0, decoded.Position.Z)
}

func TestPositionRepository_SaveOverwrites(t *testing.T) {
	// ARRANGE: one row per player, second save wins
	pool := getTestPool(t)
	repo := NewPostgresPositionRepository(pool)
	playerRepo := NewPostgresPlayerRepository(pool)
	ctx := context.Background()

	playerID := setupTestPlayer(t, ctx, playerRepo)
	defer cleanupPlayer(t, pool, ctx, playerID)

	first := &models.SavedPosition{PlayerID: playerID, Payload: json.RawMessage(`{"position":{"x":1}}`)}
	require.NoError(t, repo.Save(ctx, first))

	// ACT
	second := &models.SavedPosition{PlayerID: playerID, Payload: json.RawMessage(`{"position":{"x":2}}`)}
	require.NoError(t, repo.Save(ctx, second))

	// ASSERT
	payload, err := repo.Load(ctx, playerID)
	require.NoError(t, err)

	var decoded models.PositionPayload
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.NotNil(t, decoded.Position)
	assert.Equal(t, 2.0, decoded.Position.X)
}

func TestPositionRepository_Load_NotFound(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresPositionRepository(pool)

	_, err := repo.Load(context.Background(), "no-such-player-"+uuid.NewString())

	assert.ErrorIs(t, err, ErrNotFound)
}
