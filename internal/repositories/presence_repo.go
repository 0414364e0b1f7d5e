package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/joelikeyan/Open-world-game/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "presence:"
	presenceOnlineSet = "presence:online"

	// presenceTTL expires stale mirrors; the hub refreshes live ones on
	// every liveness sweep.
	presenceTTL = 60 * time.Second
)

type RedisPresenceRepository struct {
	client *redis.Client
}

func NewRedisPresenceRepository(client *redis.Client) *RedisPresenceRepository {
	return &RedisPresenceRepository{client: client}
}

// SetPresence writes or refreshes the mirror entry for a player with
// automatic TTL and tracks the player in the online set.
func (r *RedisPresenceRepository) SetPresence(ctx context.Context, presence *models.PlayerPresence) error {
	presence.LastSeen = time.Now()

	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}

	key := presenceKey(presence.PlayerID)
	if err := r.client.Set(ctx, key, data, presenceTTL).Err(); err != nil {
		return fmt.Errorf("failed to set presence: %w", err)
	}
	if err := r.client.SAdd(ctx, presenceOnlineSet, presence.PlayerID).Err(); err != nil {
		return fmt.Errorf("failed to add player to online set: %w", err)
	}
	return nil
}

func (r *RedisPresenceRepository) DeletePresence(ctx context.Context, playerID string) error {
	if err := r.client.SRem(ctx, presenceOnlineSet, playerID).Err(); err != nil {
		return fmt.Errorf("failed to remove player from online set: %w", err)
	}
	if err := r.client.Del(ctx, presenceKey(playerID)).Err(); err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}
	return nil
}

// ListOnline returns every player with a live mirror entry. Members whose
// keys expired are pruned from the online set on the way through.
func (r *RedisPresenceRepository) ListOnline(ctx context.Context) ([]models.PlayerPresence, error) {
	playerIDs, err := r.client.SMembers(ctx, presenceOnlineSet).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read online set: %w", err)
	}
	if len(playerIDs) == 0 {
		return []models.PlayerPresence{}, nil
	}

	keys := make([]string, len(playerIDs))
	for i, id := range playerIDs {
		keys[i] = presenceKey(id)
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bulk presence: %w", err)
	}

	online := make([]models.PlayerPresence, 0, len(results))
	var expired []interface{}

	for i, result := range results {
		if result == nil {
			expired = append(expired, playerIDs[i])
			continue
		}
		data, ok := result.(string)
		if !ok {
			continue
		}
		var presence models.PlayerPresence
		if err := json.Unmarshal([]byte(data), &presence); err != nil {
			expired = append(expired, playerIDs[i])
			continue
		}
		online = append(online, presence)
	}

	if len(expired) > 0 {
		if err := r.client.SRem(ctx, presenceOnlineSet, expired...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune online set: %w", err)
		}
	}
	return online, nil
}

// Helper: build Redis key for presence
func presenceKey(playerID string) string {
	return presenceKeyPrefix + playerID
}
