package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/playstake/arena-backend/internal/game"
	"github.com/redis/go-redis/v9"
)

var ErrStateNotFound = errors.New("game state not found")

// StateRepository persists the live game state of a match. The state is
// serialized only at this boundary; everything above works on typed values.
type StateRepository interface {
	Load(ctx context.Context, matchID string) (game.State, error)
	Save(ctx context.Context, matchID string, state game.State) error
	Delete(ctx context.Context, matchID string) error
}

type dbState struct {
	client *redis.Client
}

func NewStateRepository(client *redis.Client) StateRepository {
	return &dbState{
		client: client,
	}
}

func (that *dbState) Load(ctx context.Context, matchID string) (game.State, error) {
	stateKey := "state:" + matchID

	response, err := that.client.Get(ctx, stateKey).Result()
	if errors.Is(err, redis.Nil) {
		return game.State{}, ErrStateNotFound
	}

	if err != nil {
		return game.State{}, fmt.Errorf("failed to get game state: %w", err)
	}

	var state game.State
	if err = json.Unmarshal([]byte(response), &state); err != nil {
		return game.State{}, fmt.Errorf("failed to unmarshal game state: %w", err)
	}

	return state, nil
}

func (that *dbState) Save(ctx context.Context, matchID string, state game.State) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("could not marshal game state: %w", err)
	}

	stateKey := "state:" + matchID
	if err = that.client.Set(ctx, stateKey, stateJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set game state: %w", err)
	}

	return nil
}

func (that *dbState) Delete(ctx context.Context, matchID string) error {
	stateKey := "state:" + matchID

	if err := that.client.Del(ctx, stateKey).Err(); err != nil {
		return fmt.Errorf("failed to delete game state: %w", err)
	}

	return nil
}
