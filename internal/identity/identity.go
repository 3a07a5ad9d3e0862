package identity

import (
	"context"
	"fmt"

	"github.com/playstake/arena-backend/internal/repository"
)

// Resolver answers who the two participants of a match are. The account
// system owns user identity; this core only needs the pairing.
type Resolver interface {
	ResolveParticipants(ctx context.Context, matchID string) (playerA, playerB string, err error)
}

type matchResolver struct {
	matches repository.MatchRepository
}

func NewMatchResolver(matches repository.MatchRepository) Resolver {
	return &matchResolver{
		matches: matches,
	}
}

func (that *matchResolver) ResolveParticipants(ctx context.Context, matchID string) (string, string, error) {
	match, err := that.matches.GetByID(ctx, matchID)
	if err != nil {
		return "", "", fmt.Errorf("failed to get match: %w", err)
	}

	return match.PlayerA, match.PlayerB, nil
}
