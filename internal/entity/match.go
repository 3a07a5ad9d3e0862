package entity

import (
	"fmt"

	"github.com/playstake/arena-backend/internal/apperror"
)

const (
	KindTicTacToe   = "tictactoe"
	KindBackgammon  = "backgammon"
	KindSlimeSoccer = "slime_soccer"
)

const (
	StatusPending = "pending"
	StatusOngoing = "ongoing"
	StatusEnded   = "ended"
)

// Match is the persisted record of one wagered match. The settlement and
// account collaborators own its creation; this core reads participants and
// stake flags and advances the lifecycle status.
type Match struct {
	ID      string `json:"id"`
	PlayerA string `json:"player_a"`
	PlayerB string `json:"player_b"`
	Kind    string `json:"kind"`
	Status  string `json:"status"`
	StakedA bool   `json:"staked_a"`
	StakedB bool   `json:"staked_b"`
}

func KnownKind(kind string) bool {
	switch kind {
	case KindTicTacToe, KindBackgammon, KindSlimeSoccer:
		return true
	default:
		return false
	}
}

// ValidateKind rejects a match configured with a game kind outside the closed
// variant set. This is a fatal configuration error, not a per-move error.
func (that *Match) ValidateKind() error {
	if !KnownKind(that.Kind) {
		return fmt.Errorf("%w: %q", apperror.ErrUnknownGameKind, that.Kind)
	}
	return nil
}

func (that *Match) HasParticipant(id string) bool {
	return id != "" && (id == that.PlayerA || id == that.PlayerB)
}

func (that *Match) Opponent(id string) string {
	switch id {
	case that.PlayerA:
		return that.PlayerB
	case that.PlayerB:
		return that.PlayerA
	default:
		return ""
	}
}

// BothStaked reports whether both participants have deposited their stake,
// which gates live state creation for turn-based games.
func (that *Match) BothStaked() bool {
	return that.StakedA && that.StakedB
}

func (that *Match) IsEnded() bool {
	return that.Status == StatusEnded
}
