package game

import (
	"fmt"

	"github.com/playstake/arena-backend/internal/apperror"
	"github.com/playstake/arena-backend/internal/entity"
	"github.com/playstake/arena-backend/internal/game/backgammon"
	"github.com/playstake/arena-backend/internal/game/slime"
	"github.com/playstake/arena-backend/internal/game/tictactoe"
)

// State is the live game state of one match: a tagged union over the closed
// set of game kinds. The kind is fixed at creation and never changes for the
// lifetime of a match.
type State struct {
	Kind       string            `json:"kind"`
	TicTacToe  *tictactoe.State  `json:"tictactoe,omitempty"`
	Backgammon *backgammon.State `json:"backgammon,omitempty"`
	Slime      *slime.State      `json:"slime_soccer,omitempty"`
}

// Result is the terminal outcome of a match, mapped to participant ids.
type Result struct {
	WinnerID string `json:"winner_id,omitempty"`
	IsDraw   bool   `json:"is_draw"`
	Reason   string `json:"reason,omitempty"`
}

// New creates the initial state for a match. An unknown kind is a fatal
// configuration error.
func New(match *entity.Match) (State, error) {
	switch match.Kind {
	case entity.KindTicTacToe:
		state := tictactoe.NewState(match.PlayerA, match.PlayerB)
		return State{Kind: match.Kind, TicTacToe: &state}, nil
	case entity.KindBackgammon:
		state := backgammon.NewState()
		return State{Kind: match.Kind, Backgammon: &state}, nil
	case entity.KindSlimeSoccer:
		state := slime.NewState()
		return State{Kind: match.Kind, Slime: &state}, nil
	default:
		return State{}, fmt.Errorf("%w: %q", apperror.ErrUnknownGameKind, match.Kind)
	}
}

// Matches reports whether the state structurally matches the given game kind.
// Persisted state that fails this check is legacy drift and must be discarded
// and recreated, never used.
func (that State) Matches(kind string) bool {
	if that.Kind != kind {
		return false
	}

	switch kind {
	case entity.KindTicTacToe:
		return that.TicTacToe != nil && that.Backgammon == nil && that.Slime == nil
	case entity.KindBackgammon:
		return that.Backgammon != nil && that.TicTacToe == nil && that.Slime == nil
	case entity.KindSlimeSoccer:
		return that.Slime != nil && that.TicTacToe == nil && that.Backgammon == nil
	default:
		return false
	}
}

// Terminal reports whether the match has reached a winner, draw or time-up.
func (that State) Terminal() bool {
	switch {
	case that.TicTacToe != nil:
		return that.TicTacToe.Finished
	case that.Backgammon != nil:
		return that.Backgammon.Winner != 0
	case that.Slime != nil:
		return that.Slime.Phase == slime.PhaseEnded
	default:
		return false
	}
}

// Result maps the engine-level outcome onto the match participants. It is
// meaningful only once Terminal reports true.
func (that State) Result(match *entity.Match) Result {
	switch {
	case that.TicTacToe != nil:
		result := that.TicTacToe.Result()
		return Result{WinnerID: result.Winner, IsDraw: result.IsDraw, Reason: result.Reason}
	case that.Backgammon != nil:
		switch that.Backgammon.Winner {
		case backgammon.Player1:
			return Result{WinnerID: match.PlayerA, Reason: "borne_off"}
		case backgammon.Player2:
			return Result{WinnerID: match.PlayerB, Reason: "borne_off"}
		}
		return Result{}
	case that.Slime != nil:
		switch that.Slime.Winner {
		case slime.SideLeft:
			return Result{WinnerID: match.PlayerA, Reason: "score"}
		case slime.SideRight:
			return Result{WinnerID: match.PlayerB, Reason: "score"}
		}
		if that.Slime.Draw {
			return Result{IsDraw: true, Reason: "score"}
		}
		return Result{}
	default:
		return Result{}
	}
}
