package backgammon

import (
	"math/rand"

	"github.com/playstake/arena-backend/internal/apperror"
)

const (
	PhaseRolling = "rolling"
	PhaseMoving  = "moving"

	Player1 = 1
	Player2 = 2

	// FromBar marks a submove entering from the bar.
	FromBar = -1
	// ToOff marks a submove bearing a checker off the board.
	ToOff = -2

	totalCheckers = 15
)

// Submove is one atomic checker relocation. A turn is a batch of 1-4 submoves.
type Submove struct {
	From int `json:"from"`
	To   int `json:"to"`
	Die  int `json:"die"`
}

// State holds one backgammon game. Board points are signed counts: positive
// checkers belong to player 1, negative to player 2. Player 1 moves from high
// indices toward 0 (home 0-5), player 2 the opposite way (home 18-23).
type State struct {
	Board         [24]int `json:"board"`
	Bar           [2]int  `json:"bar"`
	Off           [2]int  `json:"off"`
	Phase         string  `json:"phase"`
	Turn          int     `json:"turn"`
	Dice          [2]int  `json:"dice"`
	Remaining     []int   `json:"remaining,omitempty"`
	Winner        int     `json:"winner,omitempty"`
	FirstRollDone bool    `json:"first_roll_done"`
}

func NewState() State {
	state := State{
		Phase: PhaseRolling,
	}

	state.Board[23] = 2
	state.Board[12] = 5
	state.Board[7] = 3
	state.Board[5] = 5

	state.Board[0] = -2
	state.Board[11] = -5
	state.Board[16] = -3
	state.Board[18] = -5

	return state
}

func Opponent(player int) int {
	if player == Player1 {
		return Player2
	}
	return Player1
}

func sign(player int) int {
	if player == Player1 {
		return 1
	}
	return -1
}

func direction(player int) int {
	if player == Player1 {
		return -1
	}
	return 1
}

func barIndex(player int) int {
	return player - 1
}

// entryPoint is the board index a die enters a barred checker onto.
func entryPoint(player, die int) int {
	if player == Player1 {
		return 24 - die
	}
	return die - 1
}

// homeDistance is the number of pips needed to bear the checker at the given
// point off the board.
func homeDistance(player, point int) int {
	if player == Player1 {
		return point + 1
	}
	return 24 - point
}

// Roll rolls the dice for the acting player and returns the next state. The
// very first roll of a match decides move order: both dice must differ and the
// owner of the higher die moves first. When the roller has no legal moves the
// turn passes silently and noMoves is true.
func (that State) Roll(player int, rng *rand.Rand) (next State, noMoves bool, err error) {
	if that.Winner != 0 {
		return that, false, apperror.ErrGameFinished
	}

	if that.Phase != PhaseRolling {
		return that, false, apperror.ErrWrongPhase
	}

	next = that.clone()

	if !that.FirstRollDone {
		d1, d2 := rollDie(rng), rollDie(rng)
		for d1 == d2 {
			d1, d2 = rollDie(rng), rollDie(rng)
		}

		next.Dice = [2]int{d1, d2}
		next.Remaining = []int{d1, d2}
		next.FirstRollDone = true
		next.Phase = PhaseMoving

		if d1 > d2 {
			next.Turn = Player1
		} else {
			next.Turn = Player2
		}

		return next, false, nil
	}

	if player != that.Turn {
		return that, false, apperror.ErrNotYourTurn
	}

	d1, d2 := rollDie(rng), rollDie(rng)
	next.Dice = [2]int{d1, d2}

	if d1 == d2 {
		next.Remaining = []int{d1, d1, d1, d1}
	} else {
		next.Remaining = []int{d1, d2}
	}

	if len(next.LegalMoves(player)) == 0 {
		// The roller is stuck: the turn passes without consuming dice.
		next.Remaining = nil
		next.Turn = Opponent(player)
		next.Phase = PhaseRolling
		return next, true, nil
	}

	next.Phase = PhaseMoving

	return next, false, nil
}

// ApplySubmoves validates and applies a batch of submoves. The batch is
// all-or-nothing: any invalid submove leaves the original state untouched.
// When the dice are exhausted, or no legal continuation remains, the turn
// passes back to the rolling phase for the opponent.
func (that State) ApplySubmoves(player int, submoves []Submove) (State, error) {
	if that.Winner != 0 {
		return that, apperror.ErrGameFinished
	}

	if that.Phase != PhaseMoving {
		return that, apperror.ErrWrongPhase
	}

	if player != that.Turn {
		return that, apperror.ErrNotYourTurn
	}

	if len(submoves) == 0 {
		return that, apperror.ErrInvalidSubmove
	}

	next := that.clone()

	for _, submove := range submoves {
		if err := next.applySubmove(player, submove); err != nil {
			return that, err
		}
	}

	if next.Off[barIndex(player)] == totalCheckers {
		next.Winner = player
		next.Remaining = nil
		next.Turn = 0
		return next, nil
	}

	if len(next.Remaining) == 0 || len(next.LegalMoves(player)) == 0 {
		next.Remaining = nil
		next.Turn = Opponent(player)
		next.Phase = PhaseRolling
	}

	return next, nil
}

func (that State) clone() State {
	next := that
	next.Remaining = append([]int(nil), that.Remaining...)
	return next
}

func rollDie(rng *rand.Rand) int {
	return rng.Intn(6) + 1
}
