package backgammon

import (
	"math/rand"
	"testing"

	"github.com/playstake/arena-backend/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkerCount sums a player's checkers across board, bar and borne-off.
func checkerCount(state State, player int) int {
	total := state.Bar[barIndex(player)] + state.Off[barIndex(player)]
	for _, count := range state.Board {
		if count*sign(player) > 0 {
			total += count * sign(player)
		}
	}
	return total
}

func TestNewState(t *testing.T) {
	// Given/When: a fresh game
	state := NewState()

	// Then: both players have exactly 15 checkers and nobody has rolled
	assert.Equal(t, 15, checkerCount(state, Player1))
	assert.Equal(t, 15, checkerCount(state, Player2))
	assert.Equal(t, PhaseRolling, state.Phase)
	assert.Zero(t, state.Turn)
	assert.False(t, state.FirstRollDone)
}

func TestState_FirstRoll(t *testing.T) {
	for seed := int64(0); seed < 25; seed++ {
		// Given: a fresh game
		state := NewState()
		rng := rand.New(rand.NewSource(seed))

		// When: the first roll is made
		next, noMoves, err := state.Roll(Player1, rng)
		require.NoError(t, err)
		require.False(t, noMoves)

		// Then: the dice differ and the higher die's owner moves first
		require.NotEqual(t, next.Dice[0], next.Dice[1], "seed %d", seed)
		if next.Dice[0] > next.Dice[1] {
			assert.Equal(t, Player1, next.Turn)
		} else {
			assert.Equal(t, Player2, next.Turn)
		}

		// And: both dice form the initial remaining pool in the moving phase
		assert.ElementsMatch(t, []int{next.Dice[0], next.Dice[1]}, next.Remaining)
		assert.Equal(t, PhaseMoving, next.Phase)
		assert.True(t, next.FirstRollDone)
	}
}

func TestState_Roll(t *testing.T) {
	t.Run("Doubles expand to four die values", func(t *testing.T) {
		// Given: an established game with player 1 to roll
		state := NewState()
		state.FirstRollDone = true
		state.Turn = Player1

		for seed := int64(0); seed < 25; seed++ {
			next, noMoves, err := state.Roll(Player1, rand.New(rand.NewSource(seed)))
			require.NoError(t, err)
			require.False(t, noMoves, "opening board always has entries")

			// Then: the pool has four copies on doubles, two otherwise
			if next.Dice[0] == next.Dice[1] {
				assert.Equal(t, []int{next.Dice[0], next.Dice[0], next.Dice[0], next.Dice[0]}, next.Remaining)
			} else {
				assert.Equal(t, []int{next.Dice[0], next.Dice[1]}, next.Remaining)
			}
		}
	})

	t.Run("Error when rolling out of turn", func(t *testing.T) {
		state := NewState()
		state.FirstRollDone = true
		state.Turn = Player1

		_, _, err := state.Roll(Player2, rand.New(rand.NewSource(1)))

		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("Error when rolling during the moving phase", func(t *testing.T) {
		state := NewState()
		state.FirstRollDone = true
		state.Turn = Player1
		state.Phase = PhaseMoving
		state.Remaining = []int{3, 4}

		_, _, err := state.Roll(Player1, rand.New(rand.NewSource(1)))

		require.ErrorIs(t, err, apperror.ErrWrongPhase)
	})

	t.Run("Turn passes silently when the roller is stuck", func(t *testing.T) {
		// Given: player 1 on the bar with every entry point blocked
		state := State{Phase: PhaseRolling, Turn: Player1, FirstRollDone: true}
		state.Bar[barIndex(Player1)] = 1
		for point := 18; point <= 23; point++ {
			state.Board[point] = -2
		}

		// When: player 1 rolls
		next, noMoves, err := state.Roll(Player1, rand.New(rand.NewSource(7)))
		require.NoError(t, err)

		// Then: the turn flips without consuming dice
		assert.True(t, noMoves)
		assert.Equal(t, Player2, next.Turn)
		assert.Equal(t, PhaseRolling, next.Phase)
		assert.Empty(t, next.Remaining)
	})
}

func TestState_ApplySubmoves(t *testing.T) {
	t.Run("Checker totals stay at 15 after legal submoves", func(t *testing.T) {
		// Given: the opening board with player 1 holding a 6-3 roll
		state := NewState()
		state.FirstRollDone = true
		state.Turn = Player1
		state.Phase = PhaseMoving
		state.Dice = [2]int{6, 3}
		state.Remaining = []int{6, 3}

		// When: player 1 runs a back checker 23->17->14
		next, err := state.ApplySubmoves(Player1, []Submove{
			{From: 23, To: 17, Die: 6},
			{From: 17, To: 14, Die: 3},
		})
		require.NoError(t, err)

		// Then: both totals are invariant and the turn has passed
		assert.Equal(t, 15, checkerCount(next, Player1))
		assert.Equal(t, 15, checkerCount(next, Player2))
		assert.Equal(t, Player2, next.Turn)
		assert.Equal(t, PhaseRolling, next.Phase)
	})

	t.Run("Hitting a blot sends it to the bar", func(t *testing.T) {
		// Given: a lone player 2 checker on player 1's path
		state := State{Phase: PhaseMoving, Turn: Player1, FirstRollDone: true, Remaining: []int{4}}
		state.Board[10] = 1
		state.Board[6] = -1
		state.Board[0] = -2

		// When: player 1 lands on the blot
		next, err := state.ApplySubmoves(Player1, []Submove{{From: 10, To: 6, Die: 4}})
		require.NoError(t, err)

		// Then: the point belongs solely to player 1 and the blot is barred
		assert.Equal(t, 1, next.Board[6])
		assert.Equal(t, 1, next.Bar[barIndex(Player2)])
	})

	t.Run("Blocked destination is rejected", func(t *testing.T) {
		state := State{Phase: PhaseMoving, Turn: Player1, FirstRollDone: true, Remaining: []int{4}}
		state.Board[10] = 1
		state.Board[6] = -2

		_, err := state.ApplySubmoves(Player1, []Submove{{From: 10, To: 6, Die: 4}})

		require.ErrorIs(t, err, apperror.ErrPointBlocked)
	})

	t.Run("Bar checkers must enter first", func(t *testing.T) {
		state := State{Phase: PhaseMoving, Turn: Player1, FirstRollDone: true, Remaining: []int{4}}
		state.Bar[barIndex(Player1)] = 1
		state.Board[10] = 1

		_, err := state.ApplySubmoves(Player1, []Submove{{From: 10, To: 6, Die: 4}})

		require.ErrorIs(t, err, apperror.ErrMustEnterFromBar)
	})

	t.Run("Bar entry lands on the computed point", func(t *testing.T) {
		// Given: player 1 on the bar rolling a 3
		state := State{Phase: PhaseMoving, Turn: Player1, FirstRollDone: true, Remaining: []int{3}}
		state.Bar[barIndex(Player1)] = 1

		// When: entering from the bar
		next, err := state.ApplySubmoves(Player1, []Submove{{From: FromBar, To: 21, Die: 3}})
		require.NoError(t, err)

		// Then: the checker sits on point 21 and the bar is empty
		assert.Equal(t, 1, next.Board[21])
		assert.Zero(t, next.Bar[barIndex(Player1)])
	})

	t.Run("Die not in the remaining pool is rejected", func(t *testing.T) {
		state := State{Phase: PhaseMoving, Turn: Player1, FirstRollDone: true, Remaining: []int{3, 5}}
		state.Board[10] = 1

		_, err := state.ApplySubmoves(Player1, []Submove{{From: 10, To: 6, Die: 4}})

		require.ErrorIs(t, err, apperror.ErrDieNotAvailable)
	})

	t.Run("A failed batch leaves the state untouched", func(t *testing.T) {
		// Given: a valid first submove followed by an invalid one
		state := State{Phase: PhaseMoving, Turn: Player1, FirstRollDone: true, Remaining: []int{6, 3}}
		state.Board[23] = 2
		state.Board[14] = -2

		// When: the batch is applied
		next, err := state.ApplySubmoves(Player1, []Submove{
			{From: 23, To: 17, Die: 6},
			{From: 17, To: 14, Die: 3}, // blocked
		})

		// Then: nothing was applied, not even the valid first submove
		require.ErrorIs(t, err, apperror.ErrPointBlocked)
		assert.Equal(t, state, next)
	})

	t.Run("Error when moving out of turn", func(t *testing.T) {
		state := State{Phase: PhaseMoving, Turn: Player1, FirstRollDone: true, Remaining: []int{3}}
		state.Board[11] = -1

		_, err := state.ApplySubmoves(Player2, []Submove{{From: 11, To: 14, Die: 3}})

		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})
}

func TestState_BearOff(t *testing.T) {
	// homeState returns a position with all 15 player 1 checkers home:
	// 5 on point 3 (distance 4), one on point 4 (distance 5), 9 on point 1.
	homeState := func() State {
		state := State{Phase: PhaseMoving, Turn: Player1, FirstRollDone: true, Remaining: []int{6}}
		state.Board[3] = 5
		state.Board[4] = 1
		state.Board[1] = 9
		state.Board[18] = -15
		return state
	}

	t.Run("Larger die is rejected while a higher home point is occupied", func(t *testing.T) {
		// Given: a checker on distance 5 above the distance-4 stack
		state := homeState()

		// When: bearing off from distance 4 with a 6
		_, err := state.ApplySubmoves(Player1, []Submove{{From: 3, To: ToOff, Die: 6}})

		// Then: the submove is rejected
		require.ErrorIs(t, err, apperror.ErrBearOffNotAllowed)
	})

	t.Run("Larger die bears off once no higher home point is occupied", func(t *testing.T) {
		// Given: the same position without the distance-5 checker
		state := homeState()
		state.Board[4] = 0
		state.Board[1] = 10

		// When: bearing off from distance 4 with a 6
		next, err := state.ApplySubmoves(Player1, []Submove{{From: 3, To: ToOff, Die: 6}})
		require.NoError(t, err)

		// Then: the checker is borne off
		assert.Equal(t, 1, next.Off[barIndex(Player1)])
		assert.Equal(t, 4, next.Board[3])
	})

	t.Run("Exact die always bears off", func(t *testing.T) {
		state := homeState()
		state.Remaining = []int{5}

		next, err := state.ApplySubmoves(Player1, []Submove{{From: 4, To: ToOff, Die: 5}})
		require.NoError(t, err)

		assert.Equal(t, 1, next.Off[barIndex(Player1)])
	})

	t.Run("Bearing off is rejected with a checker outside home", func(t *testing.T) {
		state := homeState()
		state.Board[1] = 8
		state.Board[10] = 1

		_, err := state.ApplySubmoves(Player1, []Submove{{From: 3, To: ToOff, Die: 4}})

		require.ErrorIs(t, err, apperror.ErrBearOffNotAllowed)
	})

	t.Run("Bearing off the fifteenth checker wins immediately", func(t *testing.T) {
		// Given: one checker left on distance 1
		state := State{Phase: PhaseMoving, Turn: Player1, FirstRollDone: true, Remaining: []int{1, 2}}
		state.Board[0] = 1
		state.Off[barIndex(Player1)] = 14
		state.Board[18] = -15

		// When: it is borne off
		next, err := state.ApplySubmoves(Player1, []Submove{{From: 0, To: ToOff, Die: 1}})
		require.NoError(t, err)

		// Then: player 1 wins and further play is rejected
		assert.Equal(t, Player1, next.Winner)
		_, _, err = next.Roll(Player2, rand.New(rand.NewSource(1)))
		require.ErrorIs(t, err, apperror.ErrGameFinished)
	})
}

func TestState_LegalMoves(t *testing.T) {
	t.Run("Bar entries are the only moves while barred", func(t *testing.T) {
		// Given: player 1 on the bar with one open entry point
		state := State{Phase: PhaseMoving, Turn: Player1, FirstRollDone: true, Remaining: []int{3, 5}}
		state.Bar[barIndex(Player1)] = 1
		state.Board[10] = 3
		state.Board[21] = -2 // blocks the 3
		state.Board[19] = -1 // blot, the 5 can enter

		// When: enumerating
		moves := state.LegalMoves(Player1)

		// Then: only the die-5 entry is offered
		require.Len(t, moves, 1)
		assert.Equal(t, Submove{From: FromBar, To: 19, Die: 5}, moves[0])
	})

	t.Run("Enumeration covers normal moves and bear-offs", func(t *testing.T) {
		// Given: all checkers home with dice 2 and 6
		state := State{Phase: PhaseMoving, Turn: Player1, FirstRollDone: true, Remaining: []int{2, 6}}
		state.Board[5] = 10
		state.Board[1] = 5

		moves := state.LegalMoves(Player1)

		// Then: the exact bear-off from 5 with the 6 is present
		assert.Contains(t, moves, Submove{From: 5, To: ToOff, Die: 6})
		// And: the normal 2 from point 5 is present
		assert.Contains(t, moves, Submove{From: 5, To: 3, Die: 2})
		// And: the 6 cannot bear off point 1 while point 5 is occupied
		assert.NotContains(t, moves, Submove{From: 1, To: ToOff, Die: 6})
	})
}
