package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/playstake/arena-backend/internal/apperror"
	"github.com/playstake/arena-backend/internal/entity"
	"github.com/playstake/arena-backend/internal/game"
	"github.com/playstake/arena-backend/internal/game/backgammon"
	"github.com/playstake/arena-backend/internal/game/slime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTicTacToeSession(t *testing.T) *Session {
	t.Helper()

	match := &entity.Match{ID: "m1", PlayerA: "alice", PlayerB: "bob", Kind: entity.KindTicTacToe}
	state, err := game.New(match)
	require.NoError(t, err)

	return New(match.ID, match.Kind, state)
}

func newSlimeSession(t *testing.T) *Session {
	t.Helper()

	match := &entity.Match{ID: "m1", PlayerA: "alice", PlayerB: "bob", Kind: entity.KindSlimeSoccer}
	state, err := game.New(match)
	require.NoError(t, err)

	return New(match.ID, match.Kind, state)
}

func TestSession_ApplyTicTacToeMove(t *testing.T) {
	t.Run("Moves mutate the owned state", func(t *testing.T) {
		// Given: a tictactoe session
		sess := newTicTacToeSession(t)

		// When: alice plays cell 0
		state, err := sess.ApplyTicTacToeMove("alice", 0)
		require.NoError(t, err)

		// Then: the session state reflects the move
		assert.Equal(t, "X", state.TicTacToe.Board[0])
		assert.Equal(t, "X", sess.State().TicTacToe.Board[0])
	})

	t.Run("A rejected move leaves the state unchanged", func(t *testing.T) {
		sess := newTicTacToeSession(t)

		_, err := sess.ApplyTicTacToeMove("bob", 0)

		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.Empty(t, sess.State().TicTacToe.Moves)
	})

	t.Run("Concurrent moves are serialized per match", func(t *testing.T) {
		// Given: many goroutines hammering the same session
		sess := newTicTacToeSession(t)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(cell int) {
				defer wg.Done()
				_, _ = sess.ApplyTicTacToeMove("alice", cell%9)
				_, _ = sess.ApplyTicTacToeMove("bob", (cell+1)%9)
			}(i)
		}
		wg.Wait()

		// Then: the move log is consistent with the board
		state := sess.State().TicTacToe
		filled := 0
		for _, cell := range state.Board {
			if cell != "" {
				filled++
			}
		}
		assert.Equal(t, filled, len(state.Moves))
	})
}

func TestSession_Backgammon(t *testing.T) {
	match := &entity.Match{ID: "m1", PlayerA: "alice", PlayerB: "bob", Kind: entity.KindBackgammon}
	state, err := game.New(match)
	require.NoError(t, err)

	sess := New(match.ID, match.Kind, state)

	// When: the first roll happens
	rolled, noMoves, err := sess.RollBackgammon(backgammon.Player1)
	require.NoError(t, err)
	require.False(t, noMoves)

	// Then: the session entered the moving phase with a decided turn
	assert.Equal(t, backgammon.PhaseMoving, rolled.Backgammon.Phase)
	require.NotZero(t, rolled.Backgammon.Turn)

	// And: legal moves are enumerable for the player on turn
	moves := sess.BackgammonLegalMoves(rolled.Backgammon.Turn)
	assert.NotEmpty(t, moves)
}

func TestSession_SetInput(t *testing.T) {
	// Given: a slime session
	sess := newSlimeSession(t)

	// When: inputs are overwritten several times
	sess.SetInput(slime.SideLeft, slime.Keys{Left: true})
	sess.SetInput(slime.SideLeft, slime.Keys{Right: true})
	sess.SetInput(slime.SideRight, slime.Keys{Jump: true})

	// Then: only the most recent snapshot per side survives
	assert.Equal(t, slime.Keys{Right: true}, *sess.inputs[0].Load())
	assert.Equal(t, slime.Keys{Jump: true}, *sess.inputs[1].Load())
}

func TestSession_Scheduler(t *testing.T) {
	t.Run("Scheduler ticks the physics state", func(t *testing.T) {
		// Given: a slime session ticking fast
		sess := newSlimeSession(t)

		ticks := make(chan game.State, 64)
		err := sess.StartScheduler(context.Background(), time.Millisecond, func(state game.State, _ []slime.Event, _ bool) {
			select {
			case ticks <- state:
			default:
			}
		})
		require.NoError(t, err)
		defer sess.Stop()

		// Then: tick callbacks arrive and the clock runs down
		select {
		case state := <-ticks:
			assert.Less(t, state.Slime.RemainingTicks, slime.MatchDurationTicks)
		case <-time.After(2 * time.Second):
			t.Fatal("no tick received")
		}
	})

	t.Run("Stop halts the scheduler goroutine", func(t *testing.T) {
		sess := newSlimeSession(t)

		err := sess.StartScheduler(context.Background(), time.Millisecond, func(game.State, []slime.Event, bool) {})
		require.NoError(t, err)

		// When: the session is stopped
		sess.Stop()

		// Then: the running flag clears
		require.Eventually(t, func() bool { return !sess.Running() }, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("Scheduler stops itself on the terminal condition", func(t *testing.T) {
		// Given: a match one tick away from time-up
		sess := newSlimeSession(t)
		slimeState := sess.State().Slime
		slimeState.RemainingTicks = 1

		terminalSeen := make(chan struct{}, 1)
		err := sess.StartScheduler(context.Background(), time.Millisecond, func(_ game.State, _ []slime.Event, terminal bool) {
			if terminal {
				select {
				case terminalSeen <- struct{}{}:
				default:
				}
			}
		})
		require.NoError(t, err)

		// Then: the terminal tick is reported and the goroutine exits
		select {
		case <-terminalSeen:
		case <-time.After(2 * time.Second):
			t.Fatal("terminal tick not reported")
		}
		require.Eventually(t, func() bool { return !sess.Running() }, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("Turn-based sessions have no scheduler", func(t *testing.T) {
		sess := newTicTacToeSession(t)

		err := sess.StartScheduler(context.Background(), time.Millisecond, func(game.State, []slime.Event, bool) {})

		require.ErrorIs(t, err, apperror.ErrUnknownGameKind)
	})

	t.Run("A stopped session can be rescheduled", func(t *testing.T) {
		sess := newSlimeSession(t)

		require.NoError(t, sess.StartScheduler(context.Background(), time.Millisecond, func(game.State, []slime.Event, bool) {}))
		sess.Stop()
		require.Eventually(t, func() bool { return !sess.Running() }, 2*time.Second, 5*time.Millisecond)

		// When: the scheduler is started again
		ticks := make(chan struct{}, 1)
		require.NoError(t, sess.StartScheduler(context.Background(), time.Millisecond, func(game.State, []slime.Event, bool) {
			select {
			case ticks <- struct{}{}:
			default:
			}
		}))
		defer sess.Stop()

		// Then: it ticks again
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatal("rescheduled session did not tick")
		}
	})
}

func TestManager(t *testing.T) {
	// Given: a manager with one session
	manager := NewManager()
	sess := newTicTacToeSession(t)
	manager.Put(sess)

	// When/Then: lookup finds it
	got, ok := manager.Get("m1")
	require.True(t, ok)
	assert.Same(t, sess, got)

	// When: the session is removed
	manager.Remove("m1")

	// Then: it is gone and removing again is harmless
	_, ok = manager.Get("m1")
	assert.False(t, ok)
	manager.Remove("m1")
}
