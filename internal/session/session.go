package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playstake/arena-backend/internal/apperror"
	"github.com/playstake/arena-backend/internal/entity"
	"github.com/playstake/arena-backend/internal/game"
	"github.com/playstake/arena-backend/internal/game/backgammon"
	"github.com/playstake/arena-backend/internal/game/slime"
)

// TickFunc receives every simulation step of a real-time session. It must not
// block: broadcasting behind it is fire-and-forget.
type TickFunc func(state game.State, events []slime.Event, terminal bool)

// Session owns the live state of one match. Matches are isolated units of
// concurrency: all mutation goes through the session's lock for turn-based
// games, or through the single scheduler goroutine for real-time games.
type Session struct {
	MatchID string
	Kind    string

	mu    sync.Mutex
	state game.State
	rng   *rand.Rand

	// inputs holds the latest control snapshot per side. Each side only ever
	// writes its own slot, so an atomic replace is all the synchronization
	// input delivery needs.
	inputs [2]atomic.Pointer[slime.Keys]

	running atomic.Bool
	stopMu  sync.Mutex
	stop    chan struct{}
}

func New(matchID, kind string, state game.State) *Session {
	session := &Session{
		MatchID: matchID,
		Kind:    kind,
		state:   state,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	empty := slime.Keys{}
	session.inputs[0].Store(&empty)
	session.inputs[1].Store(&empty)

	return session
}

// State returns a snapshot of the current game state.
func (that *Session) State() game.State {
	that.mu.Lock()
	defer that.mu.Unlock()
	return that.state
}

// ApplyTicTacToeMove applies one cell move. Move application is serialized
// per match by the session lock.
func (that *Session) ApplyTicTacToeMove(playerID string, cell int) (game.State, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state.TicTacToe == nil {
		return that.state, apperror.ErrGameIsNotStarted
	}

	next, err := that.state.TicTacToe.Apply(playerID, cell, time.Now().UnixMilli())
	if err != nil {
		return that.state, err
	}

	that.state.TicTacToe = &next

	return that.state, nil
}

// RollBackgammon rolls the dice for the acting player.
func (that *Session) RollBackgammon(player int) (state game.State, noMoves bool, err error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state.Backgammon == nil {
		return that.state, false, apperror.ErrGameIsNotStarted
	}

	next, noMoves, err := that.state.Backgammon.Roll(player, that.rng)
	if err != nil {
		return that.state, false, err
	}

	that.state.Backgammon = &next

	return that.state, noMoves, nil
}

// ApplyBackgammonSubmoves applies a submove batch all-or-nothing.
func (that *Session) ApplyBackgammonSubmoves(player int, submoves []backgammon.Submove) (game.State, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state.Backgammon == nil {
		return that.state, apperror.ErrGameIsNotStarted
	}

	next, err := that.state.Backgammon.ApplySubmoves(player, submoves)
	if err != nil {
		return that.state, err
	}

	that.state.Backgammon = &next

	return that.state, nil
}

// BackgammonLegalMoves enumerates the legal submoves for a player.
func (that *Session) BackgammonLegalMoves(player int) []backgammon.Submove {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state.Backgammon == nil {
		return nil
	}

	return that.state.Backgammon.LegalMoves(player)
}

// SetInput overwrites a side's control snapshot. Snapshots are never queued:
// the next tick consumes whatever is current.
func (that *Session) SetInput(side int, keys slime.Keys) {
	if side != slime.SideLeft && side != slime.SideRight {
		return
	}
	that.inputs[side-1].Store(&keys)
}

// StartScheduler launches the fixed-rate physics loop for a real-time match.
// The scheduler goroutine is the sole mutator of the physics state and stops
// itself on the terminal condition, an explicit Stop, or context cancellation.
func (that *Session) StartScheduler(ctx context.Context, interval time.Duration, onTick TickFunc) error {
	if that.Kind != entity.KindSlimeSoccer {
		return fmt.Errorf("%w: %q has no scheduler", apperror.ErrUnknownGameKind, that.Kind)
	}

	if !that.running.CompareAndSwap(false, true) {
		return nil // already ticking
	}

	that.stopMu.Lock()
	that.stop = make(chan struct{})
	stop := that.stop
	that.stopMu.Unlock()

	go func() {
		defer that.running.Store(false)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				if terminal := that.tick(onTick); terminal {
					return
				}
			}
		}
	}()

	return nil
}

func (that *Session) tick(onTick TickFunc) bool {
	leftKeys := *that.inputs[0].Load()
	rightKeys := *that.inputs[1].Load()

	that.mu.Lock()
	if that.state.Slime == nil {
		that.mu.Unlock()
		return true
	}

	next, events := that.state.Slime.Tick(leftKeys, rightKeys)
	that.state.Slime = &next
	state := that.state
	that.mu.Unlock()

	terminal := state.Terminal()
	onTick(state, events, terminal)

	return terminal
}

// Stop halts the scheduler if one is running. Safe to call more than once
// and for turn-based sessions, where it is a no-op. A stopped session can be
// rescheduled later, e.g. when both participants rejoin.
func (that *Session) Stop() {
	that.stopMu.Lock()
	defer that.stopMu.Unlock()

	if that.stop != nil {
		close(that.stop)
		that.stop = nil
	}
}

// Running reports whether the scheduler goroutine is active.
func (that *Session) Running() bool {
	return that.running.Load()
}
