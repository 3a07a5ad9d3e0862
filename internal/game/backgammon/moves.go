package backgammon

import (
	"fmt"

	"github.com/playstake/arena-backend/internal/apperror"
)

// applySubmove validates one submove against the current state and mutates the
// receiver in place. Callers work on a copy so a failed batch never leaks a
// partial application.
func (that *State) applySubmove(player int, submove Submove) error {
	if !that.consumableDie(submove.Die) {
		return fmt.Errorf("%w: die %d", apperror.ErrDieNotAvailable, submove.Die)
	}

	if that.Bar[barIndex(player)] > 0 && submove.From != FromBar {
		return apperror.ErrMustEnterFromBar
	}

	switch {
	case submove.From == FromBar:
		if err := that.enterFromBar(player, submove); err != nil {
			return err
		}
	case submove.To == ToOff:
		if err := that.bearOff(player, submove); err != nil {
			return err
		}
	default:
		if err := that.moveChecker(player, submove); err != nil {
			return err
		}
	}

	that.consumeDie(submove.Die)

	return nil
}

func (that *State) enterFromBar(player int, submove Submove) error {
	dest := entryPoint(player, submove.Die)
	if submove.To != dest {
		return fmt.Errorf("%w: bar entry with die %d lands on point %d", apperror.ErrInvalidSubmove, submove.Die, dest)
	}

	if that.pointBlocked(player, dest) {
		return fmt.Errorf("%w: point %d", apperror.ErrPointBlocked, dest)
	}

	that.Bar[barIndex(player)]--
	that.landOn(player, dest)

	return nil
}

func (that *State) bearOff(player int, submove Submove) error {
	if !that.ownsPoint(player, submove.From) {
		return fmt.Errorf("%w: no checker on point %d", apperror.ErrInvalidSubmove, submove.From)
	}

	if !that.canBearOff(player) {
		return apperror.ErrBearOffNotAllowed
	}

	distance := homeDistance(player, submove.From)

	switch {
	case submove.Die == distance:
	case submove.Die > distance:
		// A larger die only bears off when no checker sits on a higher home point.
		if that.hasCheckerOnHigherHomePoint(player, submove.From) {
			return apperror.ErrBearOffNotAllowed
		}
	default:
		return fmt.Errorf("%w: die %d is short of point %d", apperror.ErrInvalidSubmove, submove.Die, submove.From)
	}

	that.Board[submove.From] -= sign(player)
	that.Off[barIndex(player)]++

	return nil
}

func (that *State) moveChecker(player int, submove Submove) error {
	if submove.From < 0 || submove.From > 23 || !that.ownsPoint(player, submove.From) {
		return fmt.Errorf("%w: no checker on point %d", apperror.ErrInvalidSubmove, submove.From)
	}

	dest := submove.From + direction(player)*submove.Die
	if dest < 0 || dest > 23 {
		return fmt.Errorf("%w: point %d with die %d leaves the board", apperror.ErrInvalidSubmove, submove.From, submove.Die)
	}

	if submove.To != dest {
		return fmt.Errorf("%w: die %d from point %d lands on point %d", apperror.ErrInvalidSubmove, submove.Die, submove.From, dest)
	}

	if that.pointBlocked(player, dest) {
		return fmt.Errorf("%w: point %d", apperror.ErrPointBlocked, dest)
	}

	that.Board[submove.From] -= sign(player)
	that.landOn(player, dest)

	return nil
}

// landOn places a checker on the destination point, hitting a lone opposing
// blot onto the bar.
func (that *State) landOn(player, point int) {
	opponent := Opponent(player)
	if that.Board[point] == -sign(player) {
		that.Board[point] = 0
		that.Bar[barIndex(opponent)]++
	}
	that.Board[point] += sign(player)
}

func (that *State) ownsPoint(player, point int) bool {
	if point < 0 || point > 23 {
		return false
	}
	return that.Board[point]*sign(player) > 0
}

// pointBlocked reports whether the destination holds two or more opposing
// checkers.
func (that *State) pointBlocked(player, point int) bool {
	return that.Board[point]*sign(Opponent(player)) >= 2
}

// canBearOff reports whether every one of the player's checkers is in the home
// quadrant with none left on the bar.
func (that *State) canBearOff(player int) bool {
	if that.Bar[barIndex(player)] > 0 {
		return false
	}

	for point := 0; point < 24; point++ {
		if !that.ownsPoint(player, point) {
			continue
		}
		if !that.inHome(player, point) {
			return false
		}
	}

	return true
}

func (that *State) inHome(player, point int) bool {
	if player == Player1 {
		return point >= 0 && point <= 5
	}
	return point >= 18 && point <= 23
}

// hasCheckerOnHigherHomePoint reports whether any checker sits on a home point
// farther from the edge than the given one.
func (that *State) hasCheckerOnHigherHomePoint(player, point int) bool {
	if player == Player1 {
		for p := point + 1; p <= 5; p++ {
			if that.ownsPoint(player, p) {
				return true
			}
		}
		return false
	}

	for p := 18; p < point; p++ {
		if that.ownsPoint(player, p) {
			return true
		}
	}
	return false
}

func (that *State) consumableDie(die int) bool {
	for _, value := range that.Remaining {
		if value == die {
			return true
		}
	}
	return false
}

func (that *State) consumeDie(die int) {
	for i, value := range that.Remaining {
		if value == die {
			that.Remaining = append(that.Remaining[:i], that.Remaining[i+1:]...)
			return
		}
	}
}

// LegalMoves enumerates every currently legal submove for the player: one
// candidate per distinct remaining die value and feasible origin.
func (that State) LegalMoves(player int) []Submove {
	var moves []Submove

	for _, die := range distinct(that.Remaining) {
		if that.Bar[barIndex(player)] > 0 {
			dest := entryPoint(player, die)
			if !that.pointBlocked(player, dest) {
				moves = append(moves, Submove{From: FromBar, To: dest, Die: die})
			}
			continue
		}

		for point := 0; point < 24; point++ {
			if !that.ownsPoint(player, point) {
				continue
			}

			dest := point + direction(player)*die
			if dest >= 0 && dest <= 23 && !that.pointBlocked(player, dest) {
				moves = append(moves, Submove{From: point, To: dest, Die: die})
			}

			if !that.canBearOff(player) {
				continue
			}

			distance := homeDistance(player, point)
			if die == distance || (die > distance && !that.hasCheckerOnHigherHomePoint(player, point)) {
				moves = append(moves, Submove{From: point, To: ToOff, Die: die})
			}
		}
	}

	return moves
}

func distinct(values []int) []int {
	var out []int
	seen := [7]bool{}
	for _, value := range values {
		if value < 1 || value > 6 || seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	return out
}
