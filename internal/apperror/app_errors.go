package apperror

import "errors"

var (
	ErrGameFinished     = errors.New("game is already finished")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrNotParticipant   = errors.New("player is not a match participant")
	ErrNotInRoom        = errors.New("player has not joined the match")
	ErrUnknownGameKind  = errors.New("unknown game kind")

	ErrInvalidCell  = errors.New("invalid cell index")
	ErrCellOccupied = errors.New("cell is already occupied")

	ErrWrongPhase        = errors.New("action not allowed in current phase")
	ErrDieNotAvailable   = errors.New("die value is not in the remaining pool")
	ErrMustEnterFromBar  = errors.New("checkers on the bar must enter first")
	ErrPointBlocked      = errors.New("destination point is blocked")
	ErrInvalidSubmove    = errors.New("invalid submove")
	ErrBearOffNotAllowed = errors.New("bearing off is not allowed yet")
)
