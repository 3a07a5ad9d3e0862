package tictactoe

import (
	"fmt"

	"github.com/playstake/arena-backend/internal/apperror"
)

const (
	MarkX = "X"
	MarkO = "O"

	EmptyCell = ""
)

// winCombos are the 8 winning lines: 3 rows, 3 columns, 2 diagonals.
var winCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// MoveRecord is one entry in the append-only move log.
type MoveRecord struct {
	Player    string `json:"player"`
	Cell      int    `json:"cell"`
	Timestamp int64  `json:"ts"`
}

type Result struct {
	Winner string `json:"winner,omitempty"`
	IsDraw bool   `json:"is_draw"`
	Reason string `json:"reason,omitempty"`
}

// State holds one tic-tac-toe game. It is a plain value; Apply returns a new
// state and never mutates the receiver.
type State struct {
	Board    [9]string    `json:"board"`
	Turn     string       `json:"turn"`
	PlayerX  string       `json:"player_x"`
	PlayerO  string       `json:"player_o"`
	Winner   string       `json:"winner,omitempty"`
	Draw     bool         `json:"draw"`
	Finished bool         `json:"finished"`
	Moves    []MoveRecord `json:"moves,omitempty"`
}

func NewState(playerX, playerO string) State {
	return State{
		Turn:    MarkX,
		PlayerX: playerX,
		PlayerO: playerO,
	}
}

func (that State) markOf(playerID string) string {
	switch playerID {
	case that.PlayerX:
		return MarkX
	case that.PlayerO:
		return MarkO
	default:
		return ""
	}
}

// Apply places the acting player's mark on the given cell and returns the
// resulting state. The move is rejected without touching the board when the
// game is finished, the cell is out of range or occupied, the actor is not a
// participant, or it is not the actor's turn.
func (that State) Apply(playerID string, cell int, now int64) (State, error) {
	if that.Finished {
		return that, apperror.ErrGameFinished
	}

	mark := that.markOf(playerID)
	if mark == "" {
		return that, apperror.ErrNotParticipant
	}

	if cell < 0 || cell >= len(that.Board) {
		return that, fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if mark != that.Turn {
		return that, apperror.ErrNotYourTurn
	}

	if that.Board[cell] != EmptyCell {
		return that, apperror.ErrCellOccupied
	}

	next := that
	next.Board[cell] = mark

	moves := make([]MoveRecord, len(that.Moves), len(that.Moves)+1)
	copy(moves, that.Moves)
	next.Moves = append(moves, MoveRecord{Player: playerID, Cell: cell, Timestamp: now})

	next.updateOutcome()

	return next, nil
}

func (that *State) updateOutcome() {
	switch winner := winningMark(that.Board); winner {
	case MarkX:
		that.Winner = that.PlayerX
		that.Finished = true
		that.Turn = ""
	case MarkO:
		that.Winner = that.PlayerO
		that.Finished = true
		that.Turn = ""
	default:
		if boardFull(that.Board) {
			that.Draw = true
			that.Finished = true
			that.Turn = ""
			return
		}
		that.Turn = toggleMark(that.Turn)
	}
}

// Result reports the terminal outcome. Winner is empty while the game is
// unfinished or drawn.
func (that State) Result() Result {
	switch {
	case that.Winner != "":
		return Result{Winner: that.Winner, Reason: "line"}
	case that.Draw:
		return Result{IsDraw: true, Reason: "board_full"}
	default:
		return Result{}
	}
}

func winningMark(board [9]string) string {
	for _, combo := range winCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}
	return ""
}

func boardFull(board [9]string) bool {
	for _, cell := range board {
		if cell == EmptyCell {
			return false
		}
	}
	return true
}

func toggleMark(mark string) string {
	if mark == MarkX {
		return MarkO
	}
	return MarkX
}
