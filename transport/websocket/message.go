package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/playstake/arena-backend/internal/entity"
	"github.com/playstake/arena-backend/internal/game"
	"github.com/playstake/arena-backend/internal/game/backgammon"
	"github.com/playstake/arena-backend/internal/game/slime"
)

// Client to server message types.
const (
	msgAuth         = "auth"
	msgJoinMatch    = "join_match"
	msgLeaveMatch   = "leave_match"
	msgGameMove     = "game_move"
	msgControlInput = "control_input"
	msgPing         = "ping"
)

// Server to client message types.
const (
	msgAuthSuccess        = "auth_success"
	msgMatchJoined        = "match_joined"
	msgGameUpdate         = "game_update"
	msgGameTick           = "game_tick"
	msgGameEnded          = "game_ended"
	msgPlayerJoined       = "player_joined"
	msgPlayerLeft         = "player_left"
	msgPlayerDisconnected = "player_disconnected"
	msgError              = "error"
	msgPong               = "pong"
)

// Message is the JSON envelope carried on every frame in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type authPayload struct {
	UserID string `json:"userId"`
}

type joinPayload struct {
	MatchID string `json:"matchId"`
	UserID  string `json:"userId"`
}

type movePayload struct {
	MatchID string          `json:"matchId"`
	UserID  string          `json:"userId"`
	Move    json.RawMessage `json:"move"`
}

// backgammonMove is the game_move shape for backgammon: either a dice roll
// request or a batch of submoves.
type backgammonMove struct {
	Type     string               `json:"type,omitempty"`
	Submoves []backgammon.Submove `json:"submoves,omitempty"`
}

type controlPayload struct {
	MatchID string     `json:"matchId"`
	UserID  string     `json:"userId"`
	Keys    slime.Keys `json:"keys"`
}

type matchJoinedPayload struct {
	MatchID       string        `json:"matchId"`
	GameState     *game.State   `json:"gameState,omitempty"`
	Match         *entity.Match `json:"match"`
	PlayersInRoom []string      `json:"playersInRoom"`
}

type gameUpdatePayload struct {
	GameState  game.State           `json:"gameState"`
	Move       any                  `json:"move,omitempty"`
	ValidMoves []backgammon.Submove `json:"validMoves,omitempty"`
	NoMoves    bool                 `json:"noMoves,omitempty"`
}

type gameTickPayload struct {
	State  game.State    `json:"state"`
	Events []slime.Event `json:"events,omitempty"`
}

type gameEndedPayload struct {
	Result    game.Result `json:"result"`
	Winner    string      `json:"winner,omitempty"`
	GameState game.State  `json:"gameState"`
}

type presencePayload struct {
	UserID string `json:"userId"`
}

type errorPayload struct {
	Error string `json:"error"`
}

type pongPayload struct {
	TS int64 `json:"ts"`
}

// encodeMessage marshals a typed payload into a ready-to-send envelope.
func encodeMessage(msgType string, payload any) ([]byte, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	messageJSON, err := json.Marshal(Message{Type: msgType, Payload: payloadJSON})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return messageJSON, nil
}
