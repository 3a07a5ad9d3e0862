package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/playstake/arena-backend/internal/apperror"
	"github.com/playstake/arena-backend/internal/entity"
	"github.com/playstake/arena-backend/internal/game"
	"github.com/playstake/arena-backend/internal/game/backgammon"
	"github.com/playstake/arena-backend/internal/game/slime"
	"github.com/playstake/arena-backend/internal/repository"
	"github.com/playstake/arena-backend/internal/session"
)

func (that *Server) handleAuth(_ context.Context, conn *client, msg *Message) error {
	log := that.logger.With("method", "handleAuth")

	var payloadReq authPayload
	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payloadReq.UserID == "" {
		log.Error("userId is missing in payload")
		that.sendError(conn, "userId is required")
		return nil
	}

	if conn.userID != "" && conn.userID != payloadReq.UserID {
		that.sendError(conn, "connection already authenticated as another user")
		return nil
	}

	conn.userID = payloadReq.UserID

	// A fresh login takes over: the previous socket of the same user is no
	// longer authoritative and gets closed.
	if superseded := that.registry.authenticate(conn.userID, conn); superseded != nil {
		log.Info("superseding previous connection", "userID", conn.userID, "oldConnID", superseded.connID)
		superseded.close()
	}

	if err := that.sendTo(conn, msgAuthSuccess, authPayload{UserID: conn.userID}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	log.Info("player authenticated", "userID", conn.userID, "connID", conn.connID)

	return nil
}

func (that *Server) handleJoinMatch(ctx context.Context, conn *client, msg *Message) error {
	log := that.logger.With("method", "handleJoinMatch", "userID", conn.userID)

	var payloadReq joinPayload
	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payloadReq.MatchID == "" {
		that.sendError(conn, "matchId is required")
		return nil
	}

	if payloadReq.UserID != "" && payloadReq.UserID != conn.userID {
		that.sendError(conn, "userId does not match the authenticated user")
		return nil
	}

	log = log.With("matchID", payloadReq.MatchID)

	match, err := that.matches.GetByID(ctx, payloadReq.MatchID)
	if err != nil {
		log.Error("failed to get match", "error", err)
		that.sendError(conn, "match not found")
		return nil
	}

	if err = match.ValidateKind(); err != nil {
		that.sendError(conn, "match is misconfigured")
		return fmt.Errorf("failed to validate match: %w", err)
	}

	playerA, playerB, err := that.identity.ResolveParticipants(ctx, match.ID)
	if err != nil {
		log.Error("failed to resolve participants", "error", err)
		that.sendError(conn, "failed to resolve participants")
		return nil
	}

	if conn.userID != playerA && conn.userID != playerB {
		that.sendError(conn, apperror.ErrNotParticipant.Error())
		return nil
	}

	that.registry.join(match.ID, conn.userID)

	sess, err := that.ensureSession(ctx, match)
	if err != nil {
		that.registry.leave(match.ID, conn.userID)
		that.sendError(conn, "failed to prepare match session")
		return fmt.Errorf("failed to ensure session for match %s: %w", match.ID, err)
	}

	var gameState *game.State
	if sess != nil {
		state := sess.State()
		gameState = &state
	} else if match.IsEnded() {
		// Rejoining an ended match surfaces the archived final state.
		if archived, loadErr := that.states.Load(ctx, match.ID); loadErr == nil {
			gameState = &archived
		}
	}

	payloadResp := matchJoinedPayload{
		MatchID:       match.ID,
		GameState:     gameState,
		Match:         match,
		PlayersInRoom: that.registry.members(match.ID),
	}

	if err = that.sendTo(conn, msgMatchJoined, payloadResp); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	that.broadcastToRoom(match.ID, msgPlayerJoined, presencePayload{UserID: conn.userID}, conn.userID)

	that.startSchedulerIfReady(ctx, match, sess)

	log.Info("player joined match")

	return nil
}

// ensureSession returns the live session for a match, creating it (and the
// initial game state) when the readiness rules allow. A nil session with a nil
// error means the match is not ready to start yet.
func (that *Server) ensureSession(ctx context.Context, match *entity.Match) (*session.Session, error) {
	log := that.logger.With("method", "ensureSession", "matchID", match.ID)

	if sess, ok := that.sessions.Get(match.ID); ok {
		return sess, nil
	}

	if match.IsEnded() {
		return nil, nil
	}

	state, err := that.states.Load(ctx, match.ID)
	if err == nil && !state.Matches(match.Kind) {
		// Legacy state from a different engine shape is discarded and
		// recreated, never surfaced as an error.
		log.Warn("discarding structurally incompatible persisted state", "kind", match.Kind)

		if err = that.states.Delete(ctx, match.ID); err != nil {
			return nil, fmt.Errorf("failed to delete drifted state: %w", err)
		}

		err = repository.ErrStateNotFound
	}

	if errors.Is(err, repository.ErrStateNotFound) {
		if !that.readyToStart(match) {
			return nil, nil
		}

		state, err = game.New(match)
		if err != nil {
			return nil, fmt.Errorf("failed to create game state: %w", err)
		}

		if err = that.states.Save(ctx, match.ID, state); err != nil {
			return nil, fmt.Errorf("failed to save game state: %w", err)
		}

		match.Status = entity.StatusOngoing
		if err = that.matches.CreateOrUpdate(ctx, match); err != nil {
			return nil, fmt.Errorf("failed to update match: %w", err)
		}

		log.Info("game state created", "kind", match.Kind)
	} else if err != nil {
		return nil, fmt.Errorf("failed to load game state: %w", err)
	}

	sess := session.New(match.ID, match.Kind, state)
	that.sessions.Put(sess)

	return sess, nil
}

// readyToStart gates initial state creation: turn-based games wait for both
// stakes, the real-time game waits for both participants to be in the room.
func (that *Server) readyToStart(match *entity.Match) bool {
	if match.Kind == entity.KindSlimeSoccer {
		return that.registry.contains(match.ID, match.PlayerA) &&
			that.registry.contains(match.ID, match.PlayerB)
	}

	return match.BothStaked()
}

// startSchedulerIfReady launches the physics loop once both participants are
// simultaneously in the room of a live real-time match.
func (that *Server) startSchedulerIfReady(ctx context.Context, match *entity.Match, sess *session.Session) {
	if sess == nil || match.Kind != entity.KindSlimeSoccer {
		return
	}

	if sess.State().Terminal() {
		return
	}

	if !that.registry.contains(match.ID, match.PlayerA) || !that.registry.contains(match.ID, match.PlayerB) {
		return
	}

	matchID := match.ID
	err := sess.StartScheduler(ctx, that.tickInterval, func(state game.State, events []slime.Event, terminal bool) {
		that.broadcastToRoom(matchID, msgGameTick, gameTickPayload{State: state, Events: events}, "")

		if terminal {
			go that.finishMatch(ctx, matchID)
		}
	})
	if err != nil {
		that.logger.Error("failed to start scheduler", "matchID", match.ID, "error", err)
	}
}

func (that *Server) handleLeaveMatch(ctx context.Context, conn *client, msg *Message) error {
	log := that.logger.With("method", "handleLeaveMatch", "userID", conn.userID)

	var payloadReq joinPayload
	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if !that.registry.contains(payloadReq.MatchID, conn.userID) {
		that.sendError(conn, apperror.ErrNotInRoom.Error())
		return nil
	}

	that.removeFromRoom(ctx, payloadReq.MatchID, conn.userID, msgPlayerLeft)

	log.Info("player left match", "matchID", payloadReq.MatchID)

	return nil
}

// removeFromRoom takes a user out of a room, stops any running scheduler for
// that match and notifies the remaining participants. The match itself is not
// ended: only terminal game states end a match.
func (that *Server) removeFromRoom(_ context.Context, matchID, userID, notifyType string) {
	that.registry.leave(matchID, userID)

	if sess, ok := that.sessions.Get(matchID); ok {
		sess.Stop()
	}

	that.broadcastToRoom(matchID, notifyType, presencePayload{UserID: userID}, "")
}

func (that *Server) handleGameMove(ctx context.Context, conn *client, msg *Message) error {
	log := that.logger.With("method", "handleGameMove", "userID", conn.userID)

	var payloadReq movePayload
	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if !that.registry.contains(payloadReq.MatchID, conn.userID) {
		that.sendError(conn, apperror.ErrNotInRoom.Error())
		return nil
	}

	sess, ok := that.sessions.Get(payloadReq.MatchID)
	if !ok {
		that.sendError(conn, apperror.ErrGameIsNotStarted.Error())
		return nil
	}

	match, err := that.matches.GetByID(ctx, payloadReq.MatchID)
	if err != nil {
		log.Error("failed to get match", "matchID", payloadReq.MatchID, "error", err)
		that.sendError(conn, "match not found")
		return nil
	}

	switch sess.Kind {
	case entity.KindTicTacToe:
		return that.applyTicTacToeMove(ctx, conn, sess, payloadReq.Move)
	case entity.KindBackgammon:
		return that.applyBackgammonMove(ctx, conn, sess, match, payloadReq.Move)
	default:
		that.sendError(conn, "real-time matches take control_input, not game_move")
		return nil
	}
}

func (that *Server) applyTicTacToeMove(ctx context.Context, conn *client, sess *session.Session, move json.RawMessage) error {
	log := that.logger.With("method", "applyTicTacToeMove", "matchID", sess.MatchID)

	var cell int
	if err := json.Unmarshal(move, &cell); err != nil {
		that.sendError(conn, "move must be a cell index")
		return nil
	}

	state, err := sess.ApplyTicTacToeMove(conn.userID, cell)
	if err != nil {
		// Illegal moves are recoverable and reported only to the sender.
		that.sendError(conn, err.Error())
		return nil
	}

	that.broadcastToRoom(sess.MatchID, msgGameUpdate, gameUpdatePayload{GameState: state, Move: cell}, "")

	if state.Terminal() {
		that.finishMatch(ctx, sess.MatchID)
	}

	log.Info("move applied", "cell", cell)

	return nil
}

func (that *Server) applyBackgammonMove(ctx context.Context, conn *client, sess *session.Session, match *entity.Match, move json.RawMessage) error {
	log := that.logger.With("method", "applyBackgammonMove", "matchID", sess.MatchID)

	var moveReq backgammonMove
	if err := json.Unmarshal(move, &moveReq); err != nil {
		that.sendError(conn, "malformed move")
		return nil
	}

	player := backgammonPlayer(match, conn.userID)

	switch {
	case moveReq.Type == "roll":
		state, noMoves, err := sess.RollBackgammon(player)
		if err != nil {
			that.sendError(conn, err.Error())
			return nil
		}

		payloadResp := gameUpdatePayload{GameState: state, NoMoves: noMoves}
		if !noMoves {
			payloadResp.ValidMoves = sess.BackgammonLegalMoves(state.Backgammon.Turn)
		}

		that.broadcastToRoom(sess.MatchID, msgGameUpdate, payloadResp, "")

		log.Info("dice rolled", "dice", state.Backgammon.Dice, "noMoves", noMoves)

	case len(moveReq.Submoves) > 0:
		state, err := sess.ApplyBackgammonSubmoves(player, moveReq.Submoves)
		if err != nil {
			that.sendError(conn, err.Error())
			return nil
		}

		payloadResp := gameUpdatePayload{GameState: state, Move: moveReq}
		if state.Backgammon.Phase == backgammon.PhaseMoving {
			payloadResp.ValidMoves = sess.BackgammonLegalMoves(state.Backgammon.Turn)
		}

		that.broadcastToRoom(sess.MatchID, msgGameUpdate, payloadResp, "")

		if state.Terminal() {
			that.finishMatch(ctx, sess.MatchID)
		}

		log.Info("submoves applied", "count", len(moveReq.Submoves))

	default:
		that.sendError(conn, apperror.ErrInvalidSubmove.Error())
	}

	return nil
}

func (that *Server) handleControlInput(_ context.Context, conn *client, msg *Message) error {
	var payloadReq controlPayload
	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if !that.registry.contains(payloadReq.MatchID, conn.userID) {
		that.sendError(conn, apperror.ErrNotInRoom.Error())
		return nil
	}

	sess, ok := that.sessions.Get(payloadReq.MatchID)
	if !ok || sess.Kind != entity.KindSlimeSoccer {
		that.sendError(conn, apperror.ErrGameIsNotStarted.Error())
		return nil
	}

	playerA, _, err := that.identity.ResolveParticipants(context.Background(), payloadReq.MatchID)
	if err != nil {
		return fmt.Errorf("failed to resolve participants: %w", err)
	}

	side := slime.SideRight
	if conn.userID == playerA {
		side = slime.SideLeft
	}

	sess.SetInput(side, payloadReq.Keys)

	return nil
}

func (that *Server) handlePing(_ context.Context, conn *client, _ *Message) error {
	if err := that.sendTo(conn, msgPong, pongPayload{TS: time.Now().UnixMilli()}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	return nil
}

// handleDisconnect runs when a connection's read loop ends. A disconnect from
// a connection that has since been superseded by a newer login of the same
// user is ignored: the user is still live on the newer socket.
func (that *Server) handleDisconnect(ctx context.Context, conn *client) {
	log := that.logger.With("method", "handleDisconnect", "connID", conn.connID)

	if conn.userID == "" {
		return
	}

	if !that.registry.drop(conn) {
		log.Info("ignoring disconnect of superseded connection", "userID", conn.userID)
		return
	}

	for _, matchID := range that.registry.roomsOf(conn.userID) {
		that.removeFromRoom(ctx, matchID, conn.userID, msgPlayerDisconnected)
	}

	log.Info("player disconnected", "userID", conn.userID)
}

// finishMatch archives the terminal state, marks the match ended, submits the
// result for settlement exactly once and tells the room.
func (that *Server) finishMatch(ctx context.Context, matchID string) {
	log := that.logger.With("method", "finishMatch", "matchID", matchID)

	that.finishMu.Lock()
	defer that.finishMu.Unlock()

	sess, ok := that.sessions.Get(matchID)
	if !ok {
		return
	}

	state := sess.State()
	if !state.Terminal() {
		return
	}

	match, err := that.matches.GetByID(ctx, matchID)
	if err != nil {
		log.Error("failed to get match", "error", err)
		return
	}

	if match.IsEnded() {
		that.sessions.Remove(matchID)
		return
	}

	// The terminal state is archived and never mutated again.
	if err = that.states.Save(ctx, matchID, state); err != nil {
		log.Error("failed to archive game state", "error", err)
	}

	match.Status = entity.StatusEnded
	if err = that.matches.CreateOrUpdate(ctx, match); err != nil {
		log.Error("failed to update match", "error", err)
	}

	result := state.Result(match)

	resultPayload, err := json.Marshal(state)
	if err != nil {
		log.Error("failed to marshal result payload", "error", err)
	}
	that.settlement.Submit(matchID, result.WinnerID, resultPayload)

	payloadResp := gameEndedPayload{Result: result, Winner: result.WinnerID, GameState: state}
	that.broadcastToRoom(matchID, msgGameEnded, payloadResp, "")

	that.sessions.Remove(matchID)

	log.Info("match finished", "winner", result.WinnerID, "draw", result.IsDraw)
}

// backgammonPlayer maps a participant id onto the engine's player number.
func backgammonPlayer(match *entity.Match, userID string) int {
	if userID == match.PlayerA {
		return backgammon.Player1
	}

	return backgammon.Player2
}
