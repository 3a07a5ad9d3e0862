package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/playstake/arena-backend/internal/identity"
	"github.com/playstake/arena-backend/internal/repository"
	"github.com/playstake/arena-backend/internal/session"
	"github.com/playstake/arena-backend/internal/settlement"
)

// Server is the session orchestrator: it routes inbound envelopes to the
// correct match session, manages session creation and teardown, and fans out
// state to the room.
type Server struct {
	logger *slog.Logger

	matches    repository.MatchRepository
	states     repository.StateRepository
	identity   identity.Resolver
	settlement settlement.Submitter
	sessions   *session.Manager

	registry *registry
	upgrader websocket.Upgrader

	tickInterval time.Duration
	finishMu     sync.Mutex

	handlers map[string]func(ctx context.Context, conn *client, message *Message) error
}

func New(
	logger *slog.Logger,
	matches repository.MatchRepository,
	states repository.StateRepository,
	resolver identity.Resolver,
	submitter settlement.Submitter,
	tickInterval time.Duration,
) *Server {
	server := &Server{
		logger:     logger.With("component", "websocket"),
		matches:    matches,
		states:     states,
		identity:   resolver,
		settlement: submitter,
		sessions:   session.NewManager(),

		registry: newRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},

		tickInterval: tickInterval,

		handlers: make(map[string]func(context.Context, *client, *Message) error),
	}

	server.handlers[msgAuth] = server.handleAuth
	server.handlers[msgJoinMatch] = server.handleJoinMatch
	server.handlers[msgLeaveMatch] = server.handleLeaveMatch
	server.handlers[msgGameMove] = server.handleGameMove
	server.handlers[msgControlInput] = server.handleControlInput
	server.handlers[msgPing] = server.handlePing

	return server
}

// Start - starts the WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveConnection upgrades the request and runs the connection's read loop.
func (that *Server) serveConnection(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveConnection")

	socket, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := newClient(socket, that.logger)

	log.Info("WebSocket connection established", "connID", conn.connID)

	go conn.writePump()

	that.readLoop(ctx, conn)

	conn.close()
	that.handleDisconnect(ctx, conn)
}

// readLoop processes envelopes from the client until the socket dies.
func (that *Server) readLoop(ctx context.Context, conn *client) {
	log := that.logger.With("method", "readLoop", "connID", conn.connID)

	conn.conn.SetReadLimit(maxMessageSize)
	_ = conn.conn.SetReadDeadline(time.Now().Add(readWait))

	for {
		_, reqBody, err := conn.conn.ReadMessage()
		if err != nil {
			log.Info("connection closed", "error", err)
			return
		}

		// Any inbound traffic counts as liveness.
		_ = conn.conn.SetReadDeadline(time.Now().Add(readWait))

		var message Message
		if err = json.Unmarshal(reqBody, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			that.sendError(conn, "malformed message")
			continue
		}

		handler, ok := that.handlers[message.Type]
		if !ok {
			log.Error("unknown message type", "type", message.Type)
			that.sendError(conn, fmt.Sprintf("unknown message type %q", message.Type))
			continue
		}

		if message.Type != msgAuth && conn.userID == "" {
			that.sendError(conn, "not authenticated")
			continue
		}

		if err = handler(ctx, conn, &message); err != nil {
			log.Error("error processing message", "type", message.Type, "error", err)
		}
	}
}

// sendTo encodes an envelope and queues it on one connection.
func (that *Server) sendTo(conn *client, msgType string, payload any) error {
	message, err := encodeMessage(msgType, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msgType, err)
	}

	conn.enqueue(message)

	return nil
}

func (that *Server) sendError(conn *client, errorMsg string) {
	if err := that.sendTo(conn, msgError, errorPayload{Error: errorMsg}); err != nil {
		that.logger.Error("failed to send error response", "connID", conn.connID, "error", err)
	}
}

// broadcastToRoom fans a message out to every room member except the optional
// excluded user. A member without a live connection is skipped silently.
func (that *Server) broadcastToRoom(matchID, msgType string, payload any, excludeUserID string) {
	message, err := encodeMessage(msgType, payload)
	if err != nil {
		that.logger.Error("failed to encode broadcast", "matchID", matchID, "type", msgType, "error", err)
		return
	}

	for _, userID := range that.registry.members(matchID) {
		if userID == excludeUserID {
			continue
		}

		conn, ok := that.registry.lookup(userID)
		if !ok {
			continue
		}

		conn.enqueue(message)
	}
}
