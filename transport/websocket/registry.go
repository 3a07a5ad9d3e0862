package websocket

import "sync"

// registry tracks the authoritative connection per user id and the room
// membership per match id. At most one connection is authoritative per user:
// a newer connection supersedes the older one, and events arriving from a
// superseded connection must be ignored, not acted on.
type registry struct {
	mu      sync.RWMutex
	clients map[string]*client             // userID -> authoritative connection
	rooms   map[string]map[string]struct{} // matchID -> joined userIDs
}

func newRegistry() *registry {
	return &registry{
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]struct{}),
	}
}

// authenticate binds a user id to a connection and returns the connection it
// superseded, if any.
func (that *registry) authenticate(userID string, conn *client) (superseded *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	previous := that.clients[userID]
	that.clients[userID] = conn

	if previous == nil || previous.connID == conn.connID {
		return nil
	}

	return previous
}

// drop removes a user's registration only if it still belongs to the given
// connection. A disconnect callback from a connection that has since been
// superseded returns false and leaves the newer registration untouched.
func (that *registry) drop(conn *client) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	current, ok := that.clients[conn.userID]
	if !ok || current.connID != conn.connID {
		return false
	}

	delete(that.clients, conn.userID)

	return true
}

func (that *registry) lookup(userID string) (*client, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	conn, ok := that.clients[userID]

	return conn, ok
}

func (that *registry) join(matchID, userID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[matchID]
	if !ok {
		room = make(map[string]struct{})
		that.rooms[matchID] = room
	}

	room[userID] = struct{}{}
}

// leave removes a user from a room and reports whether the room is now empty.
func (that *registry) leave(matchID, userID string) (emptied bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[matchID]
	if !ok {
		return false
	}

	delete(room, userID)

	if len(room) == 0 {
		delete(that.rooms, matchID)
		return true
	}

	return false
}

func (that *registry) contains(matchID, userID string) bool {
	that.mu.RLock()
	defer that.mu.RUnlock()

	_, ok := that.rooms[matchID][userID]

	return ok
}

func (that *registry) members(matchID string) []string {
	that.mu.RLock()
	defer that.mu.RUnlock()

	room := that.rooms[matchID]
	userIDs := make([]string, 0, len(room))
	for userID := range room {
		userIDs = append(userIDs, userID)
	}

	return userIDs
}

// roomsOf lists every match the user is currently joined to.
func (that *registry) roomsOf(userID string) []string {
	that.mu.RLock()
	defer that.mu.RUnlock()

	var matchIDs []string
	for matchID, room := range that.rooms {
		if _, ok := room[userID]; ok {
			matchIDs = append(matchIDs, matchID)
		}
	}

	return matchIDs
}
