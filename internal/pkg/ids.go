package pkg

import "github.com/google/uuid"

// GenerateMatchID returns a new unique match identifier.
func GenerateMatchID() string {
	return uuid.NewString()
}

// GenerateConnectionID returns a new unique identifier for a live connection.
// Connection ids are compared to decide which connection is authoritative for
// a user when the same user connects more than once.
func GenerateConnectionID() string {
	return uuid.NewString()
}
