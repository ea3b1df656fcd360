package chatnet

import "github.com/google/uuid"

// NewID returns a random version 4 UUID in canonical form
func NewID() string {
	return uuid.NewString()
}
