package models

import (
	"strings"
	"time"
)

// DefaultSessionNamePrefix is the placeholder prefix given to sessions
// created without an explicit name. Auto-renaming from the first assistant
// reply only fires while the name still carries this prefix, so a
// user-chosen name is never overwritten.
const DefaultSessionNamePrefix = "Session "

// DefaultUserID stands in for the requesting user wherever the client
// omits one; there is no auth layer in front of this service.
const DefaultUserID = "1"

// Session is one conversation workspace. It owns an append-only message
// history and at most one current sequence artifact.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasDefaultName reports whether the session still carries its
// placeholder name.
func (s *Session) HasDefaultName() bool {
	return strings.HasPrefix(s.Name, DefaultSessionNamePrefix)
}
