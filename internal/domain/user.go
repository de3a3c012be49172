package domain

import "strings"

const (
	MaxUsernameLen = 36

	// AnonymousName stands in for connections that never set a usable name.
	AnonymousName = "Anonymous"
)

type UserID string

// User is the volatile identity of one connection. The ID is issued by
// the server; the username is a mutable display attribute and is not
// required to be unique across connections.
type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

// SetUsername trims surrounding whitespace and truncates oversized
// names. An empty name after trimming is accepted as-is.
func (u *User) SetUsername(username string) {
	username = strings.TrimSpace(username)
	if len(username) > MaxUsernameLen {
		username = username[:MaxUsernameLen]
	}
	u.Username = username
}

// DisplayName resolves the name used in logs and routing.
func (u *User) DisplayName() string {
	if u.Username == "" {
		return AnonymousName
	}
	return u.Username
}
