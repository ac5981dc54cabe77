// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxUserIDLen      = 64
	MaxDisplayNameLen = 36

	// DefaultDisplayName is used when a client joins without a name.
	DefaultDisplayName = "guest"
)

var (
	ErrUserIDEmpty        = errors.New("user id empty")
	ErrUserIDTooLong      = errors.New("user id too long")
	ErrDisplayNameTooLong = errors.New("display name too long")
)

type UserID string

// Identity is the caller-supplied, connection-independent identity of a
// participant. It is stable across reconnects from the same user agent.
type Identity struct {
	UserID      UserID `json:"userId"`
	DisplayName string `json:"displayName"`
}

// NewIdentity is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewIdentity(userID, displayName string) (Identity, error) {
	if userID == "" {
		return Identity{}, ErrUserIDEmpty
	}
	if len(userID) > MaxUserIDLen {
		return Identity{}, ErrUserIDTooLong
	}
	if len(displayName) > MaxDisplayNameLen {
		return Identity{}, ErrDisplayNameTooLong
	}
	if displayName == "" {
		displayName = DefaultDisplayName
	}
	return Identity{UserID: UserID(userID), DisplayName: displayName}, nil
}
