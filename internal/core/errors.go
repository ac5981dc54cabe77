package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInviteToken       = errors.New("invalid invite token")
	ErrRoomNotFound             = errors.New("room not found")
	ErrPeerNotFound             = errors.New("peer not found")
	ErrPermissionDenied         = errors.New("permission denied")
	ErrTransportNotFound        = errors.New("transport not found")
	ErrConsumerNotFound         = errors.New("consumer not found")
	ErrIncompatibleCapabilities = errors.New("incompatible rtp capabilities")
	ErrDuplicateConnection      = errors.New("connection already registered")
	ErrInvalidRoleTransition    = errors.New("invalid role transition")
)

// CollaboratorError wraps any failure surfaced by the media engine.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("media engine %s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Collaborator wraps err as a CollaboratorError, or returns nil.
func Collaborator(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Op: op, Err: err}
}
