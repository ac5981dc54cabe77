package protocol

import (
	"errors"

	"github.com/suryapratap64/Open-stream/internal/core"
	"github.com/suryapratap64/Open-stream/internal/domain"
)

// ErrorResponse is the structured failure result for a request. Failures are
// always acknowledged on the connection that issued the request.
type ErrorResponse struct {
	Envelope
	Op    string `json:"op,omitempty"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

const (
	CodeBadPayload               = "BAD_PAYLOAD"
	CodeInvalidInviteToken       = "INVALID_INVITE_TOKEN"
	CodeRoomNotFound             = "ROOM_NOT_FOUND"
	CodePeerNotFound             = "PEER_NOT_FOUND"
	CodePermissionDenied         = "PERMISSION_DENIED"
	CodeTransportNotFound        = "TRANSPORT_NOT_FOUND"
	CodeConsumerNotFound         = "CONSUMER_NOT_FOUND"
	CodeIncompatibleCapabilities = "INCOMPATIBLE_CAPABILITIES"
	CodeDuplicateConnection      = "DUPLICATE_CONNECTION"
	CodeInvalidRoleTransition    = "INVALID_ROLE_TRANSITION"
	CodeCollaboratorFailure      = "COLLABORATOR_FAILURE"
	CodeRateLimited              = "RATE_LIMITED"
	CodeInternal                 = "INTERNAL"
)

// CodeFor maps an error to its wire code.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserIDEmpty),
		errors.Is(err, domain.ErrUserIDTooLong),
		errors.Is(err, domain.ErrDisplayNameTooLong):
		return CodeBadPayload
	case errors.Is(err, core.ErrInvalidInviteToken):
		return CodeInvalidInviteToken
	case errors.Is(err, core.ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, core.ErrPeerNotFound):
		return CodePeerNotFound
	case errors.Is(err, core.ErrPermissionDenied):
		return CodePermissionDenied
	case errors.Is(err, core.ErrTransportNotFound):
		return CodeTransportNotFound
	case errors.Is(err, core.ErrConsumerNotFound):
		return CodeConsumerNotFound
	case errors.Is(err, core.ErrIncompatibleCapabilities):
		return CodeIncompatibleCapabilities
	case errors.Is(err, core.ErrDuplicateConnection):
		return CodeDuplicateConnection
	case errors.Is(err, core.ErrInvalidRoleTransition):
		return CodeInvalidRoleTransition
	default:
		var ce *core.CollaboratorError
		if errors.As(err, &ce) {
			return CodeCollaboratorFailure
		}
		return CodeInternal
	}
}
