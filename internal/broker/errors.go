package broker

import "errors"

var (
	ErrInvalidIdentity    = errors.New("invalid participant identity")
	ErrDuplicateIdentity  = errors.New("duplicate participant identity")
	ErrInvalidContent     = errors.New("message content is empty")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrQueueFull          = errors.New("direct queue full")
)
