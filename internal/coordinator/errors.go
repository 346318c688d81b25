package coordinator

import "errors"

var (
	ErrNotAdmin     = errors.New("only the room admin can do that")
	ErrNotCreator   = errors.New("only the room creator can do that")
	ErrNotInRoom    = errors.New("you are not in this room")
	ErrValidation   = errors.New("invalid request")
	ErrUnknownEvent = errors.New("unknown event")

	// ErrNoSession marks control messages for rooms that are no longer live.
	// They are dropped without notifying the sender.
	ErrNoSession = errors.New("room session not active")
)
