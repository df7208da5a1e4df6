package session

import "errors"

// Action validation errors. All are returned before any state mutation, so a
// rejected action leaves the session exactly as it was.
var (
	ErrInvalidAction     = errors.New("invalid action")
	ErrTerminalNode      = errors.New("session has reached an ending")
	ErrUnknownTarget     = errors.New("unknown target")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSessionNotFound   = errors.New("session not found")
)
