package session

import "errors"

var (
	ErrSessionConflict = errors.New("an active batch session already exists")
	ErrNoActiveSession = errors.New("no active batch session")
	ErrEmptyBatch      = errors.New("batch has no files")
	ErrSessionExpired  = errors.New("batch session expired")
	ErrSessionClosed   = errors.New("batch session is closed")
	ErrSessionSealed   = errors.New("batch session is being finalized")
	ErrIDExhausted     = errors.New("could not generate a unique batch id")
)
