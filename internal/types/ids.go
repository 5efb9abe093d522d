package types

import (
	"strings"

	"github.com/google/uuid"
)

// SessionKey identifies an outbound conversation, e.g. "telegram:<chat>".
type SessionKey string

// RunID identifies one in-flight lookup run.
type RunID string

func NewRunID() RunID {
	return RunID(uuid.New().String())
}

func NewSessionKey(parts ...string) SessionKey {
	return SessionKey(strings.Join(parts, ":"))
}
