// Package delivery routes echo replies back to the transport that owns a
// conversation, keyed by session key prefix.
package delivery

import (
	"fmt"
	"strings"
	"sync"

	"github.com/user/celestialecho/internal/types"
)

// Handler sends one reply into the conversation identified by key.
// messageID is the inbound message the reply threads onto.
type Handler func(key types.SessionKey, messageID int64, text string) error

// Registry routes replies to the handler whose prefix matches the session
// key (e.g. "telegram:", "webhook:").
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty delivery registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for session keys starting with prefix.
func (r *Registry) Register(prefix string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[prefix] = handler
}

// Deliver finds the handler matching the session key prefix and calls it.
// Returns an error if no handler is registered for the prefix.
func (r *Registry) Deliver(key types.SessionKey, messageID int64, text string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for prefix, handler := range r.handlers {
		if strings.HasPrefix(string(key), prefix) {
			return handler(key, messageID, text)
		}
	}
	return fmt.Errorf("no delivery handler for session key: %s", key)
}
