// Package nav provides the location history used to make executed
// queries navigable and shareable.
package nav

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// History is an in-memory location stack implementing the orchestrator's
// Navigator contract. Safe for concurrent use.
type History struct {
	mu      sync.Mutex
	log     zerolog.Logger
	entries []string
}

// NewHistory creates an empty history.
func NewHistory(log zerolog.Logger) *History {
	return &History{log: log.With().Str("component", "nav").Logger()}
}

// Push appends a location.
func (h *History) Push(path string) {
	h.mu.Lock()
	h.entries = append(h.entries, path)
	h.mu.Unlock()
	h.log.Debug().Str("path", path).Msg("location pushed")
}

// Current returns the most recent location, or "" when empty.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1]
}

// Entries returns a copy of the full history, oldest first.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}

// ParseQueryPath splits a /{org}/discover/{token} location into its
// organization slug and query token. The token is empty for the base
// builder location.
func ParseQueryPath(path string) (org, token string, err error) {
	trimmed := strings.Trim(path, "/")
	parts := strings.SplitN(trimmed, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] != "discover" {
		return "", "", fmt.Errorf("not a discover location: %q", path)
	}
	if len(parts) == 3 {
		token = parts[2]
	}
	return parts[0], token, nil
}
