// Package notify implements the notification sink consumed by the
// query orchestrator.
package notify

import (
	"sync"

	"github.com/rs/zerolog"
)

// Log is a notification sink that reports error messages through the
// logger. ClearIndicators is a no-op beyond a debug trace; there is no
// persistent indicator surface in a non-interactive run.
type Log struct {
	log zerolog.Logger
}

// NewLog creates a logging sink.
func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log.With().Str("component", "notify").Logger()}
}

func (l *Log) ClearIndicators() {
	l.log.Debug().Msg("indicators cleared")
}

func (l *Log) AddErrorMessage(text string) {
	l.log.Error().Msg(text)
}

// Memory is a recording sink. It keeps every error message and counts
// indicator clears, which makes orchestrator behavior observable in
// tests and lets the CLI replay messages after a run.
type Memory struct {
	mu     sync.Mutex
	errors []string
	clears int
}

// NewMemory creates an empty recording sink.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) ClearIndicators() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.errors = nil
}

func (m *Memory) AddErrorMessage(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, text)
}

// Errors returns a copy of the recorded error messages.
func (m *Memory) Errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errors...)
}

// Clears returns how many times indicators were cleared.
func (m *Memory) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}
