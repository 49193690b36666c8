package render

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// TokenSource generates mount session tokens.
// Implemented by uuidSource (production) and FixedTokenSource (tests).
type TokenSource interface {
	Generate() string
}

// uuidSource issues time-sortable UUIDv7 tokens, so mount tokens order by
// creation time in logs and traces.
type uuidSource struct{}

// NewTokenSource returns the production token source.
func NewTokenSource() TokenSource { return uuidSource{} }

func (uuidSource) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedTokenSource returns a predetermined token sequence and then falls
// back to a counter, keeping test output and golden traces stable.
type FixedTokenSource struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedTokenSource creates a source that returns tokens in order.
func NewFixedTokenSource(tokens ...string) *FixedTokenSource {
	return &FixedTokenSource{tokens: tokens}
}

func (s *FixedTokenSource) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idx++
	if s.idx <= len(s.tokens) {
		return s.tokens[s.idx-1]
	}
	return fmt.Sprintf("mount-%d", s.idx)
}
