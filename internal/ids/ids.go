// Package ids provides identifier generation for stored entities.
package ids

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator hands out unique entity identifiers.
type Generator interface {
	NewID() string
}

// UUID generates random version 4 UUIDs.
type UUID struct{}

func (UUID) NewID() string {
	return uuid.New().String()
}

// Sequence generates "<prefix>-1", "<prefix>-2", ... and is meant for tests
// and fixtures where identifiers must be predictable.
type Sequence struct {
	Prefix string
	n      atomic.Int64
}

// NewSequence creates a Sequence with the given prefix.
func NewSequence(prefix string) *Sequence {
	return &Sequence{Prefix: prefix}
}

func (s *Sequence) NewID() string {
	return fmt.Sprintf("%s-%d", s.Prefix, s.n.Add(1))
}

// Func adapts a plain function to Generator.
type Func func() string

func (f Func) NewID() string { return f() }
