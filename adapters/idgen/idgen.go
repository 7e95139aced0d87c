// Package idgen generates session identifiers.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// UUID generates random session ids, optionally prefixed.
type UUID struct {
	Prefix string
}

// New returns a new UUID v4 id.
func (g UUID) New() string {
	return g.Prefix + uuid.NewString()
}

// Sequential generates predictable ids such as "s1", "s2". Safe for
// concurrent use.
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New returns the next id.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}
