package domain

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// ID identifies a workout within a store.
type ID string

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// IDGenerator produces identifiers for new workouts.
type IDGenerator interface {
	Next() ID
}

// UUIDGenerator issues random v4 UUIDs.
type UUIDGenerator struct{}

// Next implements IDGenerator.
func (UUIDGenerator) Next() ID {
	return ID(uuid.NewString())
}

// SequenceGenerator issues monotonically increasing identifiers with a fixed prefix.
type SequenceGenerator struct {
	Prefix string
	n      atomic.Uint64
}

// Next implements IDGenerator.
func (g *SequenceGenerator) Next() ID {
	return ID(fmt.Sprintf("%s%d", g.Prefix, g.n.Add(1)))
}
