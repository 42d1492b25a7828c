package core

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// IDGenerator issues candidate bill ids. Stores retry on collision, so a
// generator only needs to make collisions unlikely.
type IDGenerator interface {
	NextID() (int64, error)
}

// MaxID is the largest id handed out. Ids travel as JSON numbers, so they stay
// within the integers a float64 represents exactly.
const MaxID int64 = 1<<53 - 1

// RandomIDGenerator draws positive 53-bit ids from crypto/rand.
type RandomIDGenerator struct{}

func (RandomIDGenerator) NextID() (int64, error) {
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("read random id: %w", err)
		}
		id := int64(binary.BigEndian.Uint64(buf[:]) & uint64(MaxID))
		if id != 0 {
			return id, nil
		}
	}
}

// SequenceGenerator hands out 1, 2, 3, ... and is safe for concurrent use.
type SequenceGenerator struct {
	last atomic.Int64
}

// NewSequenceGenerator starts the sequence after start.
func NewSequenceGenerator(start int64) *SequenceGenerator {
	g := &SequenceGenerator{}
	g.last.Store(start)
	return g
}

func (g *SequenceGenerator) NextID() (int64, error) {
	return g.last.Add(1), nil
}
