package sim

import (
	"strconv"

	"github.com/rs/xid"
)

// IDGenerator can generate IDs
type IDGenerator interface {
	// Generate an ID
	Generate() string
}

// NewSequentialIDGenerator returns a generator that produces "1", "2", ... in
// order. Each simulation owns its own generator so that runs stay independent.
func NewSequentialIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

// NewXIDGenerator returns a generator of globally unique, sortable IDs. The
// IDs are not deterministic.
func NewXIDGenerator() IDGenerator {
	return xidGenerator{}
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	g.nextID++
	return strconv.FormatUint(g.nextID, 10)
}

type xidGenerator struct {
}

func (g xidGenerator) Generate() string {
	return xid.New().String()
}
