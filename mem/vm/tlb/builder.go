package tlb

// A Builder can build TLBs
type Builder struct {
	numWays int
}

// MakeBuilder returns a Builder
func MakeBuilder() Builder {
	return Builder{
		numWays: 16,
	}
}

// WithNumWays sets the number of entries in the TLB.
func (b Builder) WithNumWays(n int) Builder {
	if n < 0 {
		panic("number of ways cannot be negative")
	}

	b.numWays = n

	return b
}

// Build creates a new TLB
func (b Builder) Build(name string) *Comp {
	tlb := &Comp{
		name:    name,
		numWays: b.numWays,
	}

	tlb.reset()

	return tlb
}
