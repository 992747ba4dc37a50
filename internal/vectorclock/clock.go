// Package vectorclock implements the fixed-capacity vector clock used to
// order events across the replicated queue's peers.
package vectorclock

import (
	"bytes"
	"fmt"
)

// Capacity is the fixed wire-level width of a Clock regardless of the actual
// world size. Only the first Size() entries are semantically live; the rest
// are padding kept for wire-layout stability across peers that may run with
// a smaller world size.
const Capacity = 32

// Ordering is the result of comparing two clocks lexicographically.
type Ordering int

const (
	Less Ordering = -1
	Equal Ordering = 0
	Greater Ordering = 1
)

// Clock is a fixed-capacity array of counters plus the active prefix length.
type Clock struct {
	counters [Capacity]int32
	size     int
}

// New returns a zeroed clock with the given active size.
func New(size int) Clock {
	return Clock{size: size}
}

// Size returns the number of semantically live entries.
func (c Clock) Size() int {
	return c.size
}

// At returns the counter for rank i, or 0 if i is outside the active range.
func (c Clock) At(i int) int32 {
	if i < 0 || i >= c.size {
		return 0
	}
	return c.counters[i]
}

// Increment bumps the counter belonging to rank.
func (c Clock) Increment(rank int) Clock {
	if rank < 0 || rank >= c.size {
		return c
	}
	c.counters[rank]++
	return c
}

// Merge returns the componentwise maximum of c and other over [0, size).
// The two clocks must share the same active size.
func (c Clock) Merge(other Clock) Clock {
	for i := 0; i < c.size; i++ {
		if other.counters[i] > c.counters[i] {
			c.counters[i] = other.counters[i]
		}
	}
	return c
}

// Compare returns the lexicographic ordering of a and b over [0, size).
func Compare(a, b Clock) Ordering {
	for i := 0; i < a.size; i++ {
		if a.counters[i] != b.counters[i] {
			if a.counters[i] < b.counters[i] {
				return Less
			}
			return Greater
		}
	}
	return Equal
}

// Less reports whether c sorts strictly before other.
func (c Clock) Less(other Clock) bool {
	return Compare(c, other) == Less
}

// Equal reports whether c and other compare equal.
func (c Clock) Equal(other Clock) bool {
	return Compare(c, other) == Equal
}

// String renders the active prefix as "[a, b, c]".
func (c Clock) String() string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := 0; i < c.size; i++ {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%d", c.counters[i])
	}
	buf.WriteByte(']')
	return buf.String()
}

// Raw exposes the fixed-capacity backing array for wire encoding.
func (c Clock) Raw() [Capacity]int32 {
	return c.counters
}

// FromRaw rebuilds a Clock from a wire-level array and active size.
func FromRaw(raw [Capacity]int32, size int) Clock {
	return Clock{counters: raw, size: size}
}
