package vectorclock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare_AntiSymmetric(t *testing.T) {
	a := New(3).Increment(0).Increment(1)
	b := New(3).Increment(0)

	require.Equal(t, Greater, Compare(a, b))
	require.Equal(t, Less, Compare(b, a))
	require.Equal(t, Equal, Compare(a, a))
}

func TestMerge_Idempotent(t *testing.T) {
	a := New(3).Increment(0).Increment(2)
	merged := a.Merge(a)
	assert.True(t, merged.Equal(a))
}

func TestMerge_Commutative(t *testing.T) {
	a := New(3).Increment(0)
	b := New(3).Increment(1).Increment(1)

	left := a.Merge(b)
	right := b.Merge(a)
	assert.True(t, left.Equal(right))
}

func TestMerge_Associative(t *testing.T) {
	a := New(3).Increment(0)
	b := New(3).Increment(1)
	c := New(3).Increment(2).Increment(2)

	left := a.Merge(b).Merge(c)
	right := a.Merge(b.Merge(c))
	assert.True(t, left.Equal(right))
}

func TestIncrement_OnlyTouchesOwnRank(t *testing.T) {
	c := New(3).Increment(1)
	assert.EqualValues(t, 0, c.At(0))
	assert.EqualValues(t, 1, c.At(1))
	assert.EqualValues(t, 0, c.At(2))
}

func TestNew_DefaultIsZeroSize(t *testing.T) {
	var c Clock
	assert.Equal(t, 0, c.Size())
}

func TestString_RendersActivePrefixOnly(t *testing.T) {
	c := New(2).Increment(0)
	assert.Equal(t, "[1, 0]", c.String())
}

func TestFromRaw_RoundTrips(t *testing.T) {
	c := New(4).Increment(2)
	rebuilt := FromRaw(c.Raw(), c.Size())
	assert.True(t, rebuilt.Equal(c))
}
