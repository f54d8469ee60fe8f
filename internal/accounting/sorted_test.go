package accounting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intCmp(a, b int) int { return a - b }

func TestSortedArrayOrdering(t *testing.T) {
	s := NewSortedArray([]int{5, 1, 3}, intCmp)
	s.Push(4)
	s.Push(2)

	require.Equal(t, 5, s.Len())
	for i, want := range []int{1, 2, 3, 4, 5} {
		assert.Equal(t, want, s.Get(i))
	}

	last, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, 5, last)

	first, ok := s.PopFront()
	require.True(t, ok)
	assert.Equal(t, 1, first)

	s.Splice(1) // removes 3
	assert.Equal(t, 2, s.Len())

	var seen []int
	s.ForEach(func(v int) { seen = append(seen, v) })
	assert.Equal(t, []int{2, 4}, seen)
}

func TestSortedArrayEmpty(t *testing.T) {
	s := NewSortedArray(nil, intCmp)
	_, ok := s.Pop()
	assert.False(t, ok)
	_, ok = s.PopFront()
	assert.False(t, ok)
}

func TestSortedArrayEqualItemsInsertAfter(t *testing.T) {
	type pair struct{ key, seq int }
	s := NewSortedArray([]pair{{1, 0}}, func(a, b pair) int { return a.key - b.key })
	s.Push(pair{1, 1})
	s.Push(pair{1, 2})

	for i := 0; i < 3; i++ {
		assert.Equal(t, i, s.Get(i).seq, "equal keys keep insertion order")
	}
}
