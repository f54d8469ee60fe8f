package accounting

import "sort"

// SortedArray is a comparator-driven ordered sequence. The backing slice is
// kept sorted so that Pop returns the item ordered last by cmp and PopFront
// the item ordered first. Item counts per statement are bounded by
// subscriptions x months, so binary insertion into a plain slice beats any
// heap bookkeeping here.
//
// Instances are confined to a single statement computation; no locking.
type SortedArray[T any] struct {
	items []T
	cmp   func(a, b T) int
}

// NewSortedArray sorts items once at construction, O(n log n).
func NewSortedArray[T any](items []T, cmp func(a, b T) int) *SortedArray[T] {
	s := &SortedArray[T]{items: append([]T(nil), items...), cmp: cmp}
	sort.SliceStable(s.items, func(i, j int) bool { return cmp(s.items[i], s.items[j]) < 0 })
	return s
}

// Len returns the number of items.
func (s *SortedArray[T]) Len() int { return len(s.items) }

// Get returns the item at index i in comparator order.
func (s *SortedArray[T]) Get(i int) T { return s.items[i] }

// Push inserts item, preserving order. Equal items insert after existing ones.
func (s *SortedArray[T]) Push(item T) {
	i := sort.Search(len(s.items), func(i int) bool { return s.cmp(s.items[i], item) > 0 })
	s.items = append(s.items, item)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = item
}

// Pop removes and returns the last item in comparator order.
func (s *SortedArray[T]) Pop() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	item := s.items[len(s.items)-1]
	s.items[len(s.items)-1] = zero
	s.items = s.items[:len(s.items)-1]
	return item, true
}

// PopFront removes and returns the first item in comparator order.
func (s *SortedArray[T]) PopFront() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	item := s.items[0]
	s.items = append(s.items[:0], s.items[1:]...)
	return item, true
}

// Splice removes the item at index i.
func (s *SortedArray[T]) Splice(i int) {
	s.items = append(s.items[:i], s.items[i+1:]...)
}

// ForEach visits all items in comparator order.
func (s *SortedArray[T]) ForEach(fn func(item T)) {
	for _, item := range s.items {
		fn(item)
	}
}
