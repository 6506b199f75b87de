// Package interval tracks disjoint ranges of integers claimed on a single
// message or enum: reserved ranges, extension ranges, and field/enum-value
// numbers. The linker's semantic validator uses it to reject a declaration
// the moment it overlaps a range already claimed, and to test whether a
// single number falls inside any of them.
package interval

import "github.com/tidwall/btree"

// Endpoint is an integer type usable as an interval boundary: field numbers,
// enum values, and reserved-range bounds are all plain integers, never
// strings or floats, so arithmetic like end+1/end-1 on them is always valid.
type Endpoint interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Occupancy tracks a set of pairwise-disjoint, inclusive [start, end] ranges.
// A zero value is ready to use.
type Occupancy[K Endpoint] struct {
	byEnd btree.Map[K, K] // end -> start, one entry per claimed range
}

// Insert claims [start, end] (inclusive), reporting whether that range was
// disjoint from every range already claimed. If it overlapped an existing
// range, nothing is recorded and Insert reports false.
func (o *Occupancy[K]) Insert(start, end K) bool {
	if start > end {
		panic("interval: start > end")
	}
	if o.overlaps(start, end) {
		return false
	}
	o.byEnd.Set(end, start)
	return true
}

// Contains reports whether point falls within any range already claimed.
func (o *Occupancy[K]) Contains(point K) bool {
	return o.overlaps(point, point)
}

// overlaps reports whether [start, end] intersects any claimed range. It
// seeks to the first claimed range whose end is >= start; that range
// overlaps [start, end] iff its start is <= end.
func (o *Occupancy[K]) overlaps(start, end K) bool {
	it := o.byEnd.Iter()
	return it.Seek(start) && it.Value() <= end
}
