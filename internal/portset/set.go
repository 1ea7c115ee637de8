// Package portset provides a set type for TCP port numbers and the union
// operation used to combine forbidden-port sets from multiple sources.
package portset

import "sort"

// Set is a collection of unique TCP port numbers.
type Set map[uint16]struct{}

// New returns a Set containing the given ports.
func New(ports ...uint16) Set {
	s := make(Set, len(ports))
	for _, p := range ports {
		s[p] = struct{}{}
	}
	return s
}

func (s Set) Add(port uint16) {
	s[port] = struct{}{}
}

// AddRange inserts every port in [start, end] inclusive.
func (s Set) AddRange(start, end uint16) {
	for p := int(start); p <= int(end); p++ {
		s[uint16(p)] = struct{}{}
	}
}

func (s Set) Contains(port uint16) bool {
	_, ok := s[port]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// Sorted returns the ports in ascending order.
func (s Set) Sorted() []uint16 {
	out := make([]uint16, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Union combines any number of sets into a freshly allocated set.
// The inputs are not modified.
func Union(sets ...Set) Set {
	size := 0
	for _, s := range sets {
		size += len(s)
	}
	out := make(Set, size)
	for _, s := range sets {
		for p := range s {
			out[p] = struct{}{}
		}
	}
	return out
}
