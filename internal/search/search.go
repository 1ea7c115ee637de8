// Package search locates TCP ports that are absent from an exclusion set.
// The searchable space is split into the two user-port tiers: the registered
// range (1024-49151) and the dynamic/private range (49152-65535). Well-known
// ports (0-1023) are never considered.
package search

import "github.com/Johnr24/portpick/internal/portset"

// Range is an inclusive span of port numbers.
type Range struct {
	Start uint16
	End   uint16
}

// Width returns the number of ports in the range.
func (r Range) Width() int {
	return int(r.End) - int(r.Start) + 1
}

var (
	Registered = Range{Start: 1024, End: 49151}
	Dynamic    = Range{Start: 49152, End: 65535}
)

// Preference selects which tier is scanned first. Historical versions of
// this tool disagreed on the order, so it is a caller choice rather than a
// constant; PreferRegistered is the default everywhere in this repo.
type Preference int

const (
	PreferRegistered Preference = iota
	PreferDynamic
)

func (p Preference) String() string {
	if p == PreferDynamic {
		return "dynamic"
	}
	return "registered"
}

// Tiers returns both ranges in scan order.
func (p Preference) Tiers() [2]Range {
	if p == PreferDynamic {
		return [2]Range{Dynamic, Registered}
	}
	return [2]Range{Registered, Dynamic}
}

// Find returns up to count ports not present in the exclusion set, scanning
// each tier in ascending order.
//
// When contiguous is false the result holds the first count available ports,
// possibly spanning both tiers; it is shorter than count only when the tiers
// are exhausted.
//
// When contiguous is true the result is the first run of count consecutive
// available ports found within a single tier, or empty if no tier holds such
// a run. A run never straddles the tier boundary.
//
// Find performs no I/O and is deterministic; a count of zero yields an empty
// result without scanning.
func Find(exclusion portset.Set, count uint16, contiguous bool, pref Preference) []uint16 {
	if count == 0 {
		return nil
	}
	if contiguous {
		return findContiguous(exclusion, count, pref)
	}
	return findScattered(exclusion, count, pref)
}

func findScattered(exclusion portset.Set, count uint16, pref Preference) []uint16 {
	found := make([]uint16, 0, count)
	for _, tier := range pref.Tiers() {
		for p := int(tier.Start); p <= int(tier.End); p++ {
			if exclusion.Contains(uint16(p)) {
				continue
			}
			found = append(found, uint16(p))
			if len(found) == int(count) {
				return found
			}
		}
	}
	return found
}

func findContiguous(exclusion portset.Set, count uint16, pref Preference) []uint16 {
	for _, tier := range pref.Tiers() {
		if int(count) > tier.Width() {
			continue
		}
		// Track the length of the current run of free ports instead of
		// re-checking a full window at every start position; the first time
		// the run reaches count its start is the lowest possible one.
		run := 0
		for p := int(tier.Start); p <= int(tier.End); p++ {
			if exclusion.Contains(uint16(p)) {
				run = 0
				continue
			}
			run++
			if run == int(count) {
				start := p - int(count) + 1
				block := make([]uint16, count)
				for i := range block {
					block[i] = uint16(start + i)
				}
				return block
			}
		}
	}
	return nil
}
