package tasks

import "sort"

// SimulatedPlaylist mirrors the planner's belief about the remote playlist:
// an ordered sequence of track URIs, mutated in lockstep with each planned
// operation to predict positions before anything is sent remotely.
//
// All methods are pure: they return a new sequence and never modify the
// receiver, so a planning step can be replayed or tested in isolation.
type SimulatedPlaylist []string

// NewSimulation builds a simulation from a snapshot, preserving order.
func NewSimulation(snap *Snapshot) SimulatedPlaylist {
	sim := make(SimulatedPlaylist, len(snap.Items))
	for i, item := range snap.Items {
		sim[i] = item.URI
	}
	return sim
}

// RemovePositions returns a copy with the given positions removed.
// Positions are removed in descending order so earlier removals do not
// shift later ones; out-of-range positions are ignored.
func (s SimulatedPlaylist) RemovePositions(positions []int) SimulatedPlaylist {
	sorted := make([]int, len(positions))
	copy(sorted, positions)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	next := make(SimulatedPlaylist, len(s))
	copy(next, s)

	for _, pos := range sorted {
		if pos < 0 || pos >= len(next) {
			continue
		}
		next = append(next[:pos], next[pos+1:]...)
	}

	return next
}

// InsertAt returns a copy with uri inserted at position, clamped to the
// sequence bounds.
func (s SimulatedPlaylist) InsertAt(uri string, position int) SimulatedPlaylist {
	if position < 0 {
		position = 0
	}
	if position > len(s) {
		position = len(s)
	}

	next := make(SimulatedPlaylist, 0, len(s)+1)
	next = append(next, s[:position]...)
	next = append(next, uri)
	next = append(next, s[position:]...)
	return next
}

// Find returns every position at which uri currently occurs, in order.
func (s SimulatedPlaylist) Find(uri string) []int {
	var positions []int
	for i, u := range s {
		if u == uri {
			positions = append(positions, i)
		}
	}
	return positions
}
