package tasks

import (
	"reflect"
	"testing"
)

func simFromURIs(uris ...string) SimulatedPlaylist {
	items := make([]PlaylistItem, len(uris))
	for i, uri := range uris {
		items[i] = PlaylistItem{Position: i, URI: uri}
	}
	return NewSimulation(&Snapshot{Items: items})
}

func TestSimulationRemovePositions(t *testing.T) {
	tests := []struct {
		name      string
		start     []string
		positions []int
		want      []string
	}{
		{
			name:      "single position",
			start:     []string{"a", "b", "c"},
			positions: []int{1},
			want:      []string{"a", "c"},
		},
		{
			name:      "multiple positions remove in descending order",
			start:     []string{"a", "b", "c", "d"},
			positions: []int{0, 2},
			want:      []string{"b", "d"},
		},
		{
			name:      "unsorted input",
			start:     []string{"a", "b", "c", "d"},
			positions: []int{3, 0, 1},
			want:      []string{"c"},
		},
		{
			name:      "out of range ignored",
			start:     []string{"a", "b"},
			positions: []int{5, -1, 0},
			want:      []string{"b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := simFromURIs(tt.start...)
			got := sim.RemovePositions(tt.positions)
			if !reflect.DeepEqual([]string(got), tt.want) {
				t.Errorf("RemovePositions(%v) = %v, want %v", tt.positions, got, tt.want)
			}
		})
	}
}

func TestSimulationRemovePositionsIsPure(t *testing.T) {
	sim := simFromURIs("a", "b", "c")
	sim.RemovePositions([]int{0, 1})

	if !reflect.DeepEqual([]string(sim), []string{"a", "b", "c"}) {
		t.Errorf("receiver was modified: %v", sim)
	}
}

func TestSimulationInsertAt(t *testing.T) {
	tests := []struct {
		name     string
		start    []string
		uri      string
		position int
		want     []string
	}{
		{
			name:     "middle",
			start:    []string{"a", "c"},
			uri:      "b",
			position: 1,
			want:     []string{"a", "b", "c"},
		},
		{
			name:     "front",
			start:    []string{"b"},
			uri:      "a",
			position: 0,
			want:     []string{"a", "b"},
		},
		{
			name:     "clamped past end",
			start:    []string{"a"},
			uri:      "b",
			position: 10,
			want:     []string{"a", "b"},
		},
		{
			name:     "clamped negative",
			start:    []string{"b"},
			uri:      "a",
			position: -3,
			want:     []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := simFromURIs(tt.start...)
			got := sim.InsertAt(tt.uri, tt.position)
			if !reflect.DeepEqual([]string(got), tt.want) {
				t.Errorf("InsertAt(%q, %d) = %v, want %v", tt.uri, tt.position, got, tt.want)
			}
		})
	}
}

func TestSimulationFind(t *testing.T) {
	sim := simFromURIs("a", "b", "a", "c", "a")

	if got := sim.Find("a"); !reflect.DeepEqual(got, []int{0, 2, 4}) {
		t.Errorf("Find(a) = %v, want [0 2 4]", got)
	}
	if got := sim.Find("missing"); got != nil {
		t.Errorf("Find(missing) = %v, want nil", got)
	}
}
