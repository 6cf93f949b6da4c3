// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/tmdecker/playlist-manager/internal/services"
)

// FakeTrack is the metadata behind one fake playlist slot.
type FakeTrack struct {
	URI         string
	Name        string
	Artists     []string
	ReleaseDate string
	Precision   string
}

// FakePlaylistAPI is a stateful test double for tasks.PlaylistAPI. It keeps
// a real ordered track list and applies mutations to it, bumping a snapshot
// version on every mutation, so tests can assert the final playlist order
// the engine would produce against the live service.
type FakePlaylistAPI struct {
	PlaylistName string
	Tracks       []FakeTrack

	// Error injection: when set, the corresponding call fails.
	InfoErr      error
	PageErr      error
	RemoveErr    error
	RemoveAllErr error
	InsertErr    error
	ReorderErr   error

	// ExternalBumpAfter simulates a concurrent external edit: after this
	// many successful mutations the snapshot version advances once more,
	// out of band. Zero disables.
	ExternalBumpAfter int

	// Calls records every API call in order.
	Calls []string

	version   int
	mutations int
	bumped    bool
	catalog   map[string]FakeTrack
}

// NewFakePlaylistAPI builds a fake playlist with the given tracks.
func NewFakePlaylistAPI(name string, tracks []FakeTrack) *FakePlaylistAPI {
	catalog := make(map[string]FakeTrack, len(tracks))
	for _, track := range tracks {
		catalog[track.URI] = track
	}
	return &FakePlaylistAPI{
		PlaylistName: name,
		Tracks:       tracks,
		catalog:      catalog,
	}
}

// URIs returns the current playlist order as URIs.
func (f *FakePlaylistAPI) URIs() []string {
	uris := make([]string, len(f.Tracks))
	for i, track := range f.Tracks {
		uris[i] = track.URI
	}
	return uris
}

// Snapshot returns the current snapshot token.
func (f *FakePlaylistAPI) Snapshot() string {
	return fmt.Sprintf("snap-%d", f.version)
}

// Bump advances the snapshot version, simulating an external edit.
func (f *FakePlaylistAPI) Bump() {
	f.version++
}

func (f *FakePlaylistAPI) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func (f *FakePlaylistAPI) mutated() string {
	f.version++
	f.mutations++
	snapshot := f.Snapshot()
	if f.ExternalBumpAfter > 0 && f.mutations >= f.ExternalBumpAfter && !f.bumped {
		f.bumped = true
		f.version++
	}
	return snapshot
}

func (f *FakePlaylistAPI) PlaylistInfo(ctx context.Context, playlistID string) (*services.PlaylistInfo, error) {
	f.record("info")
	if f.InfoErr != nil {
		return nil, f.InfoErr
	}
	info := &services.PlaylistInfo{
		ID:         playlistID,
		Name:       f.PlaylistName,
		SnapshotID: f.Snapshot(),
	}
	info.Tracks.Total = len(f.Tracks)
	return info, nil
}

func (f *FakePlaylistAPI) SnapshotID(ctx context.Context, playlistID string) (string, error) {
	f.record("snapshot")
	if f.InfoErr != nil {
		return "", f.InfoErr
	}
	return f.Snapshot(), nil
}

func (f *FakePlaylistAPI) PlaylistPage(ctx context.Context, playlistID string, offset, limit int) (*services.PlaylistItemsPage, error) {
	f.record("page offset=%d limit=%d", offset, limit)
	if f.PageErr != nil {
		return nil, f.PageErr
	}

	page := &services.PlaylistItemsPage{
		Total:  len(f.Tracks),
		Limit:  limit,
		Offset: offset,
	}

	end := offset + limit
	if end > len(f.Tracks) {
		end = len(f.Tracks)
	}

	for i := offset; i < end; i++ {
		track := f.Tracks[i]
		artists := make([]services.SpotifyArtist, len(track.Artists))
		for j, name := range track.Artists {
			artists[j] = services.SpotifyArtist{Name: name}
		}
		page.Items = append(page.Items, services.SpotifyPlaylistTrack{
			Track: &services.SpotifyTrack{
				URI:     track.URI,
				Name:    track.Name,
				Artists: artists,
				Album: services.SpotifyAlbum{
					ReleaseDate:          track.ReleaseDate,
					ReleaseDatePrecision: track.Precision,
				},
			},
		})
	}

	if end < len(f.Tracks) {
		next := fmt.Sprintf("offset=%d", end)
		page.Next = &next
	}

	return page, nil
}

func (f *FakePlaylistAPI) RemoveOccurrences(ctx context.Context, playlistID, uri string, positions []int) (string, error) {
	f.record("remove uri=%s positions=%v", uri, positions)
	if f.RemoveErr != nil {
		return "", f.RemoveErr
	}

	sorted := make([]int, len(positions))
	copy(sorted, positions)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	for _, pos := range sorted {
		if pos < 0 || pos >= len(f.Tracks) {
			continue
		}
		if f.Tracks[pos].URI != uri {
			return "", errors.New("uri does not match track at position")
		}
		f.Tracks = append(f.Tracks[:pos], f.Tracks[pos+1:]...)
	}

	return f.mutated(), nil
}

func (f *FakePlaylistAPI) RemoveAllOccurrences(ctx context.Context, playlistID, uri string) (string, error) {
	f.record("remove_all uri=%s", uri)
	if f.RemoveAllErr != nil {
		return "", f.RemoveAllErr
	}

	var kept []FakeTrack
	for _, track := range f.Tracks {
		if track.URI != uri {
			kept = append(kept, track)
		}
	}
	f.Tracks = kept

	return f.mutated(), nil
}

func (f *FakePlaylistAPI) InsertAt(ctx context.Context, playlistID, uri string, position int) (string, error) {
	f.record("insert uri=%s position=%d", uri, position)
	if f.InsertErr != nil {
		return "", f.InsertErr
	}

	track, ok := f.catalog[uri]
	if !ok {
		track = FakeTrack{URI: uri}
	}

	if position < 0 {
		position = 0
	}
	if position > len(f.Tracks) {
		position = len(f.Tracks)
	}

	f.Tracks = append(f.Tracks[:position], append([]FakeTrack{track}, f.Tracks[position:]...)...)
	return f.mutated(), nil
}

func (f *FakePlaylistAPI) Reorder(ctx context.Context, playlistID string, rangeStart, insertBefore, rangeLength int) (string, error) {
	f.record("reorder start=%d before=%d length=%d", rangeStart, insertBefore, rangeLength)
	if f.ReorderErr != nil {
		return "", f.ReorderErr
	}
	if rangeLength != 1 {
		return "", errors.New("fake only supports single-item moves")
	}
	if rangeStart < 0 || rangeStart >= len(f.Tracks) {
		return "", errors.New("range_start out of bounds")
	}

	track := f.Tracks[rangeStart]
	rest := append(f.Tracks[:rangeStart:rangeStart], f.Tracks[rangeStart+1:]...)

	// insert_before counts positions in the pre-move list.
	target := insertBefore
	if insertBefore > rangeStart {
		target = insertBefore - 1
	}
	if target < 0 {
		target = 0
	}
	if target > len(rest) {
		target = len(rest)
	}

	f.Tracks = append(rest[:target], append([]FakeTrack{track}, rest[target:]...)...)
	return f.mutated(), nil
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// ScriptedRoundTripper returns responses in sequence, repeating the last
// one when the script runs out.
type ScriptedRoundTripper struct {
	Responses []*http.Response
	Errs      []error
	calls     int
}

func (s *ScriptedRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	i := s.calls
	s.calls++
	if i >= len(s.Responses) {
		i = len(s.Responses) - 1
	}
	var err error
	if i < len(s.Errs) {
		err = s.Errs[i]
	}
	return s.Responses[i], err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
