package tasks

import (
	"context"
	"fmt"

	"github.com/tmdecker/playlist-manager/internal/services"
	"github.com/tmdecker/playlist-manager/internal/shared"
)

// PlaylistItem is one slot of the fetched playlist. Position is the
// zero-based server-side index at fetch time; all planning arithmetic is
// relative to these indices.
//
// Unplayable slots (removed episodes, local files) keep their position but
// carry an empty URI so simulated positions stay aligned with the server.
type PlaylistItem struct {
	Position    int
	URI         string
	Name        string
	Artists     []string
	ReleaseDate string // normalized to day precision, empty when unknown
}

// DedupKey returns the derived equality key used for duplicate detection.
func (i PlaylistItem) DedupKey() string {
	return shared.NormalizeTrackKey(i.Name, i.Artists)
}

// Artist returns the primary artist name for display.
func (i PlaylistItem) Artist() string {
	if len(i.Artists) == 0 {
		return "Unknown"
	}
	return i.Artists[0]
}

// Snapshot is the full ordered playlist fetched once at operation start,
// plus the snapshot ID captured at fetch time. Immutable after creation.
type Snapshot struct {
	PlaylistID string
	Name       string
	SnapshotID string
	Items      []PlaylistItem
}

// Snapshot fetches the complete playlist through the rate-limited API,
// following the pagination cursor until exhausted. Any page failure fails
// the whole fetch; no partial snapshot is returned.
func (e *Engine) Snapshot(ctx context.Context, playlistID string) (*Snapshot, error) {
	info, err := e.api.PlaylistInfo(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist info: %w", err)
	}

	snap := &Snapshot{
		PlaylistID: playlistID,
		Name:       info.Name,
		SnapshotID: info.SnapshotID,
	}

	e.logger.Info("fetching playlist",
		"playlist", info.Name,
		"tracks", info.Tracks.Total,
		"snapshot", info.SnapshotID,
	)

	offset := 0
	for {
		page, err := e.api.PlaylistPage(ctx, playlistID, offset, services.MaxPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch playlist page at offset %d: %w", offset, err)
		}

		for _, item := range page.Items {
			pi := PlaylistItem{Position: len(snap.Items)}
			if item.Track != nil {
				pi.URI = item.Track.URI
				pi.Name = item.Track.Name
				pi.Artists = make([]string, 0, len(item.Track.Artists))
				for _, artist := range item.Track.Artists {
					pi.Artists = append(pi.Artists, artist.Name)
				}
				if item.Track.Album.ReleaseDate != "" {
					pi.ReleaseDate = shared.NormalizeReleaseDate(
						item.Track.Album.ReleaseDate,
						item.Track.Album.ReleaseDatePrecision,
					)
				}
			}
			snap.Items = append(snap.Items, pi)
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	e.logger.Info("fetched playlist snapshot", "tracks", len(snap.Items))
	return snap, nil
}
