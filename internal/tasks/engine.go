package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/tmdecker/playlist-manager/internal/services"
)

// PlaylistAPI is the remote playlist surface the engine reconciles against.
// Implemented by [services.SpotifyService]; test doubles implement it to
// exercise planning and execution without a network.
type PlaylistAPI interface {
	// PlaylistPage retrieves one page of playlist items in server order.
	PlaylistPage(ctx context.Context, playlistID string, offset, limit int) (*services.PlaylistItemsPage, error)

	// PlaylistInfo retrieves playlist metadata including the snapshot ID.
	PlaylistInfo(ctx context.Context, playlistID string) (*services.PlaylistInfo, error)

	// SnapshotID retrieves only the current snapshot ID.
	SnapshotID(ctx context.Context, playlistID string) (string, error)

	// RemoveOccurrences removes a URI at specific zero-based positions and
	// returns the new snapshot ID.
	RemoveOccurrences(ctx context.Context, playlistID, uri string, positions []int) (string, error)

	// RemoveAllOccurrences removes every occurrence of a URI and returns
	// the new snapshot ID.
	RemoveAllOccurrences(ctx context.Context, playlistID, uri string) (string, error)

	// InsertAt adds a URI at a zero-based position and returns the new
	// snapshot ID.
	InsertAt(ctx context.Context, playlistID, uri string, position int) (string, error)

	// Reorder moves rangeLength items from rangeStart to before
	// insertBefore and returns the new snapshot ID.
	Reorder(ctx context.Context, playlistID string, rangeStart, insertBefore, rangeLength int) (string, error)
}

// ConflictError reports that the playlist's snapshot ID changed between
// planning and execution: an external actor modified the playlist, and the
// remaining plan must not run.
type ConflictError struct {
	Expected string
	Observed string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("playlist snapshot changed from %s to %s", e.Expected, e.Observed)
}

// Engine runs reconciliation operations against a remote playlist.
type Engine struct {
	api    PlaylistAPI
	logger *log.Logger
}

// NewEngine creates an Engine over the given playlist API.
func NewEngine(api PlaylistAPI, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{api: api, logger: logger}
}

// checkSnapshot validates the optimistic concurrency token. It returns the
// observed snapshot ID, or a [*ConflictError] when it no longer matches the
// expected value.
func (e *Engine) checkSnapshot(ctx context.Context, playlistID, expected string) (string, error) {
	observed, err := e.api.SnapshotID(ctx, playlistID)
	if err != nil {
		return "", err
	}
	if observed != expected {
		return observed, &ConflictError{Expected: expected, Observed: observed}
	}
	return observed, nil
}
