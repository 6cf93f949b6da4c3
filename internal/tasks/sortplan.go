package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Move relocates the item at playlist position From so it ends up at
// position To. Both positions are simulated: they assume every earlier
// move in the plan has already been applied.
type Move struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// insertBefore translates the target position into the remote reorder
// API's insert_before semantics: moving an item forward means the
// insertion point sits one past the target, because the item's own slot
// vanishes from the range in between.
func (m Move) insertBefore() int {
	if m.To > m.From {
		return m.To + 1
	}
	return m.To
}

// SortOpts configures a sort run.
type SortOpts struct {
	Ascending bool // oldest first; default is newest first
	DryRun    bool
}

// SortReport summarizes a release-date sort run.
type SortReport struct {
	PlaylistID      string    `json:"playlist_id"`
	PlaylistName    string    `json:"playlist_name"`
	TotalTracks     int       `json:"total_tracks"`
	MovesPlanned    int       `json:"moves_planned"`
	MovesApplied    int       `json:"moves_applied"`
	Errors          []OpError `json:"errors,omitempty"`
	SkippedOps      int       `json:"skipped_ops,omitempty"`
	Conflict        bool      `json:"conflict,omitempty"`
	DryRun          bool      `json:"dry_run"`
	InitialSnapshot string    `json:"initial_snapshot"`
	FinalSnapshot   string    `json:"final_snapshot,omitempty"`
}

// planMoves computes the minimal sequence of single-item moves that
// transforms the snapshot order into release-date order.
//
// The sort is stable: tied keys keep their original relative order. The
// walk goes over target positions left to right, moving each item from its
// current simulated position; a position-tracking slice stands in for the
// playlist so every move accounts for the shifts earlier moves caused.
func planMoves(items []PlaylistItem, ascending bool) []Move {
	n := len(items)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := items[order[i]].ReleaseDate, items[order[j]].ReleaseDate
		if ascending {
			return a < b
		}
		return a > b
	})

	// current[pos] holds the original index of the item now at pos.
	current := make([]int, n)
	for i := range current {
		current[i] = i
	}

	var moves []Move
	for target, srcIdx := range order {
		cur := -1
		for pos := target; pos < n; pos++ {
			if current[pos] == srcIdx {
				cur = pos
				break
			}
		}
		if cur == -1 || cur == target {
			continue
		}

		moves = append(moves, Move{From: cur, To: target})

		item := current[cur]
		current = append(current[:cur], current[cur+1:]...)
		current = append(current[:target], append([]int{item}, current[target:]...)...)
	}

	return moves
}

// SortByReleaseDate reorders the playlist by album release date, newest
// first by default, using single-item range moves so tracks are never
// removed and re-added. Returns the report with the number of moves applied.
func (e *Engine) SortByReleaseDate(ctx context.Context, playlistID string, opts SortOpts) (*SortReport, error) {
	snap, err := e.Snapshot(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	moves := planMoves(snap.Items, opts.Ascending)

	report := &SortReport{
		PlaylistID:      playlistID,
		PlaylistName:    snap.Name,
		TotalTracks:     len(snap.Items),
		MovesPlanned:    len(moves),
		DryRun:          opts.DryRun,
		InitialSnapshot: snap.SnapshotID,
	}

	e.logger.Info("sort plan",
		"playlist", snap.Name,
		"tracks", len(snap.Items),
		"moves", len(moves),
		"ascending", opts.Ascending,
		"dry_run", opts.DryRun,
	)

	if opts.DryRun || len(moves) == 0 {
		return report, nil
	}

	expected := snap.SnapshotID
	for i, move := range moves {
		if _, err := e.checkSnapshot(ctx, playlistID, expected); err != nil {
			var conflict *ConflictError
			if errors.As(err, &conflict) {
				e.logger.Error("aborting to prevent data loss", "error", conflict)
				report.Conflict = true
				report.SkippedOps = len(moves) - i
				break
			}
			report.Errors = append(report.Errors, OpError{
				Position: move.From,
				Kind:     opErrAPI,
				Message:  err.Error(),
			})
			continue
		}

		e.logger.Info("moving track",
			"from", move.From, "to", move.To,
			"op", fmt.Sprintf("%d/%d", i+1, len(moves)))

		newSnapshot, err := e.api.Reorder(ctx, playlistID, move.From, move.insertBefore(), 1)
		if err != nil {
			report.Errors = append(report.Errors, OpError{
				Position: move.From,
				Kind:     opErrAPI,
				Message:  err.Error(),
			})
			continue
		}

		expected = newSnapshot
		report.MovesApplied++
	}

	if info, err := e.api.PlaylistInfo(ctx, playlistID); err == nil {
		report.FinalSnapshot = info.SnapshotID
	} else {
		e.logger.Warn("failed to fetch final playlist state", "error", err)
	}

	e.logger.Info("sort complete",
		"moves_applied", report.MovesApplied,
		"errors", len(report.Errors),
		"skipped", report.SkippedOps,
	)

	return report, nil
}
