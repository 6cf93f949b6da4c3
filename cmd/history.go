package main

import (
	"context"
	"fmt"

	"github.com/tmdecker/playlist-manager/internal/models"
	"github.com/tmdecker/playlist-manager/internal/repositories"
	"github.com/tmdecker/playlist-manager/internal/shared"
	"github.com/urfave/cli/v3"
)

// runSummary is the JSON shape for history output.
type runSummary struct {
	ID              string `json:"id"`
	PlaylistID      string `json:"playlist_id"`
	PlaylistName    string `json:"playlist_name"`
	Kind            string `json:"kind"`
	TotalTracks     int    `json:"total_tracks"`
	DuplicatesFound int    `json:"duplicates_found,omitempty"`
	TracksRemoved   int    `json:"tracks_removed,omitempty"`
	MovesApplied    int    `json:"moves_applied,omitempty"`
	ErrorCount      int    `json:"error_count"`
	Conflict        bool   `json:"conflict"`
	DryRun          bool   `json:"dry_run"`
	CreatedAt       string `json:"created_at"`
}

// History lists past dedup and sort runs from the history database.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")
	kind := cmd.String("kind")
	limit := int(cmd.Int("limit"))
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if kind != "" && kind != models.RunKindDedup && kind != models.RunKindSort {
		return fmt.Errorf("%w: kind must be %q or %q", shared.ErrInvalidArgument,
			models.RunKindDedup, models.RunKindSort)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repositories.NewRunRepository(db).List(map[string]any{
		"playlist_id": playlistID,
		"kind":        kind,
		"limit":       limit,
	})
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if useJSON {
		summaries := make([]runSummary, len(runs))
		for i, run := range runs {
			summaries[i] = summarizeRun(run)
		}
		return r.writeJSON(summaries, pretty)
	}

	if len(runs) == 0 {
		r.writePlain("No runs recorded yet.\n")
		return nil
	}

	r.writePlain("Found %d runs:\n\n", len(runs))
	for _, run := range runs {
		r.writePlain("%s  %-5s  %s (%s)\n",
			run.CreatedAt().Format("2006-01-02 15:04"), run.Kind(), run.PlaylistName(), run.PlaylistID())

		switch run.Kind() {
		case models.RunKindDedup:
			r.writePlain("   %d tracks, %d duplicate groups, %d removed\n",
				run.TotalTracks(), run.DuplicatesFound(), run.TracksRemoved())
		case models.RunKindSort:
			r.writePlain("   %d tracks, %d moves applied\n",
				run.TotalTracks(), run.MovesApplied())
		}

		if run.DryRun() {
			r.writePlain("   (dry run)\n")
		}
		if run.Conflict() {
			r.writePlain("   ⚠ aborted on external modification\n")
		}
		if run.ErrorCount() > 0 {
			r.writePlain("   ⚠ %d errors\n", run.ErrorCount())
		}
		r.writePlain("\n")
	}

	return nil
}

func summarizeRun(run *models.Run) runSummary {
	return runSummary{
		ID:              run.ID(),
		PlaylistID:      run.PlaylistID(),
		PlaylistName:    run.PlaylistName(),
		Kind:            run.Kind(),
		TotalTracks:     run.TotalTracks(),
		DuplicatesFound: run.DuplicatesFound(),
		TracksRemoved:   run.TracksRemoved(),
		MovesApplied:    run.MovesApplied(),
		ErrorCount:      run.ErrorCount(),
		Conflict:        run.Conflict(),
		DryRun:          run.DryRun(),
		CreatedAt:       run.CreatedAt().Format("2006-01-02T15:04:05Z07:00"),
	}
}
