package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tmdecker/playlist-manager/internal/formatter"
	"github.com/tmdecker/playlist-manager/internal/models"
	"github.com/tmdecker/playlist-manager/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Sort reorders a playlist by album release date.
func (r *Runner) Sort(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")
	ascending := cmd.Bool("ascending")
	dryRun := cmd.Bool("dry-run")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	exportPath := cmd.String("export")

	if err := r.requireSpotify(ctx); err != nil {
		return err
	}

	report, err := r.engine.SortByReleaseDate(ctx, playlistID, tasks.SortOpts{
		Ascending: ascending,
		DryRun:    dryRun,
	})
	if err != nil {
		return r.wrapAPIError(err)
	}

	r.recordRun(models.NewRun(models.RunOpts{
		PlaylistID:   report.PlaylistID,
		PlaylistName: report.PlaylistName,
		Kind:         models.RunKindSort,
		TotalTracks:  report.TotalTracks,
		MovesApplied: report.MovesApplied,
		ErrorCount:   len(report.Errors),
		Conflict:     report.Conflict,
		DryRun:       report.DryRun,
	}))

	if exportPath != "" {
		if err := os.WriteFile(exportPath, formatter.SortToMarkdown(report), 0644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		r.writePlain("✓ Report exported to %s\n", exportPath)
	}

	if useJSON {
		return r.writeJSON(report, pretty)
	}

	return r.printSortReport(report)
}

func (r *Runner) printSortReport(report *tasks.SortReport) error {
	r.writePlain("Playlist: %s\n", report.PlaylistName)
	r.writePlain("Total tracks: %d\n", report.TotalTracks)

	if report.MovesPlanned == 0 {
		r.writePlainln("✓ Playlist is already in release-date order")
		return nil
	}

	if report.DryRun {
		r.writePlainln("Dry run: %d moves would be applied", report.MovesPlanned)
		return nil
	}

	r.writePlainln("✓ Applied %d of %d moves", report.MovesApplied, report.MovesPlanned)

	return r.printExecutionIssues(report.Errors, report.SkippedOps, report.Conflict)
}
