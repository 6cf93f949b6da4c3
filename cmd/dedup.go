package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tmdecker/playlist-manager/internal/formatter"
	"github.com/tmdecker/playlist-manager/internal/models"
	"github.com/tmdecker/playlist-manager/internal/services"
	"github.com/tmdecker/playlist-manager/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Dedup removes duplicate tracks from a playlist, keeping the earliest
// occurrence of each duplicate group.
func (r *Runner) Dedup(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")
	dryRun := cmd.Bool("dry-run")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	exportPath := cmd.String("export")

	if err := r.requireSpotify(ctx); err != nil {
		return err
	}

	report, err := r.engine.Dedup(ctx, playlistID, tasks.DedupOpts{DryRun: dryRun})
	if err != nil {
		return r.wrapAPIError(err)
	}

	r.recordRun(models.NewRun(models.RunOpts{
		PlaylistID:      report.PlaylistID,
		PlaylistName:    report.PlaylistName,
		Kind:            models.RunKindDedup,
		TotalTracks:     report.TotalTracks,
		DuplicatesFound: report.DuplicatesFound,
		TracksRemoved:   report.TracksRemoved,
		ErrorCount:      len(report.Errors),
		Conflict:        report.Conflict,
		DryRun:          report.DryRun,
	}))

	if exportPath != "" {
		if err := r.exportDedupReport(report, exportPath); err != nil {
			return err
		}
		r.writePlain("✓ Report exported to %s\n", exportPath)
	}

	if useJSON {
		return r.writeJSON(report, pretty)
	}

	return r.printDedupReport(report)
}

func (r *Runner) exportDedupReport(report *tasks.DedupReport, path string) error {
	var data []byte
	if strings.HasSuffix(path, ".csv") {
		csvData, err := formatter.DuplicatesToCSV(report)
		if err != nil {
			return fmt.Errorf("failed to build CSV export: %w", err)
		}
		data = csvData
	} else {
		data = formatter.DedupToMarkdown(report)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

func (r *Runner) printDedupReport(report *tasks.DedupReport) error {
	r.writePlain("Playlist: %s\n", report.PlaylistName)
	r.writePlain("Total tracks: %d\n", report.TotalTracks)
	r.writePlain("Duplicate groups: %d\n", report.DuplicatesFound)

	if report.DuplicatesFound == 0 {
		r.writePlainln("✓ No duplicates found")
		return nil
	}

	r.writePlain("\n")
	for _, group := range report.Groups {
		r.writePlain("• %s - %s (%d copies at positions %v)\n",
			group.Artist, group.Name, group.Count, group.Positions)
	}

	if report.DryRun {
		r.writePlainln("Dry run: %d tracks would be removed", report.PlannedRemovals)
		return nil
	}

	r.writePlainln("✓ Removed %d of %d duplicate tracks", report.TracksRemoved, report.PlannedRemovals)
	if report.FinalSnapshot != "" {
		r.writePlain("Final track count: %d\n", report.FinalTrackCount)
	}

	return r.printExecutionIssues(report.Errors, report.SkippedOps, report.Conflict)
}

// printExecutionIssues reports partial failures. Individual errors and a
// mid-run conflict leave the playlist in a consistent but incomplete state,
// so the user is told to rerun.
func (r *Runner) printExecutionIssues(opErrors []tasks.OpError, skipped int, conflict bool) error {
	if conflict {
		r.writePlainln("⚠ Playlist was modified externally during execution; %d operations were skipped.", skipped)
		r.writePlain("Rerun the command to process the remaining tracks.\n")
		return nil
	}

	if len(opErrors) == 0 {
		return nil
	}

	r.writePlainln("⚠ %d operations failed:", len(opErrors))
	for _, opErr := range opErrors {
		r.writePlain("  position %d [%s]: %s\n", opErr.Position, opErr.Kind, opErr.Message)
	}
	r.writePlain("%s\n", services.UserMessage(services.CategoryUnknown))

	return nil
}
