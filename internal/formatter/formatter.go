// package formatter renders reconciliation reports to exportable formats (CSV, Markdown)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tmdecker/playlist-manager/internal/tasks"
)

// DuplicatesToCSV converts a dedup report's duplicate groups to CSV with
// columns: Group, Title, Artist, Count, Positions, URIs.
func DuplicatesToCSV(report *tasks.DedupReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Group", "Title", "Artist", "Count", "Positions", "URIs"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, group := range report.Groups {
		record := []string{
			strconv.Itoa(i + 1),
			group.Name,
			group.Artist,
			strconv.Itoa(group.Count),
			joinInts(group.Positions),
			strings.Join(group.URIs, " "),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// DedupToMarkdown converts a dedup report to a Markdown summary.
func DedupToMarkdown(report *tasks.DedupReport) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Duplicate Report: %s\n\n", report.PlaylistName))
	buf.WriteString(fmt.Sprintf("- Total tracks: %d\n", report.TotalTracks))
	buf.WriteString(fmt.Sprintf("- Duplicate groups: %d\n", report.DuplicatesFound))
	if report.DryRun {
		buf.WriteString(fmt.Sprintf("- Planned removals (dry run): %d\n", report.PlannedRemovals))
	} else {
		buf.WriteString(fmt.Sprintf("- Tracks removed: %d of %d\n", report.TracksRemoved, report.PlannedRemovals))
	}
	if report.Conflict {
		buf.WriteString("- **Aborted: playlist was modified externally**\n")
	}
	buf.WriteString("\n")

	if len(report.Groups) > 0 {
		buf.WriteString("| # | Title | Artist | Count | Positions |\n")
		buf.WriteString("|---|-------|--------|-------|------------|\n")
		for i, group := range report.Groups {
			buf.WriteString(fmt.Sprintf("| %d | %s | %s | %d | %s |\n",
				i+1, group.Name, group.Artist, group.Count, joinInts(group.Positions)))
		}
		buf.WriteString("\n")
	}

	if len(report.Errors) > 0 {
		buf.WriteString("## Errors\n\n")
		for _, opErr := range report.Errors {
			buf.WriteString(fmt.Sprintf("- position %d (%s): %s\n", opErr.Position, opErr.Kind, opErr.Message))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// SortToMarkdown converts a sort report to a Markdown summary.
func SortToMarkdown(report *tasks.SortReport) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Sort Report: %s\n\n", report.PlaylistName))
	buf.WriteString(fmt.Sprintf("- Total tracks: %d\n", report.TotalTracks))
	if report.DryRun {
		buf.WriteString(fmt.Sprintf("- Planned moves (dry run): %d\n", report.MovesPlanned))
	} else {
		buf.WriteString(fmt.Sprintf("- Moves applied: %d of %d\n", report.MovesApplied, report.MovesPlanned))
	}
	if report.Conflict {
		buf.WriteString("- **Aborted: playlist was modified externally**\n")
	}

	if len(report.Errors) > 0 {
		buf.WriteString("\n## Errors\n\n")
		for _, opErr := range report.Errors {
			buf.WriteString(fmt.Sprintf("- position %d (%s): %s\n", opErr.Position, opErr.Kind, opErr.Message))
		}
	}

	buf.WriteString("\n")
	return buf.Bytes()
}

// Filename generates a timestamped export filename like prefix_20060102_150405.ext
func Filename(prefix, ext string) string {
	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, strings.TrimPrefix(ext, "."))
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}
