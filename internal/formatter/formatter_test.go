package formatter

import (
	"bytes"
	"encoding/csv"
	"regexp"
	"strings"
	"testing"

	"github.com/tmdecker/playlist-manager/internal/tasks"
)

func sampleDedupReport() *tasks.DedupReport {
	return &tasks.DedupReport{
		PlaylistName:    "Road Trip",
		TotalTracks:     20,
		DuplicatesFound: 2,
		PlannedRemovals: 3,
		TracksRemoved:   3,
		Groups: []tasks.DuplicateGroup{
			{Name: "Song One", Artist: "Band A", Count: 2, Positions: []int{1, 7}, URIs: []string{"u1", "u1"}},
			{Name: "Song Two", Artist: "Band B", Count: 3, Positions: []int{2, 5, 9}, URIs: []string{"u2", "u3", "u2"}},
		},
	}
}

func TestDuplicatesToCSV(t *testing.T) {
	data, err := DuplicatesToCSV(sampleDedupReport())
	if err != nil {
		t.Fatalf("DuplicatesToCSV() error = %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("got %d rows, want header + 2 groups", len(records))
	}
	if records[0][1] != "Title" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][1] != "Song One" || records[1][3] != "2" || records[1][4] != "1 7" {
		t.Errorf("row 1 = %v", records[1])
	}
	if records[2][5] != "u2 u3 u2" {
		t.Errorf("row 2 URIs = %q", records[2][5])
	}
}

func TestDedupToMarkdown(t *testing.T) {
	report := sampleDedupReport()
	report.Conflict = true
	report.Errors = []tasks.OpError{{Position: 5, Kind: "api_error", Message: "boom"}}

	out := string(DedupToMarkdown(report))

	for _, want := range []string{
		"# Duplicate Report: Road Trip",
		"| 1 | Song One | Band A | 2 | 1 7 |",
		"modified externally",
		"position 5 (api_error): boom",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestSortToMarkdown(t *testing.T) {
	report := &tasks.SortReport{
		PlaylistName: "Road Trip",
		TotalTracks:  20,
		MovesPlanned: 5,
		MovesApplied: 5,
	}

	out := string(SortToMarkdown(report))
	if !strings.Contains(out, "Moves applied: 5 of 5") {
		t.Errorf("markdown: %s", out)
	}

	dry := &tasks.SortReport{PlaylistName: "X", MovesPlanned: 2, DryRun: true}
	if !strings.Contains(string(SortToMarkdown(dry)), "dry run") {
		t.Error("dry run not indicated")
	}
}

func TestFilename(t *testing.T) {
	name := Filename("dedup_road-trip", ".csv")
	matched, err := regexp.MatchString(`^dedup_road-trip_\d{8}_\d{6}\.csv$`, name)
	if err != nil {
		t.Fatal(err)
	}
	if !matched {
		t.Errorf("Filename() = %q", name)
	}
}
