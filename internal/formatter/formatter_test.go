package formatter

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hydrusband/fetchd/internal/models"
)

func TestFormatBytes(t *testing.T) {
	tc := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{10 << 20, "10.0 MiB"},
		{3 << 30, "3.0 GiB"},
		{2 << 40, "2.0 TiB"},
	}

	for _, tt := range tc {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFormatRate(t *testing.T) {
	if got := FormatRate(512 << 10); got != "512.0 KiB/s" {
		t.Errorf("FormatRate = %s, want 512.0 KiB/s", got)
	}
}

func TestFormatETA(t *testing.T) {
	tc := []struct {
		in   int64
		want string
	}{
		{0, "--"},
		{-3, "--"},
		{45, "0:45"},
		{75, "1:15"},
		{3723, "1:02:03"},
	}

	for _, tt := range tc {
		if got := FormatETA(tt.in); got != tt.want {
			t.Errorf("FormatETA(%d) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func testRecords() []*models.HistoryRecord {
	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []*models.HistoryRecord{
		{
			ID:         "abc123",
			Source:     "https://example/video",
			Filename:   "clip.mp4",
			Kind:       models.KindMedia,
			Status:     models.StatusFinished,
			CreatedAt:  finished.Add(-time.Minute),
			FinishedAt: &finished,
		},
		{
			ID:        "def456",
			Source:    "magnet:?xt=urn:btih:x",
			Kind:      models.KindSwarm,
			Status:    models.StatusCancelled,
			CreatedAt: finished,
		},
	}
}

func TestExportToCSV(t *testing.T) {
	data, err := ExportToCSV(testRecords())
	if err != nil {
		t.Fatalf("ExportToCSV() error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 records", len(lines))
	}
	if !strings.HasPrefix(lines[0], "ID,Source,Filename") {
		t.Errorf("header = %s", lines[0])
	}
	if !strings.Contains(lines[1], "clip.mp4") || !strings.Contains(lines[1], "finished") {
		t.Errorf("first record = %s", lines[1])
	}
	// Unfinished record has an empty Finished column.
	if !strings.HasSuffix(lines[2], ",cancelled,"+testRecords()[1].CreatedAt.Format(time.RFC3339)+",") {
		t.Errorf("second record = %s", lines[2])
	}
}

func TestExportToMarkdown(t *testing.T) {
	out := string(ExportToMarkdown(testRecords()))

	if !strings.Contains(out, "# Fetch History") {
		t.Error("missing title")
	}
	if !strings.Contains(out, "| abc123 |") || !strings.Contains(out, "| def456 |") {
		t.Errorf("missing record rows:\n%s", out)
	}
}

func TestExportToText(t *testing.T) {
	out := string(ExportToText(testRecords()))

	if !strings.Contains(out, "History: 2 records") {
		t.Error("missing record count")
	}
	if !strings.Contains(out, "[media/finished] https://example/video -> clip.mp4") {
		t.Errorf("missing media line:\n%s", out)
	}
	if strings.Contains(out, "magnet:?xt=urn:btih:x ->") {
		t.Error("record without filename should not render an arrow")
	}
}

func TestWriteCSVExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	written, err := WriteCSVExport(testRecords(), path)
	if err != nil {
		t.Fatalf("WriteCSVExport() error: %v", err)
	}
	if written != path {
		t.Errorf("path = %s, want %s", written, path)
	}
}
