// package formatter provides human-readable rendering of transfer values and
// functions to export history data to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/hydrusband/fetchd/internal/models"
)

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}

// FormatRate renders a transfer rate in bytes per second.
func FormatRate(bytesPerSecond float64) string {
	return FormatBytes(int64(bytesPerSecond)) + "/s"
}

// FormatETA renders a remaining-seconds estimate as H:MM:SS or M:SS.
// Zero and negative estimates render as "--" (an unknown rate reports 0).
func FormatETA(seconds int64) string {
	if seconds <= 0 {
		return "--"
	}

	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatPercent renders a 0-100 progress value.
func FormatPercent(percent float64) string {
	return fmt.Sprintf("%.1f%%", percent)
}

// ExportToCSV converts history records to CSV with columns: ID, Source, Filename, Kind, Status, Created, Finished
func ExportToCSV(records []*models.HistoryRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Source", "Filename", "Kind", "Status", "Created", "Finished"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, record := range records {
		row := []string{
			record.ID,
			record.Source,
			record.Filename,
			string(record.Kind),
			string(record.Status),
			record.CreatedAt.Format(time.RFC3339),
			formatFinished(record.FinishedAt),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts history records to a Markdown table.
func ExportToMarkdown(records []*models.HistoryRecord) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Fetch History\n\n")
	buf.WriteString(fmt.Sprintf("**Records**: %d\n\n", len(records)))
	buf.WriteString("| ID | Source | Kind | Status | Finished |\n")
	buf.WriteString("| --- | --- | --- | --- | --- |\n")

	for _, record := range records {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			record.ID, record.Source, record.Kind, record.Status, formatFinished(record.FinishedAt)))
	}

	return buf.Bytes()
}

// ExportToText converts history records to plain text, one line per record.
func ExportToText(records []*models.HistoryRecord) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("History: %d records\n\n", len(records)))
	for i, record := range records {
		buf.WriteString(fmt.Sprintf("%d. [%s/%s] %s", i+1, record.Kind, record.Status, record.Source))
		if record.Filename != "" {
			buf.WriteString(" -> " + record.Filename)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// WriteCSVExport writes history records to a CSV file.
//
// Defaults to history_export.csv when path is empty.
func WriteCSVExport(records []*models.HistoryRecord, path string) (string, error) {
	if path == "" {
		path = "history_export.csv"
	}

	data, err := ExportToCSV(records)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return path, nil
}

func formatFinished(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
