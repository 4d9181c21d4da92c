package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ytget/repcount/internal/model"
)

// ResultsHeader opens the summary printed after a session
const ResultsHeader = "=== ANALYSIS RESULTS ==="

// Report is the JSON summary written with -report
type Report struct {
	Video       string    `json:"video"`
	SessionID   string    `json:"session_id,omitempty"`
	Correct     int       `json:"correct"`
	Incorrect   int       `json:"incorrect"`
	Total       int       `json:"total"`
	Accuracy    float64   `json:"accuracy"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewReport builds a report from final counts
func NewReport(video, sessionID string, final model.Counts, at time.Time) Report {
	return Report{
		Video:       video,
		SessionID:   sessionID,
		Correct:     final.Correct,
		Incorrect:   final.Incorrect,
		Total:       final.Total,
		Accuracy:    final.Accuracy,
		CompletedAt: at,
	}
}

// PrintResults writes the human readable summary
func PrintResults(w io.Writer, final model.Counts) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, ResultsHeader)
	fmt.Fprintf(w, "Total sit-ups: %d\n", final.Total)
	fmt.Fprintf(w, "Correct sit-ups: %d\n", final.Correct)
	fmt.Fprintf(w, "Incorrect sit-ups: %d\n", final.Incorrect)
	fmt.Fprintf(w, "Accuracy: %.2f%%\n", final.Accuracy)
}

// WriteReport saves r as indented JSON
func WriteReport(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
