package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// FetchJob imports a remote video into a local file ready for upload
type FetchJob struct {
	ID         string
	URL        string
	Status     JobStatus
	Percent    int    // 0 to 100
	Speed      string // human readable speed (e.g., "1.2MB/s")
	ETASec     int    // ETA in seconds, -1 if unknown
	LastError  string // last error message if any
	OutputPath string // path to the imported file
	Title      string // video title reported by the extractor
	StartedAt  time.Time
	FinishedAt time.Time
}

// ShrinkJob re-encodes a local video so it fits the server upload limit
type ShrinkJob struct {
	ID         string
	InputPath  string
	OutputPath string
	Status     JobStatus
	Percent    int    // 0 to 100
	LastError  string // last error message if any
	StartedAt  time.Time
	FinishedAt time.Time
}

// GetETAString returns ETA formatted as mm:ss or hh:mm:ss, or "—" if unknown
func (j *FetchJob) GetETAString() string {
	if j.ETASec <= 0 {
		return "—"
	}

	hours := j.ETASec / 3600
	minutes := (j.ETASec % 3600) / 60
	seconds := j.ETASec % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// GetDisplayTitle returns title, file name, or URL in order of preference
func (j *FetchJob) GetDisplayTitle() string {
	if j.Title != "" && !strings.HasPrefix(j.Title, "http") {
		return j.Title
	}

	if j.OutputPath != "" {
		// support both separators, the path may come from another OS
		name := filepath.Base(strings.ReplaceAll(j.OutputPath, "\\", "/"))
		if idx := strings.LastIndex(name, "."); idx > 0 {
			name = name[:idx]
		}
		if name != "" && name != "." && name != "/" {
			return name
		}
	}

	return j.URL
}
