package fetch

import (
	"context"
	"time"

	"github.com/ytget/repcount/internal/model"
)

// Importer defines the interface for the import service.
type Importer interface {
	SetUpdateCallback(func(model.FetchJob))
	Import(ctx context.Context, url string) (model.FetchJob, error)
	Start(url string) (model.FetchJob, error)
	Get(id string) (model.FetchJob, bool)
	Stop(id string) error
	SetDownloadDirectory(dir string)
}

// Progress is one progress report of a running download
type Progress struct {
	DownloadedBytes int
	TotalBytes      int
	Started         time.Time
	ETA             time.Duration
	Title           string
}

// Result describes a finished download
type Result struct {
	OutputPath string
	Title      string
}

// Runner performs the actual download
type Runner interface {
	Run(ctx context.Context, url, dir string, progress func(Progress)) (Result, error)
}
