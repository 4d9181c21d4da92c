package compress

import (
	"context"

	"github.com/ytget/repcount/internal/model"
)

// Shrinker defines the interface for the shrink service.
type Shrinker interface {
	SetUpdateCallback(func(model.ShrinkJob))
	Shrink(ctx context.Context, inputPath string) (model.ShrinkJob, error)
	Start(inputPath string) (model.ShrinkJob, error)
	Stop(jobID string) error
	Get(jobID string) (model.ShrinkJob, bool)
}
