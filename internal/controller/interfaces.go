package controller

import (
	"context"
	"io"

	"github.com/ytget/repcount/internal/api"
	"github.com/ytget/repcount/internal/model"
)

// View renders controller state. Implementations are called with the
// controller lock held: they must not block and must not call back into
// the controller synchronously.
type View interface {
	// Render shows d; changed names the regions that differ from the
	// previous render.
	Render(d model.Display, changed model.Region)
	// Alert shows a blocking notification (validation or server error).
	Alert(message string)
	// Notify shows a non-blocking notice.
	Notify(message string)
}

// Subscription is an open push channel
type Subscription interface {
	Close()
}

// Backend is the analysis server as seen by the controller
type Backend interface {
	Upload(ctx context.Context, fileName string, r io.Reader) (*model.UploadResponse, error)
	Subscribe(ctx context.Context, onMessage func(*model.PushMessage), onError func(error)) Subscription
	Stop(ctx context.Context) error
	Counts(ctx context.Context) (*model.Counts, error)
	ResetCounts(ctx context.Context) (*model.MessageResponse, error)
	ExportResults(ctx context.Context) (*model.ExportResponse, error)
}

// clientBackend adapts *api.Client to Backend
type clientBackend struct {
	*api.Client
}

func (b clientBackend) Subscribe(ctx context.Context, onMessage func(*model.PushMessage), onError func(error)) Subscription {
	return b.Client.Subscribe(ctx, onMessage, onError)
}

// FromClient wraps an API client as a Backend
func FromClient(c *api.Client) Backend {
	return clientBackend{Client: c}
}
