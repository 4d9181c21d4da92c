package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ytget/repcount/internal/config"
	"github.com/ytget/repcount/internal/model"
)

// Server endpoints
const (
	UploadPath        = "/upload"
	ProcessPath       = "/process"
	StopPath          = "/stop"
	CountsPath        = "/get_counts"
	ResetCountsPath   = "/reset_counts"
	ExportResultsPath = "/export_results"
)

// Wire constants
const (
	UploadField         = "video"
	EventStreamMIME     = "text/event-stream"
	HeaderAccept        = "Accept"
	HeaderCacheControl  = "Cache-Control"
	HeaderContentType   = "Content-Type"
	NoCache             = "no-cache"
	MaxEventSize        = 32 * 1024 * 1024
	maxErrorBodyBytes   = 64 * 1024
	DefaultUploadName   = "video.mp4"
	GenericUploadFailed = "upload failed"
)

// Client talks to one analysis server
type Client struct {
	http    *resty.Client
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a client for opts.ServerURL. The resty client has no
// global timeout because the /process stream is long-lived; one-shot
// requests get opts.RequestTimeout through their context.
func NewClient(opts config.Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := config.NormalizeServerURL(opts.ServerURL)

	rc := resty.New().
		SetBaseURL(baseURL).
		SetLogger(restyLogger{logger: logger.With("component", "resty")}).
		SetRetryCount(0)

	return &Client{
		http:    rc,
		baseURL: baseURL,
		timeout: opts.RequestTimeout,
		logger:  logger,
	}
}

// BaseURL returns the server base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// withTimeout bounds a one-shot request by the configured timeout
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Upload sends the video as multipart field "video". A server-side
// rejection is returned in UploadResponse.Error with a nil error; err is
// only set for transport failures. The caller's context bounds the upload,
// no request timeout is added since large files take a while.
func (c *Client) Upload(ctx context.Context, fileName string, r io.Reader) (*model.UploadResponse, error) {
	if fileName == "" {
		fileName = DefaultUploadName
	}

	var out model.UploadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader(UploadField, fileName, r).
		SetResult(&out).
		SetError(&out).
		Post(UploadPath)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", fileName, err)
	}

	if resp.IsError() && out.Error == "" {
		out.Error = fmt.Sprintf("%s: %s", GenericUploadFailed, resp.Status())
	}

	c.logger.Debug("upload finished", "file", fileName, "status", resp.StatusCode(), "error", out.Error)
	return &out, nil
}

// Stop asks the server to halt processing. The response body is ignored.
func (c *Client) Stop(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.http.R().SetContext(ctx).Get(StopPath)
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if resp.IsError() {
		return &ServerError{StatusCode: resp.StatusCode(), Message: "stop rejected"}
	}
	return nil
}

// Counts fetches the current counters without processing
func (c *Client) Counts(ctx context.Context) (*model.Counts, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var out model.Counts
	var failure model.MessageResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&failure).
		Get(CountsPath)
	if err != nil {
		return nil, fmt.Errorf("get counts: %w", err)
	}
	if resp.IsError() {
		return nil, serverError(resp.StatusCode(), failure.Error, resp.Status())
	}

	return &out, nil
}

// ResetCounts zeroes the server-side counters
func (c *Client) ResetCounts(ctx context.Context) (*model.MessageResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var out model.MessageResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&out).
		Post(ResetCountsPath)
	if err != nil {
		return nil, fmt.Errorf("reset counts: %w", err)
	}
	if resp.IsError() || out.Error != "" {
		return nil, serverError(resp.StatusCode(), out.Error, resp.Status())
	}
	return &out, nil
}

// ExportResults asks the server to write a results file
func (c *Client) ExportResults(ctx context.Context) (*model.ExportResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var out model.ExportResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&out).
		Get(ExportResultsPath)
	if err != nil {
		return nil, fmt.Errorf("export results: %w", err)
	}
	if resp.IsError() || out.Error != "" {
		return nil, serverError(resp.StatusCode(), out.Error, resp.Status())
	}
	return &out, nil
}

// Subscribe opens the /process push channel in the background and returns
// at once. onMessage is called for every event, one at a time and in
// order. onError is called at most once when the channel fails or ends,
// unless the subscription was closed first.
func (c *Client) Subscribe(ctx context.Context, onMessage func(*model.PushMessage), onError func(error)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		defer cancel()

		err := c.stream(ctx, onMessage)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = ErrStreamEnded
		}
		if onError != nil {
			onError(err)
		}
	}()

	return sub
}

// stream reads the push channel until EOF, error or cancellation
func (c *Client) stream(ctx context.Context, onMessage func(*model.PushMessage)) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader(HeaderAccept, EventStreamMIME).
		SetHeader(HeaderCacheControl, NoCache).
		Get(ProcessPath)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}

	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return streamOpenError(resp.StatusCode(), resp.Status(), body)
	}
	if ct := resp.Header().Get(HeaderContentType); !strings.HasPrefix(ct, EventStreamMIME) {
		return fmt.Errorf("open stream: unexpected content type %q", ct)
	}

	c.logger.Debug("push channel open", "url", c.baseURL+ProcessPath)

	return ReadEvents(body, MaxEventSize, func(ev Event) error {
		if ev.Type != DefaultEventType {
			return nil
		}
		var msg model.PushMessage
		if err := json.Unmarshal([]byte(ev.Data), &msg); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		onMessage(&msg)
		return nil
	})
}

// streamOpenError turns a rejected /process request into an error,
// preferring the server's JSON error text
func streamOpenError(code int, status string, body io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	var failure model.MessageResponse
	if json.Unmarshal(raw, &failure) == nil && failure.Error != "" {
		return &ServerError{StatusCode: code, Message: failure.Error}
	}
	return fmt.Errorf("open stream: unexpected status %s", status)
}

func serverError(code int, message, status string) error {
	if message == "" {
		message = status
	}
	return &ServerError{StatusCode: code, Message: message}
}

// Subscription is an open push channel. Close is the only way to cancel it.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Close cancels the channel. It is idempotent and does not wait for the
// reader goroutine, so it is safe to call from inside a message handler.
func (s *Subscription) Close() {
	s.cancel()
}

// Done is closed once the reader goroutine has exited
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
