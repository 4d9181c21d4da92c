package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/repcount/internal/api"
	"github.com/ytget/repcount/internal/config"
	"github.com/ytget/repcount/internal/model"
	"github.com/ytget/repcount/internal/platform"
)

// Sentinel errors returned by controller operations
var (
	ErrNoFile       = errors.New("no video file selected")
	ErrFileTooLarge = errors.New("video exceeds the upload limit")
	ErrNotVideo     = errors.New("file is not a supported video")
	ErrBusy         = errors.New("processing in progress")
	ErrNotReady     = errors.New("processing is not available")
	ErrClosed       = errors.New("controller closed")
)

// User-facing messages
const (
	MsgSelectFile      = "Please select a video file first."
	MsgFileTooLarge    = "The video is %d MB, larger than the %d MB upload limit."
	MsgUnreadableFile  = "Cannot read the selected video: %v"
	MsgNotVideo        = "%s is not a supported video file."
	MsgBusy            = "Stop processing before uploading another video."
	MsgUploadFailed    = "Upload failed. Check the server connection and try again."
	MsgUploaded        = "Video uploaded successfully"
	MsgServerError     = "Error: %s"
	MsgRequestFailed   = "Request failed. Check the server connection and try again."
	MsgCountsReset     = "Counts reset successfully"
	MsgResultsExported = "Results exported to %s"
)

// Timing
const (
	DefaultStopTimeout = 5 * time.Second
)

// Controller is the UI controller: it owns the session state and the
// display snapshot, and every mutation of either goes through its lock.
type Controller struct {
	backend Backend
	view    View
	logger  *slog.Logger

	maxUploadBytes int64
	stopTimeout    time.Duration

	mu        sync.Mutex
	display   model.Display
	sub       Subscription
	sessionID string
	closed    bool

	frames  *frameDecoder
	pending sync.WaitGroup

	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// New creates a controller in the Idle state and renders it once
func New(backend Backend, view View, opts config.Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		backend:        backend,
		view:           view,
		logger:         logger,
		maxUploadBytes: opts.MaxUploadBytes,
		stopTimeout:    DefaultStopTimeout,
		display:        model.NewDisplay(),
		frames:         newFrameDecoder(),
		baseCtx:        ctx,
		cancelBase:     cancel,
	}

	c.mu.Lock()
	c.render(model.RegionControls | model.RegionLive | model.RegionFinal)
	c.mu.Unlock()
	return c
}

// Display returns a snapshot of the current display
func (c *Controller) Display() model.Display {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

// State returns the current session state
func (c *Controller) State() model.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display.State
}

// SessionID returns the id of the open session, or "" when none is open
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Upload validates the selected file and sends it to the server. User
// input errors are alerted without any network call.
func (c *Controller) Upload(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		c.view.Alert(MsgSelectFile)
		return ErrNoFile
	}
	if !platform.IsVideoFile(path) {
		c.view.Alert(fmt.Sprintf(MsgNotVideo, filepath.Base(path)))
		return ErrNotVideo
	}

	backend, maxUploadBytes := c.target()
	if !c.State().CanUpload() {
		c.view.Notify(MsgBusy)
		return ErrBusy
	}

	size, err := platform.FileSize(path)
	if err != nil {
		c.view.Alert(fmt.Sprintf(MsgUnreadableFile, err))
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if maxUploadBytes > 0 && size > maxUploadBytes {
		c.view.Alert(fmt.Sprintf(MsgFileTooLarge, size/platform.BytesPerMB, maxUploadBytes/platform.BytesPerMB))
		return ErrFileTooLarge
	}

	f, err := os.Open(path)
	if err != nil {
		c.view.Alert(fmt.Sprintf(MsgUnreadableFile, err))
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	c.logger.Info("uploading video", "file", path, "bytes", size)

	resp, err := backend.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		c.logger.Error("upload failed", "file", path, "error", err)
		c.view.Alert(MsgUploadFailed)
		return fmt.Errorf("upload: %w", err)
	}
	if resp.Error != "" {
		c.logger.Warn("upload rejected", "file", path, "error", resp.Error)
		c.view.Alert(fmt.Sprintf(MsgServerError, resp.Error))
		return &api.ServerError{Message: resp.Error}
	}

	c.mu.Lock()
	if c.display.State != model.SessionProcessing {
		c.display.State = model.SessionUploaded
		c.render(model.RegionControls)
	}
	c.mu.Unlock()

	message := resp.Message
	if message == "" {
		message = MsgUploaded
	}
	c.logger.Info("video uploaded", "file", path, "server_name", resp.Filename)
	c.view.Notify(message)
	return nil
}

// StartProcessing resets the live view and opens the push channel
func (c *Controller) StartProcessing() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if !c.display.State.CanStart() {
		return ErrNotReady
	}

	id := newSessionID()
	c.sessionID = id
	c.display.State = model.SessionProcessing
	c.display.Final = nil
	c.display.ResetLive()
	c.render(model.RegionControls | model.RegionFinal | model.RegionLive)

	c.logger.Info("processing started", "session", id)

	c.sub = c.backend.Subscribe(c.baseCtx,
		func(msg *model.PushMessage) { c.handleMessage(id, msg) },
		func(err error) { c.handleChannelError(id, err) },
	)
	return nil
}

// StopProcessing closes the push channel if open and signals the server.
// It is safe to call in any state; after Close it does nothing.
func (c *Controller) StopProcessing() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.render(c.stopLocked("user"))
}

// RefreshCounts fetches the server counters into the display
func (c *Controller) RefreshCounts(ctx context.Context) error {
	backend, _ := c.target()
	if !c.State().CanUpload() {
		return ErrBusy
	}

	counts, err := backend.Counts(ctx)
	if err != nil {
		c.reportRequestError("get counts", err)
		return err
	}

	c.mu.Lock()
	c.display.Counts = *counts
	c.render(model.RegionCounts)
	c.mu.Unlock()
	return nil
}

// ResetCounts zeroes the server counters and the displayed ones
func (c *Controller) ResetCounts(ctx context.Context) error {
	backend, _ := c.target()
	if !c.State().CanUpload() {
		return ErrBusy
	}

	resp, err := backend.ResetCounts(ctx)
	if err != nil {
		c.reportRequestError("reset counts", err)
		return err
	}

	c.mu.Lock()
	c.display.Counts = model.Counts{}
	c.render(model.RegionCounts)
	c.mu.Unlock()

	message := resp.Message
	if message == "" {
		message = MsgCountsReset
	}
	c.view.Notify(message)
	return nil
}

// ExportResults asks the server to write a results file
func (c *Controller) ExportResults(ctx context.Context) (*model.ExportResponse, error) {
	backend, _ := c.target()
	if !c.State().CanUpload() {
		return nil, ErrBusy
	}

	resp, err := backend.ExportResults(ctx)
	if err != nil {
		c.reportRequestError("export results", err)
		return nil, err
	}

	c.logger.Info("results exported", "filename", resp.Filename)
	c.view.Notify(fmt.Sprintf(MsgResultsExported, resp.Filename))
	return resp, nil
}

// Reconfigure points the controller at another server and upload limit.
// It is refused while a session is processing.
func (c *Controller) Reconfigure(backend Backend, opts config.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.display.State == model.SessionProcessing {
		return ErrBusy
	}
	c.backend = backend
	c.maxUploadBytes = opts.MaxUploadBytes
	return nil
}

func (c *Controller) target() (Backend, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backend, c.maxUploadBytes
}

// Close ends any open session and waits for pending stop signals
func (c *Controller) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		if c.sub != nil {
			c.render(c.stopLocked("shutdown"))
		}
	}
	c.mu.Unlock()

	c.pending.Wait()
	c.cancelBase()
}

// handleMessage applies one push message. Messages from a session that is
// no longer current are dropped.
func (c *Controller) handleMessage(id string, msg *model.PushMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sub == nil || id != c.sessionID {
		c.logger.Debug("dropping message from closed session", "session", id)
		return
	}

	if text := msg.ErrorText(); text != "" {
		c.logger.Warn("server reported error", "session", id, "error", text)
		c.render(c.stopLocked("server error"))
		c.view.Alert(fmt.Sprintf(MsgServerError, text))
		return
	}

	if msg.IsTerminal() {
		final := *msg.FinalResults
		c.display.Final = &final
		c.logger.Info("processing completed", "session", id,
			"correct", final.Correct, "incorrect", final.Incorrect, "accuracy", final.Accuracy)
		c.render(c.stopLocked("completed") | model.RegionFinal)
		return
	}

	var changed model.Region
	if msg.Frame != nil {
		img, err := c.frames.decode(*msg.Frame)
		if err != nil {
			c.logger.Warn("skipping frame", "session", id, "error", err)
		} else {
			c.display.Frame = img
			changed |= model.RegionFrame
		}
	}
	if msg.Counts != nil {
		c.display.Counts = *msg.Counts
		changed |= model.RegionCounts
	}
	if msg.Angle != nil {
		c.display.Angle = *msg.Angle
		changed |= model.RegionAngle
	}
	if msg.Feedback != nil {
		c.display.Feedback = *msg.Feedback
		changed |= model.RegionFeedback
	}
	if msg.Debug != nil {
		c.display.Debug = *msg.Debug
		changed |= model.RegionDebug
	}
	if msg.DebugData != nil {
		c.display.DebugData = *msg.DebugData
		changed |= model.RegionDebugData
	}
	if msg.Progress != nil {
		c.display.Progress = model.ClampProgress(*msg.Progress)
		changed |= model.RegionProgress
	}

	c.render(changed)
}

// handleChannelError cleans up after a transport failure. Only an error
// text sent by the server is shown to the user.
func (c *Controller) handleChannelError(id string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sub == nil || id != c.sessionID {
		return
	}

	if se, ok := api.IsServerError(err); ok {
		c.logger.Warn("push channel rejected", "session", id, "error", se)
		c.render(c.stopLocked("server error"))
		c.view.Alert(fmt.Sprintf(MsgServerError, se.Message))
		return
	}

	c.logger.Warn("push channel failed", "session", id, "error", err)
	c.render(c.stopLocked("channel error"))
}

// stopLocked closes the channel, signals the server and moves a running
// session to Stopped. It returns the regions that changed.
func (c *Controller) stopLocked(reason string) model.Region {
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
		c.logger.Info("processing stopped", "session", c.sessionID, "reason", reason)
	}
	c.sessionID = ""
	c.sendStopSignal()

	if c.display.State == model.SessionProcessing {
		c.display.State = model.SessionStopped
	}
	return model.RegionControls
}

// sendStopSignal notifies the server without waiting for the answer
func (c *Controller) sendStopSignal() {
	backend := c.backend
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.stopTimeout)
		defer cancel()
		if err := backend.Stop(ctx); err != nil {
			c.logger.Debug("stop signal failed", "error", err)
		}
	}()
}

// reportRequestError surfaces a failed auxiliary request
func (c *Controller) reportRequestError(op string, err error) {
	if se, ok := api.IsServerError(err); ok {
		c.logger.Warn(op+" rejected", "error", se)
		c.view.Alert(fmt.Sprintf(MsgServerError, se.Message))
		return
	}
	c.logger.Error(op+" failed", "error", err)
	c.view.Alert(MsgRequestFailed)
}

// render pushes the display to the view; the lock must be held
func (c *Controller) render(changed model.Region) {
	if changed == 0 || c.view == nil {
		return
	}
	c.view.Render(c.display, changed)
}

// OutstandingFrames returns the number of frame buffers not yet released
func (c *Controller) OutstandingFrames() int64 {
	return c.frames.inFlight()
}

// newSessionID generates a time-ordered session id
func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
