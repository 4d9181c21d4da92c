package controller

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/repcount/internal/api"
	"github.com/ytget/repcount/internal/config"
	"github.com/ytget/repcount/internal/model"
)

type fakeSub struct {
	closed int
}

func (s *fakeSub) Close() { s.closed++ }

type fakeBackend struct {
	mu sync.Mutex

	uploadResp *model.UploadResponse
	uploadErr  error
	uploads    []string

	subs      []*fakeSub
	onMessage func(*model.PushMessage)
	onError   func(error)

	stops int

	counts    *model.Counts
	countsErr error
	resets    int
	export    *model.ExportResponse
}

func (b *fakeBackend) Upload(ctx context.Context, fileName string, r io.Reader) (*model.UploadResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads = append(b.uploads, fileName)
	if b.uploadErr != nil {
		return nil, b.uploadErr
	}
	if b.uploadResp != nil {
		return b.uploadResp, nil
	}
	return &model.UploadResponse{Message: "Video uploaded successfully", Filename: fileName}, nil
}

func (b *fakeBackend) Subscribe(ctx context.Context, onMessage func(*model.PushMessage), onError func(error)) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &fakeSub{}
	b.subs = append(b.subs, sub)
	b.onMessage = onMessage
	b.onError = onError
	return sub
}

func (b *fakeBackend) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
	return nil
}

func (b *fakeBackend) Counts(ctx context.Context) (*model.Counts, error) {
	if b.countsErr != nil {
		return nil, b.countsErr
	}
	return b.counts, nil
}

func (b *fakeBackend) ResetCounts(ctx context.Context) (*model.MessageResponse, error) {
	b.resets++
	return &model.MessageResponse{Message: "Counts reset successfully"}, nil
}

func (b *fakeBackend) ExportResults(ctx context.Context) (*model.ExportResponse, error) {
	return b.export, nil
}

func (b *fakeBackend) send(msg *model.PushMessage) {
	b.mu.Lock()
	fn := b.onMessage
	b.mu.Unlock()
	fn(msg)
}

func (b *fakeBackend) fail(err error) {
	b.mu.Lock()
	fn := b.onError
	b.mu.Unlock()
	fn(err)
}

func (b *fakeBackend) stopCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stops
}

type render struct {
	display model.Display
	changed model.Region
}

type fakeView struct {
	renders []render
	alerts  []string
	notices []string
}

func (v *fakeView) Render(d model.Display, changed model.Region) {
	v.renders = append(v.renders, render{display: d, changed: changed})
}

func (v *fakeView) Alert(message string)  { v.alerts = append(v.alerts, message) }
func (v *fakeView) Notify(message string) { v.notices = append(v.notices, message) }

func (v *fakeView) last() render {
	return v.renders[len(v.renders)-1]
}

func newTestController(t *testing.T) (*Controller, *fakeBackend, *fakeView) {
	t.Helper()
	backend := &fakeBackend{}
	view := &fakeView{}
	opts := config.DefaultOptions()
	opts.MaxUploadBytes = 1024
	c := New(backend, view, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(c.Close)
	return c, backend, view
}

func writeVideo(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "situps.mp4")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{1}, size), 0o644))
	return path
}

func jpegHex(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return hex.EncodeToString(buf.Bytes())
}

func ptr[T any](v T) *T { return &v }

func startedController(t *testing.T) (*Controller, *fakeBackend, *fakeView) {
	t.Helper()
	c, backend, view := newTestController(t)
	require.NoError(t, c.Upload(context.Background(), writeVideo(t, 10)))
	require.NoError(t, c.StartProcessing())
	return c, backend, view
}

func TestNew_RendersIdle(t *testing.T) {
	c, _, view := newTestController(t)

	require.Len(t, view.renders, 1)
	assert.Equal(t, model.SessionIdle, c.State())
	assert.False(t, c.State().CanStart())
	assert.Equal(t, model.StartingFeedback, view.last().display.Feedback)
}

func TestUpload_NoFileSelected(t *testing.T) {
	c, backend, view := newTestController(t)

	err := c.Upload(context.Background(), "  ")
	require.ErrorIs(t, err, ErrNoFile)
	assert.Empty(t, backend.uploads)
	assert.Equal(t, []string{MsgSelectFile}, view.alerts)
	assert.Equal(t, model.SessionIdle, c.State())
}

func TestUpload_NotVideo(t *testing.T) {
	c, backend, view := newTestController(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	err := c.Upload(context.Background(), path)
	require.ErrorIs(t, err, ErrNotVideo)
	assert.Empty(t, backend.uploads)
	assert.Equal(t, []string{"notes.txt is not a supported video file."}, view.alerts)
}

func TestUpload_TooLarge(t *testing.T) {
	c, backend, view := newTestController(t)

	err := c.Upload(context.Background(), writeVideo(t, 2048))
	require.ErrorIs(t, err, ErrFileTooLarge)
	assert.Empty(t, backend.uploads)
	assert.Len(t, view.alerts, 1)
}

func TestUpload_Success(t *testing.T) {
	c, backend, view := newTestController(t)

	require.NoError(t, c.Upload(context.Background(), writeVideo(t, 10)))
	assert.Equal(t, []string{"situps.mp4"}, backend.uploads)
	assert.Equal(t, model.SessionUploaded, c.State())
	assert.True(t, c.State().CanStart())
	assert.True(t, view.last().changed.Has(model.RegionControls))
	assert.Equal(t, []string{"Video uploaded successfully"}, view.notices)
	assert.Empty(t, view.alerts)
}

func TestUpload_DefaultNotice(t *testing.T) {
	c, backend, view := newTestController(t)
	backend.uploadResp = &model.UploadResponse{}

	require.NoError(t, c.Upload(context.Background(), writeVideo(t, 10)))
	assert.Equal(t, []string{MsgUploaded}, view.notices)
}

func TestUpload_ServerError(t *testing.T) {
	c, backend, view := newTestController(t)
	backend.uploadResp = &model.UploadResponse{Error: "No video file"}

	err := c.Upload(context.Background(), writeVideo(t, 10))
	se, ok := api.IsServerError(err)
	require.True(t, ok)
	assert.Equal(t, "No video file", se.Message)
	assert.Equal(t, model.SessionIdle, c.State())
	assert.Equal(t, []string{"Error: No video file"}, view.alerts)
}

func TestUpload_NetworkFailure(t *testing.T) {
	c, backend, view := newTestController(t)
	backend.uploadErr = errors.New("connection refused")

	require.Error(t, c.Upload(context.Background(), writeVideo(t, 10)))
	assert.Equal(t, model.SessionIdle, c.State())
	assert.Equal(t, []string{MsgUploadFailed}, view.alerts)
}

func TestUpload_RejectedWhileProcessing(t *testing.T) {
	c, backend, view := startedController(t)

	err := c.Upload(context.Background(), writeVideo(t, 10))
	require.ErrorIs(t, err, ErrBusy)
	assert.Len(t, backend.uploads, 1)
	assert.Contains(t, view.notices, MsgBusy)
	assert.Equal(t, model.SessionProcessing, c.State())
}

func TestStartProcessing_RequiresUpload(t *testing.T) {
	c, backend, _ := newTestController(t)

	require.ErrorIs(t, c.StartProcessing(), ErrNotReady)
	assert.Empty(t, backend.subs)
}

func TestStartProcessing_ResetsLiveView(t *testing.T) {
	c, backend, view := startedController(t)

	backend.send(&model.PushMessage{
		Counts:   &model.Counts{Correct: 5, Incorrect: 1, Total: 6, Accuracy: 83.3},
		Angle:    ptr(91.5),
		Feedback: ptr("Go lower"),
		Progress: ptr(50.0),
	})
	c.StopProcessing()
	require.NoError(t, c.StartProcessing())

	r := view.last()
	assert.True(t, r.changed.Has(model.RegionLive|model.RegionControls|model.RegionFinal))
	assert.Equal(t, model.Counts{}, r.display.Counts)
	assert.Equal(t, "0%", r.display.AccuracyText())
	assert.Equal(t, "0°", r.display.AngleText())
	assert.Equal(t, "0%", r.display.ProgressText())
	assert.Equal(t, model.StartingFeedback, r.display.Feedback)
	assert.Nil(t, r.display.Final)
	assert.False(t, r.display.State.CanStart())
	assert.True(t, r.display.State.CanStop())
	assert.Len(t, backend.subs, 2)
	assert.NotEmpty(t, c.SessionID())
}

func TestHandleMessage_CountsOnly(t *testing.T) {
	c, backend, view := startedController(t)
	backend.send(&model.PushMessage{Frame: ptr(jpegHex(t, 8, 6)), Feedback: ptr("Good"), Progress: ptr(10.0)})
	before := c.Display()

	backend.send(&model.PushMessage{Counts: &model.Counts{Correct: 3, Incorrect: 1, Total: 4, Accuracy: 75}})

	r := view.last()
	assert.Equal(t, model.RegionCounts, r.changed)
	assert.Equal(t, model.Counts{Correct: 3, Incorrect: 1, Total: 4, Accuracy: 75}, r.display.Counts)
	assert.Equal(t, "75%", r.display.AccuracyText())
	assert.Equal(t, before.Frame, r.display.Frame)
	assert.Equal(t, before.Feedback, r.display.Feedback)
	assert.Equal(t, before.Progress, r.display.Progress)
}

func TestHandleMessage_AllLiveFields(t *testing.T) {
	_, backend, view := startedController(t)

	backend.send(&model.PushMessage{
		Frame:    ptr(jpegHex(t, 16, 9)),
		Counts:   &model.Counts{Correct: 1, Total: 1, Accuracy: 100},
		Angle:    ptr(45.26),
		Feedback: ptr("Keep your back straight"),
		Debug:    ptr("frame 12"),
		DebugData: &model.DebugData{
			State:            "up",
			MissingKeypoints: model.Labels{"left_hip", "23"},
		},
		Progress: ptr(130.0),
	})

	r := view.last()
	want := model.RegionFrame | model.RegionLive
	assert.Equal(t, want, r.changed)
	w, h := r.display.FrameSize()
	assert.Equal(t, 16, w)
	assert.Equal(t, 9, h)
	assert.Equal(t, model.Counts{Correct: 1, Total: 1, Accuracy: 100}, r.display.Counts)
	assert.Equal(t, "45.3°", r.display.AngleText())
	assert.Equal(t, "left_hip, 23", r.display.MissingKeypointsText())
	assert.Equal(t, "up", r.display.DebugStateText())
	assert.Equal(t, 100.0, r.display.Progress)
}

func TestHandleMessage_EmptyDebugDataShowsNone(t *testing.T) {
	_, backend, view := startedController(t)

	backend.send(&model.PushMessage{DebugData: &model.DebugData{State: "down"}})

	r := view.last()
	assert.Equal(t, model.RegionDebugData, r.changed)
	assert.Equal(t, model.NoKeypointsMissing, r.display.MissingKeypointsText())
}

func TestHandleMessage_NoFieldsRendersNothing(t *testing.T) {
	_, backend, view := startedController(t)
	n := len(view.renders)

	backend.send(&model.PushMessage{})
	backend.send(&model.PushMessage{Completed: true})
	backend.send(&model.PushMessage{Error: ptr("")})

	assert.Len(t, view.renders, n)
	assert.Empty(t, view.alerts)
}

func TestHandleMessage_Completed(t *testing.T) {
	c, backend, view := startedController(t)
	backend.send(&model.PushMessage{Counts: &model.Counts{Correct: 7}})

	backend.send(&model.PushMessage{
		Completed:    true,
		FinalResults: &model.Counts{Correct: 8, Incorrect: 2, Total: 10, Accuracy: 80},
	})

	r := view.last()
	assert.True(t, r.changed.Has(model.RegionFinal|model.RegionControls))
	require.NotNil(t, r.display.Final)
	assert.Equal(t, model.Counts{Correct: 8, Incorrect: 2, Total: 10, Accuracy: 80}, *r.display.Final)
	assert.Equal(t, model.SessionStopped, c.State())
	assert.Equal(t, 1, backend.subs[0].closed)

	n := len(view.renders)
	backend.send(&model.PushMessage{Counts: &model.Counts{Correct: 99}})
	assert.Len(t, view.renders, n)
	assert.Equal(t, 7, c.Display().Counts.Correct)

	c.pending.Wait()
	assert.Equal(t, 1, backend.stopCount())
}

func TestHandleMessage_ServerError(t *testing.T) {
	c, backend, view := startedController(t)

	backend.send(&model.PushMessage{Error: ptr("Could not open video"), Counts: &model.Counts{Correct: 1}})

	assert.Equal(t, []string{"Error: Could not open video"}, view.alerts)
	assert.Equal(t, model.SessionStopped, c.State())
	assert.Equal(t, 0, c.Display().Counts.Correct)
	assert.Equal(t, 1, backend.subs[0].closed)
	c.pending.Wait()
	assert.Equal(t, 1, backend.stopCount())
}

func TestHandleMessage_BadFrameSkipped(t *testing.T) {
	c, backend, view := startedController(t)

	backend.send(&model.PushMessage{Frame: ptr("abc"), Feedback: ptr("Good rep")})
	backend.send(&model.PushMessage{Frame: ptr("zz")})

	assert.Equal(t, model.RegionFeedback, view.renders[len(view.renders)-1].changed)
	assert.Nil(t, c.Display().Frame)
	assert.Equal(t, "Good rep", c.Display().Feedback)
	assert.Equal(t, model.SessionProcessing, c.State())
	assert.Zero(t, c.OutstandingFrames())
}

func TestHandleMessage_FramesReleased(t *testing.T) {
	c, backend, _ := startedController(t)
	frame := jpegHex(t, 32, 24)

	for i := 0; i < 50; i++ {
		backend.send(&model.PushMessage{Frame: ptr(frame)})
		assert.Zero(t, c.OutstandingFrames())
	}
	w, h := c.Display().FrameSize()
	assert.Equal(t, 32, w)
	assert.Equal(t, 24, h)
}

func TestChannelError_StopsSilently(t *testing.T) {
	c, backend, view := startedController(t)

	backend.fail(api.ErrStreamEnded)

	assert.Empty(t, view.alerts)
	assert.Equal(t, model.SessionStopped, c.State())
	assert.True(t, c.State().CanStart())
	assert.Equal(t, 1, backend.subs[0].closed)
	c.pending.Wait()
	assert.Equal(t, 1, backend.stopCount())
}

func TestChannelError_ServerRejection(t *testing.T) {
	c, backend, view := startedController(t)

	backend.fail(&api.ServerError{StatusCode: 400, Message: "No video uploaded"})

	assert.Equal(t, []string{"Error: No video uploaded"}, view.alerts)
	assert.Equal(t, model.SessionStopped, c.State())
}

func TestChannelError_StaleSessionIgnored(t *testing.T) {
	c, backend, view := startedController(t)
	stale := backend.onError
	c.StopProcessing()
	require.NoError(t, c.StartProcessing())

	stale(errors.New("late failure"))

	assert.Equal(t, model.SessionProcessing, c.State())
	assert.Empty(t, view.alerts)
}

func TestStopProcessing(t *testing.T) {
	tests := []struct {
		name     string
		messages int
	}{
		{name: "no messages", messages: 0},
		{name: "one message", messages: 1},
		{name: "many messages", messages: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, backend, view := startedController(t)
			for i := 0; i < tt.messages; i++ {
				backend.send(&model.PushMessage{Progress: ptr(float64(i))})
			}

			c.StopProcessing()

			r := view.last()
			assert.True(t, r.changed.Has(model.RegionControls))
			assert.True(t, r.display.State.CanStart())
			assert.False(t, r.display.State.CanStop())
			assert.Equal(t, 1, backend.subs[0].closed)
			assert.Empty(t, c.SessionID())
			c.pending.Wait()
			assert.Equal(t, 1, backend.stopCount())
		})
	}
}

func TestStopProcessing_Idempotent(t *testing.T) {
	c, backend, _ := startedController(t)

	c.StopProcessing()
	c.StopProcessing()

	assert.Equal(t, model.SessionStopped, c.State())
	assert.Equal(t, 1, backend.subs[0].closed)
	c.pending.Wait()
	assert.Equal(t, 2, backend.stopCount())
}

func TestStopProcessing_IdleStaysIdle(t *testing.T) {
	c, backend, _ := newTestController(t)

	c.StopProcessing()

	assert.Equal(t, model.SessionIdle, c.State())
	c.pending.Wait()
	assert.Equal(t, 1, backend.stopCount())
}

func TestRefreshCounts(t *testing.T) {
	c, backend, view := newTestController(t)
	backend.counts = &model.Counts{Correct: 3, Incorrect: 1, Total: 4, Accuracy: 75}

	require.NoError(t, c.RefreshCounts(context.Background()))
	assert.Equal(t, model.RegionCounts, view.last().changed)
	assert.Equal(t, 4, c.Display().Counts.Total)

	backend.countsErr = errors.New("timeout")
	require.Error(t, c.RefreshCounts(context.Background()))
	assert.Equal(t, []string{MsgRequestFailed}, view.alerts)
}

func TestAuxiliaryRequests_BusyWhileProcessing(t *testing.T) {
	c, backend, _ := startedController(t)

	assert.ErrorIs(t, c.RefreshCounts(context.Background()), ErrBusy)
	assert.ErrorIs(t, c.ResetCounts(context.Background()), ErrBusy)
	_, err := c.ExportResults(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.Zero(t, backend.resets)
}

func TestResetCounts(t *testing.T) {
	c, backend, view := newTestController(t)
	backend.counts = &model.Counts{Correct: 2, Total: 2, Accuracy: 100}
	require.NoError(t, c.RefreshCounts(context.Background()))

	require.NoError(t, c.ResetCounts(context.Background()))
	assert.Equal(t, 1, backend.resets)
	assert.Equal(t, model.Counts{}, c.Display().Counts)
	assert.Equal(t, []string{"Counts reset successfully"}, view.notices)
}

func TestExportResults(t *testing.T) {
	c, backend, view := newTestController(t)
	backend.export = &model.ExportResponse{Message: "Results exported successfully", Filename: "results_20250101_000000.json"}

	resp, err := c.ExportResults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "results_20250101_000000.json", resp.Filename)
	require.Len(t, view.notices, 1)
	assert.True(t, strings.HasSuffix(view.notices[0], "results_20250101_000000.json"))
}

func TestClose_StopsSessionAndRejectsStart(t *testing.T) {
	c, backend, _ := startedController(t)

	c.Close()

	assert.Equal(t, model.SessionStopped, c.State())
	assert.Equal(t, 1, backend.subs[0].closed)
	assert.Equal(t, 1, backend.stopCount())
	assert.ErrorIs(t, c.StartProcessing(), ErrClosed)
}

func TestStopProcessing_AfterCloseDoesNothing(t *testing.T) {
	c, backend, view := startedController(t)
	c.Close()
	renders := len(view.renders)

	c.StopProcessing()
	c.StopProcessing()

	assert.Equal(t, 1, backend.stopCount())
	assert.Len(t, view.renders, renders)
}

func TestStopProcessing_ConcurrentWithClose(t *testing.T) {
	for round := 0; round < 200; round++ {
		c, _, _ := startedController(t)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.StopProcessing()
		}()
		go func() {
			defer wg.Done()
			c.Close()
		}()
		wg.Wait()

		c.StopProcessing()
		assert.Equal(t, model.SessionStopped, c.State())
	}
}

func TestReconfigure(t *testing.T) {
	c, backend, view := startedController(t)

	other := &fakeBackend{}
	opts := config.DefaultOptions()
	opts.MaxUploadBytes = 5
	assert.ErrorIs(t, c.Reconfigure(other, opts), ErrBusy)

	c.StopProcessing()
	require.NoError(t, c.Reconfigure(other, opts))

	err := c.Upload(context.Background(), writeVideo(t, 10))
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.NotEmpty(t, view.alerts)

	opts.MaxUploadBytes = 1024
	require.NoError(t, c.Reconfigure(other, opts))
	require.NoError(t, c.Upload(context.Background(), writeVideo(t, 10)))

	c.pending.Wait()
	assert.Len(t, backend.uploads, 1)
	assert.Len(t, other.uploads, 1)
}
