package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/repcount/internal/config"
	"github.com/ytget/repcount/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts := config.DefaultOptions()
	opts.ServerURL = server.URL
	opts.RequestTimeout = 5 * time.Second
	return NewClient(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestUpload_Success(t *testing.T) {
	var gotName, gotBody string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, UploadPath, r.URL.Path)

		file, header, err := r.FormFile(UploadField)
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName, gotBody = header.Filename, string(data)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"message": "Video uploaded successfully", "filename": "20250101_000000_clip.mp4"}`)
	}))

	resp, err := client.Upload(context.Background(), "clip.mp4", strings.NewReader("video-bytes"))
	require.NoError(t, err)
	assert.Empty(t, resp.Error)
	assert.Equal(t, "Video uploaded successfully", resp.Message)
	assert.Equal(t, "20250101_000000_clip.mp4", resp.Filename)
	assert.Equal(t, "clip.mp4", gotName)
	assert.Equal(t, "video-bytes", gotBody)
}

func TestUpload_ServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "No video file selected"}`)
	}))

	resp, err := client.Upload(context.Background(), "clip.mp4", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "No video file selected", resp.Error)
}

func TestUpload_NonJSONRejection(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		fmt.Fprint(w, "<h1>Request Entity Too Large</h1>")
	}))

	resp, err := client.Upload(context.Background(), "clip.mp4", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Contains(t, resp.Error, "413")
}

func TestUpload_TransportError(t *testing.T) {
	opts := config.DefaultOptions()
	opts.ServerURL = "http://127.0.0.1:1"
	client := NewClient(opts, nil)

	_, err := client.Upload(context.Background(), "clip.mp4", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestCountsAndReset(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case CountsPath:
			fmt.Fprint(w, `{"correct": 3, "incorrect": 1}`)
		case ResetCountsPath:
			require.Equal(t, http.MethodPost, r.Method)
			fmt.Fprint(w, `{"message": "Counts reset successfully"}`)
		case ExportResultsPath:
			fmt.Fprint(w, `{"message": "Results exported successfully", "filename": "situp_results_1.json",
				"results": {"timestamp": "2025-01-01T00:00:00", "counts": {"correct": 2, "incorrect": 2}}}`)
		default:
			http.NotFound(w, r)
		}
	}))

	counts, err := client.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Counts{Correct: 3, Incorrect: 1, Total: 4, Accuracy: 75}, *counts)

	reset, err := client.ResetCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Counts reset successfully", reset.Message)

	export, err := client.ExportResults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "situp_results_1.json", export.Filename)
	assert.Equal(t, 4, export.Results.Counts.Total)
	assert.Equal(t, float64(50), export.Results.Counts.Accuracy)
}

func TestStop(t *testing.T) {
	called := make(chan struct{}, 1)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, StopPath, r.URL.Path)
		called <- struct{}{}
		fmt.Fprint(w, `{"message": "Processing stopped"}`)
	}))

	require.NoError(t, client.Stop(context.Background()))
	select {
	case <-called:
	default:
		t.Fatal("stop endpoint was not called")
	}
}

func sseHandler(events ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", EventStreamMIME)
		flusher := w.(http.Flusher)
		for _, ev := range events {
			fmt.Fprintf(w, "data: %s\n\n", ev)
			flusher.Flush()
		}
	}
}

func TestSubscribe_DeliversInOrder(t *testing.T) {
	client := newTestClient(t, sseHandler(
		`{"progress": 10}`,
		`{"progress": 20, "feedback": "Good! Now go back down."}`,
		`{"completed": true, "final_results": {"correct": 8, "incorrect": 2, "total": 10, "accuracy": 80}}`,
	))

	var (
		mu       sync.Mutex
		messages []*model.PushMessage
	)
	errCh := make(chan error, 1)
	sub := client.Subscribe(context.Background(), func(m *model.PushMessage) {
		mu.Lock()
		messages = append(messages, m)
		mu.Unlock()
	}, func(err error) { errCh <- err })

	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("subscription did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, messages, 3)
	assert.Equal(t, 10.0, *messages[0].Progress)
	assert.Equal(t, "Good! Now go back down.", *messages[1].Feedback)
	assert.True(t, messages[2].IsTerminal())

	err := <-errCh
	assert.ErrorIs(t, err, ErrStreamEnded)
}

func TestSubscribe_DecodeErrorReported(t *testing.T) {
	client := newTestClient(t, sseHandler(`{"progress": 10}`, `not-json`))

	errCh := make(chan error, 1)
	client.Subscribe(context.Background(), func(*model.PushMessage) {}, func(err error) { errCh <- err })

	select {
	case err := <-errCh:
		assert.Contains(t, err.Error(), "decode event")
	case <-time.After(5 * time.Second):
		t.Fatal("expected decode error")
	}
}

func TestSubscribe_ServerRejects(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "No video available for processing"}`)
	}))

	errCh := make(chan error, 1)
	client.Subscribe(context.Background(), func(*model.PushMessage) {}, func(err error) { errCh <- err })

	select {
	case err := <-errCh:
		se, ok := IsServerError(err)
		require.True(t, ok, "expected server error, got %v", err)
		assert.Equal(t, "No video available for processing", se.Message)
		assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	case <-time.After(5 * time.Second):
		t.Fatal("expected server error")
	}
}

func TestSubscribe_CloseSuppressesError(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", EventStreamMIME)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer close(release)

	errCh := make(chan error, 1)
	sub := client.Subscribe(context.Background(), func(*model.PushMessage) {}, func(err error) { errCh <- err })

	time.Sleep(50 * time.Millisecond)
	sub.Close()
	sub.Close()

	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("subscription did not exit after Close")
	}
	select {
	case err := <-errCh:
		t.Fatalf("unexpected error after Close: %v", err)
	default:
	}
}
