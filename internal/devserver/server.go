package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ytget/repcount/internal/api"
	"github.com/ytget/repcount/internal/model"
	"github.com/ytget/repcount/internal/platform"
)

// Response texts
const (
	MsgNoVideoProvided = "No video file provided"
	MsgNoVideoSelected = "No video file selected"
	MsgUploaded        = "Video uploaded successfully"
	MsgFileTooLarge    = "Video file is too large"
	MsgNoVideo         = "No video available for processing"
	MsgCouldNotOpen    = "Could not open video"
	MsgStopped         = "Processing stopped"
	MsgCountsReset     = "Counts reset successfully"
	MsgExported        = "Results exported successfully"

	EventMessage = "message"

	resultsLayout = "20060102_150405"
)

// Server is the scripted analysis server
type Server struct {
	cfg    Config
	logger *slog.Logger
	router *gin.Engine

	mu         sync.Mutex
	videoPath  string
	generation int
	processing bool
	counts     model.Counts
}

// New builds the server and its routes
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:    cfg.withDefaults(),
		logger: logger,
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.MaxMultipartMemory = 8 << 20

	router.POST(api.UploadPath, s.upload)
	router.GET(api.ProcessPath, s.process)
	router.GET(api.StopPath, s.stop)
	router.GET(api.CountsPath, s.getCounts)
	router.POST(api.ResetCountsPath, s.resetCounts)
	router.GET(api.ExportResultsPath, s.exportResults)

	s.router = router
	return s
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dev server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.stopProcessing()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Counts returns the current scripted counters
func (s *Server) Counts() model.Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

func (s *Server) upload(c *gin.Context) {
	if c.Request.ContentLength > s.cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": MsgFileTooLarge})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	_, header, err := c.Request.FormFile(api.UploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": MsgFileTooLarge})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgNoVideoProvided})
		return
	}
	if header.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgNoVideoSelected})
		return
	}

	if err := platform.CreateDirectoryIfNotExists(s.cfg.UploadDir); err != nil {
		s.logger.Error("create upload dir", "dir", s.cfg.UploadDir, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Couldn't store the video - please try again later"})
		return
	}

	saveName := platform.TimestampedName(header.Filename, time.Now())
	savePath := filepath.Join(s.cfg.UploadDir, saveName)
	if err := c.SaveUploadedFile(header, savePath); err != nil {
		s.logger.Error("save upload", "path", savePath, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Couldn't store the video - please try again later"})
		return
	}

	s.mu.Lock()
	s.videoPath = savePath
	s.counts = model.Counts{}
	s.mu.Unlock()

	s.logger.Info("video uploaded", "file", saveName, "bytes", header.Size)
	c.JSON(http.StatusOK, model.UploadResponse{Message: MsgUploaded, Filename: saveName})
}

func (s *Server) process(c *gin.Context) {
	s.mu.Lock()
	videoPath := s.videoPath
	s.mu.Unlock()

	if videoPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgNoVideo})
		return
	}

	c.Header("Content-Type", api.EventStreamMIME)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	if _, err := os.Stat(videoPath); err != nil {
		s.logger.Warn("video missing", "path", videoPath, "error", err)
		c.SSEvent(EventMessage, gin.H{"error": MsgCouldNotOpen})
		c.Writer.Flush()
		return
	}

	gen := s.startProcessing()
	sc := newScript(s.cfg)
	ctx := c.Request.Context()
	i := 0

	s.logger.Info("processing started", "file", filepath.Base(videoPath), "frames", s.cfg.Frames)

	c.Stream(func(w io.Writer) bool {
		if !s.isProcessing(gen) {
			s.logger.Info("processing stopped", "frame", i)
			return false
		}

		if i >= s.cfg.Frames {
			final := sc.final()
			s.setCounts(gen, *final.FinalResults)
			s.finishProcessing(gen)
			c.SSEvent(EventMessage, final)
			s.logger.Info("processing completed", "correct", final.FinalResults.Correct, "incorrect", final.FinalResults.Incorrect)
			return false
		}

		msg, err := sc.step(i)
		if err != nil {
			s.logger.Error("build frame", "frame", i, "error", err)
			c.SSEvent(EventMessage, gin.H{"error": MsgCouldNotOpen})
			s.finishProcessing(gen)
			return false
		}
		s.setCounts(gen, *msg.Counts)
		c.SSEvent(EventMessage, msg)
		i++

		if s.cfg.FrameInterval > 0 {
			select {
			case <-time.After(s.cfg.FrameInterval):
			case <-ctx.Done():
				s.finishProcessing(gen)
				return false
			}
		}
		return true
	})
	s.finishProcessing(gen)
}

func (s *Server) stop(c *gin.Context) {
	s.stopProcessing()
	c.JSON(http.StatusOK, model.MessageResponse{Message: MsgStopped})
}

func (s *Server) getCounts(c *gin.Context) {
	counts := s.Counts()
	c.JSON(http.StatusOK, gin.H{"correct": counts.Correct, "incorrect": counts.Incorrect})
}

func (s *Server) resetCounts(c *gin.Context) {
	s.mu.Lock()
	s.counts = model.Counts{}
	s.mu.Unlock()
	c.JSON(http.StatusOK, model.MessageResponse{Message: MsgCountsReset})
}

func (s *Server) exportResults(c *gin.Context) {
	now := time.Now()
	results := model.ExportedResults{
		Timestamp: now.Format(time.RFC3339),
		Counts:    s.Counts(),
	}

	filename := fmt.Sprintf("situp_results_%s.json", now.Format(resultsLayout))
	if err := s.writeResults(filename, results); err != nil {
		s.logger.Error("export results", "file", filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Couldn't export results - please try again later"})
		return
	}

	c.JSON(http.StatusOK, model.ExportResponse{
		Message:  MsgExported,
		Filename: filename,
		Results:  results,
	})
}

func (s *Server) writeResults(filename string, results model.ExportedResults) error {
	if err := platform.CreateDirectoryIfNotExists(s.cfg.ResultsDir); err != nil {
		return err
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	return os.WriteFile(filepath.Join(s.cfg.ResultsDir, filename), data, 0o644)
}

// startProcessing begins a new run and ends any earlier one
func (s *Server) startProcessing() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.processing = true
	s.counts = model.Counts{}
	return s.generation
}

func (s *Server) isProcessing(gen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing && s.generation == gen
}

func (s *Server) finishProcessing(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		s.processing = false
	}
}

func (s *Server) stopProcessing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false
}

func (s *Server) setCounts(gen int, counts model.Counts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		s.counts = counts
	}
}
