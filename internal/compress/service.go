package compress

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/repcount/internal/model"
	"github.com/ytget/repcount/internal/platform"
)

// FFmpeg settings for shrinking. Analysis only needs the picture, so audio
// is dropped and the height is capped.
const (
	VideoCodec  = "libx264"
	VideoPreset = "veryfast"
	VideoCRF    = "28"
	MaxHeight   = 720

	FastStartFlag = "+faststart"

	ShrunkSuffix = "-shrunk"

	FFmpegCommand       = "ffmpeg"
	FFprobeCommand      = "ffprobe"
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"
	ProgressPipeTarget  = "pipe:2"
	ProgressTimePrefix  = "out_time_us="
	JobIDPrefix         = "shrink-"
	OutputExtensionMP4  = ".mp4"
)

// ErrJobNotFound is returned for unknown job ids
var ErrJobNotFound = errors.New("shrink job not found")

// Service handles video shrink operations
type Service struct {
	logger    *slog.Logger
	jobs      map[string]*model.ShrinkJob
	cancels   map[string]context.CancelFunc
	jobsMutex sync.RWMutex
	onUpdate  func(model.ShrinkJob) // callback for UI updates
}

// NewService creates a new shrink service
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:  logger,
		jobs:    make(map[string]*model.ShrinkJob),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Available reports whether ffmpeg and ffprobe are on PATH
func Available() bool {
	return platform.HasExecutable(FFmpegCommand) && platform.HasExecutable(FFprobeCommand)
}

// SetUpdateCallback sets the callback function for job updates
func (s *Service) SetUpdateCallback(callback func(model.ShrinkJob)) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()
	s.onUpdate = callback
}

// Shrink re-encodes inputPath and blocks until ffmpeg exits
func (s *Service) Shrink(ctx context.Context, inputPath string) (model.ShrinkJob, error) {
	job, ctx, err := s.register(ctx, inputPath)
	if err != nil {
		return model.ShrinkJob{}, err
	}
	return s.run(ctx, job)
}

// Start re-encodes inputPath in the background
func (s *Service) Start(inputPath string) (model.ShrinkJob, error) {
	job, ctx, err := s.register(context.Background(), inputPath)
	if err != nil {
		return model.ShrinkJob{}, err
	}
	snapshot := s.snapshot(job)
	go s.run(ctx, job)
	return snapshot, nil
}

// Stop cancels a running shrink job
func (s *Service) Stop(jobID string) error {
	s.jobsMutex.Lock()
	job, exists := s.jobs[jobID]
	if !exists {
		s.jobsMutex.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status.IsFinished() {
		s.jobsMutex.Unlock()
		return fmt.Errorf("shrink job is not active: %s", job.Status)
	}
	job.Status = model.JobStatusStopping
	cancel := s.cancels[jobID]
	s.jobsMutex.Unlock()

	s.notifyUpdate(job)
	if cancel != nil {
		cancel()
	}
	return nil
}

// Get returns a copy of a shrink job by ID
func (s *Service) Get(jobID string) (model.ShrinkJob, bool) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()
	job, exists := s.jobs[jobID]
	if !exists {
		return model.ShrinkJob{}, false
	}
	return *job, true
}

// register validates inputPath and records a pending job for it
func (s *Service) register(ctx context.Context, inputPath string) (*model.ShrinkJob, context.Context, error) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	for _, job := range s.jobs {
		if job.InputPath == inputPath && !job.Status.IsFinished() {
			return nil, nil, fmt.Errorf("shrink already in progress for file: %s", inputPath)
		}
	}

	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("input file does not exist: %s", inputPath)
	}

	job := &model.ShrinkJob{
		ID:         generateJobID(),
		InputPath:  inputPath,
		OutputPath: generateOutputPath(inputPath),
		Status:     model.JobStatusPending,
		StartedAt:  time.Now(),
	}
	ctx, cancel := context.WithCancel(ctx)
	s.jobs[job.ID] = job
	s.cancels[job.ID] = cancel
	return job, ctx, nil
}

// run performs the actual re-encode
func (s *Service) run(ctx context.Context, job *model.ShrinkJob) (model.ShrinkJob, error) {
	s.setStatus(job, model.JobStatusStarting)

	duration, err := getVideoDuration(ctx, job.InputPath)
	if err != nil {
		return s.finish(ctx, job, err)
	}

	s.setStatus(job, model.JobStatusRunning)
	s.logger.Info("shrink started", "job", job.ID, "input", job.InputPath, "duration_sec", duration)

	cmd := exec.CommandContext(ctx, FFmpegCommand, BuildFFmpegArgs(job.InputPath, job.OutputPath)...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return s.finish(ctx, job, fmt.Errorf("failed to create stderr pipe: %w", err))
	}
	if err := cmd.Start(); err != nil {
		return s.finish(ctx, job, fmt.Errorf("failed to start ffmpeg: %w", err))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.monitorProgress(stderr, job, duration)
	}()
	<-done

	return s.finish(ctx, job, cmd.Wait())
}

// finish sets the final status of job and cleans up partial output
func (s *Service) finish(ctx context.Context, job *model.ShrinkJob, err error) (model.ShrinkJob, error) {
	s.jobsMutex.Lock()
	switch {
	case ctx.Err() != nil:
		job.Status = model.JobStatusStopped
		err = ctx.Err()
		os.Remove(job.OutputPath)
	case err != nil:
		job.Status = model.JobStatusError
		job.LastError = err.Error()
		os.Remove(job.OutputPath)
	default:
		job.Status = model.JobStatusCompleted
		job.Percent = 100
	}
	job.FinishedAt = time.Now()
	if cancel := s.cancels[job.ID]; cancel != nil {
		cancel()
		delete(s.cancels, job.ID)
	}
	snapshot := *job
	s.jobsMutex.Unlock()

	if err != nil {
		s.logger.Warn("shrink finished", "job", job.ID, "status", snapshot.Status, "error", err)
	} else {
		s.logger.Info("shrink finished", "job", job.ID, "output", snapshot.OutputPath)
	}
	s.notifyUpdate(job)

	if err != nil {
		return snapshot, fmt.Errorf("shrink %s: %w", filepath.Base(job.InputPath), err)
	}
	return snapshot, nil
}

// BuildFFmpegArgs builds the ffmpeg command arguments
func BuildFFmpegArgs(inputPath, outputPath string) []string {
	return []string{
		"-y",            // Overwrite output file
		"-i", inputPath, // Input file
		"-vf", fmt.Sprintf("scale=-2:'min(%d,ih)'", MaxHeight), // Cap height, keep aspect
		"-c:v", VideoCodec, // Video codec
		"-preset", VideoPreset, // Encoding preset
		"-crf", VideoCRF, // Constant rate factor
		"-an",                      // Drop audio
		"-movflags", FastStartFlag, // MP4 optimization
		"-progress", ProgressPipeTarget, // Progress to stderr
		"-nostats", // No stats output
		outputPath, // Output file
	}
}

// getVideoDuration gets the duration of a video file using ffprobe
func getVideoDuration(ctx context.Context, filePath string) (float64, error) {
	cmd := exec.CommandContext(ctx, FFprobeCommand, "-v", FFprobeLogLevel, "-show_entries", FFprobeShowEntries, "-of", FFprobeOutputFormat, filePath)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}

// ParseProgressLine returns the percent encoded in an ffmpeg progress line
func ParseProgressLine(line string, totalDuration float64) (int, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ProgressTimePrefix) || totalDuration <= 0 {
		return 0, false
	}

	timeMicroseconds, err := strconv.ParseInt(strings.TrimPrefix(line, ProgressTimePrefix), 10, 64)
	if err != nil || timeMicroseconds < 0 {
		return 0, false
	}

	progress := float64(timeMicroseconds) / 1000000.0 / totalDuration
	if progress > 1.0 {
		progress = 1.0
	}
	return int(progress * 100), true
}

// monitorProgress monitors ffmpeg progress output
func (s *Service) monitorProgress(stderr io.Reader, job *model.ShrinkJob, totalDuration float64) {
	scanner := bufio.NewScanner(stderr)

	for scanner.Scan() {
		percent, ok := ParseProgressLine(scanner.Text(), totalDuration)
		if !ok {
			continue
		}

		s.jobsMutex.Lock()
		changed := percent != job.Percent
		job.Percent = percent
		s.jobsMutex.Unlock()

		if changed {
			s.notifyUpdate(job)
		}
	}
}

func (s *Service) setStatus(job *model.ShrinkJob, status model.JobStatus) {
	s.jobsMutex.Lock()
	if job.Status == model.JobStatusStopping {
		s.jobsMutex.Unlock()
		return
	}
	job.Status = status
	s.jobsMutex.Unlock()
	s.notifyUpdate(job)
}

// notifyUpdate calls the update callback with a copy of job
func (s *Service) notifyUpdate(job *model.ShrinkJob) {
	s.jobsMutex.RLock()
	callback := s.onUpdate
	snapshot := *job
	s.jobsMutex.RUnlock()

	if callback != nil {
		callback(snapshot)
	}
}

func (s *Service) snapshot(job *model.ShrinkJob) model.ShrinkJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()
	return *job
}

// generateOutputPath generates the output path for the shrunk file
func generateOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	baseName := strings.TrimSuffix(inputPath, ext)
	return baseName + ShrunkSuffix + OutputExtensionMP4
}

// generateJobID generates a time-ordered job ID
func generateJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(JobIDPrefix+"%d", time.Now().UnixNano())
	}
	return JobIDPrefix + id.String()
}
