package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/repcount/internal/model"
)

var (
	// ErrInvalidURL is returned for anything but an absolute http(s) URL
	ErrInvalidURL = errors.New("invalid video URL")
	// ErrJobNotFound is returned for unknown job ids
	ErrJobNotFound = errors.New("import job not found")
)

// Service handles import operations
type Service struct {
	runner      Runner
	logger      *slog.Logger
	jobs        map[string]*model.FetchJob
	cancels     map[string]context.CancelFunc
	jobsMutex   sync.RWMutex
	downloadDir string
	onUpdate    func(model.FetchJob) // callback for UI updates
}

// NewService creates a new import service
func NewService(runner Runner, downloadDir string, logger *slog.Logger) *Service {
	if runner == nil {
		runner = YtdlpRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		runner:      runner,
		logger:      logger,
		jobs:        make(map[string]*model.FetchJob),
		cancels:     make(map[string]context.CancelFunc),
		downloadDir: downloadDir,
	}
}

// SetUpdateCallback sets the callback function for job updates
func (s *Service) SetUpdateCallback(callback func(model.FetchJob)) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()
	s.onUpdate = callback
}

// SetDownloadDirectory sets the directory new imports are written to
func (s *Service) SetDownloadDirectory(dir string) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()
	s.downloadDir = dir
}

// ValidateURL checks that raw is an absolute http(s) URL
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	return nil
}

// Import downloads rawURL and blocks until the job finishes
func (s *Service) Import(ctx context.Context, rawURL string) (model.FetchJob, error) {
	job, ctx, err := s.register(ctx, rawURL)
	if err != nil {
		return model.FetchJob{}, err
	}
	return s.run(ctx, job)
}

// Start downloads rawURL in the background and returns the queued job
func (s *Service) Start(rawURL string) (model.FetchJob, error) {
	job, ctx, err := s.register(context.Background(), rawURL)
	if err != nil {
		return model.FetchJob{}, err
	}
	snapshot := s.snapshot(job)
	go s.run(ctx, job)
	return snapshot, nil
}

// Get returns a copy of a job by ID
func (s *Service) Get(id string) (model.FetchJob, bool) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()
	job, exists := s.jobs[id]
	if !exists {
		return model.FetchJob{}, false
	}
	return *job, true
}

// Stop cancels a running job
func (s *Service) Stop(id string) error {
	s.jobsMutex.Lock()
	job, exists := s.jobs[id]
	if !exists {
		s.jobsMutex.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if !job.Status.IsActive() && job.Status != model.JobStatusPending {
		s.jobsMutex.Unlock()
		return fmt.Errorf("job is not active: %s", job.Status)
	}
	job.Status = model.JobStatusStopping
	cancel := s.cancels[id]
	s.jobsMutex.Unlock()

	s.notifyUpdate(job)
	if cancel != nil {
		cancel()
	}
	return nil
}

// register validates rawURL and records a pending job for it
func (s *Service) register(ctx context.Context, rawURL string) (*model.FetchJob, context.Context, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := ValidateURL(rawURL); err != nil {
		return nil, nil, err
	}

	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	for _, job := range s.jobs {
		if job.URL == rawURL && !job.Status.IsFinished() {
			return nil, nil, fmt.Errorf("import already running for URL: %s", rawURL)
		}
	}

	job := &model.FetchJob{
		ID:        generateJobID(),
		URL:       rawURL,
		Status:    model.JobStatusPending,
		ETASec:    -1,
		StartedAt: time.Now(),
	}
	ctx, cancel := context.WithCancel(ctx)
	s.jobs[job.ID] = job
	s.cancels[job.ID] = cancel
	return job, ctx, nil
}

// run executes one job and records its outcome
func (s *Service) run(ctx context.Context, job *model.FetchJob) (model.FetchJob, error) {
	s.jobsMutex.Lock()
	if job.Status == model.JobStatusStopping {
		s.jobsMutex.Unlock()
		return s.finish(job, context.Canceled)
	}
	job.Status = model.JobStatusRunning
	dir := s.downloadDir
	s.jobsMutex.Unlock()
	s.notifyUpdate(job)

	s.logger.Info("import started", "job", job.ID, "url", job.URL)

	res, err := s.runner.Run(ctx, job.URL, dir, func(p Progress) {
		s.updateJobProgress(job, p)
	})
	if err == nil {
		s.jobsMutex.Lock()
		job.OutputPath = res.OutputPath
		if res.Title != "" {
			job.Title = res.Title
		}
		s.jobsMutex.Unlock()
	} else if ctx.Err() != nil {
		err = ctx.Err()
	}
	return s.finish(job, err)
}

// finish sets the final status of job
func (s *Service) finish(job *model.FetchJob, err error) (model.FetchJob, error) {
	s.jobsMutex.Lock()
	switch {
	case err == nil:
		job.Status = model.JobStatusCompleted
		job.Percent = 100
	case errors.Is(err, context.Canceled):
		job.Status = model.JobStatusStopped
	default:
		job.Status = model.JobStatusError
		job.LastError = err.Error()
	}
	job.FinishedAt = time.Now()
	if cancel := s.cancels[job.ID]; cancel != nil {
		cancel()
		delete(s.cancels, job.ID)
	}
	snapshot := *job
	s.jobsMutex.Unlock()

	if err != nil {
		s.logger.Warn("import finished", "job", job.ID, "status", snapshot.Status, "error", err)
	} else {
		s.logger.Info("import finished", "job", job.ID, "file", snapshot.OutputPath)
	}
	s.notifyUpdate(job)

	if err != nil {
		return snapshot, fmt.Errorf("import %s: %w", snapshot.URL, err)
	}
	return snapshot, nil
}

// updateJobProgress updates job progress from a runner report
func (s *Service) updateJobProgress(job *model.FetchJob, p Progress) {
	s.jobsMutex.Lock()
	if p.TotalBytes > 0 {
		percent := p.DownloadedBytes * 100 / p.TotalBytes
		if percent > 100 {
			percent = 100
		}
		job.Percent = percent
	}

	if !p.Started.IsZero() {
		elapsed := time.Since(p.Started)
		if elapsed.Seconds() > 0 {
			bytesPerSecond := float64(p.DownloadedBytes) / elapsed.Seconds()
			job.Speed = fmt.Sprintf("%.1fMB/s", bytesPerSecond/1024/1024)
		}
	}

	if p.ETA > 0 {
		job.ETASec = int(p.ETA.Seconds())
	}

	if p.Title != "" && job.Title == "" {
		job.Title = p.Title
	}
	s.jobsMutex.Unlock()

	s.notifyUpdate(job)
}

// notifyUpdate calls the update callback with a copy of job
func (s *Service) notifyUpdate(job *model.FetchJob) {
	s.jobsMutex.RLock()
	callback := s.onUpdate
	snapshot := *job
	s.jobsMutex.RUnlock()

	if callback != nil {
		callback(snapshot)
	}
}

// snapshot returns a copy of job under the lock
func (s *Service) snapshot(job *model.FetchJob) model.FetchJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()
	return *job
}

// generateJobID generates a unique job ID
func generateJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return "import-" + id.String()
}
