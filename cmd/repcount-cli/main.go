package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lmittmann/tint"

	"github.com/ytget/repcount/internal/api"
	"github.com/ytget/repcount/internal/compress"
	"github.com/ytget/repcount/internal/config"
	"github.com/ytget/repcount/internal/controller"
	"github.com/ytget/repcount/internal/fetch"
	"github.com/ytget/repcount/internal/model"
	"github.com/ytget/repcount/internal/platform"
	"github.com/ytget/repcount/internal/tui"
)

var version = "dev"

type cliFlags struct {
	server      string
	video       string
	url         string
	importDir   string
	report      string
	plain       bool
	shrink      bool
	debug       bool
	verbose     bool
	maxUploadMB int
	timeout     time.Duration
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func parseFlags() cliFlags {
	defaults := config.DefaultOptions()

	var f cliFlags
	flag.StringVar(&f.server, "server", defaults.ServerURL, "analysis server URL")
	flag.StringVar(&f.video, "video", "", "local video to analyse")
	flag.StringVar(&f.url, "url", "", "import the video from this URL first (yt-dlp)")
	flag.StringVar(&f.importDir, "import-dir", defaults.ImportDir, "where imported videos are stored")
	flag.StringVar(&f.report, "report", "", "write the final results as JSON to this file")
	flag.BoolVar(&f.shrink, "shrink", false, "re-encode a video over the upload limit with ffmpeg first")
	flag.BoolVar(&f.plain, "plain", false, "print plain log lines instead of the interactive view")
	flag.BoolVar(&f.debug, "debug", false, "show the debug panel")
	flag.BoolVar(&f.verbose, "v", false, "verbose logging")
	flag.IntVar(&f.maxUploadMB, "max-upload", config.DefaultMaxUploadMB, "upload size limit in MB")
	flag.DurationVar(&f.timeout, "timeout", config.DefaultRequestTimeout, "timeout for one-shot requests")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "repcount %s\n\nUsage: repcount-cli -video situps.mp4 [flags]\n\n", version)
		flag.PrintDefaults()
	}
	flag.Parse()
	return f
}

func newLogger(f cliFlags) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case f.verbose:
		level = slog.LevelDebug
	case !f.plain:
		// keep the interactive view readable
		level = slog.LevelError
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
}

func run() error {
	f := parseFlags()
	logger := newLogger(f)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	video := f.video
	if f.url != "" {
		path, err := importVideo(ctx, f, logger)
		if err != nil {
			return err
		}
		video = path
	}
	if video == "" {
		flag.Usage()
		return errors.New("either -video or -url is required")
	}

	opts := config.Options{
		ServerURL:      f.server,
		MaxUploadBytes: int64(f.maxUploadMB) * platform.BytesPerMB,
		RequestTimeout: f.timeout,
		ShowDebug:      f.debug,
		ImportDir:      f.importDir,
	}
	if f.shrink {
		path, err := shrinkIfTooLarge(ctx, video, opts.MaxUploadBytes, logger)
		if err != nil {
			return err
		}
		video = path
	}

	backend := controller.FromClient(api.NewClient(opts, logger.With("component", "api")))

	var (
		final     *model.Counts
		sessionID string
		err       error
	)
	if f.plain {
		final, sessionID, err = runPlain(ctx, backend, opts, video, logger)
	} else {
		final, sessionID, err = runInteractive(ctx, backend, opts, video, logger)
	}
	if err != nil {
		return err
	}
	if final == nil {
		return errors.New("processing stopped before the analysis completed")
	}

	tui.PrintResults(os.Stdout, *final)

	if f.report != "" {
		report := tui.NewReport(filepath.Base(video), sessionID, *final, time.Now())
		if err := tui.WriteReport(f.report, report); err != nil {
			return err
		}
		logger.Info("report written", "path", f.report)
	}
	return nil
}

// importVideo downloads f.url and returns the local path
func importVideo(ctx context.Context, f cliFlags, logger *slog.Logger) (string, error) {
	if err := platform.CreateDirectoryIfNotExists(f.importDir); err != nil {
		return "", fmt.Errorf("create import directory: %w", err)
	}

	svc := fetch.NewService(fetch.YtdlpRunner{}, f.importDir, logger.With("component", "fetch"))
	last := -1
	svc.SetUpdateCallback(func(job model.FetchJob) {
		if job.Status == model.JobStatusRunning && job.Percent != last {
			last = job.Percent
			fmt.Fprintf(os.Stderr, "\rimporting %3d%%  eta %s ", job.Percent, job.GetETAString())
		}
	})

	job, err := svc.Import(ctx, f.url)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("import %s: %w", f.url, err)
	}
	fmt.Fprintf(os.Stderr, "imported %s\n", job.GetDisplayTitle())
	return job.OutputPath, nil
}

// shrinkIfTooLarge re-encodes video when it exceeds maxBytes and returns
// the path to upload
func shrinkIfTooLarge(ctx context.Context, video string, maxBytes int64, logger *slog.Logger) (string, error) {
	size, err := platform.FileSize(video)
	if err != nil || maxBytes <= 0 || size <= maxBytes {
		// upload reports a missing file
		return video, nil
	}
	if !compress.Available() {
		return "", fmt.Errorf("%s is over the upload limit and ffmpeg/ffprobe are not installed", filepath.Base(video))
	}

	svc := compress.NewService(logger.With("component", "compress"))
	last := -1
	svc.SetUpdateCallback(func(job model.ShrinkJob) {
		if job.Status == model.JobStatusRunning && job.Percent != last {
			last = job.Percent
			fmt.Fprintf(os.Stderr, "\rshrinking %3d%% ", job.Percent)
		}
	})

	job, err := svc.Shrink(ctx, video)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("shrink %s: %w", filepath.Base(video), err)
	}
	fmt.Fprintf(os.Stderr, "shrunk to %s\n", job.OutputPath)
	return job.OutputPath, nil
}

// runPlain drives a session with log lines on stdout
func runPlain(ctx context.Context, backend controller.Backend, opts config.Options, video string, logger *slog.Logger) (*model.Counts, string, error) {
	view := tui.NewLogView(os.Stdout)
	ctrl := controller.New(backend, view, opts, logger.With("component", "controller"))
	defer ctrl.Close()

	if err := ctrl.Upload(ctx, video); err != nil {
		return nil, "", err
	}
	if err := ctrl.StartProcessing(); err != nil {
		return nil, "", err
	}
	sessionID := ctrl.SessionID()

	select {
	case <-view.Done():
	case <-ctx.Done():
		ctrl.StopProcessing()
	}
	return view.Final(), sessionID, nil
}

// controllerRef hands the controller to the quit key, which runs on a
// program goroutine and may fire before the controller exists
type controllerRef struct {
	ptr atomic.Pointer[controller.Controller]
}

func (r *controllerRef) set(c *controller.Controller) {
	r.ptr.Store(c)
}

func (r *controllerRef) stop() {
	if c := r.ptr.Load(); c != nil {
		c.StopProcessing()
	}
}

// runInteractive drives a session inside the bubbletea view
func runInteractive(ctx context.Context, backend controller.Backend, opts config.Options, video string, logger *slog.Logger) (*model.Counts, string, error) {
	var current controllerRef
	m := tui.NewModel(filepath.Base(video), opts.ShowDebug, current.stop)

	p := tea.NewProgram(m, tea.WithContext(ctx))
	done := make(chan error, 1)
	go func() {
		_, err := p.Run()
		done <- err
	}()

	// The program is running, so sends from the controller are consumed
	ctrl := controller.New(backend, tui.NewProgramView(p), opts, logger.With("component", "controller"))
	current.set(ctrl)
	defer ctrl.Close()

	if err := ctrl.Upload(ctx, video); err != nil {
		p.Quit()
		<-done
		return nil, "", err
	}
	if err := ctrl.StartProcessing(); err != nil {
		p.Quit()
		<-done
		return nil, "", err
	}
	sessionID := ctrl.SessionID()

	if err := <-done; err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return nil, sessionID, fmt.Errorf("terminal view: %w", err)
	}
	ctrl.StopProcessing()

	return ctrl.Display().Final, sessionID, nil
}
