package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/ytget/repcount/internal/devserver"
	"github.com/ytget/repcount/internal/platform"
)

func main() {
	cfg := devserver.DefaultConfig()

	addr := flag.String("addr", devserver.DefaultAddr, "listen address")
	flag.StringVar(&cfg.UploadDir, "uploads", cfg.UploadDir, "directory for uploaded videos")
	flag.StringVar(&cfg.ResultsDir, "results", cfg.ResultsDir, "directory for exported results")
	flag.IntVar(&cfg.Frames, "frames", cfg.Frames, "frames streamed per session")
	flag.DurationVar(&cfg.FrameInterval, "interval", cfg.FrameInterval, "delay between frames")
	flag.IntVar(&cfg.RepFrames, "rep-frames", cfg.RepFrames, "frames per scripted repetition")
	maxUploadMB := flag.Int("max-upload", int(cfg.MaxUploadBytes/platform.BytesPerMB), "upload size limit in MB")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	cfg.MaxUploadBytes = int64(*maxUploadMB) * platform.BytesPerMB

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))

	for _, dir := range []string{cfg.UploadDir, cfg.ResultsDir} {
		if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create %s: %v\n", dir, err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := devserver.New(cfg, logger)
	if err := srv.Run(ctx, *addr); err != nil {
		logger.Error("dev server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("dev server stopped")
}
