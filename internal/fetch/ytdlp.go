package fetch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// VideoFormat prefers a single mp4 file so no merge step is needed
const VideoFormat = "best[ext=mp4]/best"

const progressInterval = 500 * time.Millisecond

// YtdlpRunner downloads with the yt-dlp binary
type YtdlpRunner struct{}

// Run downloads url into dir
func (YtdlpRunner) Run(ctx context.Context, url, dir string, progress func(Progress)) (Result, error) {
	dl := ytdlp.New().
		NoPlaylist().
		Format(VideoFormat).
		ForceOverwrites().
		RestrictFilenames().
		Output(filepath.Join(dir, "%(title)s.%(ext)s"))

	dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		p := Progress{
			DownloadedBytes: update.DownloadedBytes,
			TotalBytes:      update.TotalBytes,
			Started:         update.Started,
			ETA:             update.ETA(),
		}
		if update.Info != nil && update.Info.Title != nil {
			p.Title = *update.Info.Title
		}
		progress(p)
	})

	res, err := dl.Run(ctx, url)
	if err != nil {
		return Result{}, fmt.Errorf("yt-dlp: %w", err)
	}

	var out Result
	info, err := res.GetExtractedInfo()
	if err == nil && len(info) > 0 {
		if info[0].Filename != nil {
			out.OutputPath = *info[0].Filename
		}
		if info[0].Title != nil {
			out.Title = *info[0].Title
		}
	}
	if out.OutputPath == "" {
		return out, fmt.Errorf("yt-dlp did not report an output file")
	}
	return out, nil
}
