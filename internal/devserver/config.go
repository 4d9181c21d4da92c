package devserver

import (
	"time"
)

// Defaults
const (
	DefaultAddr           = "127.0.0.1:5000"
	DefaultUploadDir      = "uploads"
	DefaultResultsDir     = "results"
	DefaultFrames         = 120
	DefaultFrameInterval  = 33 * time.Millisecond
	DefaultFrameWidth     = 320
	DefaultFrameHeight    = 240
	DefaultRepFrames      = 20
	DefaultMaxUploadBytes = 100 * 1024 * 1024
)

// Config controls the dev server
type Config struct {
	UploadDir      string
	ResultsDir     string
	Frames         int
	FrameInterval  time.Duration
	FrameWidth     int
	FrameHeight    int
	RepFrames      int
	MaxUploadBytes int64
}

// DefaultConfig returns the settings used by cmd/repcount-devserver
func DefaultConfig() Config {
	return Config{
		UploadDir:      DefaultUploadDir,
		ResultsDir:     DefaultResultsDir,
		Frames:         DefaultFrames,
		FrameInterval:  DefaultFrameInterval,
		FrameWidth:     DefaultFrameWidth,
		FrameHeight:    DefaultFrameHeight,
		RepFrames:      DefaultRepFrames,
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UploadDir == "" {
		c.UploadDir = d.UploadDir
	}
	if c.ResultsDir == "" {
		c.ResultsDir = d.ResultsDir
	}
	if c.Frames <= 0 {
		c.Frames = d.Frames
	}
	if c.FrameInterval < 0 {
		c.FrameInterval = 0
	}
	if c.FrameWidth <= 0 {
		c.FrameWidth = d.FrameWidth
	}
	if c.FrameHeight <= 0 {
		c.FrameHeight = d.FrameHeight
	}
	if c.RepFrames <= 1 {
		c.RepFrames = d.RepFrames
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	return c
}
