package devserver

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ytget/repcount/internal/model"
)

// Scripted feedback lines
const (
	FeedbackStarting  = "Starting..."
	FeedbackGoingDown = "Good! Now go back down."
	FeedbackCorrect   = "Correct sit-up!"
	FeedbackIncorrect = "Try to maintain proper form."
	FeedbackNoPose    = "Missing keypoints: [11, 23, 25]"

	StateUp   = "UP"
	StateDown = "DOWN"

	DebugPose   = "Keypoints: 33"
	DebugNoPose = "No pose detected"
)

// Angles the scripted torso sweeps between, in degrees
const (
	lowAngle  = 35.0
	highAngle = 110.0
)

var missingKeypoints = model.Labels{"11", "23", "25"}

// script replays a fixed sequence of reps. Every third rep is scored as
// incorrect and the first frames of each session have no pose.
type script struct {
	frames    int
	repFrames int
	width     int
	height    int

	counts   model.Counts
	feedback string
}

func newScript(cfg Config) *script {
	return &script{
		frames:    cfg.Frames,
		repFrames: cfg.RepFrames,
		width:     cfg.FrameWidth,
		height:    cfg.FrameHeight,
		feedback:  FeedbackStarting,
	}
}

// step builds the message for frame i
func (s *script) step(i int) (*model.PushMessage, error) {
	frame, err := s.frame(i)
	if err != nil {
		return nil, err
	}

	progress := math.Round(float64(i)/float64(s.frames)*1000) / 10
	counts := model.NewCounts(s.counts.Correct, s.counts.Incorrect)
	msg := &model.PushMessage{
		Frame:    &frame,
		Counts:   &counts,
		Progress: &progress,
	}

	if i < s.repFrames/4 {
		debug := DebugNoPose
		s.feedback = FeedbackNoPose
		feedback := s.feedback
		msg.Feedback = &feedback
		msg.Debug = &debug
		msg.DebugData = &model.DebugData{
			State:            StateDown,
			MissingKeypoints: missingKeypoints,
			RepInProgress:    boolPtr(false),
			LastFeedback:     s.feedback,
		}
		return msg, nil
	}

	phase := i % s.repFrames
	half := s.repFrames / 2
	state := StateDown
	if phase > 0 && phase <= half {
		state = StateUp
	}

	switch {
	case phase == 1:
		s.feedback = FeedbackGoingDown
	case phase == half+1:
		rep := s.counts.Correct + s.counts.Incorrect + 1
		if rep%3 == 0 {
			s.counts.Incorrect++
			s.feedback = FeedbackIncorrect
		} else {
			s.counts.Correct++
			s.feedback = FeedbackCorrect
		}
		counts = model.NewCounts(s.counts.Correct, s.counts.Incorrect)
	}

	angle := scriptedAngle(phase, s.repFrames)
	feedback := s.feedback
	debug := DebugPose
	msg.Angle = &angle
	msg.Feedback = &feedback
	msg.Debug = &debug
	msg.DebugData = &model.DebugData{
		State:            state,
		MissingKeypoints: model.Labels{},
		RepInProgress:    boolPtr(state == StateUp),
		LastFeedback:     s.feedback,
	}
	return msg, nil
}

// final returns the completion message
func (s *script) final() *model.PushMessage {
	final := model.NewCounts(s.counts.Correct, s.counts.Incorrect)
	return &model.PushMessage{Completed: true, FinalResults: &final}
}

// scriptedAngle is a triangle wave between lowAngle and highAngle
func scriptedAngle(phase, period int) float64 {
	t := float64(phase) / float64(period)
	if t > 0.5 {
		t = 1 - t
	}
	angle := highAngle - (highAngle-lowAngle)*2*t
	return math.Round(angle*10) / 10
}

// frame renders a synthetic JPEG frame and returns it hex-encoded
func (s *script) frame(i int) (string, error) {
	shade := uint8(40 + (i*5)%160)
	img := imaging.New(s.width, s.height, color.NRGBA{R: shade / 2, G: shade / 3, B: shade, A: 255})

	barWidth := s.width * (i + 1) / s.frames
	if barWidth > 0 {
		bar := imaging.New(barWidth, s.height/16+1, color.NRGBA{R: 46, G: 204, B: 113, A: 255})
		img = imaging.Paste(img, bar, image.Pt(0, s.height-bar.Bounds().Dy()))
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(70)); err != nil {
		return "", fmt.Errorf("encode frame %d: %w", i, err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

func boolPtr(b bool) *bool { return &b }
