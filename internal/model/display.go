package model

import (
	"image"
	"math"
	"strconv"
	"strings"
)

// Text shown in the live panel before the first analysis message arrives
const (
	StartingFeedback   = "Starting analysis..."
	NoKeypointsMissing = "None"
	UnknownDebugState  = "-"
	AngleSuffix        = "°"
	PercentSuffix      = "%"
	KeypointSeparator  = ", "
	ProgressMinPercent = 0
	ProgressMaxPercent = 100
)

// Region names one area of the client UI. Views receive a Region mask with
// each render and refresh only those areas.
type Region uint16

const (
	RegionControls Region = 1 << iota
	RegionFrame
	RegionCounts
	RegionAngle
	RegionFeedback
	RegionDebug
	RegionDebugData
	RegionProgress
	RegionFinal
)

// RegionLive covers every live counter and label reset on session start
const RegionLive = RegionCounts | RegionAngle | RegionFeedback | RegionDebug | RegionDebugData | RegionProgress

// Has reports whether r includes all regions in other
func (r Region) Has(other Region) bool {
	return r&other == other && other != 0
}

// Display is the client's view-model: the value of every UI region
type Display struct {
	State     SessionState
	Frame     image.Image
	Counts    Counts
	Angle     float64
	Feedback  string
	Debug     string
	DebugData DebugData
	Progress  float64
	// Final is nil while the final-results view is hidden
	Final *Counts
}

// NewDisplay returns the display of a fresh client
func NewDisplay() Display {
	d := Display{State: SessionIdle}
	d.ResetLive()
	return d
}

// ResetLive puts every live counter and label back to its zero state
func (d *Display) ResetLive() {
	d.Counts = Counts{}
	d.Angle = 0
	d.Feedback = StartingFeedback
	d.Debug = ""
	d.DebugData = DebugData{}
	d.Progress = 0
}

// FrameSize returns the natural size of the current frame
func (d Display) FrameSize() (int, int) {
	if d.Frame == nil {
		return 0, 0
	}
	b := d.Frame.Bounds()
	return b.Dx(), b.Dy()
}

// AngleText formats the torso angle, e.g. "87.3°"
func (d Display) AngleText() string {
	return FormatNumber(d.Angle) + AngleSuffix
}

// AccuracyText formats the live accuracy, e.g. "75%"
func (d Display) AccuracyText() string {
	return FormatPercent(d.Counts.Accuracy)
}

// ProgressText formats the progress label, e.g. "42.5%"
func (d Display) ProgressText() string {
	return FormatPercent(d.Progress)
}

// ProgressFraction returns progress in the 0..1 range used by progress bars
func (d Display) ProgressFraction() float64 {
	return d.Progress / ProgressMaxPercent
}

// DebugStateText returns the analyzer state or a placeholder
func (d Display) DebugStateText() string {
	if d.DebugData.State == "" {
		return UnknownDebugState
	}
	return d.DebugData.State
}

// MissingKeypointsText joins missing keypoint labels or returns "None"
func (d Display) MissingKeypointsText() string {
	if len(d.DebugData.MissingKeypoints) == 0 {
		return NoKeypointsMissing
	}
	return strings.Join(d.DebugData.MissingKeypoints, KeypointSeparator)
}

// ClampProgress keeps a progress value inside 0..100
func ClampProgress(p float64) float64 {
	if math.IsNaN(p) || p < ProgressMinPercent {
		return ProgressMinPercent
	}
	if p > ProgressMaxPercent {
		return ProgressMaxPercent
	}
	return p
}

// FormatNumber renders v with at most one decimal and no trailing zero
func FormatNumber(v float64) string {
	rounded := math.Round(v*10) / 10
	if rounded == 0 {
		rounded = 0 // drop negative zero
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

// FormatPercent renders v as a percentage label
func FormatPercent(v float64) string {
	return FormatNumber(v) + PercentSuffix
}
