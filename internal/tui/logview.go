package tui

import (
	"fmt"
	"io"
	"sync"

	"github.com/ytget/repcount/internal/model"
)

// progressStep is how far progress must move before another line is logged
const progressStep = 10.0

// LogView prints session updates as plain lines. It implements
// controller.View and is safe for use from the stream goroutine.
type LogView struct {
	mu           sync.Mutex
	w            io.Writer
	lastProgress float64
	lastFeedback string
	started      bool
	final        *model.Counts
	alerts       []string
	done         chan struct{}
	closed       bool
}

// NewLogView returns a view writing to w
func NewLogView(w io.Writer) *LogView {
	return &LogView{
		w:            w,
		lastProgress: -progressStep,
		done:         make(chan struct{}),
	}
}

// Render implements controller.View
func (v *LogView) Render(d model.Display, changed model.Region) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if changed.Has(model.RegionFinal) && d.Final != nil {
		final := *d.Final
		v.final = &final
	}

	if changed.Has(model.RegionControls) {
		switch d.State {
		case model.SessionProcessing:
			v.started = true
			v.lastProgress = -progressStep
			v.lastFeedback = ""
			fmt.Fprintln(v.w, "Processing started")
		case model.SessionStopped:
			if v.started {
				v.finish()
			}
		}
	}

	if changed.Has(model.RegionFeedback) && d.Feedback != v.lastFeedback {
		v.lastFeedback = d.Feedback
		fmt.Fprintf(v.w, "  feedback: %s\n", d.Feedback)
	}

	if changed.Has(model.RegionProgress) && d.Progress-v.lastProgress >= progressStep {
		v.lastProgress = d.Progress
		fmt.Fprintf(v.w, "  %6s  correct %d  incorrect %d  angle %s\n",
			d.ProgressText(), d.Counts.Correct, d.Counts.Incorrect, d.AngleText())
	}
}

// Alert implements controller.View
func (v *LogView) Alert(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append(v.alerts, message)
	fmt.Fprintf(v.w, "ERROR: %s\n", message)
}

// Notify implements controller.View
func (v *LogView) Notify(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.w, message)
}

// Done is closed when a started session stops for any reason
func (v *LogView) Done() <-chan struct{} {
	return v.done
}

// Final returns the final results, or nil if the session did not complete
func (v *LogView) Final() *model.Counts {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.final
}

// Alerts returns every alert shown so far
func (v *LogView) Alerts() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.alerts...)
}

func (v *LogView) finish() {
	if !v.closed {
		v.closed = true
		close(v.done)
	}
}
