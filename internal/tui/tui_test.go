package tui

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ytget/repcount/internal/model"
)

func processing() model.Display {
	d := model.NewDisplay()
	d.State = model.SessionProcessing
	return d
}

func TestLogView_Session(t *testing.T) {
	var out bytes.Buffer
	v := NewLogView(&out)

	d := processing()
	v.Render(d, model.RegionControls|model.RegionLive)

	for _, p := range []float64{1, 5, 12, 15, 30} {
		d.Progress = p
		d.Counts = model.Counts{Correct: 1}
		v.Render(d, model.RegionProgress|model.RegionCounts)
	}

	select {
	case <-v.Done():
		t.Fatal("Done closed while processing")
	default:
	}

	d.State = model.SessionStopped
	d.Final = &model.Counts{Correct: 8, Incorrect: 2, Total: 10, Accuracy: 80}
	v.Render(d, model.RegionControls|model.RegionFinal)

	select {
	case <-v.Done():
	default:
		t.Fatal("Done not closed after stop")
	}
	if v.Final() == nil || v.Final().Total != 10 {
		t.Errorf("Final() = %+v, want total 10", v.Final())
	}

	if lines := strings.Count(out.String(), "  correct 0  "); lines != 1 {
		t.Errorf("Expected 1 progress line at 0%%, got %d:\n%s", lines, out.String())
	}
	if lines := strings.Count(out.String(), "  correct 1  "); lines != 2 {
		t.Errorf("Expected 2 progress lines (12%%, 30%%), got %d:\n%s", lines, out.String())
	}
	if !strings.Contains(out.String(), "feedback: "+model.StartingFeedback) {
		t.Errorf("Expected starting feedback in output:\n%s", out.String())
	}
}

func TestLogView_StopBeforeStartIsIgnored(t *testing.T) {
	v := NewLogView(&bytes.Buffer{})
	d := model.NewDisplay()
	d.State = model.SessionStopped
	v.Render(d, model.RegionControls)

	select {
	case <-v.Done():
		t.Fatal("Done closed without a started session")
	default:
	}
}

func TestLogView_Alerts(t *testing.T) {
	var out bytes.Buffer
	v := NewLogView(&out)
	v.Alert("Error: Could not open video")
	v.Notify("Video uploaded successfully")

	if got := v.Alerts(); len(got) != 1 || got[0] != "Error: Could not open video" {
		t.Errorf("Alerts() = %v", got)
	}
	if !strings.Contains(out.String(), "ERROR: Error: Could not open video") {
		t.Errorf("Unexpected output:\n%s", out.String())
	}
}

func TestPrintResults(t *testing.T) {
	var out bytes.Buffer
	PrintResults(&out, model.NewCounts(8, 2))

	want := []string{
		ResultsHeader,
		"Total sit-ups: 10",
		"Correct sit-ups: 8",
		"Incorrect sit-ups: 2",
		"Accuracy: 80.00%",
	}
	for _, line := range want {
		if !strings.Contains(out.String(), line) {
			t.Errorf("Output missing %q:\n%s", line, out.String())
		}
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewReport("situps.mp4", "sess-1", model.NewCounts(3, 1), at)

	if err := WriteReport(path, r); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var got Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Total != 4 || got.Accuracy != 75 || got.Video != "situps.mp4" || !got.CompletedAt.Equal(at) {
		t.Errorf("Unexpected report: %+v", got)
	}
}

func TestModel_QuitsWhenSessionStops(t *testing.T) {
	m := NewModel("situps.mp4", false, nil)

	next, cmd := m.Update(displayMsg{display: processing(), changed: model.RegionControls})
	if cmd != nil {
		t.Fatal("Expected no command while processing")
	}
	m = next.(Model)

	d := processing()
	d.Counts = model.Counts{Correct: 3, Incorrect: 1, Total: 4, Accuracy: 75}
	next, _ = m.Update(displayMsg{display: d, changed: model.RegionCounts})
	m = next.(Model)
	view := m.View()
	if !strings.Contains(view, "75%") {
		t.Errorf("View() missing accuracy:\n%s", view)
	}

	d.State = model.SessionStopped
	next, cmd = m.Update(displayMsg{display: d, changed: model.RegionControls})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("Expected quit command after stop")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestModel_QuitKeyStopsSession(t *testing.T) {
	stopped := false
	m := NewModel("situps.mp4", true, func() { stopped = true })
	next, _ := m.Update(displayMsg{display: processing(), changed: model.RegionControls})
	m = next.(Model)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("Expected a stop command")
	}
	msg := cmd()
	if !stopped {
		t.Error("Expected stop to be called")
	}

	_, cmd = m.Update(msg)
	if cmd == nil {
		t.Fatal("Expected quit command after stop")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestModel_QuitKeyWhenIdle(t *testing.T) {
	stopped := false
	m := NewModel("situps.mp4", false, func() { stopped = true })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
	if stopped {
		t.Error("Expected stop not to be called when idle")
	}
}

func TestModel_AlertShown(t *testing.T) {
	m := NewModel("situps.mp4", true, nil)
	next, _ := m.Update(alertMsg{text: "Error: No video uploaded"})
	m = next.(Model)

	view := m.View()
	if !strings.Contains(view, "Error: No video uploaded") {
		t.Errorf("View() missing alert:\n%s", view)
	}
	if !strings.Contains(view, model.NoKeypointsMissing) {
		t.Errorf("View() missing debug panel:\n%s", view)
	}
}
