package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ytget/repcount/internal/model"
)

var (
	accentPrimary   = lipgloss.Color("#50E3C2")
	accentSecondary = lipgloss.Color("#F6AE2D")
	mutedText       = lipgloss.Color("#8CA1AE")
	warningText     = lipgloss.Color("#FF6B6B")
	correctText     = lipgloss.Color("#2ECC71")
	panelBorder     = lipgloss.Color("#2D6A80")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentPrimary)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	correctStyle = lipgloss.NewStyle().
			Foreground(correctText).
			Bold(true)

	incorrectStyle = lipgloss.NewStyle().
			Foreground(warningText).
			Bold(true)

	feedbackStyle = lipgloss.NewStyle().
			Foreground(accentSecondary)

	errorStyle = lipgloss.NewStyle().
			Foreground(warningText).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedText)
)

const progressWidth = 40

type displayMsg struct {
	display model.Display
	changed model.Region
}

type alertMsg struct {
	text string
}

type noticeMsg struct {
	text string
}

type userStoppedMsg struct{}

// Model is the bubbletea model of one analysis session
type Model struct {
	title    string
	stop     func()
	spinner  spinner.Model
	progress progress.Model

	display model.Display
	started bool
	notice  string
	alert   string
	showDbg bool

	quitting bool
}

// NewModel returns a model for the named video. stop is called when the
// user quits while the session is running.
func NewModel(title string, showDebug bool, stop func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accentPrimary)

	return Model{
		title:    title,
		stop:     stop,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressWidth)),
		display:  model.NewDisplay(),
		showDbg:  showDebug,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			if m.display.State == model.SessionProcessing && m.stop != nil {
				stop := m.stop
				return m, func() tea.Msg {
					stop()
					return userStoppedMsg{}
				}
			}
			return m, tea.Quit
		case "d":
			m.showDbg = !m.showDbg
		}
		return m, nil

	case displayMsg:
		m.display = msg.display
		if m.display.State == model.SessionProcessing {
			m.started = true
		}
		if m.started && msg.changed.Has(model.RegionControls) && m.display.State == model.SessionStopped {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case userStoppedMsg:
		return m, tea.Quit

	case alertMsg:
		m.alert = msg.text
		return m, nil

	case noticeMsg:
		m.notice = msg.text
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	d := m.display
	var b strings.Builder

	b.WriteString(headerStyle.Render("RepCount") + " " + labelStyle.Render(m.title) + "\n\n")

	if d.State == model.SessionProcessing {
		b.WriteString(m.spinner.View() + " " + labelStyle.Render("Analysing") + "\n")
	} else {
		b.WriteString(labelStyle.Render(d.State.String()) + "\n")
	}
	b.WriteString(m.progress.ViewAs(d.ProgressFraction()) + " " + d.ProgressText() + "\n\n")

	stats := fmt.Sprintf("%s %s   %s %s   %s %d   %s %s   %s %s",
		labelStyle.Render("Correct"), correctStyle.Render(fmt.Sprint(d.Counts.Correct)),
		labelStyle.Render("Incorrect"), incorrectStyle.Render(fmt.Sprint(d.Counts.Incorrect)),
		labelStyle.Render("Total"), d.Counts.Total,
		labelStyle.Render("Accuracy"), d.AccuracyText(),
		labelStyle.Render("Angle"), d.AngleText(),
	)
	b.WriteString(panelStyle.Render(stats) + "\n")
	b.WriteString(feedbackStyle.Render(d.Feedback) + "\n")

	if m.showDbg {
		b.WriteString("\n" + labelStyle.Render("Debug: ") + d.Debug + "\n")
		b.WriteString(labelStyle.Render("State: ") + d.DebugStateText() +
			labelStyle.Render("  Missing keypoints: ") + d.MissingKeypointsText() + "\n")
	}

	if m.notice != "" {
		b.WriteString("\n" + labelStyle.Render(m.notice) + "\n")
	}
	if m.alert != "" {
		b.WriteString("\n" + errorStyle.Render(m.alert) + "\n")
	}

	if !m.quitting {
		b.WriteString("\n" + helpStyle.Render("q quit • d toggle debug") + "\n")
	}
	return b.String()
}

// Display returns the last rendered display
func (m Model) Display() model.Display {
	return m.display
}

// ProgramView forwards controller output to a running program
type ProgramView struct {
	send func(tea.Msg)
}

// NewProgramView returns a view sending to p
func NewProgramView(p *tea.Program) *ProgramView {
	return &ProgramView{send: p.Send}
}

// Render implements controller.View
func (v *ProgramView) Render(d model.Display, changed model.Region) {
	v.send(displayMsg{display: d, changed: changed})
}

// Alert implements controller.View
func (v *ProgramView) Alert(message string) {
	v.send(alertMsg{text: message})
}

// Notify implements controller.View
func (v *ProgramView) Notify(message string) {
	v.send(noticeMsg{text: message})
}
