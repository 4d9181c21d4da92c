package ui

import (
	"image/color"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/repcount/internal/model"
)

// statValue is one big counter with its caption
type statValue struct {
	caption *widget.Label
	value   *canvas.Text
}

func newStatValue(caption string, colorName fyne.ThemeColorName) *statValue {
	value := canvas.NewText("0", theme.Color(colorName))
	value.TextSize = theme.Size(theme.SizeNameHeadingText)
	value.TextStyle = fyne.TextStyle{Bold: true}
	value.Alignment = fyne.TextAlignCenter

	label := widget.NewLabel(caption)
	label.Alignment = fyne.TextAlignCenter

	return &statValue{caption: label, value: value}
}

func (s *statValue) set(text string) {
	if s.value.Text == text {
		return
	}
	s.value.Text = text
	s.value.Refresh()
}

func (s *statValue) object() fyne.CanvasObject {
	return container.NewVBox(s.value, s.caption)
}

// LivePanel shows the streamed frame and the live counters
type LivePanel struct {
	loc *Localization

	frame       *canvas.Image
	placeholder *canvas.Rectangle

	correct   *statValue
	incorrect *statValue
	total     *statValue
	accuracy  *statValue

	angleLabel    *widget.Label
	feedbackLabel *widget.Label
	progressBar   *widget.ProgressBar
	progressLabel *widget.Label

	debugLabel     *widget.Label
	debugStateLbl  *widget.Label
	missingLabel   *widget.Label
	debugContainer *fyne.Container

	content *fyne.Container
}

// NewLivePanel builds the live panel in its zero state
func NewLivePanel(loc *Localization, showDebug bool) *LivePanel {
	p := &LivePanel{loc: loc}

	p.placeholder = canvas.NewRectangle(color.NRGBA{A: 40})
	p.placeholder.SetMinSize(fyne.NewSize(FramePlaceholderWidth, FramePlaceholderHeight))
	p.frame = canvas.NewImageFromImage(nil)
	p.frame.FillMode = canvas.ImageFillOriginal
	p.frame.ScaleMode = canvas.ImageScaleFastest
	p.frame.Hide()

	p.correct = newStatValue(loc.GetText(KeyCorrect), ColorNameCorrect)
	p.incorrect = newStatValue(loc.GetText(KeyIncorrect), ColorNameIncorrect)
	p.total = newStatValue(loc.GetText(KeyTotal), theme.ColorNameForeground)
	p.accuracy = newStatValue(loc.GetText(KeyAccuracy), theme.ColorNamePrimary)

	p.angleLabel = widget.NewLabel("")
	p.feedbackLabel = widget.NewLabel("")
	p.feedbackLabel.Wrapping = fyne.TextWrapWord
	p.feedbackLabel.TextStyle = fyne.TextStyle{Italic: true}

	p.progressBar = widget.NewProgressBar()
	p.progressLabel = widget.NewLabel("")

	p.debugLabel = widget.NewLabel("")
	p.debugLabel.Wrapping = fyne.TextWrapWord
	p.debugStateLbl = widget.NewLabel("")
	p.missingLabel = widget.NewLabel("")
	p.missingLabel.Wrapping = fyne.TextWrapWord
	p.debugContainer = container.NewVBox(
		widget.NewSeparator(),
		widget.NewLabelWithStyle(loc.GetText(KeyDebug), fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		p.debugLabel,
		p.debugStateLbl,
		p.missingLabel,
	)
	p.SetDebugVisible(showDebug)

	stats := container.NewGridWithColumns(4,
		p.correct.object(), p.incorrect.object(), p.total.object(), p.accuracy.object())

	p.content = container.NewVBox(
		container.NewCenter(container.NewStack(p.placeholder, p.frame)),
		stats,
		p.angleLabel,
		p.feedbackLabel,
		container.NewBorder(nil, nil, nil, p.progressLabel, p.progressBar),
		p.debugContainer,
	)

	d := model.NewDisplay()
	p.apply(&d, model.RegionLive)
	return p
}

// Container returns the panel's root object
func (p *LivePanel) Container() fyne.CanvasObject {
	return p.content
}

// SetDebugVisible shows or hides the debug section
func (p *LivePanel) SetDebugVisible(show bool) {
	if show {
		p.debugContainer.Show()
	} else {
		p.debugContainer.Hide()
	}
}

// apply updates the regions named in changed; it must run on the UI goroutine
func (p *LivePanel) apply(d *model.Display, changed model.Region) {
	if changed.Has(model.RegionFrame) && d.Frame != nil {
		p.frame.Image = d.Frame
		p.frame.Show()
		p.placeholder.Hide()
		p.frame.Refresh()
	}

	if changed.Has(model.RegionCounts) {
		p.correct.set(strconv.Itoa(d.Counts.Correct))
		p.incorrect.set(strconv.Itoa(d.Counts.Incorrect))
		p.total.set(strconv.Itoa(d.Counts.Total))
		p.accuracy.set(d.AccuracyText())
	}

	if changed.Has(model.RegionAngle) {
		p.angleLabel.SetText(p.loc.GetText(KeyAngle) + LabelSeparator + d.AngleText())
	}

	if changed.Has(model.RegionFeedback) {
		p.feedbackLabel.SetText(d.Feedback)
	}

	if changed.Has(model.RegionProgress) {
		p.progressBar.SetValue(d.ProgressFraction())
		p.progressLabel.SetText(d.ProgressText())
	}

	if changed.Has(model.RegionDebug) {
		p.debugLabel.SetText(d.Debug)
	}

	if changed.Has(model.RegionDebugData) {
		p.debugStateLbl.SetText(p.loc.GetText(KeyDebugState) + LabelSeparator + d.DebugStateText())
		p.missingLabel.SetText(p.loc.GetText(KeyMissingKeypoints) + LabelSeparator + d.MissingKeypointsText())
	}
}

// ResultsCard shows the final results of a completed session
type ResultsCard struct {
	card      *widget.Card
	correct   *statValue
	incorrect *statValue
	total     *statValue
	accuracy  *statValue
}

// NewResultsCard builds a hidden results card
func NewResultsCard(loc *Localization) *ResultsCard {
	r := &ResultsCard{
		correct:   newStatValue(loc.GetText(KeyCorrect), ColorNameCorrect),
		incorrect: newStatValue(loc.GetText(KeyIncorrect), ColorNameIncorrect),
		total:     newStatValue(loc.GetText(KeyTotal), theme.ColorNameForeground),
		accuracy:  newStatValue(loc.GetText(KeyAccuracy), theme.ColorNamePrimary),
	}
	r.card = widget.NewCard(loc.GetText(KeyFinalResults), "",
		container.NewGridWithColumns(4,
			r.correct.object(), r.incorrect.object(), r.total.object(), r.accuracy.object()))
	r.card.Hide()
	return r
}

// Container returns the card
func (r *ResultsCard) Container() fyne.CanvasObject {
	return r.card
}

// apply shows final, or hides the card when final is nil
func (r *ResultsCard) apply(final *model.Counts) {
	if final == nil {
		r.card.Hide()
		return
	}
	r.correct.set(strconv.Itoa(final.Correct))
	r.incorrect.set(strconv.Itoa(final.Incorrect))
	r.total.set(strconv.Itoa(final.Total))
	r.accuracy.set(model.FormatPercent(final.Accuracy))
	r.card.Show()
}
