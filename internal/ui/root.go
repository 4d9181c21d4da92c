package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/repcount/internal/compress"
	"github.com/ytget/repcount/internal/config"
	"github.com/ytget/repcount/internal/controller"
	"github.com/ytget/repcount/internal/fetch"
	"github.com/ytget/repcount/internal/model"
	"github.com/ytget/repcount/internal/platform"
)

// Connector builds a backend for the given options
type Connector func(config.Options) controller.Backend

// RootUI represents the main UI structure. It implements controller.View.
type RootUI struct {
	window       fyne.Window
	app          fyne.App
	settings     *config.Settings
	localization *Localization
	logger       *slog.Logger

	ctrl      *controller.Controller
	connect   Connector
	fetchSvc  fetch.Importer
	shrinkSvc compress.Shrinker

	fileEntry   *widget.Entry
	browseBtn   *widget.Button
	uploadBtn   *widget.Button
	urlEntry    *widget.Entry
	importBtn   *widget.Button
	startBtn    *widget.Button
	stopBtn     *widget.Button
	refreshBtn  *widget.Button
	resetBtn    *widget.Button
	exportBtn   *widget.Button
	settingsBtn *widget.Button
	stateLabel  *widget.Label

	live    *LivePanel
	results *ResultsCard

	// Notification panel
	notificationContainer *fyne.Container
	notificationLabel     *widget.Label
	notificationSpinner   *widget.ProgressBarInfinite
	notificationCancel    *widget.Button
	notificationReveal    *widget.Button

	// owned by the UI goroutine
	display     model.Display
	uploading   bool
	importing   bool
	importJobID string
	shrinkJobID string
	revealPath  string
}

// NewRootUI creates and initializes the main UI. The controller is bound
// later with Bind because it renders into this view on construction.
func NewRootUI(window fyne.Window, app fyne.App, fetchSvc fetch.Importer, shrinkSvc compress.Shrinker, logger *slog.Logger) *RootUI {
	if logger == nil {
		logger = slog.Default()
	}

	settings := config.NewSettings(app)

	localization := NewLocalization()
	localization.SetLanguage(settings.GetLanguage())

	importDir := settings.GetImportDirectory()
	if err := platform.CreateDirectoryIfNotExists(importDir); err != nil {
		logger.Warn("cannot create import directory", "dir", importDir, "error", err)
	}

	ui := &RootUI{
		window:       window,
		app:          app,
		settings:     settings,
		localization: localization,
		logger:       logger,
		fetchSvc:     fetchSvc,
		shrinkSvc:    shrinkSvc,
		display:      model.NewDisplay(),
	}

	if fetchSvc != nil {
		fetchSvc.SetDownloadDirectory(importDir)
		fetchSvc.SetUpdateCallback(ui.onImportUpdate)
	}
	if shrinkSvc != nil {
		shrinkSvc.SetUpdateCallback(ui.onShrinkUpdate)
	}

	ui.setupUI()
	return ui
}

// Bind attaches the controller driven by the buttons. connect, when set,
// rebuilds the backend after the server settings change.
func (ui *RootUI) Bind(ctrl *controller.Controller, connect Connector) {
	ui.ctrl = ctrl
	ui.connect = connect
}

// Settings returns the preferences backed settings
func (ui *RootUI) Settings() *config.Settings {
	return ui.settings
}

// setupUI creates and arranges all UI components
func (ui *RootUI) setupUI() {
	loc := ui.localization
	ui.window.SetTitle(loc.GetText(KeyAppTitle))
	ui.createMenu()

	ui.fileEntry = widget.NewEntry()
	ui.fileEntry.SetPlaceHolder(loc.GetText(KeySelectVideo))
	ui.browseBtn = widget.NewButton(IconFolder+" "+loc.GetText(KeyBrowse), ui.onBrowseClick)
	ui.uploadBtn = widget.NewButton(loc.GetText(KeyUpload), ui.onUploadClick)
	ui.uploadBtn.Importance = widget.HighImportance
	fileRow := container.NewBorder(nil, nil, ui.browseBtn, ui.uploadBtn, ui.fileEntry)

	ui.urlEntry = widget.NewEntry()
	ui.urlEntry.SetPlaceHolder(loc.GetText(KeyEnterURL))
	ui.urlEntry.Validator = ui.validateURL
	ui.urlEntry.OnSubmitted = func(string) {
		ui.onImportClick()
	}
	ui.importBtn = widget.NewButton(loc.GetText(KeyImport), ui.onImportClick)
	if ui.fetchSvc == nil {
		ui.importBtn.Disable()
	}
	urlRow := container.NewBorder(nil, nil, nil, ui.importBtn, ui.urlEntry)

	ui.settingsBtn = widget.NewButton(IconSettings, ui.onShowSettings)
	ui.settingsBtn.Importance = widget.LowImportance

	// Notification panel under the inputs (hidden by default)
	ui.notificationLabel = widget.NewLabel("")
	ui.notificationLabel.Alignment = fyne.TextAlignLeading
	ui.notificationLabel.Wrapping = fyne.TextWrapWord
	ui.notificationSpinner = widget.NewProgressBarInfinite()
	ui.notificationSpinner.Hide()
	ui.notificationCancel = widget.NewButton(loc.GetText(KeyCancel), ui.onCancelClick)
	ui.notificationCancel.Hide()
	ui.notificationReveal = widget.NewButton(loc.GetText(KeyReveal), ui.onRevealClick)
	ui.notificationReveal.Hide()
	ui.notificationContainer = container.NewBorder(nil, nil, ui.notificationSpinner,
		container.NewHBox(ui.notificationReveal, ui.notificationCancel), ui.notificationLabel)
	ui.notificationContainer.Hide()

	ui.startBtn = widget.NewButton(loc.GetText(KeyStartProcessing), ui.onStartClick)
	ui.startBtn.Importance = widget.SuccessImportance
	ui.stopBtn = widget.NewButton(loc.GetText(KeyStopProcessing), ui.onStopClick)
	ui.stopBtn.Importance = widget.DangerImportance
	ui.refreshBtn = widget.NewButton(loc.GetText(KeyRefreshCounts), ui.onRefreshClick)
	ui.resetBtn = widget.NewButton(loc.GetText(KeyResetCounts), ui.onResetClick)
	ui.exportBtn = widget.NewButton(loc.GetText(KeyExportResults), ui.onExportClick)
	ui.stateLabel = widget.NewLabel("")
	controls := container.NewBorder(nil, nil,
		container.NewHBox(ui.startBtn, ui.stopBtn),
		container.NewHBox(ui.refreshBtn, ui.resetBtn, ui.exportBtn),
		ui.stateLabel)

	ui.live = NewLivePanel(loc, ui.settings.GetShowDebug())
	ui.results = NewResultsCard(loc)

	top := container.NewVBox(
		container.NewBorder(nil, nil, ui.settingsBtn, nil, fileRow),
		urlRow,
		ui.notificationContainer,
		controls,
		widget.NewSeparator(),
	)
	center := container.NewVScroll(container.NewVBox(ui.results.Container(), ui.live.Container()))

	ui.window.SetContent(container.NewBorder(top, nil, nil, nil, center))

	ui.apply(&ui.display, model.RegionControls|model.RegionFrame|model.RegionLive|model.RegionFinal)
}

// createMenu creates the application menu
func (ui *RootUI) createMenu() {
	settingsItem := fyne.NewMenuItem(ui.localization.GetText(KeySettings), ui.onShowSettings)

	languageMenu := fyne.NewMenu(ui.localization.GetText(KeyLanguage))
	for code, name := range ui.localization.GetAvailableLanguages() {
		langCode := code
		langItem := fyne.NewMenuItem(name, func() {
			ui.onLanguageChange(langCode)
		})
		if ui.localization.GetCurrentLanguage() == code {
			langItem.Checked = true
		}
		languageMenu.Items = append(languageMenu.Items, langItem)
	}

	ui.window.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu(ui.localization.GetText(KeyFile), settingsItem),
		languageMenu,
	))
}

// onLanguageChange rebuilds the window in the new language
func (ui *RootUI) onLanguageChange(langCode string) {
	ui.localization.SetLanguage(langCode)
	ui.settings.SetLanguage(langCode)
	ui.refreshUITexts()
}

// refreshUITexts rebuilds every widget and restores the current display and inputs
func (ui *RootUI) refreshUITexts() {
	file, url := ui.fileEntry.Text, ui.urlEntry.Text
	ui.setupUI()
	ui.fileEntry.SetText(file)
	ui.urlEntry.SetText(url)
}

// Render implements controller.View
func (ui *RootUI) Render(d model.Display, changed model.Region) {
	fyne.Do(func() {
		ui.apply(&d, changed)
	})
}

// Alert implements controller.View
func (ui *RootUI) Alert(message string) {
	fyne.Do(func() {
		dialog.ShowInformation(ui.localization.GetText(KeyError), message, ui.window)
	})
}

// Notify implements controller.View
func (ui *RootUI) Notify(message string) {
	ui.showNotification(message, false)
}

// apply updates the widgets for the regions in changed. It must run on the
// UI goroutine.
func (ui *RootUI) apply(d *model.Display, changed model.Region) {
	completed := changed.Has(model.RegionFinal) && d.Final != nil && ui.display.Final == nil
	ui.display = *d

	if changed.Has(model.RegionControls) {
		ui.applyControls()
	}

	if changed.Has(model.RegionFinal) {
		ui.results.apply(d.Final)
		if d.Final != nil {
			ui.live.Container().Hide()
		} else {
			ui.live.Container().Show()
		}
	}

	ui.live.apply(d, changed)

	if completed {
		ui.sendCompletionNotification(*d.Final)
	}
}

// applyControls enables the actions allowed in the current state
func (ui *RootUI) applyControls() {
	state := ui.display.State
	setEnabled(ui.uploadBtn, state.CanUpload() && !ui.uploading)
	setEnabled(ui.browseBtn, state.CanUpload())
	setEnabled(ui.startBtn, state.CanStart() && !ui.uploading)
	setEnabled(ui.stopBtn, state.CanStop())
	setEnabled(ui.refreshBtn, state.CanUpload())
	setEnabled(ui.resetBtn, state.CanUpload())
	setEnabled(ui.exportBtn, state.CanUpload())
	setEnabled(ui.importBtn, ui.fetchSvc != nil && !ui.importing)
	ui.stateLabel.SetText(state.String())
}

func setEnabled(b *widget.Button, enabled bool) {
	if enabled {
		b.Enable()
	} else {
		b.Disable()
	}
}

// setUploading toggles the in-flight upload flag; UI goroutine only
func (ui *RootUI) setUploading(v bool) {
	ui.uploading = v
	ui.applyControls()
}

func (ui *RootUI) setImporting(v bool) {
	ui.importing = v
	ui.applyControls()
}

// validateURL validates the entered URL
func (ui *RootUI) validateURL(input string) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	return fetch.ValidateURL(input)
}

// onBrowseClick picks a local video
func (ui *RootUI) onBrowseClick() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			ui.logger.Error("file dialog failed", "error", err)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()
		ui.fileEntry.SetText(reader.URI().Path())
	}, ui.window)
	fd.SetFilter(storage.NewExtensionFileFilter(platform.VideoExtensions))
	fd.Show()
}

// onUploadClick validates the size, offers to shrink oversized files and
// uploads in the background
func (ui *RootUI) onUploadClick() {
	if ui.ctrl == nil {
		return
	}
	path := strings.TrimSpace(ui.fileEntry.Text)

	if path != "" {
		maxBytes := ui.settings.Options().MaxUploadBytes
		if size, err := platform.FileSize(path); err == nil && maxBytes > 0 && size > maxBytes {
			ui.offerShrink(path)
			return
		}
	}

	ui.startUpload(path)
}

func (ui *RootUI) startUpload(path string) {
	if ui.ctrl == nil {
		return
	}
	ui.setUploading(true)
	ui.showNotification(ui.localization.GetText(KeyUploading), true)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), UploadTimeout)
		defer cancel()

		err := ui.ctrl.Upload(ctx, path)
		if err != nil {
			ui.logger.Debug("upload not completed", "file", path, "error", err)
			ui.hideNotification()
		}
		fyne.Do(func() {
			ui.setUploading(false)
		})
	}()
}

// offerShrink asks whether to re-encode a file over the upload limit
func (ui *RootUI) offerShrink(path string) {
	loc := ui.localization
	if ui.shrinkSvc == nil || !compress.Available() {
		dialog.ShowInformation(loc.GetText(KeyShrinkTitle), loc.GetText(KeyShrinkUnavailable), ui.window)
		return
	}

	dialog.ShowConfirm(loc.GetText(KeyShrinkTitle), loc.GetText(KeyShrinkPrompt), func(ok bool) {
		if ok {
			ui.startShrink(path)
		}
	}, ui.window)
}

// startShrink re-encodes path in the background; the upload starts from
// handleShrinkUpdate once the job completes
func (ui *RootUI) startShrink(path string) {
	loc := ui.localization
	job, err := ui.shrinkSvc.Start(path)
	if err != nil {
		ui.logger.Error("shrink not started", "file", path, "error", err)
		ui.setNotification(loc.GetText(KeyShrinkFailed)+LabelSeparator+err.Error(), false, "")
		return
	}
	ui.shrinkJobID = job.ID
	ui.setUploading(true)
	ui.setNotification(loc.GetText(KeyShrinking), true, "")
}

func (ui *RootUI) onShrinkUpdate(job model.ShrinkJob) {
	fyne.Do(func() {
		ui.handleShrinkUpdate(job)
	})
}

// handleShrinkUpdate follows the current shrink job; UI goroutine only
func (ui *RootUI) handleShrinkUpdate(job model.ShrinkJob) {
	if job.ID != ui.shrinkJobID {
		return
	}
	loc := ui.localization
	switch job.Status {
	case model.JobStatusRunning:
		ui.setNotification(fmt.Sprintf("%s "+ProgressLabelFormat, loc.GetText(KeyShrinking), job.Percent), true, "")
	case model.JobStatusCompleted:
		ui.shrinkJobID = ""
		ui.setUploading(false)
		ui.logger.Info("video shrunk", "input", job.InputPath, "output", job.OutputPath)
		ui.fileEntry.SetText(job.OutputPath)
		ui.setNotification(loc.GetText(KeyShrinkCompleted), false, "")
		ui.startUpload(job.OutputPath)
	case model.JobStatusError:
		ui.shrinkJobID = ""
		ui.setUploading(false)
		ui.logger.Error("shrink failed", "file", job.InputPath, "error", job.LastError)
		ui.setNotification(loc.GetText(KeyShrinkFailed)+LabelSeparator+job.LastError, false, "")
	case model.JobStatusStopped:
		ui.shrinkJobID = ""
		ui.setUploading(false)
		ui.setNotification(loc.GetText(KeyJobCancelled), false, "")
	}
}

// onImportClick downloads the URL in the background and selects the result
func (ui *RootUI) onImportClick() {
	if ui.fetchSvc == nil {
		return
	}
	loc := ui.localization
	urlText := strings.TrimSpace(ui.urlEntry.Text)
	if urlText == "" {
		ui.showNotification(loc.GetText(KeyPleaseEnterURL), false)
		return
	}
	if err := ui.validateURL(urlText); err != nil {
		ui.showNotification(loc.GetText(KeyInvalidURL)+LabelSeparator+err.Error(), false)
		return
	}

	job, err := ui.fetchSvc.Start(urlText)
	if err != nil {
		ui.logger.Error("import not started", "url", urlText, "error", err)
		ui.setNotification(loc.GetText(KeyImportFailed)+LabelSeparator+err.Error(), false, "")
		return
	}
	ui.importJobID = job.ID
	ui.setImporting(true)
	ui.setNotification(loc.GetText(KeyImporting), true, "")
}

func (ui *RootUI) onImportUpdate(job model.FetchJob) {
	fyne.Do(func() {
		ui.handleImportUpdate(job)
	})
}

// handleImportUpdate follows the current import job; UI goroutine only
func (ui *RootUI) handleImportUpdate(job model.FetchJob) {
	if job.ID != ui.importJobID {
		return
	}
	loc := ui.localization
	switch job.Status {
	case model.JobStatusRunning:
		ui.setNotification(fmt.Sprintf("%s "+ProgressLabelFormat+"  %s", loc.GetText(KeyImporting), job.Percent, job.GetETAString()), true, "")
	case model.JobStatusCompleted:
		ui.importJobID = ""
		ui.setImporting(false)
		ui.logger.Info("video imported", "url", job.URL, "path", job.OutputPath)
		ui.fileEntry.SetText(job.OutputPath)
		ui.urlEntry.SetText("")
		ui.setNotification(loc.GetText(KeyImportCompleted)+LabelSeparator+job.GetDisplayTitle(), false, job.OutputPath)
		ui.app.SendNotification(fyne.NewNotification(loc.GetText(KeyImportCompleted), job.GetDisplayTitle()))
	case model.JobStatusError:
		ui.importJobID = ""
		ui.setImporting(false)
		ui.logger.Error("import failed", "url", job.URL, "error", job.LastError)
		ui.setNotification(loc.GetText(KeyImportFailed)+LabelSeparator+job.LastError, false, "")
	case model.JobStatusStopped:
		ui.importJobID = ""
		ui.setImporting(false)
		ui.setNotification(loc.GetText(KeyJobCancelled), false, "")
	}
}

// onCancelClick stops the import or shrink job still in flight
func (ui *RootUI) onCancelClick() {
	if ui.fetchSvc != nil && ui.importJobID != "" {
		if job, ok := ui.fetchSvc.Get(ui.importJobID); ok && !job.Status.IsFinished() {
			if err := ui.fetchSvc.Stop(job.ID); err != nil {
				ui.logger.Warn("cannot stop import", "job", job.ID, "error", err)
			}
		}
	}
	if ui.shrinkSvc != nil && ui.shrinkJobID != "" {
		if job, ok := ui.shrinkSvc.Get(ui.shrinkJobID); ok && !job.Status.IsFinished() {
			if err := ui.shrinkSvc.Stop(job.ID); err != nil {
				ui.logger.Warn("cannot stop shrink", "job", job.ID, "error", err)
			}
		}
	}
}

// CancelJobs stops background imports and shrinks, used when the window closes
func (ui *RootUI) CancelJobs() {
	ui.onCancelClick()
}

func (ui *RootUI) onRevealClick() {
	path := ui.revealPath
	if path == "" {
		return
	}
	go func() {
		if err := platform.RevealFile(path); err != nil {
			ui.logger.Warn("cannot reveal file", "path", path, "error", err)
		}
	}()
}

func (ui *RootUI) onStartClick() {
	if ui.ctrl == nil {
		return
	}
	if err := ui.ctrl.StartProcessing(); err != nil {
		ui.logger.Warn("cannot start processing", "error", err)
	}
}

func (ui *RootUI) onStopClick() {
	if ui.ctrl == nil {
		return
	}
	ui.ctrl.StopProcessing()
}

func (ui *RootUI) onRefreshClick() {
	ui.runRequest("refresh counts", ui.ctrl.RefreshCounts)
}

func (ui *RootUI) onResetClick() {
	ui.runRequest("reset counts", ui.ctrl.ResetCounts)
}

func (ui *RootUI) onExportClick() {
	ui.runRequest("export results", func(ctx context.Context) error {
		_, err := ui.ctrl.ExportResults(ctx)
		return err
	})
}

// runRequest runs an auxiliary request off the UI goroutine. The
// controller reports failures to the user itself.
func (ui *RootUI) runRequest(op string, fn func(context.Context) error) {
	if ui.ctrl == nil {
		return
	}
	timeout := ui.settings.GetRequestTimeout()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			ui.logger.Debug(op+" not completed", "error", err)
		}
	}()
}

// showNotification displays a message in the notification panel under the inputs.
// When spinning is true, a spinner is shown to indicate background activity.
func (ui *RootUI) showNotification(message string, spinning bool) {
	fyne.Do(func() {
		ui.setNotification(message, spinning, "")
	})
}

// setNotification fills the notification panel; UI goroutine only. A
// non-empty reveal path offers to open the file's folder. Cancel shows
// while an import or shrink job runs.
func (ui *RootUI) setNotification(message string, spinning bool, reveal string) {
	ui.notificationLabel.SetText(message)
	if spinning {
		ui.notificationSpinner.Show()
	} else {
		ui.notificationSpinner.Hide()
	}
	ui.revealPath = reveal
	if reveal != "" {
		ui.notificationReveal.Show()
	} else {
		ui.notificationReveal.Hide()
	}
	if ui.importJobID != "" || ui.shrinkJobID != "" {
		ui.notificationCancel.Show()
	} else {
		ui.notificationCancel.Hide()
	}
	ui.notificationContainer.Show()
	ui.notificationContainer.Refresh()
}

// hideNotification hides the notification panel.
func (ui *RootUI) hideNotification() {
	fyne.Do(func() {
		ui.notificationSpinner.Hide()
		ui.notificationContainer.Hide()
	})
}

// onShowSettings shows the settings dialog
func (ui *RootUI) onShowSettings() {
	ShowSettingsDialog(ui.window, ui.settings, ui.localization, ui.onSettingsSaved)
}

// onSettingsSaved applies new settings to the running services
func (ui *RootUI) onSettingsSaved(opts config.Options) {
	if err := platform.CreateDirectoryIfNotExists(opts.ImportDir); err != nil {
		ui.logger.Warn("cannot create import directory", "dir", opts.ImportDir, "error", err)
	}
	if ui.fetchSvc != nil {
		ui.fetchSvc.SetDownloadDirectory(opts.ImportDir)
	}

	if ui.ctrl != nil && ui.connect != nil {
		if err := ui.ctrl.Reconfigure(ui.connect(opts), opts); err != nil {
			if errors.Is(err, controller.ErrBusy) {
				ui.showNotification(controller.MsgBusy, false)
			}
			ui.logger.Warn("settings not applied to controller", "error", err)
		}
	}

	before := ui.localization.GetCurrentLanguage()
	ui.localization.SetLanguage(ui.settings.GetLanguage())
	if ui.localization.GetCurrentLanguage() != before {
		ui.refreshUITexts()
	} else {
		ui.live.SetDebugVisible(opts.ShowDebug)
	}

	ui.showNotification(ui.localization.GetText(KeySettingsSaved), false)
}

// sendCompletionNotification announces the final results of a session
func (ui *RootUI) sendCompletionNotification(final model.Counts) {
	title := ui.localization.GetText(KeyAnalysisCompleted)
	message := fmt.Sprintf("%s %d  %s %d  %s %s",
		IconCheck, final.Correct, IconCross, final.Incorrect,
		ui.localization.GetText(KeyAccuracy), model.FormatPercent(final.Accuracy))

	ui.app.SendNotification(fyne.NewNotification(title, message))
	ui.showToastNotification(title, message)
}

// showToastNotification shows an in-app toast in the top-right corner
func (ui *RootUI) showToastNotification(title, message string) {
	titleLabel := widget.NewLabel(title)
	titleLabel.TextStyle = fyne.TextStyle{Bold: true}

	messageLabel := widget.NewLabel(message)
	messageLabel.Truncation = fyne.TextTruncateEllipsis

	var toastPopup *widget.PopUp
	closeBtn := widget.NewButton(IconClose, func() {
		if toastPopup != nil {
			toastPopup.Hide()
		}
	})
	closeBtn.Importance = widget.LowImportance

	header := container.NewBorder(nil, nil, titleLabel, closeBtn)
	toastPopup = widget.NewPopUp(container.NewVBox(header, messageLabel), ui.window.Canvas())

	canvasSize := ui.window.Canvas().Size()
	toastSize := fyne.NewSize(ToastWidth, ToastHeight)
	toastPopup.Resize(toastSize)
	toastPopup.Move(fyne.NewPos(canvasSize.Width-toastSize.Width-ToastMargin, ToastMargin))
	toastPopup.Show()

	time.AfterFunc(ToastAutoHide, func() {
		fyne.Do(toastPopup.Hide)
	})
}
