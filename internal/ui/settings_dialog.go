package ui

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/repcount/internal/config"
)

// SettingsDialog represents the settings configuration dialog
type SettingsDialog struct {
	settings *config.Settings
	loc      *Localization
	window   fyne.Window
	dialog   *dialog.ConfirmDialog
	onSaved  func(config.Options)

	// UI components
	serverEntry    *widget.Entry
	maxUploadEntry *widget.Entry
	timeoutEntry   *widget.Entry
	importDirEntry *widget.Entry
	debugCheck     *widget.Check
	languageSelect *widget.Select

	// language display name -> code
	languageCodes map[string]string
}

// NewSettingsDialog creates a new settings dialog. onSaved receives the
// options as stored after a successful save.
func NewSettingsDialog(settings *config.Settings, loc *Localization, window fyne.Window, onSaved func(config.Options)) *SettingsDialog {
	sd := &SettingsDialog{
		settings: settings,
		loc:      loc,
		window:   window,
		onSaved:  onSaved,
	}

	sd.createUI()
	return sd
}

// ShowSettingsDialog builds and shows the settings dialog
func ShowSettingsDialog(window fyne.Window, settings *config.Settings, loc *Localization, onSaved func(config.Options)) {
	NewSettingsDialog(settings, loc, window, onSaved).Show()
}

// Show displays the settings dialog
func (sd *SettingsDialog) Show() {
	sd.loadCurrentSettings()
	sd.dialog.Show()
}

// createUI creates the settings dialog UI
func (sd *SettingsDialog) createUI() {
	sd.serverEntry = widget.NewEntry()
	sd.serverEntry.SetPlaceHolder(config.DefaultServerURL)

	sd.maxUploadEntry = widget.NewEntry()
	sd.maxUploadEntry.SetPlaceHolder(strconv.Itoa(config.MinMaxUploadMB) + "-" + strconv.Itoa(config.MaxMaxUploadMB))

	sd.timeoutEntry = widget.NewEntry()
	sd.timeoutEntry.SetPlaceHolder(strconv.Itoa(config.MinRequestTimeoutSec) + "-" + strconv.Itoa(config.MaxRequestTimeoutSec))

	sd.importDirEntry = widget.NewEntry()
	browseDirBtn := widget.NewButton(sd.loc.GetText(KeyBrowse), sd.onBrowseDirectory)
	importDirRow := container.NewBorder(nil, nil, nil, browseDirBtn, sd.importDirEntry)

	sd.debugCheck = widget.NewCheck(sd.loc.GetText(KeyShowDebug), nil)

	sd.languageCodes = make(map[string]string)
	for code, name := range sd.settings.GetLanguageOptions() {
		sd.languageCodes[name] = code
	}
	sd.languageSelect = widget.NewSelect(slices.Sorted(maps.Keys(sd.languageCodes)), nil)

	form := widget.NewForm(
		widget.NewFormItem(sd.loc.GetText(KeyServerURL), sd.serverEntry),
		widget.NewFormItem(sd.loc.GetText(KeyMaxUploadMB), sd.maxUploadEntry),
		widget.NewFormItem(sd.loc.GetText(KeyRequestTimeout), sd.timeoutEntry),
		widget.NewFormItem(sd.loc.GetText(KeyImportDirectory), importDirRow),
		widget.NewFormItem("", sd.debugCheck),
		widget.NewFormItem(sd.loc.GetText(KeyLanguage), sd.languageSelect),
	)

	sd.dialog = dialog.NewCustomConfirm(
		sd.loc.GetText(KeySettings),
		sd.loc.GetText(KeySave),
		sd.loc.GetText(KeyCancel),
		form,
		sd.onSave,
		sd.window,
	)

	sd.dialog.Resize(fyne.NewSize(SettingsDialogWidth, SettingsDialogHeight))
}

// loadCurrentSettings loads current settings into the UI
func (sd *SettingsDialog) loadCurrentSettings() {
	sd.serverEntry.SetText(sd.settings.GetServerURL())
	sd.maxUploadEntry.SetText(strconv.Itoa(sd.settings.GetMaxUploadMB()))
	sd.timeoutEntry.SetText(strconv.Itoa(int(sd.settings.GetRequestTimeout() / time.Second)))
	sd.importDirEntry.SetText(sd.settings.GetImportDirectory())
	sd.debugCheck.SetChecked(sd.settings.GetShowDebug())

	lang := sd.settings.GetLanguage()
	for name, code := range sd.languageCodes {
		if code == lang {
			sd.languageSelect.SetSelected(name)
			break
		}
	}
}

// onBrowseDirectory handles directory browsing
func (sd *SettingsDialog) onBrowseDirectory() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		sd.importDirEntry.SetText(uri.Path())
	}, sd.window)
}

// onSave handles saving the settings. Unparsable numbers keep the stored
// value; out-of-range ones are clamped by config.Settings.
func (sd *SettingsDialog) onSave(confirmed bool) {
	if !confirmed {
		return
	}

	if server := strings.TrimSpace(sd.serverEntry.Text); server != "" {
		sd.settings.SetServerURL(server)
	}

	if mb, err := strconv.Atoi(strings.TrimSpace(sd.maxUploadEntry.Text)); err == nil {
		sd.settings.SetMaxUploadMB(mb)
	}

	if sec, err := strconv.Atoi(strings.TrimSpace(sd.timeoutEntry.Text)); err == nil {
		sd.settings.SetRequestTimeout(time.Duration(sec) * time.Second)
	}

	if dir := strings.TrimSpace(sd.importDirEntry.Text); dir != "" {
		sd.settings.SetImportDirectory(dir)
	}

	sd.settings.SetShowDebug(sd.debugCheck.Checked)

	if code, ok := sd.languageCodes[sd.languageSelect.Selected]; ok {
		sd.settings.SetLanguage(code)
	}

	if sd.onSaved != nil {
		sd.onSaved(sd.settings.Options())
	}
}
