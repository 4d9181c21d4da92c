package ui

// Package ui contains the Fyne desktop client. RootUI implements
// controller.View: it turns display snapshots into widget updates and
// forwards button presses to the controller, the import service and the
// shrink service. All UI strings are localized via Localization.
