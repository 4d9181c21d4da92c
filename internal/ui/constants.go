package ui

import "time"

// Icons (emojis/symbols)
const (
	IconSettings = "⚙"
	IconFolder   = "📁"
	IconClose    = "×"
	IconCheck    = "✔"
	IconCross    = "✘"
)

// Text fragments
const (
	LabelSeparator      = ": "
	ProgressLabelFormat = "%d%%"
)

// Layout sizing
const (
	FramePlaceholderWidth  float32 = 480
	FramePlaceholderHeight float32 = 270
	StatValueMinWidth      float32 = 64
	SettingsDialogWidth    float32 = 520
	SettingsDialogHeight   float32 = 460
)

// Toast notification sizing and behavior
const (
	ToastWidth    float32 = 300
	ToastHeight   float32 = 120
	ToastMargin   float32 = 20
	ToastAutoHide         = 5 * time.Second
)

// Background operation limits
const (
	UploadTimeout = 10 * time.Minute
)
