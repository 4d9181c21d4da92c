package config

import (
	"strings"
	"time"

	"fyne.io/fyne/v2"

	"github.com/ytget/repcount/internal/platform"
)

// Settings keys for Fyne preferences
const (
	KeyServerURL      = "server_url"
	KeyMaxUploadMB    = "max_upload_mb"
	KeyRequestTimeout = "request_timeout_sec"
	KeyShowDebug      = "show_debug_panel"
	KeyImportDir      = "import_directory"
	KeyLanguage       = "app_language"
)

// Default values
const (
	DefaultServerURL      = "http://127.0.0.1:5000"
	DefaultMaxUploadMB    = 100
	DefaultRequestTimeout = 30 * time.Second
	DefaultShowDebug      = true
	DefaultLanguage       = "system"

	MinMaxUploadMB       = 1
	MaxMaxUploadMB       = 4096
	MinRequestTimeoutSec = 1
	MaxRequestTimeoutSec = 600
)

// Options is the plain configuration consumed by the API client and the
// controller. The desktop app builds it from Settings, the terminal tools
// from flags.
type Options struct {
	ServerURL      string
	MaxUploadBytes int64
	RequestTimeout time.Duration
	ShowDebug      bool
	ImportDir      string
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	importDir, err := platform.DefaultImportDir()
	if err != nil {
		importDir = platform.FallbackImportDir
	}
	return Options{
		ServerURL:      DefaultServerURL,
		MaxUploadBytes: DefaultMaxUploadMB * platform.BytesPerMB,
		RequestTimeout: DefaultRequestTimeout,
		ShowDebug:      DefaultShowDebug,
		ImportDir:      importDir,
	}
}

// NormalizeServerURL trims whitespace and trailing slashes and adds a
// scheme when the user typed only host:port.
func NormalizeServerURL(raw string) string {
	u := strings.TrimSpace(raw)
	u = strings.TrimRight(u, "/")
	if u == "" {
		return DefaultServerURL
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "http://" + u
	}
	return u
}

// Settings manages application configuration
type Settings struct {
	app fyne.App
}

// NewSettings creates a new settings manager
func NewSettings(app fyne.App) *Settings {
	return &Settings{app: app}
}

// Options returns a snapshot of the current settings
func (s *Settings) Options() Options {
	return Options{
		ServerURL:      s.GetServerURL(),
		MaxUploadBytes: int64(s.GetMaxUploadMB()) * platform.BytesPerMB,
		RequestTimeout: s.GetRequestTimeout(),
		ShowDebug:      s.GetShowDebug(),
		ImportDir:      s.GetImportDirectory(),
	}
}

// GetServerURL returns the analysis server base URL
func (s *Settings) GetServerURL() string {
	u := s.app.Preferences().String(KeyServerURL)
	if u == "" {
		s.SetServerURL(DefaultServerURL)
		return DefaultServerURL
	}
	return u
}

// SetServerURL sets the analysis server base URL
func (s *Settings) SetServerURL(u string) {
	s.app.Preferences().SetString(KeyServerURL, NormalizeServerURL(u))
}

// GetMaxUploadMB returns the upload size limit in megabytes
func (s *Settings) GetMaxUploadMB() int {
	value := s.app.Preferences().Int(KeyMaxUploadMB)
	if value <= 0 {
		s.SetMaxUploadMB(DefaultMaxUploadMB)
		return DefaultMaxUploadMB
	}
	return value
}

// SetMaxUploadMB sets the upload size limit in megabytes
func (s *Settings) SetMaxUploadMB(mb int) {
	if mb < MinMaxUploadMB {
		mb = MinMaxUploadMB
	}
	if mb > MaxMaxUploadMB {
		mb = MaxMaxUploadMB
	}
	s.app.Preferences().SetInt(KeyMaxUploadMB, mb)
}

// GetRequestTimeout returns the timeout for one-shot requests
func (s *Settings) GetRequestTimeout() time.Duration {
	value := s.app.Preferences().Int(KeyRequestTimeout)
	if value <= 0 {
		s.SetRequestTimeout(DefaultRequestTimeout)
		return DefaultRequestTimeout
	}
	return time.Duration(value) * time.Second
}

// SetRequestTimeout sets the timeout for one-shot requests
func (s *Settings) SetRequestTimeout(d time.Duration) {
	sec := int(d / time.Second)
	if sec < MinRequestTimeoutSec {
		sec = MinRequestTimeoutSec
	}
	if sec > MaxRequestTimeoutSec {
		sec = MaxRequestTimeoutSec
	}
	s.app.Preferences().SetInt(KeyRequestTimeout, sec)
}

// GetShowDebug returns whether the debug panel is visible
func (s *Settings) GetShowDebug() bool {
	return s.app.Preferences().BoolWithFallback(KeyShowDebug, DefaultShowDebug)
}

// SetShowDebug sets whether the debug panel is visible
func (s *Settings) SetShowDebug(show bool) {
	s.app.Preferences().SetBool(KeyShowDebug, show)
}

// GetImportDirectory returns where imported videos are stored
func (s *Settings) GetImportDirectory() string {
	dir := s.app.Preferences().String(KeyImportDir)
	if dir == "" {
		defaultDir, err := platform.DefaultImportDir()
		if err != nil {
			defaultDir = platform.FallbackImportDir
		}
		s.SetImportDirectory(defaultDir)
		return defaultDir
	}
	return dir
}

// SetImportDirectory sets where imported videos are stored
func (s *Settings) SetImportDirectory(dir string) {
	s.app.Preferences().SetString(KeyImportDir, dir)
}

// GetLanguage returns the configured language
func (s *Settings) GetLanguage() string {
	lang := s.app.Preferences().String(KeyLanguage)
	if lang == "" {
		s.SetLanguage(DefaultLanguage)
		return DefaultLanguage
	}
	return lang
}

// SetLanguage sets the application language
func (s *Settings) SetLanguage(lang string) {
	s.app.Preferences().SetString(KeyLanguage, lang)
}

// GetLanguageOptions returns available language options
func (s *Settings) GetLanguageOptions() map[string]string {
	return map[string]string{
		"system": "System Default",
		"en":     "English",
		"ru":     "Русский",
		"pt":     "Português",
	}
}
