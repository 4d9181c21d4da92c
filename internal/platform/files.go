package platform

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"
)

// Operating system constants
const (
	OSDarwin  = "darwin"
	OSWindows = "windows"
	OSLinux   = "linux"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Sizes
const (
	BytesPerMB = 1024 * 1024
)

// Command constants
const (
	OpenCommand     = "open"
	ExplorerCommand = "explorer"
	XDGOpenCommand  = "xdg-open"
)

// Command parameters
const (
	MacOSSelectFlag    = "-R"
	WindowsSelectParam = "/select,"
)

// Directory names
const (
	VideosDirName     = "Videos"
	AppDirName        = "RepCount"
	FallbackImportDir = "/tmp/repcount"
)

// Naming
const (
	TimestampLayout  = "20060102_150405"
	DefaultSafeName  = "video"
	NameSeparator    = "_"
	MaxSafeNameRunes = 120
)

// File manager names
var (
	LinuxFileManagers = []string{"nautilus", "dolphin", "thunar", "nemo", "pcmanfm"}
)

// VideoExtensions lists the containers the analysis server can decode
var (
	VideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm", ".m4v", ".mpeg", ".mpg"}
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// DefaultImportDir returns ~/Videos/RepCount
func DefaultImportDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, VideosDirName, AppDirName), nil
}

// FileSize returns the size of a regular file in bytes
func FileSize(filePath string) (int64, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", filePath)
	}
	return info.Size(), nil
}

// IsVideoFile reports whether the file name has a known video extension
func IsVideoFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, known := range VideoExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

// SecureFilename reduces a client supplied name to a safe base name:
// ASCII letters, digits, dot, dash and underscore only, no leading dots.
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Join(strings.Fields(name), NameSeparator)
	name = unsafeNameChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._-")

	if len(name) > MaxSafeNameRunes {
		ext := filepath.Ext(name)
		if len(ext) >= MaxSafeNameRunes {
			ext = ""
		}
		name = name[:MaxSafeNameRunes-len(ext)] + ext
	}
	if name == "" {
		return DefaultSafeName
	}
	return name
}

// TimestampedName prefixes a safe file name with the given time, e.g.
// 20250101_120000_situps.mp4
func TimestampedName(name string, at time.Time) string {
	return at.Format(TimestampLayout) + NameSeparator + SecureFilename(name)
}

// HasExecutable reports whether a command is available on PATH
func HasExecutable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// RevealFile opens the system file manager at the file's location
func RevealFile(filePath string) error {
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("file does not exist: %w", err)
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	switch runtime.GOOS {
	case OSDarwin:
		return exec.Command(OpenCommand, MacOSSelectFlag, absPath).Run()
	case OSWindows:
		return exec.Command(ExplorerCommand, WindowsSelectParam, absPath).Run()
	case OSLinux:
		return revealFileLinux(absPath)
	default:
		return fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// revealFileLinux opens the parent directory; selection is not standardized on Linux
func revealFileLinux(filePath string) error {
	dir := filepath.Dir(filePath)

	if err := exec.Command(XDGOpenCommand, dir).Run(); err == nil {
		return nil
	}

	for _, fm := range LinuxFileManagers {
		if _, err := exec.LookPath(fm); err == nil {
			return exec.Command(fm, dir).Run()
		}
	}

	return fmt.Errorf("no suitable file manager found")
}
