package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "vigenere"

// DataDir returns the base data directory. VIGENERE_DATA_DIR overrides the
// platform default.
func DataDir() string {
	if envDir := os.Getenv("VIGENERE_DATA_DIR"); envDir != "" {
		return envDir
	}
	return PlatformDataDir()
}

// PlatformDataDir returns the platform-specific data directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/vigenere/
//   - Linux:   $XDG_DATA_HOME/vigenere/ or ~/.local/share/vigenere/
//   - Windows: %APPDATA%\vigenere\
func PlatformDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Application Support", appName)
	case "windows":
		return windowsAppData()
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appName)
		}
		return filepath.Join(homeDir(), ".local", "share", appName)
	}
}

// PlatformConfigDir returns the platform-specific config directory.
// macOS and Windows keep configuration next to the data.
func PlatformConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Application Support", appName)
	case "windows":
		return windowsAppData()
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName)
		}
		return filepath.Join(homeDir(), ".config", appName)
	}
}

func windowsAppData() string {
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, appName)
	}
	return filepath.Join(homeDir(), "AppData", "Roaming", appName)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// SupportedConfigFormats returns the recognised config file extensions.
func SupportedConfigFormats() []string {
	return []string{"toml", "json", "yaml", "yml"}
}

// FindConfigFile searches the current directory, then the config directory,
// for config.<ext>. It returns "" when none exists.
func FindConfigFile() string {
	for _, dir := range []string{".", PlatformConfigDir()} {
		for _, ext := range SupportedConfigFormats() {
			path := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}
