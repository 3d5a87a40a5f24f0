//go:build windows

package storage

import (
	"os"
	"path/filepath"
)

func appData() string {
	if dir := os.Getenv("APPDATA"); dir != "" {
		return dir
	}
	return filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
}

func localAppData() string {
	if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
		return dir
	}
	return filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local")
}

func platformConfigDefault() string {
	return filepath.Join(appData(), "aide", "config")
}

func platformDataDefault() string {
	return filepath.Join(appData(), "aide", "data")
}

func platformCacheDefault() string {
	return filepath.Join(localAppData(), "aide", "cache")
}

func platformStateDefault() string {
	return filepath.Join(localAppData(), "aide", "state")
}
