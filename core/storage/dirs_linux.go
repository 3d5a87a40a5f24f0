//go:build linux || darwin

package storage

import (
	"os"
	"path/filepath"
)

func platformConfigDefault() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "aide")
}

func platformDataDefault() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "aide")
}

func platformCacheDefault() string {
	return filepath.Join(os.Getenv("HOME"), ".cache", "aide")
}

func platformStateDefault() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "state", "aide")
}
