// Package storage provides platform-native directory resolution with XDG support.
package storage

import (
	"os"
	"path/filepath"
	"sync"
)

// Dirs provides platform-native directory resolution with XDG support.
type Dirs struct {
	Config string // User configuration (config.yaml, credentials)
	Data   string // Persistent data (knowledge layers, conversations, vectors)
	Cache  string // Regenerable cache (query caches, embeddings)
	State  string // Runtime state (logs, generated images)
}

var (
	globalDirs     *Dirs
	globalDirsOnce sync.Once
)

// ResolveDirs returns platform-appropriate directories.
// Results are cached after first call.
func ResolveDirs() (*Dirs, error) {
	globalDirsOnce.Do(func() {
		globalDirs = &Dirs{
			Config: resolveDir("XDG_CONFIG_HOME", platformConfigDefault()),
			Data:   resolveDir("XDG_DATA_HOME", platformDataDefault()),
			Cache:  resolveDir("XDG_CACHE_HOME", platformCacheDefault()),
			State:  resolveDir("XDG_STATE_HOME", platformStateDefault()),
		}
	})
	return globalDirs, nil
}

func resolveDir(envVar, fallback string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return filepath.Join(dir, "aide")
	}
	return fallback
}

// ConfigDir joins path elements under the config directory.
func (d *Dirs) ConfigDir(elem ...string) string {
	return filepath.Join(append([]string{d.Config}, elem...)...)
}

// DataDir joins path elements under the data directory.
func (d *Dirs) DataDir(elem ...string) string {
	return filepath.Join(append([]string{d.Data}, elem...)...)
}

// CacheDir joins path elements under the cache directory.
func (d *Dirs) CacheDir(elem ...string) string {
	return filepath.Join(append([]string{d.Cache}, elem...)...)
}

// StateDir joins path elements under the state directory.
func (d *Dirs) StateDir(elem ...string) string {
	return filepath.Join(append([]string{d.State}, elem...)...)
}

// EnsureAll creates every directory the assistant writes to.
func (d *Dirs) EnsureAll() error {
	for _, dir := range []string{d.Config, d.Data, d.Cache, d.State} {
		if err := EnsureDir(dir, 0700); err != nil {
			return err
		}
	}
	return nil
}

// EnsureDir creates a directory with the specified permissions if it doesn't exist.
// Uses 0700 for sensitive directories by default.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = 0700
	}
	return os.MkdirAll(path, perm)
}
