// Package config loads and watches the assistant configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adalundhe/aide/core/storage"
	"gopkg.in/yaml.v3"
)

// Manager holds the active configuration and swaps it atomically on reload.
type Manager struct {
	current   atomic.Pointer[Config]
	dirs      *storage.Dirs
	watchers  []func(*Config)
	watcherMu sync.RWMutex
}

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Watch     WatchConfig     `yaml:"watch"`
	Agent     AgentConfig     `yaml:"agent"`
}

// LLMConfig selects the chat and embedding backends. EmbeddingModel left
// empty disables the vector path entirely; retrieval stays lexical-only.
type LLMConfig struct {
	Provider          string        `yaml:"provider"`
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	ChatModel         string        `yaml:"chat_model"`
	EmbeddingProvider string        `yaml:"embedding_provider"`
	EmbeddingModel    string        `yaml:"embedding_model"`
	MaxTokens         int           `yaml:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
}

type KnowledgeConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	SearchLimit  int `yaml:"search_limit"`
}

type WatchConfig struct {
	Paths           []string      `yaml:"paths"`
	ExcludePatterns []string      `yaml:"exclude_patterns"`
	Debounce        time.Duration `yaml:"debounce"`
}

type AgentConfig struct {
	MaxIterations  int           `yaml:"max_iterations"`
	RecentMessages int           `yaml:"recent_messages"`
	CodeTimeout    time.Duration `yaml:"code_timeout"`
}

func NewManager(dirs *storage.Dirs) *Manager {
	m := &Manager{dirs: dirs}
	m.current.Store(DefaultConfig())
	return m
}

func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          "openai",
			ChatModel:         "gpt-4o-mini",
			EmbeddingProvider: "openai",
			MaxTokens:         4096,
			Timeout:           2 * time.Minute,
		},
		Knowledge: KnowledgeConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			SearchLimit:  5,
		},
		Watch: WatchConfig{
			ExcludePatterns: []string{"**/.git/**", "**/node_modules/**", "**/.*"},
			Debounce:        500 * time.Millisecond,
		},
		Agent: AgentConfig{
			MaxIterations:  15,
			RecentMessages: 10,
			CodeTimeout:    10 * time.Second,
		},
	}
}

// Get returns the active configuration. Safe for concurrent use.
func (m *Manager) Get() *Config {
	return m.current.Load()
}

// Load reads the user config file over defaults, then applies environment
// overrides, and publishes the result.
func (m *Manager) Load() error {
	cfg := DefaultConfig()

	if err := m.loadUserConfig(cfg); err != nil {
		return fmt.Errorf("user config: %w", err)
	}

	m.applyEnvironment(cfg)

	m.current.Store(cfg)
	m.notifyWatchers(cfg)

	return nil
}

func (m *Manager) loadUserConfig(cfg *Config) error {
	data, err := os.ReadFile(m.dirs.ConfigDir("config.yaml"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func (m *Manager) applyEnvironment(cfg *Config) {
	if v := os.Getenv("AIDE_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("AIDE_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("AIDE_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("AIDE_CHAT_MODEL"); v != "" {
		cfg.LLM.ChatModel = v
	}
	if v := os.Getenv("AIDE_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("AIDE_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = d
		}
	}
	if v := os.Getenv("AIDE_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Agent.MaxIterations = n
		}
	}
}

// Validate checks the fields every model invocation depends on. Missing
// credentials are a configuration error surfaced verbatim, never a fallback.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (set AIDE_API_KEY or run aide setup)")
	}
	if c.LLM.ChatModel == "" {
		return fmt.Errorf("llm.chat_model is required")
	}
	return nil
}

// Save writes the configuration back to the user config file.
func (m *Manager) Save(cfg *Config) error {
	if err := storage.EnsureDir(m.dirs.Config, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(m.dirs.ConfigDir("config.yaml"), data, 0600); err != nil {
		return err
	}

	m.current.Store(cfg)
	m.notifyWatchers(cfg)
	return nil
}

// OnChange registers a callback invoked after each successful Load or Save.
func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}
