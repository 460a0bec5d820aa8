package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AudioConfig holds capture settings requested from the media runtime.
type AudioConfig struct {
	SampleRate int `json:"sample_rate,omitempty"`
	Channels   int `json:"channels,omitempty"`
}

// Config holds application configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// OpenAIAPIKey authenticates chat and embedding calls.
	// Usually supplied through MURMUR_OPENAI_API_KEY or OPENAI_API_KEY instead of the file.
	OpenAIAPIKey string `json:"openai_api_key,omitempty"`

	// OpenAIBaseURL points the client at a compatible endpoint. Empty uses the provider default.
	OpenAIBaseURL string `json:"openai_base_url,omitempty"`

	ChatModel           string `json:"chat_model,omitempty"`
	EmbeddingModel      string `json:"embedding_model,omitempty"`
	EmbeddingDimensions int    `json:"embedding_dimensions,omitempty"`

	// Batch sizes and pacing for embedding generation and vector upserts.
	EmbedBatchSize     int `json:"embed_batch_size,omitempty"`
	EmbedBatchDelayMs  int `json:"embed_batch_delay_ms,omitempty"`
	UpsertBatchSize    int `json:"upsert_batch_size,omitempty"`
	UpsertBatchDelayMs int `json:"upsert_batch_delay_ms,omitempty"`

	// TopK is the default number of snippets retrieved per query.
	TopK int `json:"top_k,omitempty"`

	// HistoryWindow is the number of prior chat turns sent with each query.
	HistoryWindow int `json:"history_window,omitempty"`

	Audio AudioConfig `json:"audio,omitempty"`

	// RedisAddr enables the embedding query cache when non-empty.
	RedisAddr string `json:"redis_addr,omitempty"`

	// EmbeddingCacheTTLSeconds bounds how long cached query embeddings live.
	EmbeddingCacheTTLSeconds int `json:"embedding_cache_ttl_s,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:                 "info",
		ChatModel:                "gpt-3.5-turbo",
		EmbeddingModel:           "text-embedding-3-small",
		EmbeddingDimensions:      768,
		EmbedBatchSize:           10,
		EmbedBatchDelayMs:        1000,
		UpsertBatchSize:          100,
		UpsertBatchDelayMs:       500,
		TopK:                     5,
		HistoryWindow:            10,
		Audio:                    AudioConfig{SampleRate: 44100, Channels: 1},
		EmbeddingCacheTTLSeconds: 86400,
	}
}

// Load loads configuration from baseDir/config.json and applies environment overrides.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg, os.Getenv)
	return cfg, nil
}

// LoadWithRepo loads configuration from both global (~/.murmur) and repo (.murmur) directories.
// Repo config is found by walking upward from startDir.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	ApplyEnv(cfg, os.Getenv)
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .murmur/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".murmur", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv overlays secrets and endpoints from the environment.
// getenv is injected so tests don't touch the process environment.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("MURMUR_OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	} else if cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = getenv("OPENAI_API_KEY")
	}
	if v := getenv("MURMUR_OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := getenv("MURMUR_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	positive := []struct {
		name string
		val  int
	}{
		{"embedding_dimensions", c.EmbeddingDimensions},
		{"embed_batch_size", c.EmbedBatchSize},
		{"upsert_batch_size", c.UpsertBatchSize},
		{"top_k", c.TopK},
		{"history_window", c.HistoryWindow},
		{"audio.sample_rate", c.Audio.SampleRate},
		{"audio.channels", c.Audio.Channels},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.val)
		}
	}
	if c.EmbedBatchDelayMs < 0 {
		return fmt.Errorf("embed_batch_delay_ms must not be negative, got %d", c.EmbedBatchDelayMs)
	}
	if c.UpsertBatchDelayMs < 0 {
		return fmt.Errorf("upsert_batch_delay_ms must not be negative, got %d", c.UpsertBatchDelayMs)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	return &Config{
		LogLevel:            pickString(overlay.LogLevel, base.LogLevel),
		OpenAIAPIKey:        pickString(overlay.OpenAIAPIKey, base.OpenAIAPIKey),
		OpenAIBaseURL:       pickString(overlay.OpenAIBaseURL, base.OpenAIBaseURL),
		ChatModel:           pickString(overlay.ChatModel, base.ChatModel),
		EmbeddingModel:      pickString(overlay.EmbeddingModel, base.EmbeddingModel),
		EmbeddingDimensions: pickInt(overlay.EmbeddingDimensions, base.EmbeddingDimensions),
		EmbedBatchSize:      pickInt(overlay.EmbedBatchSize, base.EmbedBatchSize),
		EmbedBatchDelayMs:   pickInt(overlay.EmbedBatchDelayMs, base.EmbedBatchDelayMs),
		UpsertBatchSize:     pickInt(overlay.UpsertBatchSize, base.UpsertBatchSize),
		UpsertBatchDelayMs:  pickInt(overlay.UpsertBatchDelayMs, base.UpsertBatchDelayMs),
		TopK:                pickInt(overlay.TopK, base.TopK),
		HistoryWindow:       pickInt(overlay.HistoryWindow, base.HistoryWindow),
		Audio: AudioConfig{
			SampleRate: pickInt(overlay.Audio.SampleRate, base.Audio.SampleRate),
			Channels:   pickInt(overlay.Audio.Channels, base.Audio.Channels),
		},
		RedisAddr:                pickString(overlay.RedisAddr, base.RedisAddr),
		EmbeddingCacheTTLSeconds: pickInt(overlay.EmbeddingCacheTTLSeconds, base.EmbeddingCacheTTLSeconds),
		DBMaxOpenConns:           pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:           pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		DisabledTools:            mergeStringSlice(base.DisabledTools, overlay.DisabledTools),
	}
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
