package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/rubiojr/cvsearch/pkg/analysis"
	"github.com/rubiojr/cvsearch/pkg/history"
	"github.com/rubiojr/cvsearch/pkg/rank"
	"github.com/rubiojr/cvsearch/pkg/search"
)

//go:embed config.toml.sample
var configTemplate string

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	StorageDir string          `toml:"storage_dir"`
	Database   string          `toml:"database,omitempty"`
	Search     SearchConfig    `toml:"search"`
	Analytics  AnalyticsConfig `toml:"analytics"`
	Server     ServerConfig    `toml:"server"`
}

// SearchConfig holds the engine tunables. It can be reloaded while serving.
type SearchConfig struct {
	MaxQueryLength int      `toml:"max_query_length"`
	MinTermLength  int      `toml:"min_term_length"`
	StopWords      []string `toml:"stop_words,omitempty"`

	BaseTermWeight   float64 `toml:"base_term_weight"`
	PhraseMultiplier float64 `toml:"phrase_multiplier"`
	ExclusionPenalty float64 `toml:"exclusion_penalty"`
	DampingConstant  float64 `toml:"damping_constant"`

	MergeDistance int `toml:"merge_distance"`
	MaxHighlights int `toml:"max_highlights"`

	DefaultLimit int `toml:"default_limit"`
	MaxLimit     int `toml:"max_limit"`
	QuickLimit   int `toml:"quick_limit"`

	DefaultHighlightLength int `toml:"default_highlight_length"`
	MinHighlightLength     int `toml:"min_highlight_length"`
	MaxHighlightLength     int `toml:"max_highlight_length"`

	SuggestionLimit int `toml:"suggestion_limit"`

	// Workers sizes the scoring pool; 0 disables parallel scoring.
	Workers           int `toml:"workers"`
	ParallelThreshold int `toml:"parallel_threshold"`
}

type AnalyticsConfig struct {
	TrendDays    int `toml:"trend_days"`
	PopularLimit int `toml:"popular_limit"`
	HistoryLimit int `toml:"history_limit"`
}

type ServerConfig struct {
	Address         string   `toml:"address"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`

	// OptimizeInterval schedules database maintenance while serving; zero
	// disables it.
	OptimizeInterval Duration `toml:"optimize_interval"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// DefaultSearchConfig mirrors search.DefaultOptions.
func DefaultSearchConfig() SearchConfig {
	o := search.DefaultOptions()
	return SearchConfig{
		MaxQueryLength:         o.MaxQueryLength,
		MinTermLength:          analysis.DefaultMinTermLength,
		BaseTermWeight:         o.Weights.BaseTermWeight,
		PhraseMultiplier:       o.Weights.PhraseMultiplier,
		ExclusionPenalty:       o.Weights.ExclusionPenalty,
		DampingConstant:        o.Weights.DampingConstant,
		MergeDistance:          o.Highlight.MergeDistance,
		MaxHighlights:          o.Highlight.MaxHighlights,
		DefaultLimit:           o.DefaultLimit,
		MaxLimit:               o.MaxLimit,
		QuickLimit:             o.QuickLimit,
		DefaultHighlightLength: o.DefaultHighlightLength,
		MinHighlightLength:     o.MinHighlightLength,
		MaxHighlightLength:     o.MaxHighlightLength,
		SuggestionLimit:        o.SuggestionLimit,
		Workers:                4,
		ParallelThreshold:      o.ParallelThreshold,
	}
}

func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	cfg := defaults()
	cfg.StorageDir = storageDir
	return cfg, nil
}

func defaults() *Config {
	h := history.DefaultOptions()
	return &Config{
		Search: DefaultSearchConfig(),
		Analytics: AnalyticsConfig{
			TrendDays:    h.TrendDays,
			PopularLimit: h.PopularLimit,
			HistoryLimit: h.HistoryLimit,
		},
		Server: ServerConfig{
			Address:          "localhost:8080",
			ReadTimeout:      Duration{15 * time.Second},
			WriteTimeout:     Duration{30 * time.Second},
			ShutdownTimeout:  Duration{10 * time.Second},
			OptimizeInterval: Duration{time.Hour},
		},
	}
}

// LoadConfig reads configPath over the defaults. A missing file yields the
// defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := defaults()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		config.StorageDir = storageDir
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that the tunables are consistent.
func (c *Config) Validate() error {
	s := c.Search
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(s.MaxQueryLength > 0, "search.max_query_length must be positive")
	check(s.MinTermLength > 0, "search.min_term_length must be positive")
	check(s.BaseTermWeight > 0, "search.base_term_weight must be positive")
	check(s.PhraseMultiplier >= 1, "search.phrase_multiplier must be at least 1")
	check(s.ExclusionPenalty >= 0 && s.ExclusionPenalty <= 1, "search.exclusion_penalty must be within [0, 1]")
	check(s.DampingConstant > 0, "search.damping_constant must be positive")
	check(s.MergeDistance >= 0, "search.merge_distance must not be negative")
	check(s.MaxHighlights > 0, "search.max_highlights must be positive")
	check(s.MaxLimit > 0, "search.max_limit must be positive")
	check(s.DefaultLimit > 0 && s.DefaultLimit <= s.MaxLimit, "search.default_limit must be within [1, max_limit]")
	check(s.QuickLimit > 0 && s.QuickLimit <= s.MaxLimit, "search.quick_limit must be within [1, max_limit]")
	check(s.MinHighlightLength > 0 && s.MinHighlightLength <= s.MaxHighlightLength,
		"search.min_highlight_length must be within [1, max_highlight_length]")
	check(s.DefaultHighlightLength >= s.MinHighlightLength && s.DefaultHighlightLength <= s.MaxHighlightLength,
		"search.default_highlight_length must be within [min_highlight_length, max_highlight_length]")
	check(s.SuggestionLimit >= 0, "search.suggestion_limit must not be negative")
	check(s.Workers >= 0, "search.workers must not be negative")
	check(s.ParallelThreshold >= 0, "search.parallel_threshold must not be negative")
	check(c.Analytics.TrendDays >= 0, "analytics.trend_days must not be negative")
	check(c.Analytics.PopularLimit >= 0, "analytics.popular_limit must not be negative")
	check(c.Analytics.HistoryLimit > 0, "analytics.history_limit must be positive")
	check(c.Server.OptimizeInterval.Duration >= 0, "server.optimize_interval must not be negative")

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// SearchOptions converts the [search] section into engine options.
func (c *Config) SearchOptions() search.Options {
	s := c.Search
	stopWords := s.StopWords
	if stopWords == nil {
		stopWords = analysis.DefaultStopWords
	}

	return search.Options{
		MaxQueryLength: s.MaxQueryLength,
		Analyzer:       analysis.New(stopWords, s.MinTermLength),
		Weights: rank.Weights{
			BaseTermWeight:   s.BaseTermWeight,
			PhraseMultiplier: s.PhraseMultiplier,
			ExclusionPenalty: s.ExclusionPenalty,
			DampingConstant:  s.DampingConstant,
		},
		Highlight: rank.HighlightOptions{
			MergeDistance: s.MergeDistance,
			MaxHighlights: s.MaxHighlights,
		},
		DefaultLimit:           s.DefaultLimit,
		MaxLimit:               s.MaxLimit,
		QuickLimit:             s.QuickLimit,
		DefaultHighlightLength: s.DefaultHighlightLength,
		MinHighlightLength:     s.MinHighlightLength,
		MaxHighlightLength:     s.MaxHighlightLength,
		SuggestionLimit:        s.SuggestionLimit,
		ParallelThreshold:      s.ParallelThreshold,
	}
}

// HistoryOptions converts the [analytics] section.
func (c *Config) HistoryOptions() history.Options {
	return history.Options{
		TrendDays:    c.Analytics.TrendDays,
		PopularLimit: c.Analytics.PopularLimit,
		HistoryLimit: c.Analytics.HistoryLimit,
	}
}

// DBPath returns the database file, defaulting to cvsearch.db in StorageDir.
func (c *Config) DBPath() string {
	if c.Database != "" {
		return c.Database
	}
	return filepath.Join(c.StorageDir, "cvsearch.db")
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := c.generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0644)
}

func (c *Config) generateConfigTemplate() (string, error) {
	storageDir := c.StorageDir
	if storageDir == "" {
		var err error
		storageDir, err = GetDefaultStorageDir()
		if err != nil {
			return "", fmt.Errorf("getting default storage directory: %w", err)
		}
	}

	// Replace the placeholder storage_dir with the actual path
	template := strings.Replace(configTemplate, "/home/user/.local/share/cvsearch", storageDir, 1)
	return template, nil
}

// GetDefaultStorageDir returns the default storage directory for databases
func GetDefaultStorageDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, "cvsearch")

	// Create the directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetConfigDir returns the configuration directory for cvsearch
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "cvsearch")

	// Create the directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
