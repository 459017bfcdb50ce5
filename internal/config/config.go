package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/texsync/internal/errors"
)

// Config is the texsync configuration file format.
type Config struct {
	Version   string          `yaml:"version"`
	Notion    NotionConfig    `yaml:"notion"`
	Template  TemplateConfig  `yaml:"template"`
	Toolchain ToolchainConfig `yaml:"toolchain"`
	Schema    SchemaConfig    `yaml:"schema"`
	Output    OutputConfig    `yaml:"output"`
	Job       JobConfig       `yaml:"job"`
	History   HistoryConfig   `yaml:"history"`
	Events    EventsConfig    `yaml:"events"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// NotionConfig describes how to reach the knowledge base.
type NotionConfig struct {
	Token      string      `yaml:"token"`        // Integration token (bearer)
	RootPageID string      `yaml:"root_page_id"` // Page whose paragraphs mention the documents to build
	BaseURL    string      `yaml:"base_url"`
	APIVersion string      `yaml:"api_version"` // Notion-Version header
	RateLimit  float64     `yaml:"rate_limit"`  // Requests per second
	Timeout    string      `yaml:"timeout"`
	Retry      RetryConfig `yaml:"retry"`
}

// RetryConfig controls backoff for transient API failures.
type RetryConfig struct {
	Backoff      RetryBackoffMode `yaml:"backoff"`
	InitialDelay string           `yaml:"initial_delay"`
	MaxDelay     string           `yaml:"max_delay"`
	MaxRetries   int              `yaml:"max_retries"`
}

// TemplateConfig describes the publication template repository.
type TemplateConfig struct {
	URL       string `yaml:"url"`
	Branch    string `yaml:"branch"`
	Token     string `yaml:"token"`
	Directory string `yaml:"directory"`  // Local checkout directory
	SourceDir string `yaml:"source_dir"` // Subdirectory holding template.tex and resources
	File      string `yaml:"file"`       // Pandoc template file name inside SourceDir
	SkipClone bool   `yaml:"skip_clone"` // Use an existing checkout as-is
}

// ToolchainConfig names the external compilation binaries.
type ToolchainConfig struct {
	Pandoc  string `yaml:"pandoc"`
	Xelatex string `yaml:"xelatex"`
	Timeout string `yaml:"timeout"` // Per-process timeout
}

// SchemaConfig lists the metadata rules applied to every document header.
type SchemaConfig struct {
	Required  []string `yaml:"required"`
	Forbidden []string `yaml:"forbidden"`
}

// OutputConfig controls where artifacts land.
type OutputConfig struct {
	Directory string        `yaml:"directory"`
	Workspace string        `yaml:"workspace"` // Parent for per-job scratch directories; empty uses the OS temp dir
	Timezone  string        `yaml:"timezone"`  // Used for status annotation timestamps
	Verify    bool          `yaml:"verify"`    // Check produced PDFs with pdfcpu
	Publish   PublishConfig `yaml:"publish"`
}

// PublishConfig enables uploading artifacts to a GCS bucket.
type PublishConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// JobConfig tunes a single synchronization run.
type JobConfig struct {
	Workers       int  `yaml:"workers"`
	SkipUnchanged bool `yaml:"skip_unchanged"`
}

// HistoryConfig selects where job reports are persisted.
type HistoryConfig struct {
	Backend    HistoryBackend `yaml:"backend"`
	Path       string         `yaml:"path"`       // sqlite
	ProjectID  string         `yaml:"project_id"` // firestore
	Collection string         `yaml:"collection"` // firestore
}

// EventsConfig configures NATS event publication.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Stream  string `yaml:"stream"` // Empty publishes with core NATS only
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DaemonConfig configures periodic execution.
type DaemonConfig struct {
	Interval    string `yaml:"interval"`
	HTTPAddr    string `yaml:"http_addr"`
	WatchConfig bool   `yaml:"watch_config"`
	RunOnStart  bool   `yaml:"run_on_start"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads, expands, defaults and validates a configuration file.
func Load(configPath string) (*Config, error) {
	if file, err := loadEnvFile(); err == nil {
		slog.Debug("Loaded environment file", "path", file)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").Fatal().Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes raw YAML after expanding ${VAR} references, then applies defaults and validation.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}

	if cfg.Version != "" && cfg.Version != CurrentVersion {
		return nil, errors.ConfigError(fmt.Sprintf("unsupported configuration version: %s (expected %s)", cfg.Version, CurrentVersion)).Build()
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CurrentVersion is the only configuration format version understood by Load.
const CurrentVersion = "1.0"

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	example := Config{
		Version: CurrentVersion,
		Notion: NotionConfig{
			Token:      "${NOTION_TOKEN}",
			RootPageID: "${NOTION_ROOT_PAGE_ID}",
			RateLimit:  DefaultRateLimit,
		},
		Template: TemplateConfig{
			URL:    "https://github.com/catie-aq/doc_latex-template.git",
			Branch: DefaultTemplateBranch,
			Token:  "${GITHUB_TOKEN}",
		},
		Toolchain: ToolchainConfig{Pandoc: "pandoc", Xelatex: "xelatex", Timeout: "5m"},
		Schema: SchemaConfig{
			Required:  DefaultRequiredFields(),
			Forbidden: DefaultForbiddenFields(),
		},
		Output: OutputConfig{
			Directory: "./out",
			Timezone:  "Europe/Paris",
			Verify:    true,
		},
		Job:     JobConfig{Workers: 1},
		History: HistoryConfig{Backend: HistorySQLite, Path: "./texsync-history.db"},
		Daemon: DaemonConfig{
			Interval: "1h",
			HTTPAddr: ":9090",
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal example config").Build()
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
