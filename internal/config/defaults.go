package config

import (
	"strings"
)

const (
	DefaultNotionBaseURL  = "https://api.notion.com"
	DefaultNotionVersion  = "2022-06-28"
	DefaultRateLimit      = 3.0
	DefaultTemplateBranch = "complex-version"
	DefaultTimezone       = "Europe/Paris"
)

// DefaultRequiredFields are the header keys every document must carry.
func DefaultRequiredFields() []string {
	return []string{"client", "titre", "phase_id", "phase_nom"}
}

// DefaultForbiddenFields are personal identifying keys rejected in headers.
func DefaultForbiddenFields() []string {
	return []string{"email", "name"}
}

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config)
	Domain() string
}

// ApplyDefaults runs every domain applier in order.
func ApplyDefaults(cfg *Config) {
	for _, applier := range defaultAppliers() {
		applier.ApplyDefaults(cfg)
	}
}

func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		&NotionDefaultApplier{},
		&TemplateDefaultApplier{},
		&ToolchainDefaultApplier{},
		&SchemaDefaultApplier{},
		&OutputDefaultApplier{},
		&JobDefaultApplier{},
		&HistoryDefaultApplier{},
		&EventsDefaultApplier{},
		&ObservabilityDefaultApplier{},
	}
}

// NotionDefaultApplier handles knowledge-base client defaults.
type NotionDefaultApplier struct{}

func (n *NotionDefaultApplier) Domain() string { return "notion" }

func (n *NotionDefaultApplier) ApplyDefaults(cfg *Config) {
	nc := &cfg.Notion
	if nc.BaseURL == "" {
		nc.BaseURL = DefaultNotionBaseURL
	}
	nc.BaseURL = strings.TrimRight(nc.BaseURL, "/")
	if nc.APIVersion == "" {
		nc.APIVersion = DefaultNotionVersion
	}
	if nc.RateLimit <= 0 {
		nc.RateLimit = DefaultRateLimit
	}
	if nc.Timeout == "" {
		nc.Timeout = "30s"
	}
	if mode := NormalizeRetryBackoff(string(nc.Retry.Backoff)); mode != "" {
		nc.Retry.Backoff = mode
	} else {
		nc.Retry.Backoff = RetryBackoffExponential
	}
	if nc.Retry.InitialDelay == "" {
		nc.Retry.InitialDelay = "1s"
	}
	if nc.Retry.MaxDelay == "" {
		nc.Retry.MaxDelay = "30s"
	}
	if nc.Retry.MaxRetries < 0 {
		nc.Retry.MaxRetries = 0
	}
	if nc.Retry.MaxRetries == 0 {
		nc.Retry.MaxRetries = 3
	}
}

// TemplateDefaultApplier handles template checkout defaults.
type TemplateDefaultApplier struct{}

func (t *TemplateDefaultApplier) Domain() string { return "template" }

func (t *TemplateDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Template.Branch == "" {
		cfg.Template.Branch = DefaultTemplateBranch
	}
	if cfg.Template.Directory == "" {
		cfg.Template.Directory = "./doc_latex-template"
	}
	if cfg.Template.SourceDir == "" {
		cfg.Template.SourceDir = "src"
	}
	if cfg.Template.File == "" {
		cfg.Template.File = "template.tex"
	}
}

// ToolchainDefaultApplier handles binary name defaults.
type ToolchainDefaultApplier struct{}

func (t *ToolchainDefaultApplier) Domain() string { return "toolchain" }

func (t *ToolchainDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Toolchain.Pandoc == "" {
		cfg.Toolchain.Pandoc = "pandoc"
	}
	if cfg.Toolchain.Xelatex == "" {
		cfg.Toolchain.Xelatex = "xelatex"
	}
	if cfg.Toolchain.Timeout == "" {
		cfg.Toolchain.Timeout = "5m"
	}
}

// SchemaDefaultApplier fills the metadata rules when the file omits them.
type SchemaDefaultApplier struct{}

func (s *SchemaDefaultApplier) Domain() string { return "schema" }

func (s *SchemaDefaultApplier) ApplyDefaults(cfg *Config) {
	if len(cfg.Schema.Required) == 0 {
		cfg.Schema.Required = DefaultRequiredFields()
	}
	if cfg.Schema.Forbidden == nil {
		cfg.Schema.Forbidden = DefaultForbiddenFields()
	}
}

// OutputDefaultApplier handles Output configuration defaults.
type OutputDefaultApplier struct{}

func (o *OutputDefaultApplier) Domain() string { return "output" }

func (o *OutputDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "./out"
	}
	if cfg.Output.Timezone == "" {
		cfg.Output.Timezone = DefaultTimezone
	}
}

// JobDefaultApplier handles run defaults.
type JobDefaultApplier struct{}

func (j *JobDefaultApplier) Domain() string { return "job" }

func (j *JobDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Job.Workers <= 0 {
		cfg.Job.Workers = 1
	}
}

// HistoryDefaultApplier handles job history defaults.
type HistoryDefaultApplier struct{}

func (h *HistoryDefaultApplier) Domain() string { return "history" }

func (h *HistoryDefaultApplier) ApplyDefaults(cfg *Config) {
	cfg.History.Backend = NormalizeHistoryBackend(string(cfg.History.Backend))
	switch cfg.History.Backend {
	case HistorySQLite:
		if cfg.History.Path == "" {
			cfg.History.Path = "./texsync-history.db"
		}
	case HistoryFirestore:
		if cfg.History.Collection == "" {
			cfg.History.Collection = "texsync_jobs"
		}
	}
}

// EventsDefaultApplier handles NATS defaults.
type EventsDefaultApplier struct{}

func (e *EventsDefaultApplier) Domain() string { return "events" }

func (e *EventsDefaultApplier) ApplyDefaults(cfg *Config) {
	if !cfg.Events.Enabled {
		return
	}
	if cfg.Events.URL == "" {
		cfg.Events.URL = "nats://127.0.0.1:4222"
	}
	if cfg.Events.Subject == "" {
		cfg.Events.Subject = "texsync.events"
	}
}

// ObservabilityDefaultApplier handles metrics, daemon and logging defaults.
type ObservabilityDefaultApplier struct{}

func (o *ObservabilityDefaultApplier) Domain() string { return "observability" }

func (o *ObservabilityDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Daemon.Interval == "" {
		cfg.Daemon.Interval = "1h"
	}
	if cfg.Daemon.HTTPAddr == "" {
		cfg.Daemon.HTTPAddr = ":9090"
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
}
