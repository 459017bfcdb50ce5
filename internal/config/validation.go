package config

import (
	"fmt"
	"slices"
	"time"

	"git.home.luguber.info/inful/texsync/internal/errors"
)

// Validate checks a defaulted configuration. The first violation is returned as a config error.
func Validate(cfg *Config) error {
	validator := newConfigurationValidator(cfg)
	return validator.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	checks := []func() error{
		cv.validateNotion,
		cv.validateSchema,
		cv.validateDurations,
		cv.validateOutput,
		cv.validateHistory,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (cv *configurationValidator) validateNotion() error {
	if cv.config.Notion.Token == "" {
		return errors.ConfigError("notion.token is required").WithContext("field", "notion.token").Build()
	}
	if cv.config.Notion.RootPageID == "" {
		return errors.ConfigError("notion.root_page_id is required").WithContext("field", "notion.root_page_id").Build()
	}
	return nil
}

func (cv *configurationValidator) validateSchema() error {
	for _, key := range cv.config.Schema.Forbidden {
		if slices.Contains(cv.config.Schema.Required, key) {
			return errors.ConfigError(fmt.Sprintf("schema field %q is both required and forbidden", key)).Build()
		}
	}
	return nil
}

func (cv *configurationValidator) validateDurations() error {
	fields := map[string]string{
		"notion.timeout":             cv.config.Notion.Timeout,
		"notion.retry.initial_delay": cv.config.Notion.Retry.InitialDelay,
		"notion.retry.max_delay":     cv.config.Notion.Retry.MaxDelay,
		"toolchain.timeout":          cv.config.Toolchain.Timeout,
		"daemon.interval":            cv.config.Daemon.Interval,
	}
	for name, raw := range fields {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return errors.WrapError(err, errors.CategoryConfig, fmt.Sprintf("invalid duration for %s", name)).
				Fatal().
				WithContext("field", name).
				Build()
		}
		if d <= 0 {
			return errors.ConfigError(fmt.Sprintf("%s must be positive", name)).WithContext("field", name).Build()
		}
	}
	return nil
}

func (cv *configurationValidator) validateOutput() error {
	if _, err := time.LoadLocation(cv.config.Output.Timezone); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid output.timezone").Fatal().Build()
	}
	return nil
}

func (cv *configurationValidator) validateHistory() error {
	if cv.config.History.Backend == HistoryFirestore && cv.config.History.ProjectID == "" {
		return errors.ConfigError("history.project_id is required for the firestore backend").Build()
	}
	return nil
}

// Duration parses a validated duration field, falling back when empty or malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
