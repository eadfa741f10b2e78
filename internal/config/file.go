package config

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with pointer fields so that absent keys leave
// the corresponding setting untouched.
type fileConfig struct {
	Name      *string `yaml:"name"`
	Port      *string `yaml:"port"`
	DebugMode *bool   `yaml:"debug"`

	StorageMode     *string `yaml:"storage_mode"`
	DataPath        *string `yaml:"data_path"`
	DBConnectionURL *string `yaml:"db_connection_url"`

	Auth *struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"auth"`

	RateLimit *struct {
		Enabled       *bool `yaml:"enabled"`
		Requests      *int  `yaml:"requests"`
		PeriodSeconds *int  `yaml:"period_seconds"`
		IdleWindows   *int  `yaml:"idle_windows"`
	} `yaml:"rate_limit"`

	Webhooks *struct {
		Enabled        *bool `yaml:"enabled"`
		TimeoutSeconds *int  `yaml:"timeout_seconds"`
		MaxRetries     *int  `yaml:"max_retries"`
		MaxConcurrent  *int  `yaml:"max_concurrent"`
		QueueSize      *int  `yaml:"queue_size"`
	} `yaml:"webhooks"`

	Cache *struct {
		Enabled    *bool   `yaml:"enabled"`
		RedisURL   *string `yaml:"redis_url"`
		TTLSeconds *int    `yaml:"ttl_seconds"`
	} `yaml:"cache"`

	Export *struct {
		Enabled    *bool `yaml:"enabled"`
		MaxRecords *int  `yaml:"max_records"`
	} `yaml:"export"`

	Voice *struct {
		Enabled          *bool `yaml:"enabled"`
		SummaryThreshold *int  `yaml:"summary_threshold"`
		MaxResults       *int  `yaml:"max_results"`
	} `yaml:"voice"`
}

// ApplyFile overlays settings from a YAML file onto the config. Keys absent
// from the file keep their current (env/flag/default) values.
func (c *Config) ApplyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	setString(&c.Name, fc.Name)
	setString(&c.Port, fc.Port)
	setBool(&c.DebugMode, fc.DebugMode)
	setString(&c.StorageMode, fc.StorageMode)
	setString(&c.DataPath, fc.DataPath)
	setString(&c.DBConnectionURL, fc.DBConnectionURL)

	if fc.Auth != nil {
		setBool(&c.Auth.Enabled, fc.Auth.Enabled)
	}
	if fc.RateLimit != nil {
		setBool(&c.RateLimit.Enabled, fc.RateLimit.Enabled)
		setInt(&c.RateLimit.Requests, fc.RateLimit.Requests)
		setInt(&c.RateLimit.PeriodSeconds, fc.RateLimit.PeriodSeconds)
		setInt(&c.RateLimit.IdleWindows, fc.RateLimit.IdleWindows)
	}
	if fc.Webhooks != nil {
		setBool(&c.Webhooks.Enabled, fc.Webhooks.Enabled)
		setInt(&c.Webhooks.TimeoutSeconds, fc.Webhooks.TimeoutSeconds)
		setInt(&c.Webhooks.MaxRetries, fc.Webhooks.MaxRetries)
		setInt(&c.Webhooks.MaxConcurrent, fc.Webhooks.MaxConcurrent)
		setInt(&c.Webhooks.QueueSize, fc.Webhooks.QueueSize)
	}
	if fc.Cache != nil {
		setBool(&c.Cache.Enabled, fc.Cache.Enabled)
		setString(&c.Cache.RedisURL, fc.Cache.RedisURL)
		setInt(&c.Cache.TTLSeconds, fc.Cache.TTLSeconds)
	}
	if fc.Export != nil {
		setBool(&c.Export.Enabled, fc.Export.Enabled)
		setInt(&c.Export.MaxRecords, fc.Export.MaxRecords)
	}
	if fc.Voice != nil {
		setBool(&c.Voice.Enabled, fc.Voice.Enabled)
		setInt(&c.Voice.SummaryThreshold, fc.Voice.SummaryThreshold)
		setInt(&c.Voice.MaxResults, fc.Voice.MaxResults)
	}

	return nil
}

// Finalize applies the optional config file and then restores any values set
// explicitly on the command line, so precedence is flags > file > env >
// defaults. Call after fs has been parsed.
func (c *Config) Finalize(fs *flag.FlagSet) error {
	if c.ConfigFile != "" {
		explicit := map[string]string{}
		fs.Visit(func(f *flag.Flag) { explicit[f.Name] = f.Value.String() })

		if err := c.ApplyFile(c.ConfigFile); err != nil {
			return err
		}

		for name, value := range explicit {
			if err := fs.Set(name, value); err != nil {
				return err
			}
		}
	}

	return c.TLS.Validate()
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
