package app_setting

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// PulseFeedAppSetting is the client-side runtime configuration, parsed from a
// YAML file. Fields left out of the file keep the defaults below.
type PulseFeedAppSetting struct {
	// Base URL of the PulseFeed backend, e.g. "http://localhost:8080".
	API_BASE_URL string `yaml:"API_BASE_URL"`
	// Path to the SQLite file backing the local entity cache.
	CACHE_DB_PATH string `yaml:"CACHE_DB_PATH"`
	// Path to the SQLite file backing the session preference store.
	PREFERENCES_DB_PATH string `yaml:"PREFERENCES_DB_PATH"`
	// HTTP timeout in seconds for API calls.
	HTTP_TIMEOUT_SECOND int64 `yaml:"HTTP_TIMEOUT_SECOND"`
	// Disable the synthetic-data generator; offline calls then fail outright.
	DISABLE_OFFLINE_FALLBACK bool `yaml:"DISABLE_OFFLINE_FALLBACK"`
}

// DefaultAppSetting is the zero-config development setup.
func DefaultAppSetting() PulseFeedAppSetting {
	return PulseFeedAppSetting{
		API_BASE_URL:        "http://localhost:8080",
		CACHE_DB_PATH:       "pulsefeed_cache.db",
		PREFERENCES_DB_PATH: "pulsefeed_prefs.db",
		HTTP_TIMEOUT_SECOND: 15,
	}
}

// ParsePulseFeedAppSetting reads path and overlays it on the defaults.
func ParsePulseFeedAppSetting(path string) (PulseFeedAppSetting, error) {
	c := DefaultAppSetting()
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(yamlFile, &c); err != nil {
		return c, err
	}
	return c, nil
}

func (c PulseFeedAppSetting) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP_TIMEOUT_SECOND) * time.Second
}
