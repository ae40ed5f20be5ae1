package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Vocab struct {
		CSVPath   string `yaml:"csv_path"`
		ReloadTTL string `yaml:"reload_ttl"`
	} `yaml:"vocab"`
	Game struct {
		BasePoints        int `yaml:"base_points"`
		RoundSeconds      int `yaml:"round_seconds"`
		Level             int `yaml:"level"` // default word-selection level, 0 = all
		RecentWords       int `yaml:"recent_words"`
		RecentLabels      int `yaml:"recent_labels"`
		ReshuffleAttempts int `yaml:"reshuffle_attempts"`
		ComboBonusCap     int `yaml:"combo_bonus_cap"`
	} `yaml:"game"`
	Ranking struct {
		CacheTTL string `yaml:"cache_ttl"`
		TopN     int    `yaml:"top_n"`
	} `yaml:"ranking"`
	Local struct {
		Dir string `yaml:"dir"`
	} `yaml:"local"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
