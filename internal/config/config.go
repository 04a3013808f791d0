// Package config loads the einkframe YAML configuration.
//
// The weekly schedule itself lives in a separate plain-text file (see
// internal/schedule); this package covers everything else: intervals, paths,
// logging, the display driver, the fallback pool and action settings.
//
// All durations are Go duration strings (e.g. "30s", "10m").
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

type Config struct {
	// ScheduleFile is the line-oriented weekly schedule definition.
	ScheduleFile string `yaml:"schedule_file"`

	// CheckInterval is the engine tick period.
	CheckInterval string `yaml:"check_interval"`
	// RandomInterval is how often the display refreshes outside scheduled
	// windows.
	RandomInterval string `yaml:"random_interval"`
	// Timezone is the IANA zone schedules are evaluated in; empty = local.
	Timezone string `yaml:"timezone"`

	// FiguresDir is where actions write their rendered images.
	FiguresDir string `yaml:"figures_dir"`

	Logging  LoggingConfig  `yaml:"logging"`
	Telegram TelegramConfig `yaml:"telegram"`
	Display  DisplayConfig  `yaml:"display"`
	Storage  StorageConfig  `yaml:"storage"`

	// Fallback is the weighted random rotation used outside scheduled
	// windows. Weight N puts N copies of the action in the draw pool.
	Fallback []FallbackEntry `yaml:"fallback"`

	Actions     ActionsConfig     `yaml:"actions"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
	File    struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"file"`
	Alert struct {
		Enabled    bool   `yaml:"enabled"`
		MinLevel   string `yaml:"min_level"`
		RatePerSec int    `yaml:"rate_per_sec"`
	} `yaml:"alert"`
}

type TelegramConfig struct {
	// Token may be left empty and supplied via TELEGRAM_BOT_TOKEN instead.
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type DisplayConfig struct {
	UpdateCommand  []string `yaml:"update_command"`
	ClearCommand   []string `yaml:"clear_command"`
	StagingPath    string   `yaml:"staging_path"`
	CommandTimeout string   `yaml:"command_timeout"`
	MinRefresh     string   `yaml:"min_refresh"`
	TestMode       bool     `yaml:"test_mode"`
}

type StorageConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	BusyTimeout string `yaml:"busy_timeout"`
	Retention   string `yaml:"retention"`
}

type FallbackEntry struct {
	Action string `yaml:"action"`
	Weight int    `yaml:"weight"`
}

type ActionsConfig struct {
	Bucket    BucketConfig    `yaml:"bucket"`
	Gallery   GalleryConfig   `yaml:"gallery"`
	Todo      TodoConfig      `yaml:"todo"`
	Standings StandingsConfig `yaml:"standings"`
}

// BucketConfig points at the S3-compatible bucket holding pictures and lists.
// Credentials may come from EINKFRAME_S3_ACCESS_KEY / EINKFRAME_S3_SECRET_KEY
// instead of the file.
type BucketConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type GalleryConfig struct {
	// Prefix is the object prefix listing the picture pool.
	Prefix string `yaml:"prefix"`
	// CacheDir is the local mirror of the bucket prefix.
	CacheDir string `yaml:"cache_dir"`
}

type TodoConfig struct {
	// Object is the bucket key of the checklist text file.
	Object string `yaml:"object"`
	Title  string `yaml:"title"`
}

type StandingsConfig struct {
	// Highlight is the three-letter team code to emphasize.
	Highlight string `yaml:"highlight"`
}

type MaintenanceConfig struct {
	// CronSpec schedules the nightly cleanup (history prune + stale figures).
	CronSpec string `yaml:"cron_spec"`
	// FigureMaxAge removes rendered figures older than this during cleanup.
	FigureMaxAge string `yaml:"figure_max_age"`
}

// Load reads, strictly decodes and defaults the config. Unknown keys are
// rejected so typos surface at startup instead of silently doing nothing.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ScheduleFile == "" {
		c.ScheduleFile = "./schedule.conf"
	}
	if c.CheckInterval == "" {
		c.CheckInterval = "30s"
	}
	if c.RandomInterval == "" {
		c.RandomInterval = "10m"
	}
	if c.FiguresDir == "" {
		c.FiguresDir = "./figures"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Display.StagingPath == "" {
		c.Display.StagingPath = filepath.Join(c.FiguresDir, "current_image.png")
	}
	if c.Maintenance.CronSpec == "" {
		c.Maintenance.CronSpec = "30 3 * * *"
	}
	if c.Maintenance.FigureMaxAge == "" {
		c.Maintenance.FigureMaxAge = "168h"
	}
	if c.Telegram.Token == "" {
		c.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if c.Actions.Bucket.AccessKey == "" {
		c.Actions.Bucket.AccessKey = os.Getenv("EINKFRAME_S3_ACCESS_KEY")
	}
	if c.Actions.Bucket.SecretKey == "" {
		c.Actions.Bucket.SecretKey = os.Getenv("EINKFRAME_S3_SECRET_KEY")
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.ScheduleFile) == "" {
		return fmt.Errorf("schedule_file is required")
	}
	for i, fb := range c.Fallback {
		if strings.TrimSpace(fb.Action) == "" {
			return fmt.Errorf("fallback[%d]: action is required", i)
		}
		if fb.Weight < 0 {
			return fmt.Errorf("fallback[%d]: weight must be >= 0", i)
		}
	}
	return nil
}
