package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// BaseURL is the conference site root, without a trailing slash.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Year is the conference edition, used both for schedule URLs and for
	// resolving day labels that omit the year (e.g. "February 25").
	Year int `yaml:"year" json:"year"`

	// Language is the site language segment used in schedule URLs.
	Language string `yaml:"language" json:"language"`

	// StartDate is the first conference day as "2006-01-02", used to resolve
	// grid day headings that carry only a weekday name ("Wednesday").
	StartDate string `yaml:"start_date" json:"start_date"`

	// Timezone is the IANA timezone the schedule is published in
	// (e.g. "America/Montreal"). Session timestamps are built in this zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// DataDir holds the snapshot database, the personal calendar document,
	// the rating file and the sync lock.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// ExportFile is the well-known path the iCalendar export is written to.
	// Overwritten on every export.
	ExportFile string `yaml:"export_file" json:"export_file"`

	// Workers bounds parallelism for per-item fetches in the detail and
	// speaker phases.
	Workers int `yaml:"workers" json:"workers"`

	// RetryMax bounds per-item retry attempts after the first try.
	RetryMax int `yaml:"retry_max" json:"retry_max"`

	// PolitenessMS is the delay in milliseconds between item fetches on the
	// same worker.
	PolitenessMS int `yaml:"politeness_ms" json:"politeness_ms"`

	// SessionMinutes is the fallback session duration when the grid omits an
	// end time.
	SessionMinutes int `yaml:"session_minutes" json:"session_minutes"`

	// RefreshCron is a cron-style schedule (e.g. "0 6 * * *") used by
	// `sync --watch` for periodic re-sync. Ignored otherwise.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// UserAgent identifies the scraper to the conference site.
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		BaseURL:        "https://confoo.ca",
		Year:           2026,
		Language:       "en",
		StartDate:      "2026-02-23",
		Timezone:       "America/Montreal",
		DataDir:        filepath.Join(home, ".local", "share", "confplan"),
		ExportFile:     filepath.Join(home, "Downloads", "confplan.ics"),
		Workers:        4,
		RetryMax:       3,
		PolitenessMS:   500,
		SessionMinutes: 45,
		RefreshCron:    "0 6 * * *",
		UserAgent:      "confplan/0.1 (personal schedule tool)",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.Year <= 0 {
		c.Year = def.Year
	}
	if c.Language == "" {
		c.Language = def.Language
	}
	if c.StartDate == "" {
		c.StartDate = def.StartDate
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.ExportFile == "" {
		c.ExportFile = def.ExportFile
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.RetryMax < 0 {
		c.RetryMax = def.RetryMax
	}
	if c.PolitenessMS < 0 {
		c.PolitenessMS = def.PolitenessMS
	}
	if c.SessionMinutes <= 0 {
		c.SessionMinutes = def.SessionMinutes
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
}

// ScheduleURL returns the schedule grid page URL.
func (c *Config) ScheduleURL() string {
	return c.BaseURL + "/" + c.Language + "/" + strconv.Itoa(c.Year) + "/schedule"
}

// SessionURL returns the detail page URL for a session ID.
func (c *Config) SessionURL(id string) string {
	return c.BaseURL + "/" + c.Language + "/" + strconv.Itoa(c.Year) + "/session/" + id
}

// SpeakerURL returns the profile page URL for a speaker slug.
func (c *Config) SpeakerURL(slug string) string {
	return c.BaseURL + "/" + c.Language + "/speaker/" + slug
}

// DBPath returns the live snapshot database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "schedule.db")
}

// SelectionPath returns the personal calendar document location.
func (c *Config) SelectionPath() string {
	return filepath.Join(c.DataDir, "my_calendar.json")
}

// RatingsPath returns the user rating file location.
func (c *Config) RatingsPath() string {
	return filepath.Join(c.DataDir, "speaker_ratings.json")
}

// LockPath returns the sync mutual-exclusion lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "sync.lock")
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create parent directory, write a default
//     config with 0600 perms, and return the defaults.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration to path atomically (temp file + rename)
// with 0600 permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".confplan-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
