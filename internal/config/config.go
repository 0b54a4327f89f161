package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"dutycal/internal/model"
)

// GroupConfig is one rotating team and the period it is on duty.
type GroupConfig struct {
	ID   string `yaml:"id" json:"id"`
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
	// Members are listed in the order shown in the member filter.
	Members []string `yaml:"members" json:"members"`
}

// FeedConfig describes a single ICS holiday subscription.
type FeedConfig struct {
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// HolidayConfig selects where public and company holidays come from.
type HolidayConfig struct {
	// Builtin enables a built-in public holiday calendar. Supported values:
	//   - "jp" (default)
	//   - "" (none; rely on ICS feeds)
	Builtin string `yaml:"builtin" json:"builtin"`

	// Company lists organization-specific days off as YYYY-MM-DD.
	Company []string `yaml:"company" json:"company"`

	// ICS feeds are unioned with the built-in calendar.
	ICS []FeedConfig `yaml:"ics" json:"ics"`

	// CacheDir keeps the last good body of each feed.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

// SnapshotConfig enables periodic screenshots of the board page.
type SnapshotConfig struct {
	URL    string `yaml:"url" json:"url"`
	Output string `yaml:"output" json:"output"`
	// Cron is a standard 5-field schedule; empty disables the job but keeps
	// -snapshot usable.
	Cron   string `yaml:"cron" json:"cron"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone whose calendar days decide "today" and
	// business days (e.g. "Asia/Tokyo").
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Rollover is the cron schedule that recaptures "today".
	Rollover string `yaml:"rollover" json:"rollover"`

	// FallbackGroup is selected when no group range contains today.
	// Empty means the first group.
	FallbackGroup string `yaml:"fallback_group" json:"fallback_group"`

	// Groups in enumeration order.
	Groups []GroupConfig `yaml:"groups" json:"groups"`

	Holidays HolidayConfig `yaml:"holidays" json:"holidays"`

	// Locations are the known work-site codes.
	Locations []string `yaml:"locations" json:"locations"`

	// WorkLocations maps a YYYY-MM-DD date to a location code.
	WorkLocations map[string]string `yaml:"work_locations" json:"work_locations"`

	// Templates maps a location code to its task list.
	Templates map[string][]model.Task `yaml:"templates" json:"templates"`

	// Snapshot, if non-nil, configures board screenshots.
	Snapshot *SnapshotConfig `yaml:"snapshot,omitempty" json:"snapshot,omitempty"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen   = "127.0.0.1:8080"
	defaultTimezone = "Asia/Tokyo"
	defaultRollover = "0 0 * * *"
	defaultCacheDir = "./var/holiday-cache"
)

// DefaultConfig returns the configuration of the reference office: four
// groups rotating through spring 2025, Japanese public holidays plus two
// company days off, and templates for three sites.
func DefaultConfig() *Config {
	return &Config{
		Listen:        defaultListen,
		Timezone:      defaultTimezone,
		LogLevel:      "info",
		Rollover:      defaultRollover,
		FallbackGroup: "A",
		Groups: []GroupConfig{
			{ID: "A", From: "2025-04-14", To: "2025-05-14", Members: []string{"Alice", "Bob", "Charlie"}},
			{ID: "B", From: "2025-05-15", To: "2025-06-14", Members: []string{"Dave", "Eve", "Frank"}},
			{ID: "C", From: "2025-06-15", To: "2025-07-14", Members: []string{"Grace", "Heidi", "Ivan"}},
			{ID: "D", From: "2025-07-15", To: "2025-07-31", Members: []string{"Judy", "Ken", "Leo"}},
		},
		Holidays: HolidayConfig{
			Builtin:  "jp",
			Company:  []string{"2025-04-28", "2025-04-30"},
			ICS:      []FeedConfig{},
			CacheDir: defaultCacheDir,
		},
		Locations: []string{"銀座", "新宿", "在宅", "休暇"},
		WorkLocations: map[string]string{
			"2025-05-19": "銀座",
			"2025-05-20": "在宅",
			"2025-05-21": "新宿",
			"2025-05-22": "休暇",
		},
		Templates: map[string][]model.Task{
			"銀座": {
				{ID: 1, Label: "受付カウンター開錠", Members: []string{"Alice"}, Session: model.SessionMorning, Everyday: true},
				{
					ID: 2, Label: "プロジェクター準備", Members: []string{"Bob"}, Session: model.SessionMorning,
					Steps: []string{"スクリーンを下ろす", "電源 ON", "入力を HDMI1 に"}, Everyday: true,
				},
			},
			"新宿": {
				{
					ID: 1, Label: "会議室 A セットアップ", Members: []string{"Charlie"}, Session: model.SessionMorning,
					Steps: []string{"椅子を並べる", "ホワイトボード清掃"}, Everyday: true,
				},
			},
			"在宅": {
				{
					ID: 1, Label: "オンライン朝礼ルーム作成", Members: []string{"Dave"}, Session: model.SessionMorning,
					Steps: []string{"Zoom ルーム作成", "URL を Slack に投稿"}, Everyday: true,
				},
			},
		},
		Snapshot:  nil,
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Rollover == "" {
		c.Rollover = defaultRollover
	}
	if c.Holidays.CacheDir == "" {
		c.Holidays.CacheDir = defaultCacheDir
	}
	if c.Holidays.ICS == nil {
		c.Holidays.ICS = []FeedConfig{}
	}
	if c.WorkLocations == nil {
		c.WorkLocations = map[string]string{}
	}
	if c.Templates == nil {
		c.Templates = map[string][]model.Task{}
	}
	for code, tasks := range c.Templates {
		for i := range tasks {
			if tasks[i].Session == "" {
				tasks[i].Session = model.SessionMorning
			}
		}
		c.Templates[code] = tasks
	}
	if s := c.Snapshot; s != nil {
		if s.Output == "" {
			s.Output = "./var/board.png"
		}
		if s.Width <= 0 {
			s.Width = 1280
		}
		if s.Height <= 0 {
			s.Height = 800
		}
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//   - validate; problems are returned as *ValidationError
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	tmp, err := os.CreateTemp(dir, ".dutycal-config-*.tmp")
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

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// GroupRanges returns the groups as date ranges in loc, in file order.
func (c *Config) GroupRanges(loc *time.Location) ([]model.GroupRange, error) {
	out := make([]model.GroupRange, 0, len(c.Groups))
	for _, g := range c.Groups {
		from, err := model.ParseDate(g.From, loc)
		if err != nil {
			return nil, err
		}
		to, err := model.ParseDate(g.To, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, model.GroupRange{
			Group: model.GroupID(g.ID),
			Range: model.DateRange{From: from, To: to},
		})
	}
	return out, nil
}

// Members returns a copy of each group's member list.
func (c *Config) Members() map[model.GroupID][]string {
	out := make(map[model.GroupID][]string, len(c.Groups))
	for _, g := range c.Groups {
		out[model.GroupID(g.ID)] = append([]string(nil), g.Members...)
	}
	return out
}

// CompanyHolidays parses the company day-off list in loc.
func (c *Config) CompanyHolidays(loc *time.Location) ([]time.Time, error) {
	out := make([]time.Time, 0, len(c.Holidays.Company))
	for _, s := range c.Holidays.Company {
		d, err := model.ParseDate(s, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Schedule returns a copy of the date → location code map.
func (c *Config) Schedule() map[string]string {
	out := make(map[string]string, len(c.WorkLocations))
	for k, v := range c.WorkLocations {
		out[k] = v
	}
	return out
}

// TaskTemplates returns a deep copy of the per-location task templates.
func (c *Config) TaskTemplates() map[string][]model.Task {
	out := make(map[string][]model.Task, len(c.Templates))
	for code, tasks := range c.Templates {
		copied := make([]model.Task, len(tasks))
		for i, t := range tasks {
			copied[i] = t.Clone()
		}
		out[code] = copied
	}
	return out
}
