package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	appLog "dutycal/internal/log"
	"dutycal/internal/model"
)

// ValidationError lists every problem found in a config file.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid config: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid config (%d problems): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

func (e *ValidationError) addf(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Validate checks the whole config and returns a *ValidationError holding
// all problems, or nil.
func (c *Config) Validate() error {
	v := &ValidationError{}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		v.addf("timezone %q: %v", c.Timezone, err)
		loc = time.UTC
	}
	if _, err := appLog.ParseLevel(c.LogLevel); err != nil {
		v.addf("log_level: %v", err)
	}
	if _, err := cron.ParseStandard(c.Rollover); err != nil {
		v.addf("rollover %q: %v", c.Rollover, err)
	}

	c.validateGroups(v, loc)
	c.validateHolidays(v, loc)
	c.validateLocations(v, loc)
	c.validateTemplates(v)

	if s := c.Snapshot; s != nil {
		if strings.TrimSpace(s.URL) == "" {
			v.addf("snapshot.url is empty")
		}
		if s.Cron != "" {
			if _, err := cron.ParseStandard(s.Cron); err != nil {
				v.addf("snapshot.cron %q: %v", s.Cron, err)
			}
		}
	}
	if a := c.BasicAuth; a != nil && (a.Username == "" || a.Password == "") {
		v.addf("basic_auth needs both username and password")
	}

	if len(v.Problems) == 0 {
		return nil
	}
	return v
}

func (c *Config) validateGroups(v *ValidationError, loc *time.Location) {
	if len(c.Groups) == 0 {
		v.addf("groups: at least one group is required")
		return
	}
	seen := make(map[string]bool, len(c.Groups))
	for i, g := range c.Groups {
		if strings.TrimSpace(g.ID) == "" {
			v.addf("groups[%d]: id is empty", i)
			continue
		}
		if seen[g.ID] {
			v.addf("groups[%d]: duplicate id %q", i, g.ID)
		}
		seen[g.ID] = true

		from, errFrom := model.ParseDate(g.From, loc)
		if errFrom != nil {
			v.addf("groups[%d] %s: from: %v", i, g.ID, errFrom)
		}
		to, errTo := model.ParseDate(g.To, loc)
		if errTo != nil {
			v.addf("groups[%d] %s: to: %v", i, g.ID, errTo)
		}
		if errFrom == nil && errTo == nil && from.After(to) {
			v.addf("groups[%d] %s: from %s is after to %s", i, g.ID, g.From, g.To)
		}
	}
	if c.FallbackGroup != "" && !seen[c.FallbackGroup] {
		v.addf("fallback_group %q is not a configured group", c.FallbackGroup)
	}
}

func (c *Config) validateHolidays(v *ValidationError, loc *time.Location) {
	switch c.Holidays.Builtin {
	case "", "jp":
	default:
		v.addf("holidays.builtin %q: supported values are \"jp\" or empty", c.Holidays.Builtin)
	}
	for i, s := range c.Holidays.Company {
		if _, err := model.ParseDate(s, loc); err != nil {
			v.addf("holidays.company[%d]: %v", i, err)
		}
	}
	ids := make(map[string]bool, len(c.Holidays.ICS))
	for i, f := range c.Holidays.ICS {
		if strings.TrimSpace(f.URL) == "" {
			v.addf("holidays.ics[%d]: url is empty", i)
		}
		if f.ID == "" {
			v.addf("holidays.ics[%d]: id is empty", i)
		} else if ids[f.ID] {
			v.addf("holidays.ics[%d]: duplicate id %q", i, f.ID)
		}
		ids[f.ID] = true
	}
}

func (c *Config) validateLocations(v *ValidationError, loc *time.Location) {
	known := make(map[string]bool, len(c.Locations))
	for i, code := range c.Locations {
		if strings.TrimSpace(code) == "" {
			v.addf("locations[%d] is empty", i)
		}
		known[code] = true
	}
	for date, code := range c.WorkLocations {
		if _, err := model.ParseDate(date, loc); err != nil {
			v.addf("work_locations: %v", err)
		}
		if len(known) > 0 && !known[code] {
			v.addf("work_locations %s: unknown location %q", date, code)
		}
	}
	for code := range c.Templates {
		if len(known) > 0 && !known[code] {
			v.addf("templates: unknown location %q", code)
		}
	}
}

func (c *Config) validateTemplates(v *ValidationError) {
	for code, tasks := range c.Templates {
		ids := make(map[int]bool, len(tasks))
		for i, t := range tasks {
			if t.ID <= 0 {
				v.addf("templates %s[%d]: id must be positive", code, i)
			} else if ids[t.ID] {
				v.addf("templates %s[%d]: duplicate id %d", code, i, t.ID)
			}
			ids[t.ID] = true
			if strings.TrimSpace(t.Label) == "" {
				v.addf("templates %s[%d]: label is empty", code, i)
			}
			if _, err := model.ParseSession(string(t.Session)); err != nil {
				v.addf("templates %s[%d]: %v", code, i, err)
			}
		}
	}
}
