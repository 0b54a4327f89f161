package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"dutycal/internal/calendar"
	"dutycal/internal/capture"
	"dutycal/internal/config"
	"dutycal/internal/holiday"
	appLog "dutycal/internal/log"
	"dutycal/internal/model"
	"dutycal/internal/roster"
	"dutycal/internal/tasklist"
	"dutycal/internal/web"
)

// app is the wired process: one engine, one roster, one board behind the
// HTTP server.
type app struct {
	cfg    *config.Config
	loc    *time.Location
	engine *calendar.Engine
	roster *roster.Roster
	server *web.Server
}

func buildApp(cfg *config.Config, now func() time.Time) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	ranges, err := cfg.GroupRanges(loc)
	if err != nil {
		return nil, fmt.Errorf("groups: %w", err)
	}
	company, err := cfg.CompanyHolidays(loc)
	if err != nil {
		return nil, fmt.Errorf("company holidays: %w", err)
	}

	engine, err := calendar.New(calendar.Options{
		Groups:          ranges,
		Fallback:        model.GroupID(cfg.FallbackGroup),
		CompanyHolidays: company,
		Public:          publicHolidays(cfg, loc),
		Location:        loc,
		Now:             now,
	})
	if err != nil {
		return nil, err
	}

	r := roster.New(cfg.Members(), cfg.Schedule(), loc)
	server := web.NewServer(web.Options{
		Listen:    cfg.Listen,
		Engine:    engine,
		Roster:    r,
		Board:     tasklist.NewBoard(cfg.TaskTemplates()),
		BasicAuth: cfg.BasicAuth,
	})

	return &app{cfg: cfg, loc: loc, engine: engine, roster: r, server: server}, nil
}

// publicHolidays returns nil when neither the built-in calendar nor any
// feed is configured, so the engine uses company holidays only.
func publicHolidays(cfg *config.Config, loc *time.Location) calendar.HolidaySource {
	var builtin *holiday.Japan
	if cfg.Holidays.Builtin == "jp" {
		builtin = holiday.NewJapan(loc)
	}
	feeds := make([]holiday.Feed, 0, len(cfg.Holidays.ICS))
	for _, f := range cfg.Holidays.ICS {
		feeds = append(feeds, holiday.Feed{ID: f.ID, URL: f.URL, Name: f.Name})
	}
	if builtin == nil && len(feeds) == 0 {
		return nil
	}
	return holiday.NewProvider(holiday.ProviderOptions{
		Builtin:  builtin,
		Feeds:    feeds,
		Fetcher:  holiday.NewFetcher(cfg.Holidays.CacheDir, nil),
		Location: loc,
	})
}

// rollover recaptures today, warms the holiday cache for this year and the
// next, and moves the board's gate to the new day.
func (a *app) rollover(ctx context.Context) {
	changed := a.engine.Reset()
	year := a.engine.Today().Year()
	a.engine.Holidays(ctx, year)
	a.engine.Holidays(ctx, year+1)
	a.server.SelectToday(ctx)

	sum := a.engine.Summary(ctx)
	appLog.Info("calendar rollover",
		"changed", changed,
		"today", model.DateKey(sum.Today),
		"group", sum.DefaultGroup,
		"business_day", sum.BusinessDay,
		"next_business_day", model.DateKey(sum.NextBusinessDay),
	)
}

// summary is what -once prints.
type summary struct {
	Today           string        `json:"today"`
	Group           model.GroupID `json:"group"`
	Members         []string      `json:"members"`
	BusinessDay     bool          `json:"business_day"`
	Location        string        `json:"location,omitempty"`
	NextBusinessDay string        `json:"next_business_day"`
}

func (a *app) summary(ctx context.Context) summary {
	sum := a.engine.Summary(ctx)
	return summary{
		Today:           model.DateKey(sum.Today),
		Group:           sum.DefaultGroup,
		Members:         a.roster.Members(sum.DefaultGroup),
		BusinessDay:     sum.BusinessDay,
		Location:        a.roster.LocationOn(sum.Today).Code(),
		NextBusinessDay: model.DateKey(sum.NextBusinessDay),
	}
}

// snapshot captures the board page once.
func (a *app) snapshot(ctx context.Context) error {
	s := a.cfg.Snapshot
	if s == nil {
		return fmt.Errorf("snapshot is not configured")
	}
	return capture.CaptureBoardPNG(ctx, capture.Options{
		URL:       s.URL,
		Output:    s.Output,
		Width:     s.Width,
		Height:    s.Height,
		NoSandbox: os.Geteuid() == 0,
	})
}
