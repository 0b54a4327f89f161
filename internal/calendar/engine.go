package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appLog "dutycal/internal/log"
	"dutycal/internal/model"
)

// ErrInvalidConfig wraps every problem New finds in its Options.
var ErrInvalidConfig = errors.New("calendar: invalid configuration")

// HolidaySource supplies the public holidays of a year, e.g. a national
// holiday calendar. Returned dates are interpreted by their calendar day.
type HolidaySource interface {
	HolidaysFor(ctx context.Context, year int) ([]time.Time, error)
}

// Options configures an Engine.
type Options struct {
	// Groups in enumeration order. Ranges may overlap or leave gaps.
	Groups []model.GroupRange

	// Fallback is returned by DefaultGroup when no range contains today.
	// Empty means the first group.
	Fallback model.GroupID

	// CompanyHolidays are organization-specific days off.
	CompanyHolidays []time.Time

	// Public is the public holiday provider; nil means company holidays only.
	Public HolidaySource

	// Location is the zone whose calendar days the engine reasons about.
	// Defaults to time.Local.
	Location *time.Location

	// Now is the clock used to capture today. Defaults to time.Now.
	Now func() time.Time
}

// Engine answers group-assignment and business-day questions. Holiday sets
// are computed once per year and cached.
type Engine struct {
	groups   []model.GroupRange
	fallback model.GroupID
	company  []time.Time
	public   HolidaySource
	loc      *time.Location
	now      func() time.Time

	mu       sync.Mutex
	today    time.Time
	holidays map[int]HolidaySet
	failing  map[int]bool
}

// New validates opts and captures today.
func New(opts Options) (*Engine, error) {
	if len(opts.Groups) == 0 {
		return nil, fmt.Errorf("%w: no groups configured", ErrInvalidConfig)
	}

	seen := make(map[model.GroupID]bool, len(opts.Groups))
	for _, gr := range opts.Groups {
		if gr.Group == "" {
			return nil, fmt.Errorf("%w: group with empty id", ErrInvalidConfig)
		}
		if seen[gr.Group] {
			return nil, fmt.Errorf("%w: duplicate group %q", ErrInvalidConfig, gr.Group)
		}
		seen[gr.Group] = true
		if !gr.Range.Valid() {
			return nil, fmt.Errorf("%w: group %q range starts %s after it ends %s",
				ErrInvalidConfig, gr.Group, model.DateKey(gr.Range.From), model.DateKey(gr.Range.To))
		}
	}

	fallback := opts.Fallback
	if fallback == "" {
		fallback = opts.Groups[0].Group
	}
	if !seen[fallback] {
		return nil, fmt.Errorf("%w: fallback group %q is not configured", ErrInvalidConfig, fallback)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		groups:   append([]model.GroupRange(nil), opts.Groups...),
		fallback: fallback,
		company:  append([]time.Time(nil), opts.CompanyHolidays...),
		public:   opts.Public,
		loc:      loc,
		now:      now,
		holidays: make(map[int]HolidaySet),
		failing:  make(map[int]bool),
	}
	e.today = e.dayOf(now())
	return e, nil
}

// dayOf converts t to midnight of its calendar day in the engine's zone.
func (e *Engine) dayOf(t time.Time) time.Time {
	return model.StartOfDay(t.In(e.loc))
}

// Location returns the zone the engine reasons in.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Today returns the captured reference day.
func (e *Engine) Today() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.today
}

// Reset recaptures today from the clock and reports whether the day
// changed. Cached holiday sets older than last year are dropped.
func (e *Engine) Reset() bool {
	day := e.dayOf(e.now())

	e.mu.Lock()
	defer e.mu.Unlock()
	changed := !day.Equal(e.today)
	e.today = day
	for year := range e.holidays {
		if year < day.Year()-1 {
			delete(e.holidays, year)
		}
	}
	return changed
}

// Groups returns the configured group ids in enumeration order.
func (e *Engine) Groups() []model.GroupID {
	out := make([]model.GroupID, len(e.groups))
	for i, gr := range e.groups {
		out[i] = gr.Group
	}
	return out
}

// HasGroup reports whether g is configured.
func (e *Engine) HasGroup(g model.GroupID) bool {
	_, ok := e.AssignmentRange(g)
	return ok
}

// DefaultGroup is the group on duty today, or the fallback.
func (e *Engine) DefaultGroup() model.GroupID {
	return ResolveDefaultGroup(e.Today(), e.groups, e.fallback)
}

// GroupOn is the group on duty on d, or the fallback.
func (e *Engine) GroupOn(d time.Time) model.GroupID {
	return ResolveDefaultGroup(e.dayOf(d), e.groups, e.fallback)
}

// AssignmentRange looks up the duty period of g.
func (e *Engine) AssignmentRange(g model.GroupID) (model.DateRange, bool) {
	for _, gr := range e.groups {
		if gr.Group == g {
			return gr.Range, true
		}
	}
	return model.DateRange{}, false
}

// Holidays returns public and company holidays of year. A failing public
// source is logged and the company-only set is returned without caching it,
// so the next call tries again.
func (e *Engine) Holidays(ctx context.Context, year int) HolidaySet {
	set, _ := e.LookupHolidays(ctx, year)
	return set
}

// LookupHolidays is Holidays, but also returns the public source's error.
// The set is still the company-only fallback in that case.
func (e *Engine) LookupHolidays(ctx context.Context, year int) (HolidaySet, error) {
	e.mu.Lock()
	if set, ok := e.holidays[year]; ok {
		e.mu.Unlock()
		return set, nil
	}
	e.mu.Unlock()

	set, err := e.loadHolidays(ctx, year)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		// one ERROR per failing year; repeats go to DEBUG
		if !e.failing[year] {
			e.failing[year] = true
			appLog.Error("public holidays unavailable; using company holidays only", err, "year", year)
		} else {
			appLog.Debug("public holidays still unavailable", "year", year)
		}
		return set, err
	}
	if e.failing[year] {
		delete(e.failing, year)
		appLog.Info("public holidays available again", "year", year)
	}
	e.holidays[year] = set
	return set, nil
}

func (e *Engine) loadHolidays(ctx context.Context, year int) (HolidaySet, error) {
	dates := make([]time.Time, 0, len(e.company))
	for _, d := range e.company {
		if d.Year() == year {
			dates = append(dates, e.asDay(d))
		}
	}

	if e.public == nil {
		return NewHolidaySet(dates...), nil
	}

	public, err := e.public.HolidaysFor(ctx, year)
	if err != nil {
		return NewHolidaySet(dates...), err
	}
	for _, d := range public {
		dates = append(dates, e.asDay(d))
	}

	set := NewHolidaySet(dates...)
	appLog.Debug("holidays computed", "year", year, "count", set.Len())
	return set, nil
}

// asDay keeps d's calendar day but moves it to midnight in the engine zone.
// Holiday dates are days, not instants, so no zone conversion happens.
func (e *Engine) asDay(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, e.loc)
}

// IsBusinessDay applies the business-day predicate using d's year.
func (e *Engine) IsBusinessDay(ctx context.Context, d time.Time) bool {
	day := e.dayOf(d)
	return IsBusinessDay(day, e.Holidays(ctx, day.Year()))
}

// NextBusinessDay returns the first business day strictly after from. Each
// candidate is checked against its own year's holidays, so a scan that
// crosses New Year uses the following year's set.
func (e *Engine) NextBusinessDay(ctx context.Context, from time.Time) time.Time {
	d := e.dayOf(from)
	for {
		d = d.AddDate(0, 0, 1)
		if IsBusinessDay(d, e.Holidays(ctx, d.Year())) {
			return d
		}
	}
}

// DisabledDays lists the weekend rule and every holiday of year.
func (e *Engine) DisabledDays(ctx context.Context, year int) []DisabledDay {
	return DisabledDaySpecs(e.Holidays(ctx, year))
}

// Summary is a snapshot of today's calendar state.
type Summary struct {
	Today           time.Time     `json:"today"`
	DefaultGroup    model.GroupID `json:"default_group"`
	BusinessDay     bool          `json:"business_day"`
	NextBusinessDay time.Time     `json:"next_business_day"`
}

// Summary reports today, the default group, whether today is a business day
// and the next business day after today.
func (e *Engine) Summary(ctx context.Context) Summary {
	today := e.Today()
	return Summary{
		Today:           today,
		DefaultGroup:    ResolveDefaultGroup(today, e.groups, e.fallback),
		BusinessDay:     e.IsBusinessDay(ctx, today),
		NextBusinessDay: e.NextBusinessDay(ctx, today),
	}
}
