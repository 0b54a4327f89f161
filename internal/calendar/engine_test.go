package calendar

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"

	appLog "dutycal/internal/log"
	"dutycal/internal/model"
)

var jst = time.FixedZone("JST", 9*60*60)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, jst)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// referenceGroups mirrors the four 2025 duty periods.
func referenceGroups() []model.GroupRange {
	return []model.GroupRange{
		{Group: "A", Range: model.DateRange{From: day(2025, 4, 14), To: day(2025, 5, 14)}},
		{Group: "B", Range: model.DateRange{From: day(2025, 5, 15), To: day(2025, 6, 14)}},
		{Group: "C", Range: model.DateRange{From: day(2025, 6, 15), To: day(2025, 7, 14)}},
		{Group: "D", Range: model.DateRange{From: day(2025, 7, 15), To: day(2025, 7, 31)}},
	}
}

type stubSource struct {
	dates map[int][]time.Time
	err   error
	calls int
}

func (s *stubSource) HolidaysFor(_ context.Context, year int) ([]time.Time, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.dates[year], nil
}

func newEngine(t *testing.T, now time.Time, src HolidaySource) *Engine {
	t.Helper()
	e, err := New(Options{
		Groups:          referenceGroups(),
		CompanyHolidays: []time.Time{day(2025, 4, 28), day(2025, 4, 30)},
		Public:          src,
		Location:        jst,
		Now:             fixedClock(now),
	})
	require.NoError(t, err)
	return e
}

func TestNewRejectsMalformedConfig(t *testing.T) {
	backwards := []model.GroupRange{
		{Group: "A", Range: model.DateRange{From: day(2025, 5, 2), To: day(2025, 5, 1)}},
	}
	_, err := New(Options{Groups: backwards, Location: jst})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Options{Location: jst})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	dup := append(referenceGroups(), referenceGroups()[0])
	_, err = New(Options{Groups: dup, Location: jst})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Options{Groups: referenceGroups(), Fallback: "Z", Location: jst})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTodayIsNormalizedToMidnight(t *testing.T) {
	e := newEngine(t, time.Date(2025, 5, 20, 15, 42, 0, 0, jst), nil)
	assert.Equal(t, day(2025, 5, 20), e.Today())
}

func TestDefaultGroup(t *testing.T) {
	cases := []struct {
		now  time.Time
		want model.GroupID
	}{
		{day(2025, 4, 14), "A"},
		{day(2025, 5, 14).Add(23 * time.Hour), "A"},
		{day(2025, 5, 15), "B"},
		{day(2025, 7, 31), "D"},
		{day(2025, 8, 1), "A"},  // past every range: fallback
		{day(2024, 12, 1), "A"}, // before every range: fallback
	}
	for _, tc := range cases {
		e := newEngine(t, tc.now, nil)
		assert.Equal(t, tc.want, e.DefaultGroup(), model.DateKey(tc.now))
	}
}

func TestResolveDefaultGroupIsTotal(t *testing.T) {
	assert.Equal(t, model.GroupID("X"), ResolveDefaultGroup(day(2025, 1, 1), nil, "X"))

	// Overlaps resolve in enumeration order, not date order.
	overlapping := []model.GroupRange{
		{Group: "late", Range: model.DateRange{From: day(2025, 5, 10), To: day(2025, 6, 1)}},
		{Group: "early", Range: model.DateRange{From: day(2025, 5, 1), To: day(2025, 5, 20)}},
	}
	assert.Equal(t, model.GroupID("late"), ResolveDefaultGroup(day(2025, 5, 15), overlapping, "early"))
}

func TestResetMovesToday(t *testing.T) {
	now := day(2025, 5, 14)
	e, err := New(Options{Groups: referenceGroups(), Location: jst, Now: func() time.Time { return now }})
	require.NoError(t, err)
	assert.Equal(t, model.GroupID("A"), e.DefaultGroup())

	now = day(2025, 5, 15).Add(time.Minute)
	assert.True(t, e.Reset())
	assert.Equal(t, day(2025, 5, 15), e.Today())
	assert.Equal(t, model.GroupID("B"), e.DefaultGroup())
	assert.False(t, e.Reset())
}

func TestAssignmentRange(t *testing.T) {
	e := newEngine(t, day(2025, 5, 1), nil)
	r, ok := e.AssignmentRange("C")
	require.True(t, ok)
	assert.Equal(t, day(2025, 6, 15), r.From)
	assert.Equal(t, day(2025, 7, 14), r.To)

	_, ok = e.AssignmentRange("Z")
	assert.False(t, ok)
	assert.Equal(t, []model.GroupID{"A", "B", "C", "D"}, e.Groups())
}

func TestHolidaysMergeAndCache(t *testing.T) {
	src := &stubSource{dates: map[int][]time.Time{
		2025: {time.Date(2025, 4, 29, 0, 0, 0, 0, time.UTC), day(2025, 5, 5)},
	}}
	e := newEngine(t, day(2025, 5, 1), src)

	set := e.Holidays(context.Background(), 2025)
	assert.Equal(t, 4, set.Len())
	assert.True(t, set.Contains(day(2025, 4, 28)))
	assert.True(t, set.Contains(day(2025, 4, 29)))
	assert.True(t, set.Contains(day(2025, 4, 30)))
	assert.True(t, set.Contains(day(2025, 5, 5)))

	e.Holidays(context.Background(), 2025)
	assert.Equal(t, 1, src.calls)

	// Company holidays of another year do not leak in.
	assert.Equal(t, 0, e.Holidays(context.Background(), 2026).Len())
}

func TestHolidaysSourceFailureIsNotCached(t *testing.T) {
	src := &stubSource{err: errors.New("feed down")}
	e := newEngine(t, day(2025, 5, 1), src)

	set := e.Holidays(context.Background(), 2025)
	assert.Equal(t, 2, set.Len())

	e.Holidays(context.Background(), 2025)
	assert.Equal(t, 2, src.calls)
}

func TestLookupHolidaysReportsFailureAndLogsOncePerYear(t *testing.T) {
	var buf bytes.Buffer
	appLog.SetOutput(&buf)
	t.Cleanup(func() { appLog.SetOutput(os.Stderr) })

	src := &stubSource{err: errors.New("feed down")}
	e := newEngine(t, day(2025, 5, 1), src)
	ctx := context.Background()

	set, err := e.LookupHolidays(ctx, 2025)
	require.Error(t, err)
	assert.Equal(t, 2, set.Len())

	for i := 0; i < 3; i++ {
		e.IsBusinessDay(ctx, day(2025, 5, 2))
	}
	assert.Equal(t, 1, strings.Count(buf.String(), "[ERROR]"))

	src.err = nil
	set, err = e.LookupHolidays(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	assert.Contains(t, buf.String(), "public holidays available again")
}

func TestIsBusinessDay(t *testing.T) {
	src := &stubSource{dates: map[int][]time.Time{2025: {day(2025, 5, 5), day(2025, 5, 6)}}}
	e := newEngine(t, day(2025, 5, 1), src)
	ctx := context.Background()

	assert.True(t, e.IsBusinessDay(ctx, day(2025, 5, 1)))
	assert.False(t, e.IsBusinessDay(ctx, day(2025, 5, 3)), "saturday")
	assert.False(t, e.IsBusinessDay(ctx, day(2025, 5, 4)), "sunday")
	assert.False(t, e.IsBusinessDay(ctx, day(2025, 5, 5)), "public holiday")
	assert.False(t, e.IsBusinessDay(ctx, day(2025, 4, 28)), "company holiday")
	assert.True(t, e.IsBusinessDay(ctx, day(2025, 5, 7).Add(18*time.Hour)))
}

func TestWeekendsAreNeverBusinessDays(t *testing.T) {
	empty := NewHolidaySet()
	start := day(2025, 1, 1)
	for i := 0; i < 366; i++ {
		d := start.AddDate(0, 0, i)
		wd := d.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			assert.False(t, IsBusinessDay(d, empty), model.DateKey(d))
		}
	}
}

func TestHolidaysAreNeverBusinessDays(t *testing.T) {
	set := NewHolidaySet(day(2025, 1, 1), day(2025, 1, 13), day(2025, 2, 11))
	for _, d := range set.Dates() {
		assert.False(t, IsBusinessDay(d, set), model.DateKey(d))
	}
}

func TestNextBusinessDayProperties(t *testing.T) {
	// Golden Week 2025 plus company days.
	set := NewHolidaySet(
		day(2025, 4, 28), day(2025, 4, 29), day(2025, 4, 30),
		day(2025, 5, 3), day(2025, 5, 4), day(2025, 5, 5), day(2025, 5, 6),
	)
	start := day(2025, 4, 20)
	for i := 0; i < 40; i++ {
		from := start.AddDate(0, 0, i)
		next := NextBusinessDay(from, set)

		require.True(t, next.After(from), model.DateKey(from))
		assert.True(t, IsBusinessDay(next, set), model.DateKey(from))
		for d := from.AddDate(0, 0, 1); d.Before(next); d = d.AddDate(0, 0, 1) {
			assert.False(t, IsBusinessDay(d, set), "skipped business day %s", model.DateKey(d))
		}
	}

	assert.Equal(t, day(2025, 5, 1), NextBusinessDay(day(2025, 4, 25), set))
	assert.Equal(t, day(2025, 5, 7), NextBusinessDay(day(2025, 5, 2), set))
}

func TestNextBusinessDaySurvivesLongHolidayRuns(t *testing.T) {
	var dates []time.Time
	for i := 0; i < 45; i++ {
		dates = append(dates, day(2025, 8, 1).AddDate(0, 0, i))
	}
	set := NewHolidaySet(dates...)
	assert.Equal(t, day(2025, 9, 15), NextBusinessDay(day(2025, 7, 31), set))
}

func TestEngineNextBusinessDayCrossesYear(t *testing.T) {
	src := &stubSource{dates: map[int][]time.Time{
		2025: {day(2025, 12, 31)},
		2026: {day(2026, 1, 1), day(2026, 1, 2)},
	}}
	e := newEngine(t, day(2025, 12, 30), src)

	assert.Equal(t, day(2026, 1, 5), e.NextBusinessDay(context.Background(), day(2025, 12, 30)))
}

func TestDisabledDays(t *testing.T) {
	src := &stubSource{dates: map[int][]time.Time{2025: {day(2025, 5, 5)}}}
	e := newEngine(t, day(2025, 5, 1), src)

	specs := e.DisabledDays(context.Background(), 2025)
	require.Len(t, specs, 4)
	assert.Equal(t, []time.Weekday{time.Sunday, time.Saturday}, specs[0].Weekdays)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=SU,SA", specs[0].RRule)
	assert.Nil(t, specs[0].Date)

	require.NotNil(t, specs[1].Date)
	assert.Equal(t, day(2025, 4, 28), *specs[1].Date)
	assert.Equal(t, day(2025, 4, 30), *specs[2].Date)
	assert.Equal(t, day(2025, 5, 5), *specs[3].Date)
}

func TestWeekendRuleMatchesPredicate(t *testing.T) {
	opt, err := rrule.StrToROption(WeekendRule().RRule)
	require.NoError(t, err)
	opt.Dtstart = day(2025, 6, 2)
	opt.Until = day(2025, 6, 29)
	rule, err := rrule.NewRRule(*opt)
	require.NoError(t, err)

	got := map[string]bool{}
	for _, d := range rule.All() {
		got[model.DateKey(d)] = true
	}
	assert.Len(t, got, 8)

	empty := NewHolidaySet()
	for d := day(2025, 6, 2); !d.After(day(2025, 6, 29)); d = d.AddDate(0, 0, 1) {
		assert.Equal(t, !IsBusinessDay(d, empty), got[model.DateKey(d)], model.DateKey(d))
	}
}

func TestSummary(t *testing.T) {
	e := newEngine(t, day(2025, 5, 16).Add(9*time.Hour), nil)
	s := e.Summary(context.Background())

	assert.Equal(t, day(2025, 5, 16), s.Today)
	assert.Equal(t, model.GroupID("B"), s.DefaultGroup)
	assert.True(t, s.BusinessDay)
	assert.Equal(t, day(2025, 5, 19), s.NextBusinessDay)
}

func TestHolidaySetUnion(t *testing.T) {
	a := NewHolidaySet(day(2025, 1, 1))
	b := NewHolidaySet(day(2025, 1, 1), day(2025, 1, 2))
	u := a.Union(b)
	assert.Equal(t, 2, u.Len())
	assert.Equal(t, 1, a.Len())

	var zero HolidaySet
	assert.False(t, zero.Contains(day(2025, 1, 1)))
	assert.Empty(t, zero.Dates())
}
