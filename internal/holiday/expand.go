package holiday

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "dutycal/internal/log"
)

// Holiday is a named day off.
type Holiday struct {
	Date time.Time
	Name string
}

// ExpandYear returns every day of year covered by entries, ascending and
// without duplicates. Recurring entries are expanded with their RRULE and
// EXDATEs; multi-day entries contribute each covered day.
func ExpandYear(entries []Entry, year int, loc *time.Location) []Holiday {
	if loc == nil {
		loc = time.Local
	}
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	yearEnd := time.Date(year, time.December, 31, 23, 59, 59, 0, loc)

	byDay := make(map[string]Holiday)
	add := func(start time.Time, days int, name string) {
		for i := 0; i < days; i++ {
			d := start.AddDate(0, 0, i)
			if d.Year() != year {
				continue
			}
			key := d.Format("20060102")
			if _, ok := byDay[key]; !ok {
				byDay[key] = Holiday{Date: d, Name: name}
			}
		}
	}

	for _, e := range entries {
		if e.RRule == "" {
			add(e.Date, e.Days, e.Name)
			continue
		}
		for _, start := range occurrences(e, yearStart.AddDate(0, 0, -e.Days), yearEnd) {
			add(asDay(start, loc), e.Days, e.Name)
		}
	}

	out := make([]Holiday, 0, len(byDay))
	for _, h := range byDay {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// occurrences expands a recurring entry within [from, to].
func occurrences(e Entry, from, to time.Time) []time.Time {
	opt, err := rrule.StrToROptionInLocation(e.RRule, e.Date.Location())
	if err != nil {
		appLog.Error("holiday RRULE parse failed", err, "uid", e.UID, "rrule", e.RRule)
		return nil
	}
	opt.Dtstart = e.Date
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		appLog.Error("holiday RRULE invalid", err, "uid", e.UID, "rrule", e.RRule)
		return nil
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range e.ExDates {
		set.ExDate(ex)
	}
	return set.Between(from, to, true)
}

// Dates strips names from hs.
func Dates(hs []Holiday) []time.Time {
	out := make([]time.Time, len(hs))
	for i, h := range hs {
		out[i] = h.Date
	}
	return out
}
