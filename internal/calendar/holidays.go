package calendar

import (
	"sort"
	"time"
)

// dayKey identifies a calendar day independent of clock time and zone.
type dayKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(t time.Time) dayKey {
	y, m, d := t.Date()
	return dayKey{y, m, d}
}

// HolidaySet is an immutable set of calendar days. The zero value is an
// empty set.
type HolidaySet struct {
	days map[dayKey]time.Time
}

// NewHolidaySet builds a set from dates; clock time is ignored.
func NewHolidaySet(dates ...time.Time) HolidaySet {
	s := HolidaySet{days: make(map[dayKey]time.Time, len(dates))}
	for _, d := range dates {
		k := keyOf(d)
		if _, ok := s.days[k]; !ok {
			s.days[k] = time.Date(k.year, k.month, k.day, 0, 0, 0, 0, d.Location())
		}
	}
	return s
}

// Contains reports whether d's calendar day is in the set.
func (s HolidaySet) Contains(d time.Time) bool {
	_, ok := s.days[keyOf(d)]
	return ok
}

func (s HolidaySet) Len() int {
	return len(s.days)
}

// Dates returns the members at midnight, ascending.
func (s HolidaySet) Dates() []time.Time {
	out := make([]time.Time, 0, len(s.days))
	for _, d := range s.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Union returns a new set holding the days of both s and o.
func (s HolidaySet) Union(o HolidaySet) HolidaySet {
	out := HolidaySet{days: make(map[dayKey]time.Time, len(s.days)+len(o.days))}
	for k, d := range s.days {
		out.days[k] = d
	}
	for k, d := range o.days {
		if _, ok := out.days[k]; !ok {
			out.days[k] = d
		}
	}
	return out
}
