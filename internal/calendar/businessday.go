package calendar

import (
	"time"

	"github.com/teambition/rrule-go"

	"dutycal/internal/model"
)

// weekend are the days never worked. IsBusinessDay and WeekendRule both
// read it.
var weekend = []time.Weekday{time.Sunday, time.Saturday}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday: rrule.MO, time.Tuesday: rrule.TU, time.Wednesday: rrule.WE,
	time.Thursday: rrule.TH, time.Friday: rrule.FR, time.Saturday: rrule.SA,
	time.Sunday: rrule.SU,
}

func isWeekend(d time.Time) bool {
	for _, wd := range weekend {
		if d.Weekday() == wd {
			return true
		}
	}
	return false
}

// IsBusinessDay reports whether d is a weekday that is not in holidays.
func IsBusinessDay(d time.Time, holidays HolidaySet) bool {
	return !isWeekend(d) && !holidays.Contains(d)
}

// NextBusinessDay returns the first business day strictly after from, at
// midnight in from's location.
//
// The scan moves one day at a time. Because holidays is finite it always
// passes the last holiday of any run and then reaches a weekday within a
// week, so the loop terminates even when every day of several weeks is a
// holiday.
func NextBusinessDay(from time.Time, holidays HolidaySet) time.Time {
	d := model.StartOfDay(from)
	for {
		d = d.AddDate(0, 0, 1)
		if IsBusinessDay(d, holidays) {
			return d
		}
	}
}

// ResolveDefaultGroup returns the first group, in enumeration order, whose
// inclusive range contains today. When none does, fallback is returned.
func ResolveDefaultGroup(today time.Time, ranges []model.GroupRange, fallback model.GroupID) model.GroupID {
	for _, gr := range ranges {
		if gr.Range.Contains(today) {
			return gr.Group
		}
	}
	return fallback
}

// DisabledDay is one entry of a calendar widget's "disabled" list: either a
// recurring weekday rule or a single date.
type DisabledDay struct {
	// Weekdays is set for recurring rules (e.g. Sunday and Saturday).
	Weekdays []time.Weekday `json:"weekdays,omitempty"`
	// RRule is the same rule in RFC 5545 form, for widgets that take iCal
	// recurrence strings.
	RRule string `json:"rrule,omitempty"`
	// Date is set for a single disabled day.
	Date *time.Time `json:"date,omitempty"`
}

// WeekendRule is the recurring "every Saturday and Sunday" rule. The RRULE
// is rendered from weekend rather than written out, so it cannot disagree
// with IsBusinessDay.
func WeekendRule() DisabledDay {
	opt := rrule.ROption{Freq: rrule.WEEKLY}
	for _, wd := range weekend {
		opt.Byweekday = append(opt.Byweekday, rruleWeekdays[wd])
	}
	return DisabledDay{
		Weekdays: append([]time.Weekday(nil), weekend...),
		RRule:    opt.RRuleString(),
	}
}

// DisabledDaySpecs lists the weekend rule followed by every holiday date in
// ascending order.
func DisabledDaySpecs(holidays HolidaySet) []DisabledDay {
	dates := holidays.Dates()
	out := make([]DisabledDay, 0, len(dates)+1)
	out = append(out, WeekendRule())
	for _, d := range dates {
		out = append(out, DisabledDay{Date: &d})
	}
	return out
}
