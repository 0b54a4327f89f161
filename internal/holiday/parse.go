package holiday

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "dutycal/internal/log"
)

// Entry is one all-day VEVENT of a holiday feed, before recurrence
// expansion.
type Entry struct {
	Feed Feed
	UID  string
	Name string

	// Date is the first day, at midnight in the parser's location.
	Date time.Time
	// Days is the number of consecutive days covered (at least 1).
	Days int

	RRule   string
	ExDates []time.Time
}

// ParseFeed extracts all-day entries from an ICS body. Timed events carry
// no holiday meaning and are skipped, as are VEVENTs without a usable
// DTSTART. Dates are rebuilt as calendar days in loc.
func ParseFeed(feed Feed, body []byte, loc *time.Location) ([]Entry, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("holiday feed parse failed", err, "id", feed.ID, "url", redactURL(feed.URL))
		return nil, err
	}

	entries := make([]Entry, 0)
	skipped := 0
	for _, ve := range cal.Events() {
		e, ok := parseEntry(feed, ve, loc)
		if !ok {
			skipped++
			continue
		}
		entries = append(entries, e)
	}

	appLog.Debug("holiday feed parsed", "id", feed.ID, "entries", len(entries), "skipped", skipped)
	return entries, nil
}

func parseEntry(feed Feed, ve *ical.VEvent, loc *time.Location) (Entry, bool) {
	out := Entry{Feed: feed, Days: 1}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || !isDateValue(dtStart) {
		return out, false
	}
	start, err := ve.GetAllDayStartAt()
	if err != nil {
		return out, false
	}
	out.Date = asDay(start, loc)

	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil && isDateValue(p) {
		if end, err := ve.GetAllDayEndAt(); err == nil {
			// DTEND of an all-day event is exclusive.
			if n := daysBetween(out.Date, asDay(end, loc)); n > 1 {
				out.Days = n
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Name = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RRule = strings.TrimSpace(p.Value)
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseDateValue(part, loc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}
	return out, true
}

// isDateValue reports whether a DTSTART/DTEND holds a DATE rather than a
// DATE-TIME: either VALUE=DATE is set or the value has no time part.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// parseDateValue accepts the date part of EXDATE values in either DATE or
// DATE-TIME form.
func parseDateValue(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if len(v) < 8 {
		return time.Time{}, errors.New("short date value")
	}
	return time.ParseInLocation("20060102", v[:8], loc)
}

// asDay keeps t's calendar day and moves it to midnight in loc.
func asDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func daysBetween(from, to time.Time) int {
	n := 0
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}
