package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"dutycal/internal/calendar"
	"dutycal/internal/holiday"
	"dutycal/internal/model"
)

type rangeDTO struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type disabledDayDTO struct {
	Weekdays []string `json:"weekdays,omitempty"`
	RRule    string   `json:"rrule,omitempty"`
	Date     string   `json:"date,omitempty"`
}

// calendarResponse is the JSON response shape for /api/calendar.
type calendarResponse struct {
	Today           string           `json:"today"`
	DefaultGroup    model.GroupID    `json:"default_group"`
	Group           model.GroupID    `json:"group"`
	Groups          []model.GroupID  `json:"groups"`
	Members         []string         `json:"members"`
	Range           rangeDTO         `json:"range"`
	BusinessDay     bool             `json:"business_day"`
	NextBusinessDay string           `json:"next_business_day"`
	Year            int              `json:"year"`
	DisabledDays    []disabledDayDTO `json:"disabled_days"`
}

// handleCalendar returns today's calendar state for the selected group.
//
// GET /api/calendar?group=B&year=2025
//   - group: defaults to the group on duty today. Selecting a group clears
//     the board's member filter.
//   - year:  year of the disabled-day list (default: today's year). A year
//     the holiday sources do not cover is rejected.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	sum := s.engine.Summary(ctx)
	group := sum.DefaultGroup
	if g := q.Get("group"); g != "" {
		group = model.GroupID(g)
		if !s.engine.HasGroup(group) {
			writeError(w, http.StatusBadRequest, "unknown group")
			return
		}
		s.mu.Lock()
		s.member = nil
		s.mu.Unlock()
	}

	year := sum.Today.Year()
	if y := q.Get("year"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil || n < 1970 || n > 2999 {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		if _, err := s.engine.LookupHolidays(ctx, n); errors.Is(err, holiday.ErrUnsupportedYear) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("no holiday data for %d", n))
			return
		}
		year = n
	}

	rng, _ := s.engine.AssignmentRange(group)
	writeJSON(w, http.StatusOK, calendarResponse{
		Today:           model.DateKey(sum.Today),
		DefaultGroup:    sum.DefaultGroup,
		Group:           group,
		Groups:          s.engine.Groups(),
		Members:         s.roster.Members(group),
		Range:           rangeDTO{From: model.DateKey(rng.From), To: model.DateKey(rng.To)},
		BusinessDay:     sum.BusinessDay,
		NextBusinessDay: model.DateKey(sum.NextBusinessDay),
		Year:            year,
		DisabledDays:    disabledDTOs(s.engine.DisabledDays(ctx, year)),
	})
}

func disabledDTOs(days []calendar.DisabledDay) []disabledDayDTO {
	out := make([]disabledDayDTO, 0, len(days))
	for _, d := range days {
		dto := disabledDayDTO{RRule: d.RRule}
		for _, wd := range d.Weekdays {
			dto.Weekdays = append(dto.Weekdays, wd.String())
		}
		if d.Date != nil {
			dto.Date = model.DateKey(*d.Date)
		}
		out = append(out, dto)
	}
	return out
}

// dayResponse is the JSON response shape for /api/calendar/day.
type dayResponse struct {
	Date            string        `json:"date"`
	Group           model.GroupID `json:"group"`
	BusinessDay     bool          `json:"business_day"`
	Location        string        `json:"location,omitempty"`
	Registered      bool          `json:"location_registered"`
	NextBusinessDay string        `json:"next_business_day"`
}

// handleCalendarDay describes one picked date.
//
// GET /api/calendar/day?date=2025-05-19
func (s *Server) handleCalendarDay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, ok := s.parseDay(w, r.URL.Query().Get("date"), false)
	if !ok {
		return
	}

	loc := s.roster.LocationOn(d)
	writeJSON(w, http.StatusOK, dayResponse{
		Date:            model.DateKey(d),
		Group:           s.engine.GroupOn(d),
		BusinessDay:     s.engine.IsBusinessDay(ctx, d),
		Location:        loc.Code(),
		Registered:      loc.Registered(),
		NextBusinessDay: model.DateKey(s.engine.NextBusinessDay(ctx, d)),
	})
}

// parseDay parses a YYYY-MM-DD query value in the engine's zone. An empty
// value means today when optional is set.
func (s *Server) parseDay(w http.ResponseWriter, v string, optional bool) (time.Time, bool) {
	if v == "" {
		if optional {
			return s.engine.Today(), true
		}
		writeError(w, http.StatusBadRequest, "date is required")
		return time.Time{}, false
	}
	d, err := model.ParseDate(v, s.engine.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}
