// Package roster answers who belongs to a group and where the team works on
// a given day.
package roster

import (
	"time"

	appLog "dutycal/internal/log"
	"dutycal/internal/model"
)

// Roster is immutable after New and safe for concurrent use.
type Roster struct {
	members  map[model.GroupID][]string
	schedule map[string]model.Location
	loc      *time.Location
}

// New builds a roster from group members and a YYYY-MM-DD → location code
// schedule. Schedule keys that do not parse as dates are logged and
// ignored.
func New(members map[model.GroupID][]string, schedule map[string]string, loc *time.Location) *Roster {
	if loc == nil {
		loc = time.Local
	}
	r := &Roster{
		members:  make(map[model.GroupID][]string, len(members)),
		schedule: make(map[string]model.Location, len(schedule)),
		loc:      loc,
	}
	for g, ms := range members {
		r.members[g] = append([]string(nil), ms...)
	}
	for date, code := range schedule {
		d, err := model.ParseDate(date, loc)
		if err != nil {
			appLog.Error("work location date ignored", err, "date", date, "location", code)
			continue
		}
		r.schedule[model.DateKey(d)] = model.LocationOf(code)
	}
	return r
}

// Members returns the members of group in configured order. Unknown groups
// have none.
func (r *Roster) Members(group model.GroupID) []string {
	ms, ok := r.members[group]
	if !ok {
		return []string{}
	}
	return append([]string(nil), ms...)
}

// LocationOn returns the work location registered for d's calendar day in
// the roster's zone, or the unregistered location.
func (r *Roster) LocationOn(d time.Time) model.Location {
	return r.schedule[model.DateKey(d.In(r.loc))]
}
