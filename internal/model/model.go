package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical textual form of a calendar date in config
// files, API payloads and logs.
const DateLayout = "2006-01-02"

// StartOfDay truncates t to midnight in t's own location. Every date the
// calendar engine stores or compares goes through this first.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate parses "YYYY-MM-DD" as midnight in loc (time.Local when nil).
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// DateKey formats t as "YYYY-MM-DD" using t's own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// GroupID identifies a rotating team (e.g. "A".."D").
type GroupID string

// DateRange is an inclusive [From, To] interval of whole days.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Valid reports whether the range is non-empty (From on or before To).
func (r DateRange) Valid() bool {
	return !StartOfDay(r.From).After(StartOfDay(r.To))
}

// Contains reports whether d falls on a day within the range, both ends
// included.
func (r DateRange) Contains(d time.Time) bool {
	day := StartOfDay(d)
	return !day.Before(StartOfDay(r.From)) && !day.After(StartOfDay(r.To))
}

// GroupRange assigns a group to its duty period.
type GroupRange struct {
	Group GroupID
	Range DateRange
}

// Session is one of the two daily checklist occasions.
type Session string

const (
	SessionMorning Session = "morning"
	SessionEvening Session = "evening"
)

func ParseSession(s string) (Session, error) {
	switch Session(strings.ToLower(strings.TrimSpace(s))) {
	case SessionMorning:
		return SessionMorning, nil
	case SessionEvening:
		return SessionEvening, nil
	}
	return "", fmt.Errorf("unknown session %q", s)
}

// Location is an optional work-site code. The zero value means no location
// is registered for the day; a registered location always has a non-empty
// code, so no real site name can collide with "unregistered".
type Location struct {
	code string
}

// Unregistered returns the zero Location.
func Unregistered() Location {
	return Location{}
}

// LocationOf returns a registered location for code. A blank code yields
// the unregistered location.
func LocationOf(code string) Location {
	return Location{code: strings.TrimSpace(code)}
}

func (l Location) Registered() bool {
	return l.code != ""
}

// Code returns the location code, or "" when unregistered.
func (l Location) Code() string {
	return l.code
}

func (l Location) String() string {
	if !l.Registered() {
		return "(unregistered)"
	}
	return l.code
}

// Role pairs a named duty inside a task with the member who carries it out.
type Role struct {
	Role   string `yaml:"role" json:"role"`
	Member string `yaml:"member" json:"member"`
}

// Task is one checklist item. IDs are only unique within the task list
// currently loaded for a location.
type Task struct {
	ID       int      `yaml:"id" json:"id"`
	Label    string   `yaml:"label" json:"label"`
	Members  []string `yaml:"members" json:"members"`
	Session  Session  `yaml:"session" json:"session"`
	Steps    []string `yaml:"steps,omitempty" json:"steps,omitempty"`
	Roles    []Role   `yaml:"roles,omitempty" json:"roles,omitempty"`
	Everyday bool     `yaml:"everyday,omitempty" json:"everyday,omitempty"`
}

// Clone returns a copy of t that shares no slices with it.
func (t Task) Clone() Task {
	out := t
	out.Members = cloneSlice(t.Members)
	out.Steps = cloneSlice(t.Steps)
	out.Roles = cloneSlice(t.Roles)
	return out
}

// HasMember reports whether name is one of the task's members.
func (t Task) HasMember(name string) bool {
	for _, m := range t.Members {
		if m == name {
			return true
		}
	}
	return false
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
