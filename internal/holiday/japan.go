package holiday

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/teambition/rrule-go"
)

// ErrUnsupportedYear is returned for years outside the built-in rules.
var ErrUnsupportedYear = errors.New("holiday: year not covered by built-in rules")

// Japan computes national holidays of Japan (国民の祝日) from the rules of
// the Public Holiday Act, plus the one-off days enacted by special law.
// Years 2007 through 2099 are supported.
type Japan struct {
	loc *time.Location
}

const (
	japanFirstYear = 2007
	japanLastYear  = 2099
)

// NewJapan returns the built-in provider. Dates are produced in loc, or
// Asia/Tokyo when loc is nil and the zone database has it.
func NewJapan(loc *time.Location) *Japan {
	if loc == nil {
		if tokyo, err := time.LoadLocation("Asia/Tokyo"); err == nil {
			loc = tokyo
		} else {
			loc = time.FixedZone("JST", 9*60*60)
		}
	}
	return &Japan{loc: loc}
}

// japanRule is a yearly holiday: either a fixed month/day or the nth Monday
// of a month, in force for [from, until] (until 0 = still in force).
type japanRule struct {
	name  string
	month time.Month
	day   int
	nth   int
	from  int
	until int
}

var japanRules = []japanRule{
	{name: "元日", month: time.January, day: 1, from: 1949},
	{name: "成人の日", month: time.January, nth: 2, from: 2000},
	{name: "建国記念の日", month: time.February, day: 11, from: 1967},
	{name: "天皇誕生日", month: time.February, day: 23, from: 2020},
	{name: "昭和の日", month: time.April, day: 29, from: 2007},
	{name: "憲法記念日", month: time.May, day: 3, from: 1949},
	{name: "みどりの日", month: time.May, day: 4, from: 2007},
	{name: "こどもの日", month: time.May, day: 5, from: 1949},
	{name: "海の日", month: time.July, nth: 3, from: 2003},
	{name: "山の日", month: time.August, day: 11, from: 2016},
	{name: "敬老の日", month: time.September, nth: 3, from: 2003},
	{name: "体育の日", month: time.October, nth: 2, from: 2000, until: 2019},
	{name: "スポーツの日", month: time.October, nth: 2, from: 2020},
	{name: "文化の日", month: time.November, day: 3, from: 1948},
	{name: "勤労感謝の日", month: time.November, day: 23, from: 1948},
	{name: "天皇誕生日", month: time.December, day: 23, from: 1989, until: 2018},
}

// japanMoved lists the Olympic years in which holidays were moved by
// special law. Rule dates in these years are replaced by the listed ones.
var japanMoved = map[int]map[string]japanMove{
	2020: {
		"海の日":    {time.July, 23},
		"スポーツの日": {time.July, 24},
		"山の日":    {time.August, 10},
	},
	2021: {
		"海の日":    {time.July, 22},
		"スポーツの日": {time.July, 23},
		"山の日":    {time.August, 8},
	},
}

// japanOneOff lists holidays enacted for a single year. The days around
// them follow from the citizens' holiday and substitute rules.
var japanOneOff = map[int][]japanHoliday{
	2019: {
		{name: "天皇の即位の日", month: time.May, day: 1},
		{name: "即位礼正殿の儀の行われる日", month: time.October, day: 22},
	},
}

type japanHoliday struct {
	name  string
	month time.Month
	day   int
}

type japanMove struct {
	month time.Month
	day   int
}

// HolidaysFor implements calendar.HolidaySource.
func (j *Japan) HolidaysFor(_ context.Context, year int) ([]time.Time, error) {
	hs, err := j.Holidays(year)
	if err != nil {
		return nil, err
	}
	return Dates(hs), nil
}

// Holidays returns the named holidays of year, ascending, including
// substitute holidays (振替休日) and citizens' holidays (国民の休日).
func (j *Japan) Holidays(year int) ([]Holiday, error) {
	if year < japanFirstYear || year > japanLastYear {
		return nil, fmt.Errorf("%w: %d (rules cover %d-%d)", ErrUnsupportedYear, year, japanFirstYear, japanLastYear)
	}

	named := make(map[time.Time]string)
	for _, r := range japanRules {
		if year < r.from || (r.until != 0 && year > r.until) {
			continue
		}
		d, err := j.ruleDate(r, year)
		if err != nil {
			return nil, err
		}
		named[d] = r.name
	}
	for _, h := range japanOneOff[year] {
		named[time.Date(year, h.month, h.day, 0, 0, 0, 0, j.loc)] = h.name
	}
	named[j.vernalEquinox(year)] = "春分の日"
	named[j.autumnalEquinox(year)] = "秋分の日"

	out := make(map[time.Time]string, len(named)+4)
	for d, n := range named {
		out[d] = n
	}

	// A day sandwiched between two national holidays is itself a holiday.
	for d := range named {
		mid := d.AddDate(0, 0, 1)
		if _, ok := named[mid]; ok {
			continue
		}
		if _, ok := named[mid.AddDate(0, 0, 1)]; ok && mid.Weekday() != time.Sunday {
			out[mid] = "国民の休日"
		}
	}

	// A holiday falling on Sunday moves to the next day that is not already
	// a holiday.
	for d := range named {
		if d.Weekday() != time.Sunday {
			continue
		}
		sub := d.AddDate(0, 0, 1)
		for {
			if _, ok := out[sub]; !ok {
				break
			}
			sub = sub.AddDate(0, 0, 1)
		}
		out[sub] = "振替休日"
	}

	hs := make([]Holiday, 0, len(out))
	for d, n := range out {
		hs = append(hs, Holiday{Date: d, Name: n})
	}
	sort.Slice(hs, func(a, b int) bool { return hs[a].Date.Before(hs[b].Date) })
	return hs, nil
}

// ruleDate expands a rule for one year with an RRULE, e.g.
// FREQ=YEARLY;BYMONTH=1;BYDAY=+2MO for Coming of Age Day.
func (j *Japan) ruleDate(r japanRule, year int) (time.Time, error) {
	if moved, ok := japanMoved[year][r.name]; ok {
		return time.Date(year, moved.month, moved.day, 0, 0, 0, 0, j.loc), nil
	}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, j.loc)
	opt := rrule.ROption{
		Freq:    rrule.YEARLY,
		Dtstart: start,
		Bymonth: []int{int(r.month)},
		Count:   1,
	}
	if r.nth > 0 {
		opt.Byweekday = []rrule.Weekday{rrule.MO.Nth(r.nth)}
	} else {
		opt.Bymonthday = []int{r.day}
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return time.Time{}, fmt.Errorf("holiday: rule %s: %w", r.name, err)
	}
	dates := rule.All()
	if len(dates) == 0 || dates[0].Year() != year {
		return time.Time{}, fmt.Errorf("holiday: rule %s produced no date in %d", r.name, year)
	}
	return asDay(dates[0], j.loc), nil
}

// Equinox days follow the usual approximation, valid for 1980-2099.
func (j *Japan) vernalEquinox(year int) time.Time {
	return j.equinox(year, time.March, 20.8431)
}

func (j *Japan) autumnalEquinox(year int) time.Time {
	return j.equinox(year, time.September, 23.2488)
}

func (j *Japan) equinox(year int, month time.Month, base float64) time.Time {
	y := float64(year - 1980)
	day := int(math.Floor(base + 0.242194*y - math.Floor(y/4)))
	return time.Date(year, month, day, 0, 0, 0, 0, j.loc)
}
