package holiday

import (
	"context"
	"errors"
	"fmt"
	"time"

	appLog "dutycal/internal/log"
)

// ErrNoSource is returned when every configured holiday source failed.
var ErrNoSource = errors.New("holiday: no holiday source available")

// Provider merges the built-in rules and any number of ICS feeds into one
// public holiday calendar. It satisfies calendar.HolidaySource.
type Provider struct {
	builtin *Japan
	fetcher *Fetcher
	feeds   []Feed
	loc     *time.Location
}

// ProviderOptions configures a Provider. Builtin and Feeds may both be set;
// their dates are unioned.
type ProviderOptions struct {
	Builtin  *Japan
	Feeds    []Feed
	Fetcher  *Fetcher
	Location *time.Location
}

func NewProvider(opts ProviderOptions) *Provider {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	fetcher := opts.Fetcher
	if fetcher == nil && len(opts.Feeds) > 0 {
		fetcher = NewFetcher("", nil)
	}
	return &Provider{
		builtin: opts.Builtin,
		fetcher: fetcher,
		feeds:   append([]Feed(nil), opts.Feeds...),
		loc:     loc,
	}
}

// HolidaysFor returns the public holidays of year. Individual source
// failures are logged and skipped; an error is returned only when no
// source produced anything usable, so callers can tell "failed" apart from
// "a year without holidays".
func (p *Provider) HolidaysFor(ctx context.Context, year int) ([]time.Time, error) {
	hs, err := p.Holidays(ctx, year)
	if err != nil {
		return nil, err
	}
	return Dates(hs), nil
}

// Holidays is HolidaysFor with names kept.
func (p *Provider) Holidays(ctx context.Context, year int) ([]Holiday, error) {
	var (
		entries   []Entry
		ok        int
		attempted int
		errs      []error
	)

	if p.builtin != nil {
		attempted++
		hs, err := p.builtin.Holidays(year)
		if err != nil {
			appLog.Debug("builtin holidays unavailable", "year", year, "err", err)
			errs = append(errs, err)
		} else {
			ok++
			for _, h := range hs {
				entries = append(entries, Entry{Name: h.Name, Date: asDay(h.Date, p.loc), Days: 1})
			}
		}
	}

	if len(p.feeds) > 0 {
		attempted += len(p.feeds)
		results, fetchErrs := p.fetcher.FetchAll(ctx, p.feeds)
		errs = append(errs, fetchErrs...)
		for _, res := range results {
			parsed, err := ParseFeed(res.Feed, res.Body, p.loc)
			if err != nil {
				errs = append(errs, fmt.Errorf("feed %s: %w", res.Feed.ID, err))
				continue
			}
			ok++
			entries = append(entries, parsed...)
		}
	}

	if attempted > 0 && ok == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoSource, errors.Join(errs...))
	}

	hs := ExpandYear(entries, year, p.loc)
	appLog.Info("public holidays resolved", "year", year, "count", len(hs), "sources_ok", ok, "sources", attempted)
	return hs, nil
}
