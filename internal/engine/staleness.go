package engine

import (
	"time"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// CalendarPolicy holds the calendar-day staleness thresholds, both in
// days. Red must be >= yellow (config validation enforces this).
type CalendarPolicy struct {
	YellowDays int
	RedDays    int
}

// Staleness is the calendar-day classification for a lender.
type Staleness struct {
	IsStale  bool
	IsUrgent bool
}

// Classify applies the calendar-day policy. Only lenders with an active
// tracking status and a known update time are ever stale; everything
// else classifies as fresh.
func (p CalendarPolicy) Classify(l *deal.Lender, now time.Time) Staleness {
	if l.TrackingStatus != deal.TrackingActive || l.UpdatedAt.IsZero() {
		return Staleness{}
	}

	days := calendarDaysBetween(l.UpdatedAt, now)

	return Staleness{
		IsStale:  days >= p.YellowDays,
		IsUrgent: days >= p.RedDays,
	}
}

// calendarDaysBetween counts whole calendar days from a to b, comparing
// dates rather than elapsed hours: 23:59 to 00:01 the next day is one day.
func calendarDaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)

	return int(end.Sub(start).Hours() / 24)
}

// Tier is the coarse three-level aging display used by the business-day
// policy.
type Tier int

// Aging tiers, least to most severe.
const (
	TierFresh Tier = iota
	TierWarn
	TierDanger
)

// BusinessDayPolicy tiers a lender by working days (Mon-Fri) since its
// last update. Two instances exist with different scales, one for the
// lender list rows and one for the header rollup, and they stay
// independently configurable because unifying them would silently change
// displayed behavior.
type BusinessDayPolicy struct {
	// WarnAfter is exclusive: more than WarnAfter business days → warn.
	WarnAfter int
	// DangerAt is inclusive: at least DangerAt business days → danger.
	DangerAt int
}

// Tier classifies the lender under this policy. Inactive lenders and
// lenders without an update time are always fresh.
func (p BusinessDayPolicy) Tier(l *deal.Lender, now time.Time) Tier {
	if l.TrackingStatus != deal.TrackingActive || l.UpdatedAt.IsZero() {
		return TierFresh
	}

	days := businessDaysBetween(l.UpdatedAt, now)

	switch {
	case days >= p.DangerAt:
		return TierDanger
	case days > p.WarnAfter:
		return TierWarn
	default:
		return TierFresh
	}
}

// businessDaysBetween counts Monday-Friday calendar days strictly after
// a's date, up to and including b's date.
func businessDaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	day := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)

	count := 0

	for day.Before(end) {
		day = day.AddDate(0, 0, 1)

		switch day.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			count++
		}
	}

	return count
}
