package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jturner-5thline/dealdesk/internal/deal"
	"github.com/jturner-5thline/dealdesk/internal/engine"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// formatMoney renders a dollar amount with thousands separators.
func formatMoney(amount float64) string {
	whole := int64(amount)
	s := fmt.Sprintf("%d", whole)

	var b strings.Builder

	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 && r != '-' {
			b.WriteByte(',')
		}

		b.WriteRune(r)
	}

	return "$" + b.String()
}

// formatTime returns a compact timestamp for display.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	now := time.Now()

	// Same calendar year: show "Jan  2 15:04"
	if t.Year() == now.Year() {
		return t.Format("Jan _2 15:04")
	}

	return t.Format("Jan _2  2006")
}

// tierLabel renders a staleness tier for text output.
func tierLabel(tier engine.Tier) string {
	switch tier {
	case engine.TierWarn:
		return "warn"
	case engine.TierDanger:
		return "DANGER"
	default:
		return "fresh"
	}
}

// stalenessLabel renders the calendar-day classification.
func stalenessLabel(st engine.Staleness) string {
	switch {
	case st.IsUrgent:
		return "URGENT"
	case st.IsStale:
		return "stale"
	default:
		return "ok"
	}
}

// printDeal writes a text rendering of a deal with per-lender staleness
// annotations.
func printDeal(w io.Writer, d deal.Deal, calendar engine.CalendarPolicy, tiers engine.BusinessDayPolicy) {
	now := time.Now()

	fmt.Fprintf(w, "%s (%s)\n", d.Name, d.ID)
	fmt.Fprintf(w, "  stage: %s  status: %s  value: %s\n", d.Stage, d.Status, formatMoney(d.Value))
	fmt.Fprintf(w, "  fees: retainer %s  milestone %s  success %.2f%%  total %s\n",
		formatMoney(d.RetainerFee), formatMoney(d.MilestoneFee), d.SuccessFeePercent, formatMoney(d.TotalFee))

	if d.Referrer != nil {
		fmt.Fprintf(w, "  referrer: %s\n", d.Referrer.Name)
	}

	fmt.Fprintf(w, "  lenders (%d):\n", len(d.Lenders))

	for i := range d.Lenders {
		l := &d.Lenders[i]
		st := calendar.Classify(l, now)
		tier := tiers.Tier(l, now)

		fmt.Fprintf(w, "    %-24s %-12s %-8s updated %-13s [%s/%s]\n",
			l.Name, l.Stage, l.TrackingStatus, formatTime(l.UpdatedAt),
			stalenessLabel(st), tierLabel(tier))

		if l.Notes != "" {
			fmt.Fprintf(w, "      notes: %s\n", l.Notes)
		}
	}
}
