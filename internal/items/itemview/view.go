// Package itemview holds the pure presentation logic for the item dashboard:
// quick filters, free-text search and the summary strip. It never talks to a
// store, so the TUI and the headless CLI share one implementation.
package itemview

import (
	"strings"

	"github.com/docketapp/docket/internal/items"
)

// Quick narrows the dashboard to a predefined slice of the inventory.
type Quick string

const (
	QuickAll  Quick = "all"
	QuickLent Quick = "lent"
)

// Mode selects how the dashboard renders matching items.
type Mode string

const (
	ModeList Mode = "list"
	ModeGrid Mode = "grid"
)

// ModeFromString maps a persisted preference back to a Mode, defaulting to
// the list layout for anything unrecognized.
func ModeFromString(s string) Mode {
	if Mode(s) == ModeGrid {
		return ModeGrid
	}
	return ModeList
}

// Toggle returns the other rendering mode.
func (m Mode) Toggle() Mode {
	if m == ModeGrid {
		return ModeList
	}
	return ModeGrid
}

// Filter applies the quick filter and the search term, in that order. The
// search is a case-insensitive substring match against name, category and
// location exactly as typed; surrounding whitespace is significant.
func Filter(all []items.Item, quick Quick, search string) []items.Item {
	out := make([]items.Item, 0, len(all))
	needle := strings.ToLower(search)
	for _, it := range all {
		if quick == QuickLent && it.Lend == nil {
			continue
		}
		if needle != "" && !matches(it, needle) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func matches(it items.Item, needle string) bool {
	for _, hay := range []string{it.Name, it.Category, it.Location} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

// Summary aggregates the whole inventory for the dashboard header.
type Summary struct {
	Count      int
	TotalValue float64
	LentCount  int
}

// Summarize computes the header figures. It takes the full mirror, not the
// filtered slice: the strip describes the inventory, not the current view.
func Summarize(all []items.Item) Summary {
	var s Summary
	for _, it := range all {
		s.Count++
		s.TotalValue += it.Price
		if it.Lend != nil {
			s.LentCount++
		}
	}
	return s
}
