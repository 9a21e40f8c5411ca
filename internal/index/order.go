package index

import (
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortChronological orders pages newest first. Pages published at the same
// instant are ordered by descending title, compared with numeric-aware
// English collation.
func SortChronological(pages []Page) {
	col := collate.New(language.English, collate.Numeric)
	slices.SortStableFunc(pages, func(a, b Page) int {
		if c := b.Timestamp().Compare(a.Timestamp()); c != 0 {
			return c
		}
		return col.CompareString(b.Title, a.Title)
	})
}

// Group is a run of pages published in the same month.
type Group struct {
	Year  int
	Month time.Month
	Pages []Page
}

// GroupByYearMonth splits a chronologically sorted list into monthly runs.
// Months are taken in loc, or UTC when loc is nil.
func GroupByYearMonth(pages []Page, loc *time.Location) []Group {
	if loc == nil {
		loc = time.UTC
	}
	var groups []Group
	for _, p := range pages {
		t := p.Timestamp().In(loc)
		if n := len(groups); n > 0 && groups[n-1].Year == t.Year() && groups[n-1].Month == t.Month() {
			groups[n-1].Pages = append(groups[n-1].Pages, p)
			continue
		}
		groups = append(groups, Group{Year: t.Year(), Month: t.Month(), Pages: []Page{p}})
	}
	return groups
}

// InCategory returns the pages of one category, keeping their order.
func InCategory(pages []Page, key string) []Page {
	var out []Page
	for _, p := range pages {
		if p.Category == key {
			out = append(out, p)
		}
	}
	return out
}

// Latest returns the newest publish time among pages, or false when none
// has a time.
func Latest(pages []Page) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, p := range pages {
		if p.Time == nil {
			continue
		}
		if !found || p.Time.After(latest) {
			latest = *p.Time
			found = true
		}
	}
	return latest, found
}
