// Package index derives the page descriptors of a site from its content
// entries and writes them for the UI.
package index

import (
	"fmt"
	"time"
)

// Page describes one publishable page.
type Page struct {
	Time       *time.Time     `json:"time,omitempty"`
	Title      string         `json:"title"`
	TextTitle  string         `json:"textTitle"`
	Excerpt    string         `json:"excerpt,omitempty"`
	Category   string         `json:"category,omitempty"`
	ContentURL string         `json:"contentUrl"`
	SourceURL  string         `json:"sourceUrl"`
	Meta       any            `json:"meta,omitempty"`
	Data       map[string]any `json:"data"`
	Tags       []string       `json:"tags,omitempty"`
	Lang       string         `json:"lang"`
}

// Timestamp returns the publish time, or the zero time when unset.
func (p Page) Timestamp() time.Time {
	if p.Time == nil {
		return time.Time{}
	}
	return *p.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseTime interprets a metadata time value. Strings without a zone are
// read as UTC.
func ParseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized time %q", t)
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %v (%T)", v, v)
	}
}

// stringList accepts a YAML sequence or a single string.
func stringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
