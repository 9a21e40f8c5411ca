package config

import "git.home.luguber.info/inful/inkpress/internal/foundation/normalization"

// Theme is the seasonal look of the site.
type Theme string

const (
	ThemeNormal  Theme = "normal"
	ThemeNewYear Theme = "new-year"
)

var themeNormalizer = normalization.New("theme", map[string]Theme{
	"normal":   ThemeNormal,
	"new-year": ThemeNewYear,
}, ThemeNormal)

// ExpanderFlavor selects how expander containers are rendered.
type ExpanderFlavor string

const (
	// ExpanderComponent renders a framework component with a header slot.
	ExpanderComponent ExpanderFlavor = "component"
	// ExpanderHTML renders a native details/summary element.
	ExpanderHTML ExpanderFlavor = "html"
)

var expanderNormalizer = normalization.New("expander flavor", map[string]ExpanderFlavor{
	"component": ExpanderComponent,
	"html":      ExpanderHTML,
}, ExpanderComponent)
