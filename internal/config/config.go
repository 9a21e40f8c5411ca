// Package config loads and validates the inkpress site configuration.
package config

// Config is the site configuration threaded through every build stage.
//
// The JSON shape of the site-facing fields is exposed to the UI through the
// generated context module; build-only settings are excluded from it.
type Config struct {
	Name        string         `yaml:"name" json:"name"`
	URL         string         `yaml:"url" json:"url,omitempty"`
	DefaultLang string         `yaml:"default_lang" json:"defaultLang"`
	Theme       Theme          `yaml:"theme" json:"theme"`
	PureStatic  bool           `yaml:"pure_static" json:"pureStatic"`
	Categories  Categories     `yaml:"categories" json:"categories"`
	Git         GitConfig      `yaml:"git" json:"git"`
	Social      *SocialConfig  `yaml:"social,omitempty" json:"social,omitempty"`
	Markdown    MarkdownConfig `yaml:"markdown" json:"markdown"`
	Paths       PathsConfig    `yaml:"paths" json:"-"`
	Build       BuildConfig    `yaml:"build" json:"-"`
	Logging     LoggingConfig  `yaml:"logging" json:"-"`

	// Root is the project directory every relative path resolves against.
	Root string `yaml:"-" json:"-"`

	// Source is the configuration file the value was loaded from.
	Source string `yaml:"-" json:"-"`
}

// GitConfig identifies the source repository of the site.
type GitConfig struct {
	Repo string `yaml:"repo" json:"repo"`
}

// SocialConfig holds optional profile links shown by the UI.
type SocialConfig struct {
	GitHub string `yaml:"github,omitempty" json:"github,omitempty"`
	Email  string `yaml:"email,omitempty" json:"email,omitempty"`
}

// MarkdownConfig tunes the content transform.
type MarkdownConfig struct {
	Container        ContainerLabels `yaml:"container" json:"container"`
	ExcerptSeparator string          `yaml:"excerpt_separator" json:"-"`
	ExpanderFlavor   ExpanderFlavor  `yaml:"expander_flavor" json:"-"`
	HistoryLabel     string          `yaml:"history_label" json:"-"`
	Code             CodeConfig      `yaml:"code" json:"-"`
	Math             MathConfig      `yaml:"math" json:"-"`
}

// ContainerLabels are the fallback titles of the custom containers.
type ContainerLabels struct {
	Warning  string `yaml:"warning_label" json:"warningLabel"`
	Error    string `yaml:"error_label" json:"errorLabel"`
	Info     string `yaml:"info_label" json:"infoLabel"`
	Expander string `yaml:"expander_label" json:"expanderLabel"`
}

// CodeConfig selects the highlighting themes for fenced code.
type CodeConfig struct {
	LightTheme string `yaml:"light_theme"`
	DarkTheme  string `yaml:"dark_theme"`
}

// MathConfig selects the math typesetter. An empty command keeps TeX for
// client-side typesetting.
type MathConfig struct {
	Command    []string `yaml:"command"`
	Stylesheet string   `yaml:"stylesheet"`
}

// PathsConfig locates inputs and outputs relative to Root.
type PathsConfig struct {
	Content   string `yaml:"content"`
	Output    string `yaml:"output"`
	Server    string `yaml:"server"`
	Generated string `yaml:"generated"`
	Template  string `yaml:"template"`
}

// BuildConfig configures the external collaborators of a build.
type BuildConfig struct {
	ComponentExt  string   `yaml:"component_ext"`
	ClientCommand []string `yaml:"client_command"`
	ServerCommand []string `yaml:"server_command"`
	RenderCommand []string `yaml:"render_command"`
	SearchCommand []string `yaml:"search_command"`
	Integrity     *bool    `yaml:"integrity"`
	Minify        *bool    `yaml:"minify"`
	ReportFile    string   `yaml:"report_file"`
}

// LoggingConfig selects log verbosity and output format.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// IntegrityEnabled reports whether subresource integrity attributes are added.
func (b BuildConfig) IntegrityEnabled() bool { return b.Integrity == nil || *b.Integrity }

// MinifyEnabled reports whether emitted HTML is minified.
func (b BuildConfig) MinifyEnabled() bool { return b.Minify == nil || *b.Minify }

// ContainerLabel returns the fallback title for a container kind.
func (c *Config) ContainerLabel(kind string) string {
	switch kind {
	case "warning":
		return c.Markdown.Container.Warning
	case "error":
		return c.Markdown.Container.Error
	case "info":
		return c.Markdown.Container.Info
	case "expander":
		return c.Markdown.Container.Expander
	default:
		return ""
	}
}
