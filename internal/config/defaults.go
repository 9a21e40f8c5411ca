package config

// Default values applied to fields left empty in the configuration file.
const (
	DefaultLang             = "en"
	DefaultWarningLabel     = "WARNING"
	DefaultErrorLabel       = "ERROR"
	DefaultInfoLabel        = "INFO"
	DefaultExpanderLabel    = "MORE"
	DefaultExcerptSeparator = "---"
	DefaultHistoryLabel     = "Revision history"
	DefaultLightCodeTheme   = "catppuccin-latte"
	DefaultDarkCodeTheme    = "onedark"
	DefaultContentDir       = "content"
	DefaultOutputDir        = "dist/static"
	DefaultServerDir        = "dist/server"
	DefaultGeneratedDir     = ".inkpress"
	DefaultComponentExt     = ".vue"
)

// DefaultSearchCommand indexes the output directory; {dir} is substituted.
var DefaultSearchCommand = []string{"pagefind", "--site", "{dir}"}

func applyDefaults(cfg *Config) {
	setDefault(&cfg.DefaultLang, DefaultLang)
	if cfg.Theme == "" {
		cfg.Theme = ThemeNormal
	}

	md := &cfg.Markdown
	setDefault(&md.Container.Warning, DefaultWarningLabel)
	setDefault(&md.Container.Error, DefaultErrorLabel)
	setDefault(&md.Container.Info, DefaultInfoLabel)
	setDefault(&md.Container.Expander, DefaultExpanderLabel)
	setDefault(&md.ExcerptSeparator, DefaultExcerptSeparator)
	setDefault(&md.HistoryLabel, DefaultHistoryLabel)
	setDefault(&md.Code.LightTheme, DefaultLightCodeTheme)
	setDefault(&md.Code.DarkTheme, DefaultDarkCodeTheme)
	if md.ExpanderFlavor == "" {
		md.ExpanderFlavor = ExpanderComponent
	}

	setDefault(&cfg.Paths.Content, DefaultContentDir)
	setDefault(&cfg.Paths.Output, DefaultOutputDir)
	setDefault(&cfg.Paths.Server, DefaultServerDir)
	setDefault(&cfg.Paths.Generated, DefaultGeneratedDir)

	setDefault(&cfg.Build.ComponentExt, DefaultComponentExt)
	if len(cfg.Build.SearchCommand) == 0 {
		cfg.Build.SearchCommand = append([]string(nil), DefaultSearchCommand...)
	}
	if cfg.Categories == nil {
		cfg.Categories = Categories{}
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
