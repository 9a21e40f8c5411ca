package build

import (
	"context"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"git.home.luguber.info/inful/inkpress/internal/config"
	"git.home.luguber.info/inful/inkpress/internal/content"
	"git.home.luguber.info/inful/inkpress/internal/history"
	"git.home.luguber.info/inful/inkpress/internal/index"
	"git.home.luguber.info/inful/inkpress/internal/logfields"
	"git.home.luguber.info/inful/inkpress/internal/markdown"
	"git.home.luguber.info/inful/inkpress/internal/metrics"
	"git.home.luguber.info/inful/inkpress/internal/prerender"
	"git.home.luguber.info/inful/inkpress/internal/routes"
)

// BuildState is threaded through the stages of one build.
type BuildState struct {
	Config   *config.Config
	Logger   *slog.Logger
	Recorder metrics.Recorder
	Report   *BuildReport

	Entries   []content.Entry
	Documents map[string]markdown.RenderedDocument // keyed by content-relative path
	Pages     []index.Page
	Routes    []routes.Route
	Written   []string
}

// Options tune which optional stages run.
type Options struct {
	// SkipBundle skips the client and server bundle commands.
	SkipBundle bool
	// SkipSearch skips the search indexer.
	SkipSearch bool
}

// Builder owns the collaborators of a site build.
type Builder struct {
	Config   *config.Config
	Logger   *slog.Logger
	Recorder metrics.Recorder
	Options  Options

	// Renderer overrides the prerender renderer selected from the configuration.
	Renderer prerender.Renderer
	// Now is the build clock used for sitemap fallbacks.
	Now func() time.Time

	Loader    *content.Loader
	History   history.Provider
	Documents *markdown.DocumentRenderer
	Index     *index.Builder
}

// NewBuilder wires the collaborators for cfg.
func NewBuilder(cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder) (*Builder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	opts, err := markdown.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	transformer, err := markdown.New(opts)
	if err != nil {
		return nil, err
	}
	loader := content.NewLoader(cfg.ContentDir(), cfg.Build.ComponentExt, cfg.Markdown.ExcerptSeparator)
	loader.Logger = logger
	provider := history.NewGitProvider(cfg.Root, logger)

	return &Builder{
		Config:   cfg,
		Logger:   logger,
		Recorder: recorder,
		Now:      time.Now,
		Loader:   loader,
		History:  provider,
		Documents: &markdown.DocumentRenderer{
			Transformer:  transformer,
			History:      provider,
			HistoryLabel: cfg.Markdown.HistoryLabel,
		},
		Index: index.NewBuilder(cfg, transformer, logger),
	}, nil
}

// Pipeline returns the stages of a full build in order.
func (b *Builder) Pipeline() []StageDef { return b.plan().Build() }

func (b *Builder) plan() *Pipeline {
	return NewPipeline().
		Add(StageLoadContent, b.stageLoadContent).
		Add(StageTransform, b.stageTransform).
		Add(StageIndex, b.stageIndex).
		AddUnless(b.bundleSkipReason(), StageBundle, b.stageBundle).
		Add(StageRoutes, b.stageRoutes).
		Add(StagePrerender, b.stagePrerender).
		AddUnless(b.sitemapSkipReason(), StageSitemap, b.stageSitemap).
		Add(StageFinish, b.stageFinish).
		AddUnless(b.searchSkipReason(), StageSearchIndex, b.stageSearchIndex)
}

const skippedByOption = "disabled by option"

func (b *Builder) bundleSkipReason() string {
	switch {
	case b.Options.SkipBundle:
		return skippedByOption
	case len(b.Config.Build.ClientCommand) == 0 && len(b.Config.Build.ServerCommand) == 0:
		return "no bundle command configured"
	}
	return ""
}

func (b *Builder) sitemapSkipReason() string {
	if b.Config.URL == "" {
		return "site url not set"
	}
	return ""
}

func (b *Builder) searchSkipReason() string {
	switch {
	case b.Options.SkipSearch:
		return skippedByOption
	case len(b.Config.Build.SearchCommand) == 0:
		return "no search command configured"
	}
	return ""
}

// Build runs the full pipeline. The report is returned even when the build
// fails.
func (b *Builder) Build(ctx context.Context) (*BuildReport, error) {
	report := NewBuildReport()
	bs := &BuildState{
		Config:    b.Config,
		Logger:    b.Logger,
		Recorder:  b.Recorder,
		Report:    report,
		Documents: make(map[string]markdown.RenderedDocument),
	}
	plan := b.plan()
	for _, name := range slices.Sorted(maps.Keys(plan.Skipped)) {
		report.Skipped[name] = plan.Skipped[name]
		b.Logger.Debug("Stage skipped", logfields.Stage(string(name)), slog.String("reason", plan.Skipped[name]))
	}
	start := time.Now()
	err := RunStages(ctx, bs, plan.Build())
	report.Finish()
	report.DeriveOutcome()

	b.Recorder.ObserveBuildDuration(time.Since(start))
	b.Recorder.IncBuildOutcome(metrics.BuildOutcomeLabel(report.Outcome))
	b.Logger.Info("Build finished", slog.String("summary", report.Summary()))

	if path := b.Config.Build.ReportFile; path != "" {
		path = b.Config.Abs(path)
		if perr := report.Persist(path); perr != nil {
			b.Logger.Warn("Could not write build report", logfields.Path(path), logfields.Error(perr))
		}
	}
	return report, err
}

// ComponentPath is the generated module path of a content document.
func ComponentPath(cfg *config.Config, rel string) string {
	return filepath.Join(cfg.GeneratedDir(), "content", filepath.FromSlash(rel)+cfg.Build.ComponentExt)
}

// PagesPath is the generated page descriptor file.
func PagesPath(cfg *config.Config) string {
	return filepath.Join(cfg.GeneratedDir(), "pages.json")
}

// ContextPath is the generated site context file.
func ContextPath(cfg *config.Config) string {
	return filepath.Join(cfg.GeneratedDir(), "context.json")
}
