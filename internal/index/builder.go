package index

import (
	"context"
	"log/slog"
	"maps"
	"strings"

	"git.home.luguber.info/inful/inkpress/internal/config"
	"git.home.luguber.info/inful/inkpress/internal/content"
	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/logfields"
	"git.home.luguber.info/inful/inkpress/internal/markdown"
)

// Renderer renders titles and excerpts.
type Renderer interface {
	Render(ctx context.Context, src []byte, env markdown.Env) (markdown.Result, error)
	RenderInline(ctx context.Context, src string) (markdown.InlineResult, error)
}

// reservedKeys are lifted into Page fields and removed from Page.Data.
var reservedKeys = []string{"time", "title", "meta", "slug", "tags", "noExcerpt", "lang"}

// Builder turns content entries into page descriptors.
type Builder struct {
	Config   *config.Config
	Renderer Renderer
	Logger   *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(cfg *config.Config, r Renderer, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{Config: cfg, Renderer: r, Logger: logger}
}

// Build returns the descriptors of all publishable entries in discovery
// order. A content URL claimed twice is a validation error.
func (b *Builder) Build(ctx context.Context, entries []content.Entry) ([]Page, error) {
	pages := make([]Page, 0, len(entries))
	owners := make(map[string]string, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.Publishable() {
			continue
		}
		page, err := b.Page(ctx, e)
		if err != nil {
			return nil, err
		}
		if prev, dup := owners[page.ContentURL]; dup {
			return nil, errors.ValidationError("duplicate content url").
				WithContext("url", page.ContentURL).
				WithContext("first", prev).
				WithContext("second", e.RelPath).
				Build()
		}
		owners[page.ContentURL] = e.RelPath
		pages = append(pages, page)
	}
	b.Logger.Debug("Built content index", logfields.Count(len(pages)))
	return pages, nil
}

// Page derives the descriptor of a single publishable entry.
func (b *Builder) Page(ctx context.Context, e content.Entry) (Page, error) {
	fm := e.Frontmatter
	derived := e.DerivedPath()

	var page Page
	if raw, ok := fm["time"]; ok && raw != nil {
		t, err := ParseTime(raw)
		if err != nil {
			return Page{}, errors.WrapError(err, errors.CategoryValidation, "invalid time").
				WithPath(e.RelPath).
				Fatal().
				Build()
		}
		page.Time = &t
	}

	title, err := b.Renderer.RenderInline(ctx, stringValue(fm["title"]))
	if err != nil {
		return Page{}, err
	}
	page.Title = title.HTML
	page.TextTitle = title.Text

	if e.HasExcerpt && !content.Truthy(fm["noExcerpt"]) && strings.TrimSpace(e.Excerpt) != "" {
		excerpt, err := b.Renderer.Render(ctx, []byte(e.Excerpt), markdown.Env{Path: e.RelPath})
		if err != nil {
			return Page{}, err
		}
		page.Excerpt = excerpt.HTML
	}

	if first := content.FirstSegment(derived); first != "" && b.Config.Categories.Has(first) {
		page.Category = first
	}

	page.ContentURL = derived
	if slug := stringValue(fm["slug"]); slug != "" {
		page.ContentURL = slug
	}
	page.SourceURL = "/" + e.RelPath
	page.Meta = fm["meta"]
	page.Tags = stringList(fm["tags"])
	page.Lang = stringValue(fm["lang"])
	if page.Lang == "" {
		page.Lang = b.Config.DefaultLang
	}

	data := maps.Clone(fm)
	if data == nil {
		data = map[string]any{}
	}
	for _, k := range reservedKeys {
		delete(data, k)
	}
	page.Data = data
	return page, nil
}
