package prerender

import (
	"bytes"
	"context"
	"embed"
	stderrors "errors"
	"fmt"
	"html"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/inkpress/internal/config"
	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/index"
	"git.home.luguber.info/inful/inkpress/internal/routes"
)

//go:embed templates_defaults/*
var embeddedTemplates embed.FS

// DefaultRecentPages is the number of pages listed on the home route.
const DefaultRecentPages = 10

// LoadTemplate returns the page template: the configured template file, then
// the index.html emitted by the client bundle, then the built-in shell.
func LoadTemplate(cfg *config.Config) (string, error) {
	candidates := []string{filepath.Join(cfg.OutputDir(), "index.html")}
	if cfg.Paths.Template != "" {
		candidates = append([]string{cfg.Abs(cfg.Paths.Template)}, candidates...)
	}
	for _, p := range candidates {
		data, err := os.ReadFile(p) // #nosec G304 -- project paths
		if err == nil {
			return string(data), nil
		}
		if !stderrors.Is(err, fs.ErrNotExist) {
			return "", errors.WrapError(err, errors.CategoryFileSystem, "read page template").
				WithPath(p).
				Fatal().
				Build()
		}
	}
	data, err := embeddedTemplates.ReadFile("templates_defaults/index.html")
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryInternal, "embedded page template missing").Build()
	}
	return string(data), nil
}

// PageRenderer lays out routes with html/template for sites without a server
// entry. Content routes use the transformed document bodies keyed by route
// path.
type PageRenderer struct {
	Config *config.Config
	Pages  []index.Page
	Bodies map[string]string
	Recent int

	tmpl   *template.Template
	byPath map[string]index.Page
}

// NewPageRenderer parses the layout templates. Pages are expected in index
// order.
func NewPageRenderer(cfg *config.Config, pages []index.Page, bodies map[string]string) (*PageRenderer, error) {
	tmpl, err := template.New("pages").Funcs(template.FuncMap{
		"safe": func(s string) template.HTML { return template.HTML(s) }, // #nosec G203 -- rendered markdown
		"date": formatDate,
	}).ParseFS(embeddedTemplates, "templates_defaults/*.tmpl")
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "parse page layouts").Build()
	}
	byPath := make(map[string]index.Page, len(pages))
	for _, p := range pages {
		byPath[routes.WithTrailingSlash(p.ContentURL)] = p
	}
	return &PageRenderer{
		Config: cfg,
		Pages:  pages,
		Bodies: bodies,
		Recent: DefaultRecentPages,
		tmpl:   tmpl,
		byPath: byPath,
	}, nil
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.DateOnly)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format(time.DateOnly)
	default:
		return ""
	}
}

// Render lays out the route at url.
func (r *PageRenderer) Render(_ context.Context, url string, _ Manifest) (Rendered, error) {
	data := map[string]any{"Site": r.Config}
	var name string
	var out Rendered

	switch {
	case url == routes.HomePath:
		name = "home"
		data["Pages"] = r.recent()
	case url == routes.NotFoundPath:
		name = "not_found"
		out.TitlePrefix = "404"
	default:
		if page, ok := r.byPath[url]; ok {
			name = "content"
			data["Page"] = page
			data["Body"] = template.HTML(r.Bodies[url]) // #nosec G203 -- transformed document body
			out.TitlePrefix = page.TextTitle
			out.Lang = page.Lang
			out.Meta = MetaTags(page.Meta)
			break
		}
		key := strings.Trim(url, "/")
		label, ok := r.Config.Categories.Label(key)
		if !ok {
			return Rendered{}, errors.RenderError("no page for route").
				WithContext("route", url).
				Fatal().
				Build()
		}
		name = "category"
		pages := slices.Clone(index.InCategory(r.Pages, key))
		index.SortChronological(pages)
		data["Label"] = label
		data["Groups"] = index.GroupByYearMonth(pages, time.UTC)
		out.TitlePrefix = label
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return Rendered{}, errors.WrapError(err, errors.CategoryRender, "execute page layout").
			WithContext("route", url).
			Fatal().
			Build()
	}
	out.AppHTML = buf.String()
	return out, nil
}

func (r *PageRenderer) recent() []index.Page {
	pages := slices.Clone(r.Pages)
	index.SortChronological(pages)
	if r.Recent > 0 && len(pages) > r.Recent {
		pages = pages[:r.Recent]
	}
	return pages
}

// MetaTags renders a page's meta value as <meta> elements. A map yields one
// name/content tag per key in key order; a list of maps yields one tag per
// item with its attributes in key order.
func MetaTags(meta any) string {
	var b strings.Builder
	switch m := meta.(type) {
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, `<meta name="%s" content="%s">`, html.EscapeString(k), html.EscapeString(fmt.Sprint(m[k])))
		}
	case []any:
		for _, item := range m {
			attrs, ok := item.(map[string]any)
			if !ok {
				continue
			}
			keys := make([]string, 0, len(attrs))
			for k := range attrs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			b.WriteString("<meta")
			for _, k := range keys {
				fmt.Fprintf(&b, ` %s="%s"`, html.EscapeString(k), html.EscapeString(fmt.Sprint(attrs[k])))
			}
			b.WriteString(">")
		}
	}
	return b.String()
}
