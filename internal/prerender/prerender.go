// Package prerender writes one static HTML file per route by splicing
// rendered application markup into the page template.
package prerender

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/logfields"
	"git.home.luguber.info/inful/inkpress/internal/metrics"
	"git.home.luguber.info/inful/inkpress/internal/routes"
)

// Template placeholders. Each is replaced once.
const (
	PlaceholderPreloadLinks = "<!--preload-links-->"
	PlaceholderAppHTML      = "<!--app-html-->"
	PlaceholderTitlePrefix  = "<!--title-prefix-->"
	PlaceholderMeta         = "<!--meta-->"
	PlaceholderTitleSuffix  = "<!--title-suffix-->"
	PlaceholderLang         = "data-prerender-inject-lang"

	homeTitle = PlaceholderTitlePrefix + " | " + PlaceholderTitleSuffix
)

// ManifestDir is the bundler metadata directory inside the output directory.
const ManifestDir = ".vite"

// Manifest maps module ids to the client assets they need.
type Manifest map[string][]string

// Rendered is the markup a renderer produces for one route.
type Rendered struct {
	AppHTML      string
	PreloadLinks string
	TitlePrefix  string
	Meta         string
	Lang         string
}

// Renderer renders the application for a URL.
type Renderer interface {
	Render(ctx context.Context, url string, manifest Manifest) (Rendered, error)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(ctx context.Context, url string, manifest Manifest) (Rendered, error)

// Render calls f.
func (f RenderFunc) Render(ctx context.Context, url string, manifest Manifest) (Rendered, error) {
	return f(ctx, url, manifest)
}

// Splice fills the template placeholders for url.
func Splice(template, url string, r Rendered, siteName, defaultLang string) string {
	out := template
	if url == routes.HomePath {
		out = strings.Replace(out, homeTitle, siteName, 1)
	}
	lang := r.Lang
	if lang == "" {
		lang = defaultLang
	}
	return replaceEach(out,
		PlaceholderPreloadLinks, r.PreloadLinks,
		PlaceholderAppHTML, r.AppHTML,
		PlaceholderTitlePrefix, r.TitlePrefix,
		PlaceholderMeta, r.Meta,
		PlaceholderTitleSuffix, siteName,
		PlaceholderLang, `lang="`+lang+`"`,
	)
}

// replaceEach replaces the first occurrence of each old/new pair in turn.
func replaceEach(s string, pairs ...string) string {
	for i := 0; i+1 < len(pairs); i += 2 {
		s = strings.Replace(s, pairs[i], pairs[i+1], 1)
	}
	return s
}

// OutputPath maps a route URL to its file under outDir. URLs ending in "/"
// become index.html files.
func OutputPath(outDir, url string) string {
	clean := path.Clean("/" + url)
	if strings.HasSuffix(url, "/") {
		clean = path.Join(clean, "index.html")
	}
	return filepath.Join(outDir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
}

// ReadManifest loads <outDir>/.vite/ssr-manifest.json. A missing file is
// reported with fs.ErrNotExist in the chain.
func ReadManifest(outDir string) (Manifest, error) {
	p := filepath.Join(outDir, ManifestDir, "ssr-manifest.json")
	data, err := os.ReadFile(p) // #nosec G304 -- path is under the configured output directory
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.WrapError(err, errors.CategoryRender, "invalid build manifest").
			WithPath(p).
			Fatal().
			Build()
	}
	if m == nil {
		m = Manifest{}
	}
	return m, nil
}

// Prerenderer drives one prerender pass.
type Prerenderer struct {
	OutDir      string
	Template    string
	SiteName    string
	DefaultLang string
	Renderer    Renderer
	// RequireManifest fails the pass when the build manifest is missing.
	RequireManifest bool
	Recorder        metrics.Recorder
	Logger          *slog.Logger
}

// Run renders every route in order and writes its HTML file. The first
// failure aborts the pass. The bundler metadata directory is removed after
// a successful pass. Run returns the written file paths.
func (p *Prerenderer) Run(ctx context.Context, rs []routes.Route) ([]string, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := p.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	manifest, err := ReadManifest(p.OutDir)
	switch {
	case err == nil:
	case stderrors.Is(err, fs.ErrNotExist) && !p.RequireManifest:
		manifest = Manifest{}
	case stderrors.Is(err, fs.ErrNotExist):
		return nil, errors.WrapError(err, errors.CategoryRender, "build manifest missing").
			WithContext("dir", p.OutDir).
			Fatal().
			Build()
	default:
		return nil, err
	}

	written := make([]string, 0, len(rs))
	for _, r := range rs {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		start := time.Now()
		rendered, err := p.Renderer.Render(ctx, r.Path, manifest)
		if err != nil {
			if errors.IsClassified(err) {
				return written, err
			}
			return written, errors.WrapError(err, errors.CategoryRender, "render failed").
				WithContext("route", r.Path).
				Fatal().
				Build()
		}
		html := Splice(p.Template, r.Path, rendered, p.SiteName, p.DefaultLang)
		out := OutputPath(p.OutDir, r.Path)
		if err := writeFile(out, html); err != nil {
			return written, err
		}
		elapsed := time.Since(start)
		recorder.ObserveRenderDuration(string(r.Kind), elapsed)
		logger.Debug("Pre-rendered route", logfields.Route(r.Path), logfields.Path(out), logfields.Elapsed(elapsed))
		written = append(written, out)
	}

	if err := os.RemoveAll(filepath.Join(p.OutDir, ManifestDir)); err != nil {
		return written, errors.WrapError(err, errors.CategoryFileSystem, "remove bundler metadata").
			WithContext("dir", p.OutDir).
			Build()
	}
	logger.Info("Pre-render complete", logfields.Count(len(written)))
	return written, nil
}

func writeFile(p, content string) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
			WithPath(p).
			Fatal().
			Build()
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write prerendered page").
			WithPath(p).
			Fatal().
			Build()
	}
	return nil
}
