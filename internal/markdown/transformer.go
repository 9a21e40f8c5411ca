// Package markdown turns Markdown documents into page components.
//
// A Transformer wraps a configured goldmark instance with the site's syntax
// extensions (containers, spoilers, math, highlighted code, heading anchors)
// and splits the output into a template and lifted component blocks.
package markdown

import (
	"bytes"
	"context"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/inkpress/internal/config"
	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/markdown/math"
)

// Options configure a Transformer.
type Options struct {
	Labels         config.ContainerLabels
	ExpanderFlavor config.ExpanderFlavor
	LightTheme     string
	DarkTheme      string
	// HeadingLevels selects the headings recorded in the outline.
	HeadingLevels []int
	// CustomBlocks are extra top-level element names lifted like <style>.
	CustomBlocks []string
	Typesetter   math.Typesetter
}

// OptionsFromConfig derives transform options from the site configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := Options{
		Labels:         cfg.Markdown.Container,
		ExpanderFlavor: cfg.Markdown.ExpanderFlavor,
		LightTheme:     cfg.Markdown.Code.LightTheme,
		DarkTheme:      cfg.Markdown.Code.DarkTheme,
		Typesetter:     math.ClientTypesetter{},
	}
	if len(cfg.Markdown.Math.Command) > 0 {
		stylesheet := cfg.Markdown.Math.Stylesheet
		if stylesheet != "" {
			stylesheet = cfg.Abs(stylesheet)
		}
		ts, err := math.NewCommandTypesetter(cfg.Markdown.Math.Command, stylesheet)
		if err != nil {
			return Options{}, errors.WrapError(err, errors.CategoryConfig, "invalid markdown.math.command").Fatal().Build()
		}
		opts.Typesetter = ts
	}
	return opts, nil
}

// Env carries per-document information.
type Env struct {
	// Path identifies the document in errors.
	Path string
}

// Result is the output of rendering one document.
type Result struct {
	// HTML is the complete rendered document.
	HTML string
	// Template is HTML without the lifted component blocks.
	Template  string
	Fragments Fragments
	Headings  []Heading
	// MathCount is the number of typeset expressions.
	MathCount int
}

// FlatHeadings returns the outline in pre-order.
func (r Result) FlatHeadings() []Heading { return FlattenHeadings(r.Headings) }

// StaticBody is the template preceded by the document's style blocks, for
// layouts that embed the document without a component runtime.
func (r Result) StaticBody() string {
	var b strings.Builder
	for _, s := range r.Fragments.Styles {
		b.WriteString(s.Content())
	}
	b.WriteString(r.Template)
	return b.String()
}

// InlineResult is a rendered single-line fragment.
type InlineResult struct {
	HTML string
	// Text is HTML with all markup removed and entities decoded.
	Text string
}

// Transformer renders documents. It is safe for sequential reuse; concurrent
// Render calls share only immutable state.
type Transformer struct {
	md         goldmark.Markdown
	inline     goldmark.Markdown
	code       *codeHighlighter
	typesetter math.Typesetter
	custom     map[string]bool
	strip      *bluemonday.Policy
}

// New builds a Transformer.
func New(opts Options) (*Transformer, error) {
	if opts.LightTheme == "" {
		opts.LightTheme = config.DefaultLightCodeTheme
	}
	if opts.DarkTheme == "" {
		opts.DarkTheme = config.DefaultDarkCodeTheme
	}
	if len(opts.HeadingLevels) == 0 {
		opts.HeadingLevels = []int{2, 3}
	}
	if opts.Typesetter == nil {
		opts.Typesetter = math.ClientTypesetter{}
	}
	code, err := newCodeHighlighter(opts.LightTheme, opts.DarkTheme)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid code theme").Fatal().Build()
	}
	levels := make(map[int]bool, len(opts.HeadingLevels))
	for _, l := range opts.HeadingLevels {
		levels[l] = true
	}
	custom := make(map[string]bool, len(opts.CustomBlocks))
	for _, name := range opts.CustomBlocks {
		custom[strings.ToLower(name)] = true
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.Typographer,
			&containers{labels: opts.Labels, flavor: opts.ExpanderFlavor},
			&spoilers{},
			&mathSyntax{},
		),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(
				util.Prioritized(&headingTransformer{levels: levels}, 100),
				util.Prioritized(lazyImages{}, 200),
			),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithUnsafe(),
			renderer.WithNodeRenderers(
				util.Prioritized(&headingRenderer{}, 100),
				util.Prioritized(code, 100),
			),
		),
	)

	// Titles are a single paragraph: no block syntax besides paragraphs.
	inline := goldmark.New(
		goldmark.WithParser(parser.NewParser(
			parser.WithBlockParsers(util.Prioritized(parser.NewParagraphParser(), 1000)),
			parser.WithInlineParsers(parser.DefaultInlineParsers()...),
			parser.WithParagraphTransformers(parser.DefaultParagraphTransformers()...),
		)),
		goldmark.WithExtensions(
			extension.Strikethrough,
			extension.Linkify,
			extension.Typographer,
			&spoilers{},
			&mathSyntax{inlineOnly: true},
		),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)

	return &Transformer{
		md:         md,
		inline:     inline,
		code:       code,
		typesetter: opts.Typesetter,
		custom:     custom,
		strip:      bluemonday.StrictPolicy(),
	}, nil
}

// Render transforms a Markdown document body.
func (t *Transformer) Render(ctx context.Context, src []byte, env Env) (Result, error) {
	reg := math.NewRegistry()
	pc := parser.NewContext()
	withMathRegistry(pc, reg)
	doc := t.md.Parser().Parse(text.NewReader(src), parser.WithContext(pc))

	var full bytes.Buffer
	if err := t.md.Renderer().Render(&full, src, doc); err != nil {
		return Result{}, t.renderError(err, env)
	}
	withCode := hasFencedCode(doc)

	fragments, lifted := liftBlocks(doc, src, t.custom)
	template := full.String()
	if lifted {
		var buf bytes.Buffer
		if err := t.md.Renderer().Render(&buf, src, doc); err != nil {
			return Result{}, t.renderError(err, env)
		}
		template = buf.String()
	}
	if withCode {
		fragments.AddStyle(t.code.Stylesheet())
	}

	jobs := reg.Jobs()
	results, err := math.Resolve(ctx, t.typesetter, jobs)
	if err != nil {
		return Result{}, errors.WrapError(err, errors.CategoryTransform, "math typesetting failed").
			WithPath(env.Path).
			Fatal().
			Build()
	}
	if len(jobs) > 0 {
		if css := t.typesetter.Stylesheet(); css != "" {
			fragments.AddStyle(css)
		}
	}

	return Result{
		HTML:      math.Substitute(full.String(), results),
		Template:  math.Substitute(template, results),
		Fragments: fragments,
		Headings:  headingsFrom(pc),
		MathCount: len(jobs),
	}, nil
}

// RenderInline renders a single line of Markdown without a paragraph
// wrapper.
func (t *Transformer) RenderInline(ctx context.Context, src string) (InlineResult, error) {
	reg := math.NewRegistry()
	pc := parser.NewContext()
	withMathRegistry(pc, reg)
	source := []byte(src)
	doc := t.inline.Parser().Parse(text.NewReader(source), parser.WithContext(pc))

	var buf bytes.Buffer
	if err := t.inline.Renderer().Render(&buf, source, doc); err != nil {
		return InlineResult{}, t.renderError(err, Env{})
	}
	results, err := math.Resolve(ctx, t.typesetter, reg.Jobs())
	if err != nil {
		return InlineResult{}, errors.WrapError(err, errors.CategoryTransform, "math typesetting failed").Fatal().Build()
	}
	out := math.Substitute(unwrapParagraph(buf.String()), results)
	return InlineResult{HTML: out, Text: t.PlainText(out)}, nil
}

// PlainText strips all markup from s and decodes entities.
func (t *Transformer) PlainText(s string) string {
	return html.UnescapeString(t.strip.Sanitize(s))
}

func (t *Transformer) renderError(err error, env Env) error {
	return errors.WrapError(err, errors.CategoryTransform, "render markdown").
		WithPath(env.Path).
		Fatal().
		Build()
}

func unwrapParagraph(s string) string {
	s = strings.TrimSuffix(s, "\n")
	if strings.HasPrefix(s, "<p>") && strings.HasSuffix(s, "</p>") && strings.Count(s, "<p>") == 1 {
		return s[len("<p>") : len(s)-len("</p>")]
	}
	return s
}

func hasFencedCode(doc ast.Node) bool {
	found := false
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindFencedCodeBlock {
			found = true
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return found
}

// lazyImages defers loading of every image.
type lazyImages struct{}

func (lazyImages) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if img, ok := n.(*ast.Image); ok && entering {
			img.SetAttributeString("loading", []byte("lazy"))
		}
		return ast.WalkContinue, nil
	})
}
