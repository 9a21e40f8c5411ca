package markdown

import (
	"html"
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Heading is one entry of a document outline.
type Heading struct {
	Level    int       `json:"level"`
	Title    string    `json:"title"`
	Slug     string    `json:"slug"`
	Link     string    `json:"link"`
	Children []Heading `json:"children"`
}

// FlattenHeadings returns the tree in pre-order. Entries keep their children.
func FlattenHeadings(tree []Heading) []Heading {
	var out []Heading
	var walk func([]Heading)
	walk = func(hs []Heading) {
		for _, h := range hs {
			out = append(out, h)
			walk(h.Children)
		}
	}
	walk(tree)
	if out == nil {
		return []Heading{}
	}
	return out
}

// slugify lowercases the trimmed title, joins whitespace runs with "-" and
// percent-encodes the result.
func slugify(title string) string {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(title)), unicode.IsSpace)
	return encodeURIComponent(strings.Join(fields, "-"))
}

// slugger hands out unique slugs within one document.
type slugger struct {
	used map[string]bool
}

func newSlugger() *slugger { return &slugger{used: map[string]bool{}} }

func (s *slugger) unique(title string) string {
	base := slugify(title)
	slug := base
	for i := 1; s.used[slug]; i++ {
		slug = base + "-" + strconv.Itoa(i)
	}
	s.used[slug] = true
	return slug
}

var headingsKey = parser.NewContextKey()

// headingTransformer assigns ids to all headings and records the outline
// of the configured levels.
type headingTransformer struct {
	levels map[int]bool
}

func (t *headingTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	source := reader.Source()
	slugs := newSlugger()
	var outline []*outlineNode
	var stack []*outlineNode

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		title := plainText(h, source)
		slug := slugs.unique(title)
		h.SetAttributeString("id", []byte(slug))
		h.SetAttributeString("tabindex", []byte("-1"))

		if t.levels[h.Level] {
			node := &outlineNode{Heading: Heading{
				Level: h.Level,
				Title: html.EscapeString(title),
				Slug:  slug,
				Link:  "#" + slug,
			}}
			for len(stack) > 0 && stack[len(stack)-1].Level >= h.Level {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				outline = append(outline, node)
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			}
			stack = append(stack, node)
		}
		return ast.WalkSkipChildren, nil
	})

	pc.Set(headingsKey, freeze(outline))
}

type outlineNode struct {
	Heading
	children []*outlineNode
}

func freeze(nodes []*outlineNode) []Heading {
	out := make([]Heading, 0, len(nodes))
	for _, n := range nodes {
		h := n.Heading
		h.Children = freeze(n.children)
		out = append(out, h)
	}
	return out
}

func headingsFrom(pc parser.Context) []Heading {
	if v, ok := pc.Get(headingsKey).([]Heading); ok {
		return v
	}
	return []Heading{}
}

// plainText concatenates the literal text below n.
func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.WriteString(html.UnescapeString(string(v.Value)))
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// headingRenderer writes a permalink anchor in front of the heading text.
type headingRenderer struct{}

func (r *headingRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindHeading, r.renderHeading)
}

func (r *headingRenderer) renderHeading(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.Heading)
	level := "0123456"[n.Level]
	if !entering {
		_, _ = w.WriteString("</h")
		_ = w.WriteByte(level)
		_, _ = w.WriteString(">\n")
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString("<h")
	_ = w.WriteByte(level)
	if n.Attributes() != nil {
		gmhtml.RenderAttributes(w, n, gmhtml.HeadingAttributeFilter)
	}
	_ = w.WriteByte('>')
	if id, ok := n.AttributeString("id"); ok {
		if b, ok := id.([]byte); ok {
			_, _ = w.WriteString(`<a class="header-anchor" href="#`)
			_, _ = w.Write(util.EscapeHTML(b))
			_, _ = w.WriteString(`" aria-hidden="true">#</a> `)
		}
	}
	return ast.WalkContinue, nil
}
