package markdown

import (
	"context"
	stderrors "errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/inkpress/internal/config"
	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/markdown/math"
)

var testLabels = config.ContainerLabels{Warning: "WARNING", Error: "ERROR", Info: "INFO", Expander: "MORE"}

func newTransformer(t *testing.T, mutate ...func(*Options)) *Transformer {
	t.Helper()
	opts := Options{Labels: testLabels, ExpanderFlavor: config.ExpanderComponent}
	for _, m := range mutate {
		m(&opts)
	}
	tr, err := New(opts)
	require.NoError(t, err)
	return tr
}

func render(t *testing.T, tr *Transformer, src string) Result {
	t.Helper()
	res, err := tr.Render(context.Background(), []byte(src), Env{Path: "test.md"})
	require.NoError(t, err)
	return res
}

type countingTypesetter struct {
	calls atomic.Int32
	css   string
	err   error
}

func (c *countingTypesetter) Typeset(_ context.Context, tex string, display bool) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	if display {
		return "[D:" + tex + "]", nil
	}
	return "[I:" + tex + "]", nil
}

func (c *countingTypesetter) Stylesheet() string { return c.css }

func TestContainers(t *testing.T) {
	tr := newTransformer(t)

	res := render(t, tr, "::: warning\nhello\n:::\n")
	assert.Contains(t, res.HTML, "<div class=\"container warning\"><p class=\"container-title\">WARNING</p>\n<p>hello</p>\n</div>\n")

	res = render(t, tr, "::: info Heads up\nbody\n:::\n")
	assert.Contains(t, res.HTML, `<p class="container-title">Heads up</p>`)

	res = render(t, tr, "::: other\nbody\n:::\n")
	assert.NotContains(t, res.HTML, "container")
}

func TestNestedContainers(t *testing.T) {
	tr := newTransformer(t)
	res := render(t, tr, ":::: info\nouter\n\n::: error\ninner\n:::\n\nafter\n::::\n")

	outer := strings.Index(res.HTML, `<div class="container info">`)
	inner := strings.Index(res.HTML, `<div class="container error">`)
	after := strings.Index(res.HTML, "<p>after</p>")
	require.GreaterOrEqual(t, outer, 0)
	require.Greater(t, inner, outer)
	require.Greater(t, after, inner)
	assert.Equal(t, 2, strings.Count(res.HTML, "</div>"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(res.HTML), "</div>"))
}

func TestExpanderFlavors(t *testing.T) {
	src := "::: expander\nhidden\n:::\n"

	res := render(t, newTransformer(t), src)
	assert.Contains(t, res.HTML, `<ExpanderComponent class="expander" :initial-collapsed="true"`)
	assert.Contains(t, res.HTML, `:extend-toggle-area="true">`)
	assert.Contains(t, res.HTML, "<template #header>")
	assert.Contains(t, res.HTML, "<span font-bold text-sm p-y-4>MORE</span>")
	assert.Contains(t, res.HTML, "<p>hidden</p>\n</ExpanderComponent>")

	res = render(t, newTransformer(t, func(o *Options) { o.ExpanderFlavor = config.ExpanderHTML }), "::: expander Details\nhidden\n:::\n")
	assert.Contains(t, res.HTML, "<details class=\"expander\"><summary>Details</summary>\n<p>hidden</p>\n</details>")
}

func TestSpoiler(t *testing.T) {
	res := render(t, newTransformer(t), "a @@hidden *text*@@ b\n")
	assert.Contains(t, res.HTML, `<p>a <span class="heimu">hidden <em>text</em></span> b</p>`)

	res = render(t, newTransformer(t), "mail me @ home\n")
	assert.NotContains(t, res.HTML, "heimu")
}

func TestInlineAndDisplayMath(t *testing.T) {
	res := render(t, newTransformer(t), "Euler $e^{i\\pi}+1=0$ holds.\n\n$$\nx^2\n$$\n")
	assert.Contains(t, res.HTML, `<span class="math math-inline" v-pre>\(e^{i\pi}+1=0\)</span>`)
	assert.Contains(t, res.HTML, `<div class="math math-display" v-pre>\[x^2\]</div>`)
	assert.NotRegexp(t, math.PlaceholderPattern, res.HTML)
	assert.NotRegexp(t, math.PlaceholderPattern, res.Template)
	assert.Equal(t, 2, res.MathCount)
}

func TestDollarAmountsAreNotMath(t *testing.T) {
	res := render(t, newTransformer(t), "It costs $5 and $10 today.\n")
	assert.Equal(t, 0, res.MathCount)
	assert.Contains(t, res.HTML, "$5 and $10")
}

func TestMathPlaceholdersAreReplacedEverywhere(t *testing.T) {
	ts := &countingTypesetter{css: "mjx{}"}
	tr := newTransformer(t, func(o *Options) { o.Typesetter = ts })

	res := render(t, tr, "<style>\n.a{}\n</style>\n\n$a$ and $b$ and $$c$$\n\n$$ d $$\n")
	assert.EqualValues(t, 4, ts.calls.Load())
	assert.Equal(t, 4, res.MathCount)
	for _, want := range []string{"[I:a]", "[I:b]", "[D:c]", "[D:d]"} {
		assert.Equal(t, 1, strings.Count(res.HTML, want), want)
		assert.Equal(t, 1, strings.Count(res.Template, want), want)
	}
	assert.NotRegexp(t, math.PlaceholderPattern, res.HTML)
	assert.NotRegexp(t, math.PlaceholderPattern, res.Template)

	require.Len(t, res.Fragments.Styles, 2)
	assert.Equal(t, ".a{}", strings.TrimSpace(res.Fragments.Styles[0].ContentStripped))
	assert.Equal(t, "mjx{}", res.Fragments.Styles[1].ContentStripped)
}

func TestNoMathSkipsTypesetter(t *testing.T) {
	ts := &countingTypesetter{css: "mjx{}"}
	res := render(t, newTransformer(t, func(o *Options) { o.Typesetter = ts }), "plain text\n")
	assert.Zero(t, ts.calls.Load())
	assert.Zero(t, res.MathCount)
	assert.Empty(t, res.Fragments.Styles)
}

func TestMathFailureIsTransformError(t *testing.T) {
	ts := &countingTypesetter{err: stderrors.New("undefined control sequence")}
	tr := newTransformer(t, func(o *Options) { o.Typesetter = ts })

	_, err := tr.Render(context.Background(), []byte("$\\oops$\n"), Env{Path: "a.md"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryTransform))
	var mathErr *math.Error
	require.ErrorAs(t, err, &mathErr)
	assert.Equal(t, `\oops`, mathErr.TeX)
}

func TestFencedCodeHighlighting(t *testing.T) {
	src := "```go {2}\nfunc main() {} // [!code ++]\nx := 1\nremoved() // [!code --]\n```\n"
	res := render(t, newTransformer(t), src)

	assert.Contains(t, res.HTML, `<pre class="chroma shiki has-diff has-highlighted" data-lang="go"><code>`)
	assert.Contains(t, res.HTML, `<span class="line diff add">`)
	assert.Contains(t, res.HTML, `<span class="line highlighted">`)
	assert.Contains(t, res.HTML, `<span class="line diff remove">`)
	assert.NotContains(t, res.HTML, "[!code")
	assert.Equal(t, 3, strings.Count(res.HTML, `<span class="line`))

	require.Len(t, res.Fragments.Styles, 1)
	assert.Contains(t, res.Fragments.Styles[0].ContentStripped, "@media (prefers-color-scheme: dark)")
}

func TestFencedCodeNotationEscape(t *testing.T) {
	res := render(t, newTransformer(t), "```js\nconst a = 1 // [\\!code ++]\n```\n")
	assert.Contains(t, res.HTML, "[!code ++]")
	assert.NotContains(t, res.HTML, "has-diff")
}

func TestFocusNotation(t *testing.T) {
	res := render(t, newTransformer(t), "```py\na = 1 # [!code focus]\nb = 2\n```\n")
	assert.Contains(t, res.HTML, "has-focused")
	assert.Contains(t, res.HTML, `<span class="line focused">`)
}

func TestParseFenceInfo(t *testing.T) {
	lang, lines := parseFenceInfo("ts {1,3-4}")
	assert.Equal(t, "ts", lang)
	assert.Equal(t, []int{1, 3, 4}, lines)

	lang, lines = parseFenceInfo("rust{2}")
	assert.Equal(t, "rust", lang)
	assert.Equal(t, []int{2}, lines)

	lang, lines = parseFenceInfo("")
	assert.Empty(t, lang)
	assert.Empty(t, lines)
}

func TestHeadingAnchorsAndOutline(t *testing.T) {
	res := render(t, newTransformer(t), "# Title\n\n## Intro\n\n### Detail\n\n#### Deep\n\n## Intro\n")

	assert.Contains(t, res.HTML, `<h2 id="intro" tabindex="-1"><a class="header-anchor" href="#intro" aria-hidden="true">#</a> Intro</h2>`)
	assert.Contains(t, res.HTML, `<h2 id="intro-1" tabindex="-1">`)
	assert.Contains(t, res.HTML, `<h1 id="title" tabindex="-1">`)

	require.Len(t, res.Headings, 2)
	assert.Equal(t, "intro", res.Headings[0].Slug)
	assert.Equal(t, "#intro", res.Headings[0].Link)
	require.Len(t, res.Headings[0].Children, 1)
	assert.Equal(t, "detail", res.Headings[0].Children[0].Slug)
	assert.Equal(t, 3, res.Headings[0].Children[0].Level)
	assert.Equal(t, "intro-1", res.Headings[1].Slug)

	flat := res.FlatHeadings()
	slugs := make([]string, 0, len(flat))
	for _, h := range flat {
		slugs = append(slugs, h.Slug)
	}
	assert.Equal(t, []string{"intro", "detail", "intro-1"}, slugs)
}

func TestHeadingSlugs(t *testing.T) {
	assert.Equal(t, "hello-world", slugify("  Hello   World "))
	assert.Equal(t, "%E4%BD%A0%E5%A5%BD-%E4%B8%96%E7%95%8C", slugify("你好 世界"))
	assert.Equal(t, "a%26b", slugify("A&B"))

	res := render(t, newTransformer(t), "## Use `code` *here*\n")
	require.Len(t, res.Headings, 1)
	assert.Equal(t, "use-code-here", res.Headings[0].Slug)
	assert.Equal(t, "Use code here", res.Headings[0].Title)
}

func TestFlattenHeadingsPreOrder(t *testing.T) {
	tree := []Heading{
		{Slug: "a", Children: []Heading{{Slug: "a1"}, {Slug: "a2", Children: []Heading{{Slug: "a2x"}}}}},
		{Slug: "b"},
	}
	flat := FlattenHeadings(tree)
	got := make([]string, 0, len(flat))
	for _, h := range flat {
		got = append(got, h.Slug)
	}
	assert.Equal(t, []string{"a", "a1", "a2", "a2x", "b"}, got)
	assert.Len(t, flat[0].Children, 2)
	assert.Equal(t, []Heading{}, FlattenHeadings(nil))
}

func TestLazyImages(t *testing.T) {
	res := render(t, newTransformer(t), "![alt](/a.png)\n")
	assert.Contains(t, res.HTML, `<img src="/a.png" alt="alt" loading="lazy">`)
}

func TestFootnotesAndTables(t *testing.T) {
	res := render(t, newTransformer(t), "Text[^1]\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n[^1]: Note\n")
	assert.Contains(t, res.HTML, "<table>")
	assert.Contains(t, res.HTML, `class="footnotes"`)
}

func TestComponentBlocksAreLifted(t *testing.T) {
	src := "<script setup lang=\"ts\">\nconst a = 1\n</script>\n\n# Hi\n\n<style scoped>\n.a{}\n</style>\n\n<docs>\nnotes\n</docs>\n"
	tr := newTransformer(t, func(o *Options) { o.CustomBlocks = []string{"docs"} })
	res := render(t, tr, src)

	require.NotNil(t, res.Fragments.ScriptSetup)
	assert.Equal(t, `<script setup lang="ts">`, res.Fragments.ScriptSetup.TagOpen)
	assert.Equal(t, "\nconst a = 1\n", res.Fragments.ScriptSetup.ContentStripped)
	assert.Nil(t, res.Fragments.Script)
	require.Len(t, res.Fragments.Styles, 1)
	assert.Equal(t, "<style scoped>", res.Fragments.Styles[0].TagOpen)
	require.Len(t, res.Fragments.Custom, 1)
	assert.Equal(t, "docs", res.Fragments.Custom[0].Type)

	assert.Contains(t, res.HTML, "<script setup")
	assert.NotContains(t, res.Template, "<script")
	assert.NotContains(t, res.Template, "<style")
	assert.NotContains(t, res.Template, "<docs>")
	assert.Contains(t, res.Template, `<h1 id="hi"`)
}

func TestTemplateEqualsHTMLWithoutBlocks(t *testing.T) {
	res := render(t, newTransformer(t), "# Hi\n\n<div>keep</div>\n")
	assert.Equal(t, res.HTML, res.Template)
}

func TestRenderInline(t *testing.T) {
	tr := newTransformer(t)

	out, err := tr.RenderInline(context.Background(), "Hello *world*")
	require.NoError(t, err)
	assert.Equal(t, "Hello <em>world</em>", out.HTML)
	assert.Equal(t, "Hello world", out.Text)

	out, err = tr.RenderInline(context.Background(), "Tom & Jerry")
	require.NoError(t, err)
	assert.Equal(t, "Tom &amp; Jerry", out.HTML)
	assert.Equal(t, "Tom & Jerry", out.Text)

	out, err = tr.RenderInline(context.Background(), "# not a heading")
	require.NoError(t, err)
	assert.Equal(t, "# not a heading", out.HTML)

	out, err = tr.RenderInline(context.Background(), "Area $r^2$")
	require.NoError(t, err)
	assert.Contains(t, out.HTML, `\(r^2\)`)
	assert.Equal(t, `Area \(r^2\)`, out.Text)
}

func TestStaticBodyPrependsStyles(t *testing.T) {
	res := Result{Template: "<p>x</p>"}
	res.Fragments.AddStyle("a{}")
	res.Fragments.AddStyle("b{}")
	assert.Equal(t, "<style>a{}</style><style>b{}</style><p>x</p>", res.StaticBody())
}
