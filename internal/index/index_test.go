package index

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/inkpress/internal/config"
	"git.home.luguber.info/inful/inkpress/internal/content"
	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/markdown"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("name: Test Site\ndefault_lang: en\ncategories:\n  blog: Blog\n  notes: Notes\n"))
	require.NoError(t, err)
	return cfg
}

func testBuilder(t *testing.T) *Builder {
	t.Helper()
	cfg := testConfig(t)
	tr, err := markdown.New(markdown.Options{Labels: cfg.Markdown.Container})
	require.NoError(t, err)
	return NewBuilder(cfg, tr, nil)
}

func doc(rel string, fm map[string]any) content.Entry {
	return content.Entry{
		Path:        "/site/content/" + rel,
		RelPath:     rel,
		Kind:        content.KindDocument,
		Frontmatter: fm,
		HasMeta:     fm != nil,
	}
}

func TestBuildSkipsUnpublishable(t *testing.T) {
	b := testBuilder(t)
	entries := []content.Entry{
		doc("blog/a.md", map[string]any{"title": "A"}),
		doc("blog/hidden.md", map[string]any{"title": "H", "hidden": true}),
		doc("blog/widget.md", map[string]any{"title": "W", "isComponent": true}),
		doc("blog/bare.md", nil),
	}
	pages, err := b.Build(context.Background(), entries)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "/blog/a/", pages[0].ContentURL)
}

func TestBuildPageFields(t *testing.T) {
	b := testBuilder(t)
	e := doc("blog/a.md", map[string]any{
		"title":  "Hello *World*",
		"time":   "2024-01-01",
		"tags":   []any{"go", "web"},
		"meta":   map[string]any{"description": "d"},
		"author": "alice",
		"lang":   "zh",
	})
	e.Excerpt = "Short **intro**\n"
	e.HasExcerpt = true

	pages, err := b.Build(context.Background(), []content.Entry{e})
	require.NoError(t, err)
	require.Len(t, pages, 1)
	p := pages[0]

	assert.Equal(t, "Hello <em>World</em>", p.Title)
	assert.Equal(t, "Hello World", p.TextTitle)
	require.NotNil(t, p.Time)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *p.Time)
	assert.Equal(t, "blog", p.Category)
	assert.Equal(t, "/blog/a/", p.ContentURL)
	assert.Equal(t, "/blog/a.md", p.SourceURL)
	assert.Equal(t, []string{"go", "web"}, p.Tags)
	assert.Equal(t, "zh", p.Lang)
	assert.Equal(t, map[string]any{"description": "d"}, p.Meta)
	assert.Equal(t, map[string]any{"author": "alice"}, p.Data)
	assert.Contains(t, p.Excerpt, "<strong>intro</strong>")

	// The entry's own frontmatter stays intact.
	assert.Contains(t, e.Frontmatter, "title")
}

func TestBuildDefaultsAndSlug(t *testing.T) {
	b := testBuilder(t)
	e := doc("misc/page.md", map[string]any{"title": "P", "slug": "/custom/"})
	e.Excerpt = "x"
	e.HasExcerpt = true
	e.Frontmatter["noExcerpt"] = true

	pages, err := b.Build(context.Background(), []content.Entry{e})
	require.NoError(t, err)
	p := pages[0]
	assert.Equal(t, "/custom/", p.ContentURL)
	assert.Equal(t, "en", p.Lang)
	assert.Empty(t, p.Category)
	assert.Empty(t, p.Excerpt)
	assert.Nil(t, p.Time)
	assert.Empty(t, p.Data)
}

func TestBuildRootLevelCategoryPage(t *testing.T) {
	b := testBuilder(t)
	pages, err := b.Build(context.Background(), []content.Entry{doc("blog.md", map[string]any{"title": "B"})})
	require.NoError(t, err)
	assert.Equal(t, "blog", pages[0].Category)
}

func TestBuildRejectsDuplicateContentURL(t *testing.T) {
	b := testBuilder(t)
	entries := []content.Entry{
		doc("blog/a.md", map[string]any{"title": "A"}),
		doc("notes/b.md", map[string]any{"title": "B", "slug": "/blog/a/"}),
	}
	_, err := b.Build(context.Background(), entries)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, "blog/a.md", ce.Context()["first"])
	assert.Equal(t, "notes/b.md", ce.Context()["second"])
}

func TestBuildRejectsInvalidTime(t *testing.T) {
	b := testBuilder(t)
	_, err := b.Build(context.Background(), []content.Entry{doc("blog/a.md", map[string]any{"title": "A", "time": "yesterday"})})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 5, 6, 7, 8, 0, 0, time.UTC)
	for _, in := range []any{"2024-05-06T07:08:00Z", "2024-05-06 07:08:00", "2024-05-06T07:08", want} {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}
	_, err := ParseTime(42)
	require.Error(t, err)
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestSortChronological(t *testing.T) {
	pages := []Page{
		{Title: "Old", Time: ts("2023-01-01")},
		{Title: "Item 2", Time: ts("2024-01-01")},
		{Title: "Item 10", Time: ts("2024-01-01")},
		{Title: "New", Time: ts("2024-06-01")},
	}
	SortChronological(pages)
	titles := make([]string, 0, len(pages))
	for _, p := range pages {
		titles = append(titles, p.Title)
	}
	assert.Equal(t, []string{"New", "Item 10", "Item 2", "Old"}, titles)
}

func TestGroupByYearMonth(t *testing.T) {
	pages := []Page{
		{Title: "a", Time: ts("2024-06-20")},
		{Title: "b", Time: ts("2024-06-01")},
		{Title: "c", Time: ts("2024-05-01")},
		{Title: "d", Time: ts("2023-05-01")},
	}
	groups := GroupByYearMonth(pages, nil)
	require.Len(t, groups, 3)
	assert.Equal(t, 2024, groups[0].Year)
	assert.Equal(t, time.June, groups[0].Month)
	assert.Len(t, groups[0].Pages, 2)
	assert.Equal(t, time.May, groups[1].Month)
	assert.Equal(t, 2023, groups[2].Year)
}

func TestInCategoryAndLatest(t *testing.T) {
	pages := []Page{
		{Title: "a", Category: "blog", Time: ts("2024-01-01")},
		{Title: "b", Category: "notes"},
		{Title: "c", Category: "blog", Time: ts("2024-03-01")},
	}
	blog := InCategory(pages, "blog")
	require.Len(t, blog, 2)
	latest, ok := Latest(blog)
	require.True(t, ok)
	assert.Equal(t, *ts("2024-03-01"), latest)

	_, ok = Latest(InCategory(pages, "notes"))
	assert.False(t, ok)
}

func TestWriteJSONAndContext(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)

	require.NoError(t, WriteJSON(filepath.Join(dir, "gen", "pages.json"), nil))
	raw, err := os.ReadFile(filepath.Join(dir, "gen", "pages.json"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))

	require.NoError(t, WriteContext(filepath.Join(dir, "context.json"), cfg, ""))
	raw, err = os.ReadFile(filepath.Join(dir, "context.json"))
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, UnknownSHA, got["githubSHA"])
	assert.Equal(t, "Test Site", got["config"].(map[string]any)["name"])
}

func TestResolveSHA(t *testing.T) {
	t.Setenv("GITHUB_SHA", "")
	assert.Equal(t, "abc", ResolveSHA("abc"))
	assert.Equal(t, UnknownSHA, ResolveSHA(""))
	t.Setenv("GITHUB_SHA", "fromenv")
	assert.Equal(t, "fromenv", ResolveSHA("abc"))
}
