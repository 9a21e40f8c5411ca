package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/inkpress/internal/config"
	"git.home.luguber.info/inful/inkpress/internal/index"
)

func TestEnumerate(t *testing.T) {
	cfg, err := config.Parse([]byte("name: S\ncategories:\n  notes: Notes\n  blog: Blog\n"))
	require.NoError(t, err)
	pages := []index.Page{
		{ContentURL: "/blog/a/", SourceURL: "/blog/a.md"},
		{ContentURL: "/custom", SourceURL: "/misc/b.md"},
	}

	rs := Enumerate(cfg, pages)
	assert.Equal(t, []string{"/", "/404.html", "/notes/", "/blog/", "/blog/a/", "/custom/"}, Paths(rs))
	assert.Equal(t, KindHome, rs[0].Kind)
	assert.Equal(t, KindNotFound, rs[1].Kind)
	assert.Equal(t, Route{Path: "/notes/", Kind: KindCategory, Category: "notes"}, rs[2])
	assert.Equal(t, Route{Path: "/custom/", Kind: KindContent, Source: "misc/b.md"}, rs[5])
}

func TestEnumerateWithoutPages(t *testing.T) {
	cfg, err := config.Parse([]byte("name: S\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"/", "/404.html"}, Paths(Enumerate(cfg, nil)))
}

func TestWithTrailingSlash(t *testing.T) {
	assert.Equal(t, "/a/", WithTrailingSlash("/a"))
	assert.Equal(t, "/a/", WithTrailingSlash("/a/"))
}
