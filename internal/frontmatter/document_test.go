package frontmatter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDocument_FieldsBodyAndExcerpt(t *testing.T) {
	raw := []byte("---\ntitle: Hello *world*\ntime: 2024-01-02\ntags: [a, b]\n---\nFirst paragraph.\n\n---\n\nRest of the post.\n")

	doc, err := ReadDocument(raw, "")
	require.NoError(t, err)
	require.True(t, doc.HasFrontmatter)
	assert.Equal(t, "Hello *world*", doc.Fields["title"])
	assert.Equal(t, []any{"a", "b"}, doc.Fields["tags"])
	require.True(t, doc.HasExcerpt)
	assert.Equal(t, "First paragraph.\n\n", doc.Excerpt)
	assert.Contains(t, string(doc.Body), "Rest of the post.")
}

func TestReadDocument_NoSeparatorMeansNoExcerpt(t *testing.T) {
	doc, err := ReadDocument([]byte("---\ntitle: a\n---\nbody only\n"), "")
	require.NoError(t, err)
	assert.False(t, doc.HasExcerpt)
	assert.Empty(t, doc.Excerpt)
}

func TestReadDocument_CustomSeparator(t *testing.T) {
	doc, err := ReadDocument([]byte("---\ntitle: a\n---\nintro\r\n<!-- more -->\r\nrest\r\n"), "<!-- more -->")
	require.NoError(t, err)
	require.True(t, doc.HasExcerpt)
	assert.Equal(t, "intro\r\n", doc.Excerpt)
}

func TestReadDocument_SeparatorMustFillTheLine(t *testing.T) {
	src := "---\ntitle: a\n---\nWrite `<!-- more -->` to cut.\n\n<!-- more -->\nrest\n"
	doc, err := ReadDocument([]byte(src), "<!-- more -->")
	require.NoError(t, err)
	require.True(t, doc.HasExcerpt)
	assert.Equal(t, "Write `<!-- more -->` to cut.\n\n", doc.Excerpt)
}

func TestReadDocument_WithoutFrontmatter(t *testing.T) {
	doc, err := ReadDocument([]byte("# Just a page\n"), "")
	require.NoError(t, err)
	assert.False(t, doc.HasFrontmatter)
	assert.Nil(t, doc.Fields)
}

func TestReadDocument_MalformedYAML(t *testing.T) {
	_, err := ReadDocument([]byte("---\ntitle: [unclosed\n---\nbody\n"), "")
	require.Error(t, err)
}

func TestReadSidecar_ProbesYamlThenYml(t *testing.T) {
	dir := t.TempDir()
	component := filepath.Join(dir, "about.vue")
	require.NoError(t, os.WriteFile(component, []byte("<template/>"), 0o600))
	require.NoError(t, os.WriteFile(component+".yml", []byte("title: From yml\n"), 0o600))

	sc, ok, err := ReadSidecar(component)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, component+".yml", sc.Path)
	assert.Equal(t, "From yml", sc.Fields["title"])

	require.NoError(t, os.WriteFile(component+".yaml", []byte("title: From yaml\nexcerpt: Short intro\n"), 0o600))
	sc, ok, err = ReadSidecar(component)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, component+".yaml", sc.Path)
	assert.Equal(t, "From yaml", sc.Fields["title"])
	assert.NotContains(t, sc.Fields, "excerpt")
	assert.True(t, sc.HasExcerpt)
	assert.Equal(t, "Short intro", sc.Excerpt)
}

func TestReadSidecar_Absent(t *testing.T) {
	_, ok, err := ReadSidecar(filepath.Join(t.TempDir(), "widget.vue"))
	require.NoError(t, err)
	assert.False(t, ok)
}
