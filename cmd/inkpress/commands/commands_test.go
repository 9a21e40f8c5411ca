package commands

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/inkpress/internal/config"
	"git.home.luguber.info/inful/inkpress/internal/index"
)

const testConfig = `name: Notebook
url: https://example.org
categories:
  blog: Blog
`

func createSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "inkpress.config.yaml"), []byte(testConfig), 0o600))
	post := filepath.Join(root, "content", "blog", "a.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(post), 0o750))
	require.NoError(t, os.WriteFile(post, []byte("---\ntime: 2024-01-01\ntitle: Hello\n---\n\nFirst post.\n"), 0o600))
	return root
}

func TestParse(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Vars{"version": "test"})
	require.NoError(t, err)

	ctx, err := parser.Parse([]string{"-r", t.TempDir(), "build", "--no-search", "--metrics-file", "m.prom"})
	require.NoError(t, err)
	assert.Equal(t, "build", ctx.Command())
	assert.True(t, cli.Build.NoSearch)
	assert.Equal(t, "m.prom", cli.Build.MetricsFile)

	_, err = parser.Parse([]string{"schedule"})
	require.Error(t, err)
}

func TestInitCmd(t *testing.T) {
	root := t.TempDir()
	var out bytes.Buffer
	g := &Global{Out: &out}
	cli := &CLI{Root: root}

	require.NoError(t, (&InitCmd{}).Run(g, cli))
	path := filepath.Join(root, "inkpress.config.yaml")
	assert.FileExists(t, path)
	assert.Contains(t, out.String(), "initialized successfully")

	require.Error(t, (&InitCmd{}).Run(g, cli))
	require.NoError(t, (&InitCmd{Force: true}).Run(g, cli))

	cfg, err := config.Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "My Notebook", cfg.Name)
}

func TestIndexCmd(t *testing.T) {
	root := createSite(t)
	var out bytes.Buffer
	require.NoError(t, (&IndexCmd{}).Run(&Global{Out: &out}, &CLI{Root: root}))

	var pages []index.Page
	require.NoError(t, json.Unmarshal(out.Bytes(), &pages))
	require.Len(t, pages, 1)
	assert.Equal(t, "/blog/a/", pages[0].ContentURL)
	assert.NoDirExists(t, filepath.Join(root, "dist"))
}

func TestRoutesCmd(t *testing.T) {
	root := createSite(t)
	var out bytes.Buffer
	require.NoError(t, (&RoutesCmd{}).Run(&Global{Out: &out}, &CLI{Root: root}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"home", "/"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"content", "/blog/a/", "blog/a.md"}, strings.Fields(lines[3]))
}

func TestBuildCmd(t *testing.T) {
	root := createSite(t)
	var out bytes.Buffer
	cmd := &BuildCmd{NoSearch: true, MetricsFile: "metrics.prom"}
	require.NoError(t, cmd.Run(&Global{Out: &out}, &CLI{Root: root}))

	assert.Contains(t, out.String(), "outcome=success")
	assert.FileExists(t, filepath.Join(root, "dist", "static", "blog", "a", "index.html"))
	data, err := os.ReadFile(filepath.Join(root, "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "build_outcomes_total")
}

func TestBuildCmdMissingConfig(t *testing.T) {
	err := (&BuildCmd{}).Run(&Global{Out: &bytes.Buffer{}}, &CLI{Root: t.TempDir()})
	require.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&VersionCmd{}).Run(&Global{Out: &out}))
	assert.True(t, strings.HasPrefix(out.String(), "inkpress "))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, slog.LevelInfo, config.LogFormatJSON).Debug("hidden")
	assert.Empty(t, buf.String())
	newLogger(&buf, slog.LevelInfo, config.LogFormatJSON).Info("shown")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
