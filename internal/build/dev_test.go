package build

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/inkpress/internal/index"
	"git.home.luguber.info/inful/inkpress/internal/routes"
)

func writeContent(t *testing.T, root, rel, data string) string {
	t.Helper()
	p := filepath.Join(root, "content", filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
	return p
}

func TestIncrementalApply(t *testing.T) {
	cfg := newSite(t, map[string]string{"content/blog/a.md": helloPost})
	in := NewIncremental(newTestBuilder(t, cfg))
	ctx := context.Background()

	initial, eff, err := in.Initial(ctx)
	require.NoError(t, err)
	require.Len(t, initial.Pages, 1)
	assert.Contains(t, eff.Components, "blog/a.md")
	require.NoError(t, in.WriteEffects(initial, eff))
	assert.FileExists(t, ComponentPath(cfg, "blog/a.md"))
	assert.FileExists(t, PagesPath(cfg))

	t.Run("new document", func(t *testing.T) {
		p := writeContent(t, cfg.Root, "blog/b.md", "---\ntime: 2024-02-01\ntitle: Second\n---\nMore.\n")
		next, eff, err := in.Apply(ctx, initial, Change{Path: p, Op: OpWrite})
		require.NoError(t, err)
		assert.Len(t, next.Pages, 2)
		assert.Equal(t, []string{"/", "/404.html", "/blog/", "/blog/a/", "/blog/b/"}, routes.Paths(next.Routes))
		assert.Equal(t, []string{"blog/b.md"}, keys(eff.Components))
		assert.True(t, eff.Index)

		assert.Len(t, initial.Pages, 1)
		assert.Len(t, initial.Entries, 1)
		assert.NotContains(t, initial.Components, "blog/b.md")
		require.NoError(t, os.Remove(p))
	})

	t.Run("hidden document keeps its module", func(t *testing.T) {
		p := writeContent(t, cfg.Root, "blog/a.md", "---\ntitle: Hello\nhidden: true\n---\nBody\n")
		next, eff, err := in.Apply(ctx, initial, Change{Path: p, Op: OpWrite})
		require.NoError(t, err)
		assert.Empty(t, next.Pages)
		assert.Contains(t, eff.Components, "blog/a.md")
		assert.Contains(t, next.Components, "blog/a.md")
		writeContent(t, cfg.Root, "blog/a.md", helloPost)
	})

	t.Run("removal", func(t *testing.T) {
		p := filepath.Join(cfg.Root, "content", "blog", "a.md")
		require.NoError(t, os.Remove(p))
		next, eff, err := in.Apply(ctx, initial, Change{Path: p, Op: OpRemove})
		require.NoError(t, err)
		assert.Empty(t, next.Entries)
		assert.Empty(t, next.Pages)
		assert.Equal(t, []string{"blog/a.md"}, eff.Removed)

		require.NoError(t, in.WriteEffects(next, eff))
		assert.NoFileExists(t, ComponentPath(cfg, "blog/a.md"))
		writeContent(t, cfg.Root, "blog/a.md", helloPost)
	})

	t.Run("outside content root", func(t *testing.T) {
		p := filepath.Join(cfg.Root, "README.md")
		require.NoError(t, os.WriteFile(p, []byte("# readme"), 0o600))
		next, eff, err := in.Apply(ctx, initial, Change{Path: p, Op: OpWrite})
		require.NoError(t, err)
		assert.True(t, eff.Empty())
		assert.Equal(t, initial.Pages, next.Pages)
	})

	t.Run("removal of unknown file", func(t *testing.T) {
		p := filepath.Join(cfg.Root, "content", "never.md")
		_, eff, err := in.Apply(ctx, initial, Change{Path: p, Op: OpRemove})
		require.NoError(t, err)
		assert.True(t, eff.Empty())
	})
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestShouldIgnoreEvent(t *testing.T) {
	assert.True(t, shouldIgnoreEvent("/c/.a.md.swp"))
	assert.True(t, shouldIgnoreEvent("/c/a.md~"))
	assert.False(t, shouldIgnoreEvent("/c/a.md"))
}

func TestDevWorkerDrainOrdersAndCoalesces(t *testing.T) {
	w := &devWorker{}
	ready := make(chan struct{}, 1)
	w.queue(Change{Path: "/c/b.md", Op: OpWrite}, ready)
	w.queue(Change{Path: "/c/a.md", Op: OpWrite}, ready)
	w.queue(Change{Path: "/c/b.md", Op: OpRemove}, ready)
	got := w.drain()
	assert.Equal(t, []Change{{Path: "/c/a.md", Op: OpWrite}, {Path: "/c/b.md", Op: OpRemove}}, got)
	assert.Empty(t, w.drain())
	<-ready
}

func TestDevWorkerPicksUpMovedDirectory(t *testing.T) {
	cfg := newSite(t, map[string]string{
		"content/blog/a.md":       helloPost,
		"staging/notes/n.md":      "---\ntime: 2024-03-01\ntitle: Note\n---\nA note.\n",
		"staging/notes/deep/d.md": "---\ntime: 2024-04-01\ntitle: Deep\n---\nDeeper.\n",
	})
	b := newTestBuilder(t, cfg)
	in := NewIncremental(b)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state, eff, err := in.Initial(ctx)
	require.NoError(t, err)
	require.NoError(t, in.WriteEffects(state, eff))

	watcher, err := setupFileWatcher(cfg.ContentDir(), b.Logger)
	require.NoError(t, err)
	defer func() { _ = watcher.Close() }()

	w := &devWorker{in: in, state: state, logger: b.Logger}
	done := make(chan error, 1)
	go func() { done <- w.loop(ctx, watcher) }()

	require.NoError(t, os.Rename(
		filepath.Join(cfg.Root, "staging", "notes"),
		filepath.Join(cfg.ContentDir(), "notes"),
	))

	pageCount := func() int {
		data, err := os.ReadFile(PagesPath(cfg))
		if err != nil {
			return -1
		}
		var pages []index.Page
		if err := json.Unmarshal(data, &pages); err != nil {
			return -1
		}
		return len(pages)
	}
	assert.Eventually(t, func() bool {
		return pageCount() == 3
	}, 5*time.Second, 50*time.Millisecond)
	assert.FileExists(t, ComponentPath(cfg, "notes/n.md"))
	assert.FileExists(t, ComponentPath(cfg, "notes/deep/d.md"))

	cancel()
	require.NoError(t, <-done)
}

func TestScheduler(t *testing.T) {
	s, err := NewScheduler(nil)
	require.NoError(t, err)
	_, err = s.ScheduleBuild(context.Background(), "*/5 * * * *", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, s.Jobs())

	_, err = s.ScheduleBuild(context.Background(), "not a cron", func(context.Context) error { return nil })
	require.Error(t, err)

	s.Start()
	require.NoError(t, s.Stop())
}
