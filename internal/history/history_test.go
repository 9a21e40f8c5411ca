package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitFile(t *testing.T, repo *git.Repository, dir, rel, body, msg string, when time.Time) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	w, err := repo.Worktree()
	require.NoError(t, err)
	_, err = w.Add(rel)
	require.NoError(t, err)
	sig := &object.Signature{Name: "Alice", Email: "alice@example.com", When: when}
	_, err = w.Commit(msg, &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
}

func TestGitProviderHistory(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	commitFile(t, repo, dir, "content/blog/a.md", "one", "Add a\n\nlonger body", base)
	commitFile(t, repo, dir, "content/blog/b.md", "other", "Add b", base.Add(time.Hour))
	commitFile(t, repo, dir, "content/blog/a.md", "two", "Edit a", base.Add(2*time.Hour))

	p := NewGitProvider(filepath.Join(dir, "content"), nil)
	revs, err := p.History(context.Background(), filepath.Join(dir, "content", "blog", "a.md"))
	require.NoError(t, err)
	require.Len(t, revs, 2)

	assert.Equal(t, "Edit a", revs[0].Message)
	assert.Equal(t, "Add a", revs[1].Message)
	assert.Equal(t, "Alice", revs[0].Author)
	assert.Equal(t, "master", revs[0].Branch)
	assert.Len(t, revs[0].Hash, 7)
	assert.Len(t, revs[0].FullHash, 40)
	assert.Equal(t, revs[0].FullHash[:7], revs[0].Hash)
	assert.Equal(t, "2024-03-01T14:00:00Z", revs[0].Time)

	head, err := p.Head(context.Background())
	require.NoError(t, err)
	assert.Equal(t, revs[0].FullHash, head)
}

func TestGitProviderUncommittedFile(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	commitFile(t, repo, dir, "a.md", "x", "init", time.Now())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.md"), []byte("y"), 0o600))

	revs, err := NewGitProvider(dir, nil).History(context.Background(), filepath.Join(dir, "new.md"))
	require.NoError(t, err)
	assert.NotNil(t, revs)
	assert.Empty(t, revs)
}

func TestGitProviderOutsideRepository(t *testing.T) {
	dir := t.TempDir()
	p := NewGitProvider(dir, nil)

	revs, err := p.History(context.Background(), filepath.Join(dir, "a.md"))
	require.NoError(t, err)
	assert.Empty(t, revs)

	head, err := p.Head(context.Background())
	require.NoError(t, err)
	assert.Empty(t, head)
}

func TestGitProviderEmptyRepository(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	revs, err := NewGitProvider(dir, nil).History(context.Background(), filepath.Join(dir, "a.md"))
	require.NoError(t, err)
	assert.Empty(t, revs)
}

func TestNop(t *testing.T) {
	revs, err := Nop{}.History(context.Background(), "/x")
	require.NoError(t, err)
	assert.Equal(t, []Revision{}, revs)
}
