// Package history reads the revision history of content files from the
// enclosing git repository.
package history

import (
	"context"
	stderrors "errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/logfields"
)

// Revision is one commit touching a file.
type Revision struct {
	Hash     string `json:"hash"`
	FullHash string `json:"fullhash"`
	// Time is the committer time in ISO 8601.
	Time    string `json:"time"`
	Author  string `json:"author"`
	Message string `json:"message"`
	Branch  string `json:"branch"`
}

// Provider lists the revisions of a file, newest first.
type Provider interface {
	History(ctx context.Context, absPath string) ([]Revision, error)
}

// Nop reports no history for every file.
type Nop struct{}

func (Nop) History(context.Context, string) ([]Revision, error) { return []Revision{}, nil }

// GitProvider reads history with go-git. The repository is discovered from
// Dir upwards and opened once.
type GitProvider struct {
	Dir    string
	Logger *slog.Logger

	once    sync.Once
	repo    *git.Repository
	root    string
	openErr error
}

// NewGitProvider creates a provider for the repository containing dir.
func NewGitProvider(dir string, logger *slog.Logger) *GitProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitProvider{Dir: dir, Logger: logger}
}

func (p *GitProvider) open() (*git.Repository, string, error) {
	p.once.Do(func() {
		repo, err := git.PlainOpenWithOptions(p.Dir, &git.PlainOpenOptions{DetectDotGit: true})
		if stderrors.Is(err, git.ErrRepositoryNotExists) {
			p.Logger.Debug("Content is not under version control", logfields.Path(p.Dir))
			return
		}
		if err != nil {
			p.openErr = errors.WrapError(err, errors.CategoryExternal, "open git repository").
				WithContext("dir", p.Dir).
				Build()
			return
		}
		wt, err := repo.Worktree()
		if err != nil {
			p.openErr = errors.WrapError(err, errors.CategoryExternal, "open git worktree").
				WithContext("dir", p.Dir).
				Build()
			return
		}
		p.repo = repo
		p.root = resolve(wt.Filesystem.Root())
	})
	return p.repo, p.root, p.openErr
}

// History walks the commits touching absPath in committer-time order.
// Files outside version control or not yet committed have no revisions.
func (p *GitProvider) History(ctx context.Context, absPath string) ([]Revision, error) {
	repo, root, err := p.open()
	if err != nil || repo == nil {
		return []Revision{}, err
	}
	rel, err := filepath.Rel(root, resolve(absPath))
	if err != nil || strings.HasPrefix(rel, "..") {
		return []Revision{}, nil
	}
	rel = filepath.ToSlash(rel)

	ref, err := repo.Head()
	if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
		return []Revision{}, nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryExternal, "resolve HEAD").Build()
	}
	branch := "HEAD"
	if ref.Name().IsBranch() {
		branch = ref.Name().Short()
	}

	iter, err := repo.Log(&git.LogOptions{From: ref.Hash(), Order: git.LogOrderCommitterTime, FileName: &rel})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryExternal, "read git log").
			WithPath(rel).
			Build()
	}
	defer iter.Close()

	revisions := []Revision{}
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		revisions = append(revisions, newRevision(c, branch))
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.WrapError(err, errors.CategoryExternal, "walk git log").
			WithPath(rel).
			Build()
	}
	return revisions, nil
}

// Head returns the HEAD commit hash, or "" outside a repository or before
// the first commit.
func (p *GitProvider) Head(context.Context) (string, error) {
	repo, _, err := p.open()
	if err != nil || repo == nil {
		return "", err
	}
	ref, err := repo.Head()
	if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryExternal, "resolve HEAD").Build()
	}
	return ref.Hash().String(), nil
}

func newRevision(c *object.Commit, branch string) Revision {
	full := c.Hash.String()
	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	return Revision{
		Hash:     full[:7],
		FullHash: full,
		Time:     c.Committer.When.Format(time.RFC3339),
		Author:   c.Author.Name,
		Message:  strings.TrimSpace(subject),
		Branch:   branch,
	}
}

// resolve follows symlinks so paths compare equal to the worktree root.
func resolve(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	dir, file := filepath.Split(p)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return filepath.Join(resolved, file)
	}
	return p
}
