package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	foundationerrors "git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/frontmatter"
	"git.home.luguber.info/inful/inkpress/internal/logfields"
)

// Loader reads content entries from a content root.
type Loader struct {
	Root             string
	ComponentExt     string
	ExcerptSeparator string
	Logger           *slog.Logger
}

// NewLoader creates a loader for root. componentExt includes the leading dot.
func NewLoader(root, componentExt, excerptSeparator string) *Loader {
	return &Loader{
		Root:             root,
		ComponentExt:     componentExt,
		ExcerptSeparator: excerptSeparator,
		Logger:           slog.Default(),
	}
}

func (l *Loader) pattern() string {
	return fmt.Sprintf("**/*.{md,%s}", strings.TrimPrefix(l.ComponentExt, "."))
}

// Discover lists the content-relative paths of all documents and components.
func (l *Loader) Discover() ([]string, error) {
	if _, err := os.Stat(l.Root); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "content root not accessible").
			Fatal().
			WithPath(l.Root).
			Build()
	}
	matches, err := doublestar.Glob(os.DirFS(l.Root), l.pattern(), doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "content discovery failed").
			Fatal().
			WithPath(l.Root).
			Build()
	}
	return matches, nil
}

// Load discovers and reads every entry. Entries without usable metadata are
// returned with HasMeta unset.
func (l *Loader) Load(ctx context.Context) ([]Entry, error) {
	rels, err := l.Discover()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rels))
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, err := l.Read(rel)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Read loads a single entry by its content-relative path.
func (l *Loader) Read(rel string) (Entry, error) {
	rel = filepath.ToSlash(rel)
	abs := filepath.Join(l.Root, filepath.FromSlash(rel))
	e := Entry{Path: abs, RelPath: rel, Kind: l.kindOf(rel)}
	log := l.logger().With(logfields.Path(rel))

	if e.Kind == KindComponent {
		sc, ok, err := frontmatter.ReadSidecar(abs)
		if err != nil {
			log.Warn("Ignoring unreadable sidecar metadata", logfields.Error(err))
			return e, nil
		}
		if !ok {
			log.Debug("Component has no sidecar metadata")
			return e, nil
		}
		e.Frontmatter = sc.Fields
		e.HasMeta = true
		e.Excerpt, e.HasExcerpt = sc.Excerpt, sc.HasExcerpt
		e.SidecarPath = sc.Path
		return e, nil
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return e, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to read content file").
			Fatal().
			WithPath(rel).
			Build()
	}
	doc, err := frontmatter.ReadDocument(raw, l.ExcerptSeparator)
	e.Body = doc.Body
	if err != nil {
		log.Warn("Ignoring malformed frontmatter", logfields.Error(err))
		return e, nil
	}
	if !doc.HasFrontmatter {
		log.Debug("Document has no frontmatter")
	}
	e.Frontmatter = doc.Fields
	e.HasMeta = doc.HasFrontmatter
	e.Excerpt, e.HasExcerpt = doc.Excerpt, doc.HasExcerpt
	return e, nil
}

func (l *Loader) kindOf(rel string) Kind {
	if path.Ext(rel) == ".md" {
		return KindDocument
	}
	return KindComponent
}

// Resolve maps an absolute file path to the content entry it affects. A
// sidecar resolves to its component. ok is false for paths outside the
// content root or not matching a content file.
func (l *Loader) Resolve(absPath string) (rel string, ok bool) {
	r, err := filepath.Rel(l.Root, absPath)
	if err != nil || r == "." || strings.HasPrefix(r, ".."+string(filepath.Separator)) || r == ".." {
		return "", false
	}
	r = filepath.ToSlash(r)
	for _, sidecar := range []string{".yaml", ".yml"} {
		if strings.HasSuffix(r, l.ComponentExt+sidecar) {
			r = strings.TrimSuffix(r, sidecar)
			break
		}
	}
	if matched, _ := doublestar.Match(l.pattern(), r); !matched {
		return "", false
	}
	return r, true
}

// Exists reports whether the entry at rel is still present on disk.
func (l *Loader) Exists(rel string) bool {
	_, err := os.Stat(filepath.Join(l.Root, filepath.FromSlash(rel)))
	return !errors.Is(err, fs.ErrNotExist)
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}
