package build

import (
	"context"
	"maps"
	"os"
	"slices"
	"strings"

	"git.home.luguber.info/inful/inkpress/internal/config"
	"git.home.luguber.info/inful/inkpress/internal/content"
	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/index"
	"git.home.luguber.info/inful/inkpress/internal/markdown"
	"git.home.luguber.info/inful/inkpress/internal/routes"
)

// Op is the kind of a file change.
type Op string

const (
	OpWrite  Op = "write"
	OpRemove Op = "remove"
)

// Change is one file event seen by the development watcher.
type Change struct {
	Path string
	Op   Op
}

// State is what development mode knows about the site between changes.
type State struct {
	// Entries are ordered by content-relative path.
	Entries []content.Entry
	Pages   []index.Page
	Routes  []routes.Route
	// Components maps the relative path of each document to its module source.
	Components map[string]string
}

// Effects are the outputs a change requires rewriting.
type Effects struct {
	// Components to write, keyed by content-relative path.
	Components map[string]string
	// Removed lists documents whose generated module must be deleted.
	Removed []string
	// Index reports that pages.json must be rewritten.
	Index bool
}

// Empty reports whether no output needs rewriting.
func (e Effects) Empty() bool {
	return len(e.Components) == 0 && len(e.Removed) == 0 && !e.Index
}

// Incremental applies content changes to a State.
type Incremental struct {
	Config    *config.Config
	Loader    *content.Loader
	Documents *markdown.DocumentRenderer
	Index     *index.Builder
}

// NewIncremental shares the collaborators of b.
func NewIncremental(b *Builder) *Incremental {
	return &Incremental{Config: b.Config, Loader: b.Loader, Documents: b.Documents, Index: b.Index}
}

// Initial loads every entry and transforms every document.
func (in *Incremental) Initial(ctx context.Context) (State, Effects, error) {
	entries, err := in.Loader.Load(ctx)
	if err != nil {
		return State{}, Effects{}, err
	}
	slices.SortFunc(entries, func(a, b content.Entry) int { return strings.Compare(a.RelPath, b.RelPath) })
	next := State{Entries: entries, Components: make(map[string]string)}
	eff := Effects{Components: make(map[string]string), Index: true}
	for _, e := range entries {
		if e.Kind != content.KindDocument {
			continue
		}
		doc, err := in.Documents.Document(ctx, e)
		if err != nil {
			return State{}, Effects{}, err
		}
		next.Components[e.RelPath] = doc.Component
		eff.Components[e.RelPath] = doc.Component
	}
	if err := in.reindex(ctx, &next); err != nil {
		return State{}, Effects{}, err
	}
	return next, eff, nil
}

// Apply derives the state after change from prev without modifying prev.
// A change under the content root re-reads that entry, re-transforms it when
// it is a document and rebuilds the whole index and route list. Removal
// drops the entry and its module. Other paths leave the state unchanged.
func (in *Incremental) Apply(ctx context.Context, prev State, change Change) (State, Effects, error) {
	rel, ok := in.Loader.Resolve(change.Path)
	if !ok {
		return prev, Effects{}, nil
	}
	next := State{
		Entries:    slices.Clone(prev.Entries),
		Components: maps.Clone(prev.Components),
	}
	if next.Components == nil {
		next.Components = make(map[string]string)
	}
	eff := Effects{Components: make(map[string]string), Index: true}

	pos, found := slices.BinarySearchFunc(next.Entries, rel, func(e content.Entry, target string) int {
		return strings.Compare(e.RelPath, target)
	})

	if change.Op == OpRemove || !in.Loader.Exists(rel) {
		if !found {
			return prev, Effects{}, nil
		}
		next.Entries = slices.Delete(next.Entries, pos, pos+1)
		if _, had := next.Components[rel]; had {
			delete(next.Components, rel)
			eff.Removed = append(eff.Removed, rel)
		}
	} else {
		e, err := in.Loader.Read(rel)
		if err != nil {
			return prev, Effects{}, err
		}
		if found {
			next.Entries[pos] = e
		} else {
			next.Entries = slices.Insert(next.Entries, pos, e)
		}
		if e.Kind == content.KindDocument {
			doc, err := in.Documents.Document(ctx, e)
			if err != nil {
				return prev, Effects{}, err
			}
			next.Components[rel] = doc.Component
			eff.Components[rel] = doc.Component
		}
	}

	if err := in.reindex(ctx, &next); err != nil {
		return prev, Effects{}, err
	}
	return next, eff, nil
}

func (in *Incremental) reindex(ctx context.Context, s *State) error {
	pages, err := in.Index.Build(ctx, s.Entries)
	if err != nil {
		return err
	}
	s.Pages = pages
	s.Routes = routes.Enumerate(in.Config, pages)
	return nil
}

// WriteEffects writes the outputs listed in eff for state s.
func (in *Incremental) WriteEffects(s State, eff Effects) error {
	for _, rel := range slices.Sorted(maps.Keys(eff.Components)) {
		if err := writeGenerated(ComponentPath(in.Config, rel), eff.Components[rel]); err != nil {
			return err
		}
	}
	for _, rel := range eff.Removed {
		p := ComponentPath(in.Config, rel)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.WrapError(err, errors.CategoryFileSystem, "remove generated module").
				WithPath(p).
				Build()
		}
	}
	if eff.Index {
		return index.WriteJSON(PagesPath(in.Config), s.Pages)
	}
	return nil
}
