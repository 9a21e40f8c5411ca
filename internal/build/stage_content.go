package build

import (
	"context"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/inkpress/internal/content"
	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/index"
	"git.home.luguber.info/inful/inkpress/internal/logfields"
	"git.home.luguber.info/inful/inkpress/internal/routes"
)

func (b *Builder) stageLoadContent(ctx context.Context, bs *BuildState) error {
	entries, err := b.Loader.Load(ctx)
	if err != nil {
		return err
	}
	bs.Entries = entries
	bs.Report.Entries = len(entries)
	bs.Logger.Info("Loaded content", logfields.Count(len(entries)), logfields.Path(b.Loader.Root))
	return nil
}

// stageTransform turns every markdown document into a component module,
// whether or not it is published.
func (b *Builder) stageTransform(ctx context.Context, bs *BuildState) error {
	for _, e := range bs.Entries {
		if e.Kind != content.KindDocument {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := b.Documents.Document(ctx, e)
		if err != nil {
			return err
		}
		out := ComponentPath(bs.Config, e.RelPath)
		if err := writeGenerated(out, doc.Component); err != nil {
			return err
		}
		bs.Documents[e.RelPath] = doc
		bs.Logger.Info("Transformed", logfields.Path(e.RelPath))
	}
	bs.Report.Documents = len(bs.Documents)
	return nil
}

func (b *Builder) stageIndex(ctx context.Context, bs *BuildState) error {
	pages, err := b.Index.Build(ctx, bs.Entries)
	if err != nil {
		return err
	}
	bs.Pages = pages
	bs.Report.Pages = len(pages)
	bs.Recorder.SetPages(len(pages))
	if err := index.WriteJSON(PagesPath(bs.Config), pages); err != nil {
		return err
	}

	head := ""
	if h, ok := b.History.(interface {
		Head(context.Context) (string, error)
	}); ok {
		if head, err = h.Head(ctx); err != nil {
			bs.Logger.Warn("Could not resolve HEAD commit", logfields.Error(err))
			head = ""
		}
	}
	sha := index.ResolveSHA(head)
	bs.Report.GitHubSHA = sha
	return index.WriteContext(ContextPath(bs.Config), bs.Config, sha)
}

func (b *Builder) stageRoutes(_ context.Context, bs *BuildState) error {
	bs.Routes = routes.Enumerate(bs.Config, bs.Pages)
	bs.Report.Routes = len(bs.Routes)
	bs.Recorder.SetRoutes(len(bs.Routes))
	return nil
}

func writeGenerated(p, data string) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create generated directory").
			WithPath(p).
			Fatal().
			Build()
	}
	if err := os.WriteFile(p, []byte(data), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write generated module").
			WithPath(p).
			Fatal().
			Build()
	}
	return nil
}
