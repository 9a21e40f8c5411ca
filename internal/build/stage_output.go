package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/inkpress/internal/logfields"
	"git.home.luguber.info/inful/inkpress/internal/postprocess"
	"git.home.luguber.info/inful/inkpress/internal/prerender"
	"git.home.luguber.info/inful/inkpress/internal/routes"
)

func (b *Builder) stageBundle(ctx context.Context, bs *BuildState) error {
	for _, cmd := range [][]string{bs.Config.Build.ClientCommand, bs.Config.Build.ServerCommand} {
		if len(cmd) == 0 {
			continue
		}
		if err := postprocess.RunCommand(ctx, cmd, bs.Config.Root, bs.Logger); err != nil {
			return err
		}
	}
	return nil
}

// Bodies maps content route paths to the transformed HTML of their documents.
func Bodies(rs []routes.Route, docs map[string]string) map[string]string {
	out := make(map[string]string, len(rs))
	for _, r := range rs {
		if r.Kind != routes.KindContent {
			continue
		}
		if body, ok := docs[r.Source]; ok {
			out[r.Path] = body
		}
	}
	return out
}

func (b *Builder) renderer(bs *BuildState) (prerender.Renderer, bool, func(), error) {
	if b.Renderer != nil {
		return b.Renderer, false, func() {}, nil
	}
	cfg := bs.Config
	if len(cfg.Build.RenderCommand) > 0 {
		cr, err := prerender.NewCommandRenderer(cfg.Build.RenderCommand, cfg.Root, bs.Logger)
		if err != nil {
			return nil, false, nil, err
		}
		return cr, true, func() {
			if err := cr.Close(); err != nil {
				bs.Logger.Warn("Render command did not exit cleanly", logfields.Error(err))
			}
		}, nil
	}
	html := make(map[string]string, len(bs.Documents))
	for rel, doc := range bs.Documents {
		html[rel] = doc.Result.StaticBody()
	}
	pr, err := prerender.NewPageRenderer(cfg, bs.Pages, Bodies(bs.Routes, html))
	if err != nil {
		return nil, false, nil, err
	}
	return pr, false, func() {}, nil
}

func (b *Builder) stagePrerender(ctx context.Context, bs *BuildState) error {
	cfg := bs.Config
	tpl, err := prerender.LoadTemplate(cfg)
	if err != nil {
		return err
	}
	r, requireManifest, closeFn, err := b.renderer(bs)
	if err != nil {
		return err
	}
	defer closeFn()

	p := &prerender.Prerenderer{
		OutDir:          cfg.OutputDir(),
		Template:        tpl,
		SiteName:        cfg.Name,
		DefaultLang:     cfg.DefaultLang,
		Renderer:        r,
		RequireManifest: requireManifest,
		Recorder:        bs.Recorder,
		Logger:          bs.Logger,
	}
	written, err := p.Run(ctx, bs.Routes)
	bs.Written = written
	bs.Report.Written = len(written)
	return err
}

func (b *Builder) stageSitemap(_ context.Context, bs *BuildState) error {
	p, err := postprocess.WriteSitemap(bs.Config, bs.Pages, b.now())
	if err != nil {
		return err
	}
	bs.Logger.Info("Wrote sitemap", logfields.Path(p))
	return nil
}

func (b *Builder) stageFinish(ctx context.Context, bs *BuildState) error {
	f := &postprocess.Finisher{
		OutDir:    bs.Config.OutputDir(),
		Integrity: bs.Config.Build.IntegrityEnabled(),
		Minify:    bs.Config.Build.MinifyEnabled(),
		Cache:     postprocess.NewHashCache(),
		Logger:    bs.Logger,
	}
	_, err := f.Run(ctx)
	return err
}

func (b *Builder) stageSearchIndex(ctx context.Context, bs *BuildState) error {
	cmd := postprocess.SearchCommand(bs.Config.Build.SearchCommand, bs.Config.OutputDir())
	return postprocess.RunCommand(ctx, cmd, bs.Config.Root, bs.Logger)
}

func (b *Builder) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}
