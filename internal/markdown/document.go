package markdown

import (
	"context"
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/inkpress/internal/content"
	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/history"
)

// DocumentRenderer turns document entries into page component modules.
type DocumentRenderer struct {
	Transformer  *Transformer
	History      history.Provider
	HistoryLabel string
}

// RenderedDocument is the outcome of the document flow.
type RenderedDocument struct {
	Component string
	Result    Result
	History   []history.Revision
}

// Document transforms the entry body, attaches its revision history and
// outline to the component blocks and assembles the component module.
func (d *DocumentRenderer) Document(ctx context.Context, entry content.Entry) (RenderedDocument, error) {
	if entry.Kind != content.KindDocument {
		return RenderedDocument{}, errors.InternalError("not a markdown document").
			WithPath(entry.RelPath).
			Build()
	}
	res, err := d.Transformer.Render(ctx, entry.Body, Env{Path: entry.RelPath})
	if err != nil {
		return RenderedDocument{}, err
	}

	provider := d.History
	if provider == nil {
		provider = history.Nop{}
	}
	revs, err := provider.History(ctx, entry.Path)
	if err != nil {
		return RenderedDocument{}, err
	}
	data, err := json.Marshal(revs)
	if err != nil {
		return RenderedDocument{}, errors.WrapError(err, errors.CategoryInternal, "encode revision history").Build()
	}

	fragments := res.Fragments
	InjectSetupCode("const __gitHistory = "+string(data), &fragments)
	if err := InjectHeaderData(res.Headings, &fragments); err != nil {
		return RenderedDocument{}, errors.WrapError(err, errors.CategoryInternal, "inject header data").Build()
	}
	res.Fragments = fragments

	return RenderedDocument{
		Component: Component(ComponentInput{
			Title:        title(entry.Frontmatter),
			Template:     res.Template,
			HistoryLabel: d.HistoryLabel,
			Fragments:    fragments,
		}),
		Result:  res,
		History: revs,
	}, nil
}

func title(fm map[string]any) string {
	v, ok := fm["title"]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
