package postprocess

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/logfields"
)

// Finisher rewrites every emitted HTML file once.
type Finisher struct {
	OutDir    string
	Integrity bool
	Minify    bool
	Cache     *HashCache
	Logger    *slog.Logger
}

// FinishReport summarizes a finishing pass.
type FinishReport struct {
	Files         int `json:"files"`
	Subresources  int `json:"subresources"`
	SkippedInline int `json:"skipped_inline"`
}

// HTMLFiles lists the .html files under dir in lexical order.
func HTMLFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".html") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "list emitted html").
			WithContext("dir", dir).
			Fatal().
			Build()
	}
	return files, nil
}

// Run adds integrity attributes and minifies each HTML file in place.
func (f *Finisher) Run(ctx context.Context) (FinishReport, error) {
	var report FinishReport
	if !f.Integrity && !f.Minify {
		return report, nil
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cache := f.Cache
	if cache == nil {
		cache = NewHashCache()
	}
	files, err := HTMLFiles(f.OutDir)
	if err != nil {
		return report, err
	}
	minifier := &Minifier{}
	for _, p := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		n, err := f.file(p, cache, minifier)
		if err != nil {
			return report, err
		}
		report.Files++
		report.Subresources += n
	}
	report.SkippedInline = minifier.Skipped
	logger.Info("Finished html output",
		logfields.Count(report.Files),
		slog.Int("subresources", report.Subresources),
		slog.Int("skipped_inline", report.SkippedInline))
	return report, nil
}

func (f *Finisher) file(p string, cache *HashCache, minifier *Minifier) (int, error) {
	data, err := os.ReadFile(p) // #nosec G304 -- emitted file under the output directory
	if err != nil {
		return 0, errors.WrapError(err, errors.CategoryFileSystem, "read emitted html").WithPath(p).Fatal().Build()
	}
	updated := 0
	if f.Integrity {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
		if err != nil {
			return 0, errors.WrapError(err, errors.CategoryBuild, "parse emitted html").WithPath(p).Fatal().Build()
		}
		updated, err = AddIntegrity(doc, f.OutDir, cache)
		if err != nil {
			return 0, err
		}
		if updated > 0 {
			rendered, err := doc.Html()
			if err != nil {
				return 0, errors.WrapError(err, errors.CategoryBuild, "serialize emitted html").WithPath(p).Fatal().Build()
			}
			data = []byte(rendered)
		}
	}
	if f.Minify {
		data, err = minifier.Minify(data)
		if err != nil {
			return 0, errors.WrapError(err, errors.CategoryBuild, "minify emitted html").WithPath(p).Fatal().Build()
		}
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return 0, errors.WrapError(err, errors.CategoryFileSystem, "write emitted html").WithPath(p).Fatal().Build()
	}
	return updated, nil
}
