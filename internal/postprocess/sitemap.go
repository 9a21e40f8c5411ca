// Package postprocess finishes emitted HTML: sitemap, subresource integrity,
// minification and the search index.
package postprocess

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/inkpress/internal/config"
	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/index"
	"git.home.luguber.info/inful/inkpress/internal/routes"
)

// Change frequencies and priorities of sitemap entries.
const (
	PageChangeFreq     = "monthly"
	PagePriority       = 0.5
	CategoryChangeFreq = "daily"
	CategoryPriority   = 0.8

	sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"
)

// SitemapURL is one <url> entry.
type SitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`

	lastmod time.Time
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	NS      string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// SitemapEntries lists dated pages newest first, then undated pages in index
// order without a lastmod, then the configured categories. A category's
// lastmod is its newest page, or now when it has none.
func SitemapEntries(cfg *config.Config, pages []index.Page, now time.Time) []SitemapURL {
	host := strings.TrimSuffix(cfg.URL, "/")

	var entries []SitemapURL
	for _, p := range pages {
		u := SitemapURL{
			Loc:        host + routes.WithTrailingSlash(p.ContentURL),
			ChangeFreq: PageChangeFreq,
			Priority:   formatPriority(PagePriority),
		}
		if p.Time != nil {
			u.lastmod = p.Time.UTC()
		}
		entries = append(entries, u)
	}
	// zero lastmod sorts last
	slices.SortStableFunc(entries, func(a, b SitemapURL) int {
		return b.lastmod.Compare(a.lastmod)
	})

	for _, c := range cfg.Categories {
		latest, ok := index.Latest(index.InCategory(pages, c.Key))
		if !ok {
			latest = now
		}
		entries = append(entries, SitemapURL{
			Loc:        host + "/" + c.Key + "/",
			ChangeFreq: CategoryChangeFreq,
			Priority:   formatPriority(CategoryPriority),
			lastmod:    latest.UTC(),
		})
	}
	for i := range entries {
		if !entries[i].lastmod.IsZero() {
			entries[i].LastMod = entries[i].lastmod.Format(time.RFC3339)
		}
	}
	return entries
}

func formatPriority(p float64) string { return fmt.Sprintf("%.1f", p) }

// Sitemap encodes entries as a sitemap document.
func Sitemap(entries []SitemapURL) ([]byte, error) {
	body, err := xml.MarshalIndent(urlset{NS: sitemapNS, URLs: entries}, "", "  ")
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "encode sitemap").Build()
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// WriteSitemap writes <outDir>/sitemap.xml. It requires the site url.
func WriteSitemap(cfg *config.Config, pages []index.Page, now time.Time) (string, error) {
	if cfg.URL == "" {
		return "", errors.ConfigError("url is required to write a sitemap").Build()
	}
	data, err := Sitemap(SitemapEntries(cfg, pages, now))
	if err != nil {
		return "", err
	}
	p := filepath.Join(cfg.OutputDir(), "sitemap.xml")
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "create output directory").WithPath(p).Fatal().Build()
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "write sitemap").WithPath(p).Fatal().Build()
	}
	return p, nil
}
