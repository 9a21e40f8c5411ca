// Package routes enumerates the URLs a site prerenders.
package routes

import (
	"strings"

	"git.home.luguber.info/inful/inkpress/internal/config"
	"git.home.luguber.info/inful/inkpress/internal/index"
)

// Kind classifies a route for renderers that lay out pages themselves.
type Kind string

const (
	KindHome     Kind = "home"
	KindNotFound Kind = "not_found"
	KindCategory Kind = "category"
	KindContent  Kind = "content"
)

// Paths of the fixed routes.
const (
	HomePath     = "/"
	NotFoundPath = "/404.html"
)

// Route is one URL to prerender.
type Route struct {
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
	// Category is the key of a category route.
	Category string `json:"category,omitempty"`
	// Source is the content-relative source file of a content route.
	Source string `json:"source,omitempty"`
}

// Enumerate lists the home and not-found routes, one route per configured
// category in configuration order, then one route per page in index order.
func Enumerate(cfg *config.Config, pages []index.Page) []Route {
	out := make([]Route, 0, 2+len(cfg.Categories)+len(pages))
	out = append(out,
		Route{Path: HomePath, Kind: KindHome},
		Route{Path: NotFoundPath, Kind: KindNotFound},
	)
	for _, c := range cfg.Categories {
		out = append(out, Route{Path: "/" + c.Key + "/", Kind: KindCategory, Category: c.Key})
	}
	for _, p := range pages {
		out = append(out, Route{
			Path:   WithTrailingSlash(p.ContentURL),
			Kind:   KindContent,
			Source: strings.TrimPrefix(p.SourceURL, "/"),
		})
	}
	return out
}

// WithTrailingSlash appends "/" unless present.
func WithTrailingSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// Paths returns the route paths.
func Paths(rs []Route) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Path
	}
	return out
}
