// Package content discovers and reads the documents and component pages of a site.
package content

import (
	"path"
	"strings"
)

// Kind distinguishes Markdown documents from component-backed pages.
type Kind string

const (
	KindDocument  Kind = "document"
	KindComponent Kind = "component"
)

// Entry is one file under the content root together with its metadata.
type Entry struct {
	// Path is the absolute file path.
	Path string
	// RelPath is slash-separated and relative to the content root.
	RelPath string
	Kind    Kind

	// Frontmatter is nil when the entry carries no metadata.
	Frontmatter map[string]any
	HasMeta     bool

	// Body and the excerpt fields are only populated for documents, except
	// that a component sidecar may carry an excerpt.
	Body       []byte
	Excerpt    string
	HasExcerpt bool

	SidecarPath string
}

// Hidden reports whether the entry opts out of the index.
func (e Entry) Hidden() bool { return Truthy(e.Frontmatter["hidden"]) }

// ComponentOnly reports whether the entry is a reusable component rather than a page.
func (e Entry) ComponentOnly() bool { return Truthy(e.Frontmatter["isComponent"]) }

// Publishable reports whether the entry becomes a page of the site.
func (e Entry) Publishable() bool {
	return e.HasMeta && !e.Hidden() && !e.ComponentOnly()
}

// DerivedPath is the URL path implied by the entry's location: index files
// map to their directory, other files to a directory named after them.
func (e Entry) DerivedPath() string {
	return DerivedPath(e.RelPath)
}

// DerivedPath converts a content-relative path to its URL path, e.g.
// "blog/index.md" to "/blog/" and "blog/a.md" to "/blog/a/".
func DerivedPath(rel string) string {
	rel = "/" + strings.TrimPrefix(path.Clean("/"+rel), "/")
	dir, file := path.Split(rel)
	name := strings.TrimSuffix(file, path.Ext(file))
	if name == "index" {
		return dir
	}
	return dir + name + "/"
}

// FirstSegment returns the first segment of a derived URL path, so both
// "/blog/a/" and "/blog/" yield "blog" and "/" yields "".
func FirstSegment(urlPath string) string {
	urlPath = strings.TrimPrefix(urlPath, "/")
	if i := strings.IndexByte(urlPath, '/'); i > 0 {
		return urlPath[:i]
	}
	return urlPath
}

// Truthy reports whether a decoded metadata value counts as set: false, nil,
// zero numbers and empty strings do not.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case uint64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
