package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultExcerptSeparator marks the end of a document's excerpt.
const DefaultExcerptSeparator = "---"

// Document is a Markdown file split into metadata, body and excerpt.
type Document struct {
	Fields         map[string]any
	HasFrontmatter bool
	Body           []byte
	// Excerpt is the raw Markdown before the first separator line of the body.
	Excerpt    string
	HasExcerpt bool
}

// ReadDocument splits raw Markdown into frontmatter fields, body and excerpt.
// An empty separator selects DefaultExcerptSeparator.
func ReadDocument(raw []byte, separator string) (Document, error) {
	fm, body, had, err := Split(raw)
	if err != nil {
		return Document{Body: raw}, err
	}
	doc := Document{Body: body, HasFrontmatter: had}
	if had {
		fields, err := ParseYAML(fm)
		if err != nil {
			return Document{Body: body}, fmt.Errorf("parse frontmatter: %w", err)
		}
		doc.Fields = fields
	}
	doc.Excerpt, doc.HasExcerpt = excerpt(body, separator)
	return doc, nil
}

func excerpt(body []byte, separator string) (string, bool) {
	if separator == "" {
		separator = DefaultExcerptSeparator
	}
	offset := 0
	for offset < len(body) {
		line := body[offset:]
		next := len(body)
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
			next = offset + i + 1
		}
		if string(bytes.TrimRight(line, "\r")) == separator {
			return string(body[:offset]), true
		}
		offset = next
	}
	return "", false
}

// Sidecar is the metadata file accompanying a component-backed page.
type Sidecar struct {
	Path       string
	Fields     map[string]any
	Excerpt    string
	HasExcerpt bool
}

// SidecarCandidates lists the metadata files probed for a component, in order.
func SidecarCandidates(componentPath string) []string {
	return []string{componentPath + ".yaml", componentPath + ".yml"}
}

// ReadSidecar loads the first existing sidecar of componentPath. A component
// without a sidecar yields ok=false and no error. The excerpt key is moved out
// of the field map.
func ReadSidecar(componentPath string) (sc Sidecar, ok bool, err error) {
	for _, candidate := range SidecarCandidates(componentPath) {
		raw, readErr := os.ReadFile(candidate)
		if errors.Is(readErr, fs.ErrNotExist) {
			continue
		}
		if readErr != nil {
			return Sidecar{}, false, readErr
		}
		var fields map[string]any
		if err := yaml.Unmarshal(raw, &fields); err != nil {
			return Sidecar{}, false, fmt.Errorf("parse %s: %w", candidate, err)
		}
		if fields == nil {
			fields = map[string]any{}
		}
		sc = Sidecar{Path: candidate, Fields: fields}
		if v, present := fields["excerpt"]; present {
			delete(fields, "excerpt")
			if s, isString := v.(string); isString {
				sc.Excerpt = s
				sc.HasExcerpt = strings.TrimSpace(s) != ""
			}
		}
		return sc, true, nil
	}
	return Sidecar{}, false, nil
}
