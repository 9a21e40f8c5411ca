// Package frontmatter reads YAML metadata from content documents and sidecar files.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// ErrMissingClosingDelimiter is returned when a document opens a header block
// that never closes.
var ErrMissingClosingDelimiter = errors.New("frontmatter opened with --- but never closed")

// Split separates a leading `---` fenced YAML header from the Markdown body.
// Delimiter lines may end in LF or CRLF and carry trailing blanks. A document
// that does not open with a delimiter line is returned whole as body.
func Split(content []byte) (fm []byte, body []byte, had bool, err error) {
	src := bytes.TrimPrefix(content, utf8BOM)
	first, rest := nextLine(src)
	if !bytes.HasSuffix(first, []byte("\n")) || !isDelimiter(first) {
		return nil, content, false, nil
	}
	start := len(first)
	for len(rest) > 0 {
		line, next := nextLine(rest)
		if isDelimiter(line) {
			return src[start : len(src)-len(rest)], next, true, nil
		}
		rest = next
	}
	return nil, nil, false, ErrMissingClosingDelimiter
}

// nextLine splits off the first line of b, newline included.
func nextLine(b []byte) (line, rest []byte) {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i+1], b[i+1:]
	}
	return b, nil
}

func isDelimiter(line []byte) bool {
	return string(bytes.TrimRight(line, " \t\r\n")) == "---"
}

// ParseYAML decodes a header into a map. An empty header yields an empty map;
// a header that is not a YAML mapping is an error.
func ParseYAML(fm []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(fm)) == 0 {
		return map[string]any{}, nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal(fm, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return map[string]any{}, nil
	}
	if root := node.Content[0]; root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter must be a mapping, got %s at line %d", kindName(root.Kind), root.Line)
	}
	fields := map[string]any{}
	if err := node.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "a list"
	case yaml.ScalarNode:
		return "a scalar"
	default:
		return "another node kind"
	}
}
