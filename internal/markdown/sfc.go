package markdown

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
)

// Block is a top-level component block lifted out of the page template.
type Block struct {
	// Type is the lowercased tag name.
	Type            string
	TagOpen         string
	TagClose        string
	ContentStripped string
}

// Content returns the block with its tags.
func (b Block) Content() string {
	return b.TagOpen + b.ContentStripped + b.TagClose
}

// UsesTypeScript reports whether the opening tag declares lang="ts".
func (b *Block) UsesTypeScript() bool {
	return b != nil && strings.Contains(b.TagOpen, `lang="ts"`)
}

// Fragments are the component blocks of one document.
type Fragments struct {
	ScriptSetup *Block
	Script      *Block
	Styles      []Block
	Custom      []Block
}

// AddStyle appends an unscoped style block.
func (f *Fragments) AddStyle(css string) {
	f.Styles = append(f.Styles, Block{Type: "style", TagOpen: "<style>", TagClose: "</style>", ContentStripped: css})
}

// InjectSetupCode prepends code to the <script setup> block, creating the
// block when the document has none.
func InjectSetupCode(code string, f *Fragments) {
	if f.ScriptSetup == nil {
		f.ScriptSetup = &Block{Type: "script", TagOpen: "<script setup>", TagClose: "</script>", ContentStripped: code}
		return
	}
	f.ScriptSetup.ContentStripped = code + "\n" + f.ScriptSetup.ContentStripped
}

// InjectHeaderData exports the flattened outline as __headers from the plain
// <script> block. A created block uses TypeScript when <script setup> does.
func InjectHeaderData(headings []Heading, f *Fragments) error {
	data, err := json.Marshal(FlattenHeadings(headings))
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}
	code := "export const __headers = " + string(data)
	if f.Script == nil {
		open := "<script>"
		if f.ScriptSetup.UsesTypeScript() {
			open = `<script lang="ts">`
		}
		f.Script = &Block{Type: "script", TagOpen: open, TagClose: "</script>", ContentStripped: code}
		return nil
	}
	f.Script.ContentStripped = code + "\n" + f.Script.ContentStripped
	return nil
}

var (
	sfcOpenRe  = regexp.MustCompile(`^<([A-Za-z][A-Za-z0-9-]*)(\s[^>]*)?>`)
	sfcSetupRe = regexp.MustCompile(`\ssetup(\s|=|>|$)`)
)

// parseBlock recognizes a raw HTML block consisting of exactly one script,
// style or custom element.
func parseBlock(raw string, custom map[string]bool) (Block, bool) {
	trimmed := strings.TrimSpace(raw)
	m := sfcOpenRe.FindStringSubmatch(trimmed)
	if m == nil {
		return Block{}, false
	}
	tag := strings.ToLower(m[1])
	if tag != "script" && tag != "style" && !custom[tag] {
		return Block{}, false
	}
	closeTag := "</" + tag + ">"
	idx := strings.LastIndex(strings.ToLower(trimmed), closeTag)
	if idx < len(m[0]) || strings.TrimSpace(trimmed[idx+len(closeTag):]) != "" {
		return Block{}, false
	}
	return Block{
		Type:            tag,
		TagOpen:         m[0],
		TagClose:        trimmed[idx : idx+len(closeTag)],
		ContentStripped: trimmed[len(m[0]):idx],
	}, true
}

// liftBlocks detaches top-level component blocks from doc. The last script
// and script setup win; styles and custom blocks keep document order.
func liftBlocks(doc ast.Node, source []byte, custom map[string]bool) (Fragments, bool) {
	var f Fragments
	var lifted []ast.Node
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		hb, ok := c.(*ast.HTMLBlock)
		if !ok {
			continue
		}
		b, ok := parseBlock(rawHTML(hb, source), custom)
		if !ok {
			continue
		}
		switch {
		case b.Type == "script" && sfcSetupRe.MatchString(b.TagOpen):
			f.ScriptSetup = &b
		case b.Type == "script":
			f.Script = &b
		case b.Type == "style":
			f.Styles = append(f.Styles, b)
		default:
			f.Custom = append(f.Custom, b)
		}
		lifted = append(lifted, c)
	}
	for _, n := range lifted {
		doc.RemoveChild(doc, n)
	}
	return f, len(lifted) > 0
}

func rawHTML(n *ast.HTMLBlock, source []byte) string {
	var b strings.Builder
	for i := 0; i < n.Lines().Len(); i++ {
		seg := n.Lines().At(i)
		b.Write(seg.Value(source))
	}
	if n.HasClosure() {
		b.Write(n.ClosureLine.Value(source))
	}
	return b.String()
}

// addVerbatim marks every <pre> element with v-pre so the component
// compiler leaves its content alone.
func addVerbatim(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 64)
	for {
		i := indexPreTag(s)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.IndexByte(s[i:], '>')
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}
		end += i
		tag := s[i:end]
		b.WriteString(tag)
		if !strings.Contains(tag, "v-pre") {
			b.WriteString(" v-pre")
		}
		b.WriteByte('>')
		s = s[end+1:]
	}
}

func indexPreTag(s string) int {
	off := 0
	for {
		i := strings.Index(s[off:], "<pre")
		if i < 0 {
			return -1
		}
		i += off
		next := i + len("<pre")
		if next >= len(s) || s[next] == '>' || s[next] == ' ' || s[next] == '\t' || s[next] == '\n' {
			return i
		}
		off = next
	}
}

// ComponentInput is everything needed to assemble a page component module.
type ComponentInput struct {
	Title        string
	Template     string
	HistoryLabel string
	Fragments    Fragments
}

// Component assembles the component module of a page: the template wrapped
// in a searchable <main> and followed by the revision history, then all
// lifted blocks.
func Component(in ComponentInput) string {
	var b strings.Builder
	b.WriteString(`<template><main data-pagefind-body class="md-content `)
	b.WriteString(encodeURIComponent(in.Title))
	b.WriteString(`">`)
	b.WriteString(addVerbatim(in.Template))
	b.WriteString("\n\n<hr>\n<h2>")
	b.WriteString(html.EscapeString(in.HistoryLabel))
	b.WriteString("</h2><GitHistory :history='__gitHistory' /></main></template>")
	if s := in.Fragments.ScriptSetup; s != nil {
		b.WriteString(s.Content())
	}
	if s := in.Fragments.Script; s != nil {
		b.WriteString(s.Content())
	}
	for _, s := range in.Fragments.Styles {
		b.WriteString(s.Content())
	}
	for _, c := range in.Fragments.Custom {
		b.WriteString(c.Content())
	}
	return b.String()
}
