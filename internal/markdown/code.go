package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// codeHighlighter renders fenced code with class-based chroma markup and
// one <span class="line"> per source line.
type codeHighlighter struct {
	formatter *chromahtml.Formatter
	light     *chroma.Style
	dark      *chroma.Style
	css       string
}

func newCodeHighlighter(lightTheme, darkTheme string) (*codeHighlighter, error) {
	h := &codeHighlighter{
		formatter: chromahtml.New(chromahtml.WithClasses(true), chromahtml.PreventSurroundingPre(true)),
		light:     styles.Get(lightTheme),
		dark:      styles.Get(darkTheme),
	}
	var css bytes.Buffer
	if err := h.formatter.WriteCSS(&css, h.light); err != nil {
		return nil, fmt.Errorf("write %s css: %w", lightTheme, err)
	}
	css.WriteString("@media (prefers-color-scheme: dark) {\n")
	if err := h.formatter.WriteCSS(&css, h.dark); err != nil {
		return nil, fmt.Errorf("write %s css: %w", darkTheme, err)
	}
	css.WriteString("}\n")
	// Lines are separated by newlines inside <pre>.
	css.WriteString(".chroma.shiki .line { display: inline; }\n")
	h.css = css.String()
	return h, nil
}

// Stylesheet returns the CSS of both themes.
func (h *codeHighlighter) Stylesheet() string { return h.css }

func (h *codeHighlighter) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, h.renderFencedCode)
}

func (h *codeHighlighter) renderFencedCode(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)
	var info string
	if n.Info != nil {
		info = string(n.Info.Segment.Value(source))
	}
	lang, ranges := parseFenceInfo(info)

	var raw strings.Builder
	for i := 0; i < n.Lines().Len(); i++ {
		seg := n.Lines().At(i)
		raw.Write(seg.Value(source))
	}
	code, marks := extractNotations(raw.String())
	for _, line := range ranges {
		if line >= 1 && line <= len(marks) {
			marks[line-1].add("highlighted")
		}
	}

	lines, err := h.tokenize(lang, code)
	if err != nil {
		return ast.WalkStop, err
	}

	classes := []string{"chroma", "shiki"}
	for _, flag := range []struct{ has, class string }{
		{"diff", "has-diff"}, {"focused", "has-focused"}, {"highlighted", "has-highlighted"},
	} {
		if anyMark(marks, flag.has) {
			classes = append(classes, flag.class)
		}
	}
	_, _ = fmt.Fprintf(w, `<pre class="%s"`, strings.Join(classes, " "))
	if lang != "" {
		_, _ = w.WriteString(` data-lang="`)
		_, _ = w.Write(util.EscapeHTML([]byte(lang)))
		_ = w.WriteByte('"')
	}
	_, _ = w.WriteString("><code>")
	for i, tokens := range lines {
		if i > 0 {
			_ = w.WriteByte('\n')
		}
		class := "line"
		if i < len(marks) && len(marks[i]) > 0 {
			class += " " + strings.Join(marks[i], " ")
		}
		_, _ = fmt.Fprintf(w, `<span class="%s">`, class)
		var buf bytes.Buffer
		if err := h.formatter.Format(&buf, h.light, chroma.Literator(tokens...)); err != nil {
			return ast.WalkStop, err
		}
		_, _ = w.WriteString(unescapeNotation(buf.String()))
		_, _ = w.WriteString("</span>")
	}
	_, _ = w.WriteString("</code></pre>\n")
	return ast.WalkSkipChildren, nil
}

// tokenize highlights code and splits the tokens into lines without their
// trailing newline.
func (h *codeHighlighter) tokenize(lang, code string) ([][]chroma.Token, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)
	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return nil, fmt.Errorf("highlight %s: %w", lang, err)
	}
	lines := chroma.SplitTokensIntoLines(it.Tokens())
	for i, line := range lines {
		if len(line) == 0 {
			continue
		}
		last := &line[len(line)-1]
		last.Value = strings.TrimSuffix(last.Value, "\n")
		if last.Value == "" {
			lines[i] = line[:len(line)-1]
		}
	}
	// A trailing newline yields an empty final line.
	if n := len(lines); n > 0 && len(lines[n-1]) == 0 && strings.HasSuffix(code, "\n") {
		lines = lines[:n-1]
	}
	return lines, nil
}

// lineMarks are the classes collected for one line.
type lineMarks []string

func (m *lineMarks) add(classes ...string) {
	for _, c := range classes {
		if !m.has(c) {
			*m = append(*m, c)
		}
	}
}

func (m lineMarks) has(class string) bool {
	for _, c := range m {
		if c == class {
			return true
		}
	}
	return false
}

func anyMark(marks []lineMarks, class string) bool {
	for _, m := range marks {
		if m.has(class) {
			return true
		}
	}
	return false
}

var notationRe = regexp.MustCompile(`\s*(?://|#|--|;|%|<!--|/\*)\s*\[!code (\+\+|--|focus|highlight|hl|error|warning)(?::(\d+))?\]\s*(?:-->|\*/)?`)

var notationClasses = map[string][]string{
	"++":        {"diff", "add"},
	"--":        {"diff", "remove"},
	"focus":     {"focused"},
	"highlight": {"highlighted"},
	"hl":        {"highlighted"},
	"error":     {"highlighted", "error"},
	"warning":   {"highlighted", "warning"},
}

// extractNotations removes `[!code …]` comments from code and returns the
// classes of every line. A `:N` suffix applies the notation to N lines.
func extractNotations(code string) (string, []lineMarks) {
	trailing := strings.HasSuffix(code, "\n")
	lines := strings.Split(strings.TrimSuffix(code, "\n"), "\n")
	marks := make([]lineMarks, len(lines))
	for i, line := range lines {
		matches := notationRe.FindAllStringSubmatch(line, -1)
		if matches == nil {
			continue
		}
		for _, m := range matches {
			span := 1
			if m[2] != "" {
				if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
					span = n
				}
			}
			for j := i; j < i+span && j < len(lines); j++ {
				marks[j].add(notationClasses[m[1]]...)
			}
		}
		lines[i] = notationRe.ReplaceAllString(line, "")
	}
	out := strings.Join(lines, "\n")
	if trailing {
		out += "\n"
	}
	return out, marks
}

func unescapeNotation(s string) string {
	return strings.ReplaceAll(s, `[\!code`, `[!code`)
}

var highlightRangeRe = regexp.MustCompile(`\{([\d,\s-]+)\}`)

// parseFenceInfo splits "lang {1,3-4}" into the language and the sorted
// 1-based line numbers to highlight.
func parseFenceInfo(info string) (string, []int) {
	info = strings.TrimSpace(info)
	lang := info
	if i := strings.IndexAny(info, " \t{"); i >= 0 {
		lang = info[:i]
	}
	m := highlightRangeRe.FindStringSubmatch(info)
	if m == nil {
		return lang, nil
	}
	seen := map[int]bool{}
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		from, to, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(from))
		if err != nil {
			continue
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(strings.TrimSpace(to)); err != nil {
				continue
			}
		}
		for l := start; l <= end; l++ {
			seen[l] = true
		}
	}
	lines := make([]int, 0, len(seen))
	for l := range seen {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lang, lines
}
