package markdown

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindSpoiler is the node kind of an `@@hidden@@` span.
var KindSpoiler = ast.NewNodeKind("Spoiler")

// Spoiler is text hidden until the reader hovers it.
type Spoiler struct {
	ast.BaseInline
}

// Dump implements ast.Node.
func (n *Spoiler) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// Kind implements ast.Node.
func (n *Spoiler) Kind() ast.NodeKind { return KindSpoiler }

type spoilerDelimiters struct{}

func (p *spoilerDelimiters) IsDelimiter(b byte) bool { return b == '@' }

func (p *spoilerDelimiters) CanOpenCloser(opener, closer *parser.Delimiter) bool {
	return opener.Char == closer.Char
}

func (p *spoilerDelimiters) OnMatch(int) ast.Node { return &Spoiler{} }

var spoilerProcessor = &spoilerDelimiters{}

type spoilerParser struct{}

func (s *spoilerParser) Trigger() []byte { return []byte{'@'} }

func (s *spoilerParser) Parse(_ ast.Node, block text.Reader, pc parser.Context) ast.Node {
	before := block.PrecendingCharacter()
	line, segment := block.PeekLine()
	node := parser.ScanDelimiter(line, before, 2, spoilerProcessor)
	if node == nil || node.OriginalLength != 2 || before == '@' {
		return nil
	}
	node.Segment = segment.WithStop(segment.Start + node.OriginalLength)
	block.Advance(node.OriginalLength)
	pc.PushDelimiter(node)
	return node
}

func (s *spoilerParser) CloseBlock(ast.Node, parser.Context) {}

type spoilerRenderer struct{}

func (r *spoilerRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindSpoiler, func(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			_, _ = w.WriteString(`<span class="heimu">`)
		} else {
			_, _ = w.WriteString("</span>")
		}
		return ast.WalkContinue, nil
	})
}

type spoilers struct{}

// Extend implements goldmark.Extender.
func (e *spoilers) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(&spoilerParser{}, 500),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&spoilerRenderer{}, 500),
	))
}
