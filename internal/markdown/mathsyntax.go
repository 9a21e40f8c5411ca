package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/inkpress/internal/markdown/math"
)

var mathRegistryKey = parser.NewContextKey()

func withMathRegistry(pc parser.Context, reg *math.Registry) {
	pc.Set(mathRegistryKey, reg)
}

func mathRegistryFrom(pc parser.Context) *math.Registry {
	reg, _ := pc.Get(mathRegistryKey).(*math.Registry)
	return reg
}

var (
	// KindMathInline is the node kind of `$tex$` and `$$tex$$` within text.
	KindMathInline = ast.NewNodeKind("MathInline")
	// KindMathBlock is the node kind of a `$$` block.
	KindMathBlock = ast.NewNodeKind("MathBlock")
)

// MathInline is an expression inside a paragraph. Placeholder marks where the
// typeset markup goes once rendering is complete.
type MathInline struct {
	ast.BaseInline
	TeX         string
	Display     bool
	Placeholder string
}

// Dump implements ast.Node.
func (n *MathInline) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"TeX": n.TeX}, nil)
}

// Kind implements ast.Node.
func (n *MathInline) Kind() ast.NodeKind { return KindMathInline }

// MathBlock is display math on lines of its own.
type MathBlock struct {
	ast.BaseBlock
	Placeholder string

	closed bool
}

// Dump implements ast.Node.
func (n *MathBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// Kind implements ast.Node.
func (n *MathBlock) Kind() ast.NodeKind { return KindMathBlock }

// IsRaw implements ast.Node.
func (n *MathBlock) IsRaw() bool { return true }

type mathInlineParser struct{}

func (p *mathInlineParser) Trigger() []byte { return []byte{'$'} }

func (p *mathInlineParser) Parse(_ ast.Node, block text.Reader, pc parser.Context) ast.Node {
	reg := mathRegistryFrom(pc)
	if reg == nil {
		return nil
	}
	line, _ := block.PeekLine()
	tex, consumed, display := scanInlineMath(line)
	if consumed == 0 {
		return nil
	}
	if before := block.PrecendingCharacter(); before == '$' {
		return nil
	}
	block.Advance(consumed)
	return &MathInline{TeX: tex, Display: display, Placeholder: reg.Add(tex, display)}
}

// scanInlineMath matches `$$tex$$` or `$tex$` at the start of line. A single
// dollar opener must not be followed by whitespace; its closer must not be
// preceded by whitespace or followed by a digit.
func scanInlineMath(line []byte) (tex string, consumed int, display bool) {
	if bytes.HasPrefix(line, []byte("$$")) {
		end := bytes.Index(line[2:], []byte("$$"))
		if end <= 0 {
			return "", 0, false
		}
		inner := string(line[2 : 2+end])
		if strings.TrimSpace(inner) == "" {
			return "", 0, false
		}
		return inner, end + 4, true
	}
	if len(line) < 3 || util.IsSpace(line[1]) {
		return "", 0, false
	}
	for i := 2; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '\n':
			return "", 0, false
		case '$':
			if util.IsSpace(line[i-1]) {
				continue
			}
			if i+1 < len(line) && '0' <= line[i+1] && line[i+1] <= '9' {
				continue
			}
			return string(line[1:i]), i + 1, false
		}
	}
	return "", 0, false
}

func (p *mathInlineParser) CloseBlock(ast.Node, parser.Context) {}

type mathBlockParser struct{}

func (b *mathBlockParser) Trigger() []byte { return []byte{'$'} }

func (b *mathBlockParser) Open(_ ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	if mathRegistryFrom(pc) == nil {
		return nil, parser.NoChildren
	}
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || !bytes.HasPrefix(line[pos:], []byte("$$")) {
		return nil, parser.NoChildren
	}
	node := &MathBlock{}
	rest := bytes.TrimSpace(line[pos+2:])
	start := segment.Start + pos + 2
	if len(rest) > 0 {
		closer := bytes.Index(rest, []byte("$$"))
		if closer >= 0 && closer != len(rest)-2 {
			return nil, parser.NoChildren
		}
		if closer >= 0 {
			trimmed := bytes.TrimSpace(rest[:len(rest)-2])
			if len(trimmed) == 0 {
				return nil, parser.NoChildren
			}
			node.closed = true
		}
		node.Lines().Append(text.NewSegment(start, segment.Stop))
	}
	reader.Advance(segment.Stop - segment.Start - newlineWidth(line) + segment.Padding)
	return node, parser.NoChildren
}

func (b *mathBlockParser) Continue(node ast.Node, reader text.Reader, _ parser.Context) parser.State {
	n := node.(*MathBlock)
	if n.closed {
		return parser.Close
	}
	line, segment := reader.PeekLine()
	if line == nil {
		return parser.Close
	}
	if bytes.HasSuffix(bytes.TrimSpace(line), []byte("$$")) {
		n.closed = true
		n.Lines().Append(segment)
		reader.Advance(segment.Stop - segment.Start - newlineWidth(line) + segment.Padding)
		return parser.Close
	}
	n.Lines().Append(segment)
	reader.Advance(segment.Stop - segment.Start - newlineWidth(line) + segment.Padding)
	return parser.Continue | parser.NoChildren
}

func (b *mathBlockParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {
	n := node.(*MathBlock)
	var buf bytes.Buffer
	for i := 0; i < n.Lines().Len(); i++ {
		seg := n.Lines().At(i)
		buf.Write(seg.Value(reader.Source()))
	}
	tex := strings.TrimSpace(buf.String())
	tex = strings.TrimSpace(strings.TrimSuffix(tex, "$$"))
	if reg := mathRegistryFrom(pc); reg != nil {
		n.Placeholder = reg.Add(tex, true)
	}
}

func (b *mathBlockParser) CanInterruptParagraph() bool { return true }

func (b *mathBlockParser) CanAcceptIndentedLine() bool { return false }

type mathRenderer struct{}

func (r *mathRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMathInline, r.renderInline)
	reg.Register(KindMathBlock, r.renderBlock)
}

func (r *mathRenderer) renderInline(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(node.(*MathInline).Placeholder)
	}
	return ast.WalkSkipChildren, nil
}

func (r *mathRenderer) renderBlock(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(node.(*MathBlock).Placeholder)
		_ = w.WriteByte('\n')
	}
	return ast.WalkSkipChildren, nil
}

type mathSyntax struct {
	inlineOnly bool
}

// Extend implements goldmark.Extender.
func (e *mathSyntax) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(&mathInlineParser{}, 150),
	))
	if !e.inlineOnly {
		m.Parser().AddOptions(parser.WithBlockParsers(
			util.Prioritized(&mathBlockParser{}, 750),
		))
	}
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&mathRenderer{}, 500),
	))
}
