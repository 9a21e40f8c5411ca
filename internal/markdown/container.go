package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/inkpress/internal/config"
)

// Container variants recognized after the opening colons.
const (
	ContainerWarning  = "warning"
	ContainerError    = "error"
	ContainerInfo     = "info"
	ContainerExpander = "expander"
)

// KindContainer is the node kind of a custom container.
var KindContainer = ast.NewNodeKind("Container")

// Container is a `::: variant [title]` block.
type Container struct {
	ast.BaseBlock
	Variant string
	Title   string

	markers int
}

// Dump implements ast.Node.
func (n *Container) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Variant": n.Variant, "Title": n.Title}, nil)
}

// Kind implements ast.Node.
func (n *Container) Kind() ast.NodeKind { return KindContainer }

type containerParser struct{}

func (b *containerParser) Trigger() []byte { return []byte{':'} }

func (b *containerParser) Open(_ ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || line[pos] != ':' {
		return nil, parser.NoChildren
	}
	i := pos
	for ; i < len(line) && line[i] == ':'; i++ {
	}
	markers := i - pos
	if markers < 3 {
		return nil, parser.NoChildren
	}
	params := strings.TrimSpace(string(line[i:]))
	kind, title, _ := strings.Cut(params, " ")
	if !isContainerKind(kind) {
		return nil, parser.NoChildren
	}
	node := &Container{Variant: kind, Title: strings.TrimSpace(title), markers: markers}
	reader.Advance(segment.Stop - segment.Start - newlineWidth(line) + segment.Padding)
	return node, parser.HasChildren
}

func (b *containerParser) Continue(node ast.Node, reader text.Reader, _ parser.Context) parser.State {
	n := node.(*Container)
	line, segment := reader.PeekLine()
	if w, pos := util.IndentWidth(line, reader.LineOffset()); w < 4 && pos < len(line) {
		i := pos
		for ; i < len(line) && line[i] == ':'; i++ {
		}
		if i-pos >= n.markers && util.IsBlank(line[i:]) {
			reader.Advance(segment.Stop - segment.Start - newlineWidth(line) + segment.Padding)
			return parser.Close
		}
	}
	return parser.Continue | parser.HasChildren
}

func (b *containerParser) Close(ast.Node, text.Reader, parser.Context) {}

func (b *containerParser) CanInterruptParagraph() bool { return true }

func (b *containerParser) CanAcceptIndentedLine() bool { return false }

func isContainerKind(kind string) bool {
	switch kind {
	case ContainerWarning, ContainerError, ContainerInfo, ContainerExpander:
		return true
	}
	return false
}

func newlineWidth(line []byte) int {
	if len(line) > 0 && line[len(line)-1] == '\n' {
		return 1
	}
	return 0
}

type containerRenderer struct {
	labels config.ContainerLabels
	flavor config.ExpanderFlavor
}

func (r *containerRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindContainer, r.renderContainer)
}

func (r *containerRenderer) title(n *Container) string {
	if n.Title != "" {
		return n.Title
	}
	switch n.Variant {
	case ContainerWarning:
		return r.labels.Warning
	case ContainerError:
		return r.labels.Error
	case ContainerInfo:
		return r.labels.Info
	default:
		return r.labels.Expander
	}
}

func (r *containerRenderer) renderContainer(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*Container)
	title := string(util.EscapeHTML([]byte(r.title(n))))
	if n.Variant == ContainerExpander {
		r.renderExpander(w, title, entering)
		return ast.WalkContinue, nil
	}
	if entering {
		_, _ = fmt.Fprintf(w, "<div class=\"container %s\"><p class=\"container-title\">%s</p>\n", n.Variant, title)
	} else {
		_, _ = w.WriteString("</div>\n")
	}
	return ast.WalkContinue, nil
}

func (r *containerRenderer) renderExpander(w util.BufWriter, title string, entering bool) {
	if r.flavor == config.ExpanderHTML {
		if entering {
			_, _ = fmt.Fprintf(w, "<details class=\"expander\"><summary>%s</summary>\n", title)
		} else {
			_, _ = w.WriteString("</details>\n")
		}
		return
	}
	if entering {
		var b bytes.Buffer
		b.WriteString("\n<ExpanderComponent class=\"expander\" :initial-collapsed=\"true\"\n  :extend-toggle-area=\"true\">\n")
		b.WriteString("  <template #header>\n")
		fmt.Fprintf(&b, "    <span font-bold text-sm p-y-4>%s</span>\n", title)
		b.WriteString("  </template>\n")
		_, _ = w.Write(b.Bytes())
	} else {
		_, _ = w.WriteString("</ExpanderComponent>\n")
	}
}

type containers struct {
	labels config.ContainerLabels
	flavor config.ExpanderFlavor
}

// Extend implements goldmark.Extender.
func (e *containers) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithBlockParsers(
		util.Prioritized(&containerParser{}, 650),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&containerRenderer{labels: e.labels, flavor: e.flavor}, 100),
	))
}
