package postprocess

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"golang.org/x/net/html"
)

var whitespaceRun = regexp.MustCompile(`[ \t\r\n\f]+`)

// Minifier collapses insignificant whitespace in HTML and minifies inline
// scripts and styles. Comments are kept. Inline bodies esbuild cannot parse
// are left untouched and counted in Skipped.
type Minifier struct {
	Skipped int
}

// Minify returns the minified form of src.
func (m *Minifier) Minify(src []byte) ([]byte, error) {
	z := html.NewTokenizer(bytes.NewReader(src))
	var (
		out       bytes.Buffer
		preserve  int
		rawLoader api.Loader
		inRaw     bool
	)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return out.Bytes(), nil
			}
			return nil, z.Err()
		case html.StartTagToken:
			raw := string(z.Raw())
			name, hasAttr := z.TagName()
			tag := string(name)
			switch tag {
			case "pre", "textarea":
				preserve++
			case "script":
				inRaw, rawLoader = true, scriptLoader(z, hasAttr)
			case "style":
				inRaw, rawLoader = true, api.LoaderCSS
			}
			out.WriteString(raw)
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "pre", "textarea":
				if preserve > 0 {
					preserve--
				}
			case "script", "style":
				inRaw = false
			}
			out.Write(z.Raw())
		case html.TextToken:
			text := string(z.Raw())
			switch {
			case inRaw:
				out.WriteString(m.minifyInline(text, rawLoader))
			case preserve > 0:
				out.WriteString(text)
			default:
				out.WriteString(whitespaceRun.ReplaceAllString(text, " "))
			}
		default:
			out.Write(z.Raw())
		}
	}
}

// scriptLoader selects the loader for a script body. Only untyped, module
// and JavaScript scripts are minified.
func scriptLoader(z *html.Tokenizer, hasAttr bool) api.Loader {
	typ := ""
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if string(key) == "type" {
			typ = strings.ToLower(strings.TrimSpace(string(val)))
		}
	}
	switch typ {
	case "", "module", "text/javascript", "application/javascript":
		return api.LoaderJS
	default:
		return api.LoaderNone
	}
}

func (m *Minifier) minifyInline(body string, loader api.Loader) string {
	if loader == api.LoaderNone || strings.TrimSpace(body) == "" {
		return body
	}
	res := api.Transform(body, api.TransformOptions{
		Loader:            loader,
		MinifyWhitespace:  true,
		MinifySyntax:      true,
		LegalComments:     api.LegalCommentsInline,
		Charset:           api.CharsetUTF8,
		MinifyIdentifiers: false,
	})
	if len(res.Errors) > 0 {
		m.Skipped++
		return body
	}
	return strings.TrimRight(string(res.Code), "\n")
}
