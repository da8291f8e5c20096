// Package plaintext flattens lightweight markup into searchable text.
// Entries are written in markdown-ish shorthand on the client; search and
// export want the words, not the decoration.
package plaintext

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// GFM already bundles strikethrough, tables and autolinks.
var engine = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// Extract parses markup and returns its visible text with whitespace
// collapsed to single spaces. Plain input passes through unchanged apart
// from whitespace normalization.
func Extract(markup string) string {
	src := []byte(strings.TrimSpace(markup))
	if len(src) == 0 {
		return ""
	}

	doc := engine.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.AutoLink:
			buf.Write(node.URL(src))
			buf.WriteByte(' ')
		case *ast.CodeBlock:
			writeLines(&buf, src, node.Lines())
		case *ast.FencedCodeBlock:
			writeLines(&buf, src, node.Lines())
		default:
			// Block boundaries become spaces so adjacent blocks never fuse
			// into one word.
			if n.Type() == ast.TypeBlock {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(buf.String()), " ")
}

func writeLines(buf *bytes.Buffer, src []byte, lines *text.Segments) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
		buf.WriteByte(' ')
	}
}
