// Package parser turns source documents into the intermediate
// representation. Each supported format has its own parser; formats with
// explicit structure (markdown, html, docx) produce full-confidence nodes,
// while the PDF parser infers structure heuristically and annotates every
// inference with a confidence score.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docforge/internal/ir"
)

// version is recorded in the IR metadata of every parse.
const version = "0.3.0"

// Parser converts raw document bytes into an IR document.
type Parser interface {
	Parse(r io.Reader, filename string) (*ir.Document, error)
}

// SupportedExtensions lists file extensions this converter can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: true}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// newDocument starts an IR document for one parse.
func newDocument(parserName, filename string) *ir.Document {
	return &ir.Document{
		Metadata: ir.Metadata{
			SourceFile:    filepath.Base(filename),
			Parser:        parserName,
			ParserVersion: version,
			Title:         titleFromFilename(filename),
		},
	}
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// treeBuilder nests blocks under the most recent heading of a shallower
// level, the way every structured parser here builds its tree.
type treeBuilder struct {
	body  []*ir.Node
	stack []*ir.Node // open heading chain, outermost first
}

// AddHeading places a heading according to its declared level and makes it
// the attachment point for subsequent blocks.
func (b *treeBuilder) AddHeading(n *ir.Node) {
	level := n.Heading.Level
	for len(b.stack) > 0 && b.stack[len(b.stack)-1].Heading.Level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	if len(b.stack) == 0 {
		b.body = append(b.body, n)
	} else {
		parent := b.stack[len(b.stack)-1]
		parent.Children = append(parent.Children, n)
	}
	b.stack = append(b.stack, n)
}

// AddBlock attaches a non-heading block to the current heading, or to the
// body when no heading is open.
func (b *treeBuilder) AddBlock(n *ir.Node) {
	if len(b.stack) == 0 {
		b.body = append(b.body, n)
		return
	}
	top := b.stack[len(b.stack)-1]
	top.Children = append(top.Children, n)
}

// Body returns the accumulated top-level nodes.
func (b *treeBuilder) Body() []*ir.Node {
	return b.body
}
