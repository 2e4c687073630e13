package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/docforge/internal/ir"
)

// MarkdownParser handles Markdown files using goldmark. Markdown structure
// is explicit, so every node gets full confidence.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*ir.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))
	root := md.Parser().Parse(text.NewReader(src))

	doc := newDocument("markdown", filename)
	b := &treeBuilder{}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if err := p.convertBlock(b, n, src); err != nil {
			return nil, err
		}
	}
	doc.Body = b.Body()
	return doc, nil
}

func (p *MarkdownParser) convertBlock(b *treeBuilder, n ast.Node, src []byte) error {
	switch node := n.(type) {
	case *ast.Heading:
		runs := inlineRuns(node, src, ir.Run{})
		h := ir.NewHeading(node.Level, ir.RunText(runs))
		h.Heading.Runs = runs
		b.AddHeading(h)

	case *ast.Paragraph, *ast.TextBlock:
		p.convertParagraph(b, n, src)

	case *ast.List:
		list := &ir.Node{
			ID:         ir.NewID(),
			Variant:    ir.List,
			Confidence: 1.0,
			List:       &ir.ListData{Ordered: node.IsOrdered()},
		}
		collectListItems(list, node, src, 0)
		if len(list.Children) > 0 {
			b.AddBlock(list)
		}

	case *east.Table:
		if tbl := convertTable(node, src); tbl != nil {
			b.AddBlock(tbl)
		}

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if text := blockLines(n, src); text != "" {
			b.AddBlock(ir.NewParagraph(text))
		}

	case *ast.Blockquote:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if err := p.convertBlock(b, c, src); err != nil {
				return err
			}
		}
	}
	return nil
}

// convertParagraph splits a paragraph into its text and its images: the
// text becomes a Paragraph node, each image its own Figure node.
func (p *MarkdownParser) convertParagraph(b *treeBuilder, n ast.Node, src []byte) {
	runs := inlineRuns(n, src, ir.Run{})
	if ir.RunText(runs) != "" {
		para := &ir.Node{
			ID:         ir.NewID(),
			Variant:    ir.Paragraph,
			Confidence: 1.0,
			Paragraph:  &ir.ParagraphData{Runs: runs},
		}
		b.AddBlock(para)
	}
	for _, fig := range collectImages(n, src) {
		b.AddBlock(fig)
	}
}

// collectImages finds image inlines anywhere under n.
func collectImages(n ast.Node, src []byte) []*ir.Node {
	var out []*ir.Node
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if img, ok := c.(*ast.Image); ok {
			caption := string(img.Title)
			if caption == "" {
				caption = string(img.Text(src))
			}
			out = append(out, &ir.Node{
				ID:         ir.NewID(),
				Variant:    ir.Figure,
				Confidence: 1.0,
				Figure: &ir.FigureData{
					Path:    string(img.Destination),
					Caption: caption,
				},
			})
			continue
		}
		out = append(out, collectImages(c, src)...)
	}
	return out
}

// collectListItems flattens a possibly nested markdown list into items
// carrying their indentation depth.
func collectListItems(list *ir.Node, l *ast.List, src []byte, depth int) {
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		var runs []ir.Run
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch child := c.(type) {
			case *ast.List:
				collectListItems(list, child, src, depth+1)
			default:
				runs = append(runs, inlineRuns(child, src, ir.Run{})...)
			}
		}
		if ir.RunText(runs) == "" {
			continue
		}
		list.Children = append(list.Children, &ir.Node{
			ID:         ir.NewID(),
			Variant:    ir.ListItem,
			Confidence: 1.0,
			ListItem:   &ir.ListItemData{Depth: depth, Runs: runs},
		})
	}
}

func convertTable(t *east.Table, src []byte) *ir.Node {
	data := &ir.TableData{}
	row := 0
	for r := t.FirstChild(); r != nil; r = r.NextSibling() {
		header := false
		if _, ok := r.(*east.TableHeader); ok {
			header = true
		}
		col := 0
		for c := r.FirstChild(); c != nil; c = c.NextSibling() {
			runs := inlineRuns(c, src, ir.Run{})
			cell := ir.Cell{Row: row, Col: col, Header: header}
			if ir.RunText(runs) != "" {
				cell.Content = []*ir.Node{{
					ID:         ir.NewID(),
					Variant:    ir.Paragraph,
					Confidence: 1.0,
					Paragraph:  &ir.ParagraphData{Runs: runs},
				}}
			}
			data.Cells = append(data.Cells, cell)
			col++
		}
		if col > data.Cols {
			data.Cols = col
		}
		row++
	}
	data.Rows = row
	if data.Rows == 0 || data.Cols == 0 {
		return nil
	}
	return &ir.Node{
		ID:         ir.NewID(),
		Variant:    ir.Table,
		Confidence: 1.0,
		Table:      data,
	}
}

// inlineRuns walks inline children collecting formatted runs, carrying the
// formatting accumulated on the way down.
func inlineRuns(n ast.Node, src []byte, style ir.Run) []ir.Run {
	var runs []ir.Run
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			s := style
			s.Text = string(node.Value(src))
			if s.Text != "" {
				runs = append(runs, s)
			}
			if node.HardLineBreak() || node.SoftLineBreak() {
				sp := style
				sp.Text = " "
				runs = append(runs, sp)
			}
		case *ast.Emphasis:
			s := style
			if node.Level >= 2 {
				s.Bold = true
			} else {
				s.Italic = true
			}
			runs = append(runs, inlineRuns(node, src, s)...)
		case *east.Strikethrough:
			s := style
			s.Strikethrough = true
			runs = append(runs, inlineRuns(node, src, s)...)
		case *ast.CodeSpan:
			s := style
			s.Text = string(node.Text(src))
			if s.Text != "" {
				runs = append(runs, s)
			}
		case *ast.Link:
			runs = append(runs, inlineRuns(node, src, style)...)
		case *ast.Image:
			// Images are lifted into Figure nodes by the caller.
		default:
			runs = append(runs, inlineRuns(c, src, style)...)
		}
	}
	return mergeRuns(runs)
}

// mergeRuns joins adjacent runs with identical formatting.
func mergeRuns(runs []ir.Run) []ir.Run {
	if len(runs) < 2 {
		return runs
	}
	out := runs[:1]
	for _, r := range runs[1:] {
		last := &out[len(out)-1]
		same := r
		same.Text = last.Text
		if same == *last {
			last.Text += r.Text
			continue
		}
		out = append(out, r)
	}
	return out
}

// blockLines concatenates the raw source lines of a block node.
func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return strings.TrimSpace(buf.String())
}
