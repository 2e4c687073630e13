package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/docforge/internal/ir"
)

// HTMLParser handles HTML files. Heading tags give explicit structure;
// tables keep their rowspan/colspan geometry and img tags become figures.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*ir.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := newDocument("html", filename)
	if title := findTitle(root); title != "" {
		doc.Metadata.Title = title
	}

	b := &treeBuilder{}
	start := findBody(root)
	if start == nil {
		start = root
	}
	walkHTML(b, start)
	doc.Body = b.Body()
	return doc, nil
}

func walkHTML(b *treeBuilder, n *html.Node) {
	if n.Type == html.ElementNode {
		if level := headingLevel(n.Data); level > 0 {
			runs := htmlRuns(n, ir.Run{})
			if text := ir.RunText(runs); text != "" {
				h := ir.NewHeading(level, text)
				h.Heading.Runs = runs
				b.AddHeading(h)
			}
			return
		}

		switch n.Data {
		case "script", "style", "nav", "footer", "header":
			return
		case "p", "blockquote":
			emitHTMLParagraph(b, n)
			return
		case "ul", "ol":
			if list := convertHTMLList(n); list != nil {
				b.AddBlock(list)
			}
			return
		case "table":
			if tbl := convertHTMLTable(n); tbl != nil {
				b.AddBlock(tbl)
			}
			return
		case "img":
			if fig := convertHTMLImage(n); fig != nil {
				b.AddBlock(fig)
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(b, c)
	}
}

func emitHTMLParagraph(b *treeBuilder, n *html.Node) {
	runs := htmlRuns(n, ir.Run{})
	if ir.RunText(runs) != "" {
		b.AddBlock(&ir.Node{
			ID:         ir.NewID(),
			Variant:    ir.Paragraph,
			Confidence: 1.0,
			Paragraph:  &ir.ParagraphData{Runs: runs},
		})
	}
	// Images nested in the paragraph surface as separate figures.
	var lift func(*html.Node)
	lift = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			if fig := convertHTMLImage(n); fig != nil {
				b.AddBlock(fig)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			lift(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		lift(c)
	}
}

// htmlRuns collects the formatted text runs under n, accumulating inline
// formatting tags on the way down.
func htmlRuns(n *html.Node, style ir.Run) []ir.Run {
	var runs []ir.Run
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			s := style
			s.Text = collapseSpace(c.Data)
			if strings.TrimSpace(s.Text) != "" {
				runs = append(runs, s)
			}
		case c.Type == html.ElementNode:
			s := style
			switch c.Data {
			case "b", "strong":
				s.Bold = true
			case "i", "em":
				s.Italic = true
			case "u":
				s.Underline = true
			case "s", "del", "strike":
				s.Strikethrough = true
			case "sup":
				s.Superscript = true
			case "sub":
				s.Subscript = true
			case "br":
				sp := style
				sp.Text = " "
				runs = append(runs, sp)
				continue
			case "img", "script", "style":
				continue
			}
			runs = append(runs, htmlRuns(c, s)...)
		}
	}
	return mergeRuns(runs)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// convertHTMLList flattens nested ul/ol trees into one list whose items
// carry their depth.
func convertHTMLList(n *html.Node) *ir.Node {
	list := &ir.Node{
		ID:         ir.NewID(),
		Variant:    ir.List,
		Confidence: 1.0,
		List:       &ir.ListData{Ordered: n.Data == "ol", Marker: htmlListMarker(n)},
	}
	collectHTMLItems(list, n, 0)
	if len(list.Children) == 0 {
		return nil
	}
	return list
}

// htmlListMarker maps the type attribute of an ol to a numbering format.
func htmlListMarker(n *html.Node) string {
	if n.Data != "ol" {
		return ""
	}
	switch attr(n, "type") {
	case "a":
		return ir.MarkerLowerLetter
	case "A":
		return ir.MarkerUpperLetter
	case "i":
		return ir.MarkerLowerRoman
	case "I":
		return ir.MarkerUpperRoman
	default:
		return ""
	}
}

func collectHTMLItems(list *ir.Node, n *html.Node, depth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		runs := htmlItemRuns(c)
		if ir.RunText(runs) != "" {
			list.Children = append(list.Children, &ir.Node{
				ID:         ir.NewID(),
				Variant:    ir.ListItem,
				Confidence: 1.0,
				ListItem:   &ir.ListItemData{Depth: depth, Runs: runs},
			})
		}
		for g := c.FirstChild; g != nil; g = g.NextSibling {
			if g.Type == html.ElementNode && (g.Data == "ul" || g.Data == "ol") {
				collectHTMLItems(list, g, depth+1)
			}
		}
	}
}

// htmlItemRuns collects an li's own text, excluding its nested lists.
func htmlItemRuns(li *html.Node) []ir.Run {
	shell := html.Node{}
	var runs []ir.Run
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
			continue
		}
		shell.FirstChild = c
		saved := c.NextSibling
		c.NextSibling = nil
		runs = append(runs, htmlRuns(&shell, ir.Run{})...)
		c.NextSibling = saved
	}
	return mergeRuns(runs)
}

// convertHTMLTable reads the cell grid including rowspan/colspan
// attributes. Cell positions are resolved against an occupancy sketch so
// anchors land where a browser would place them.
func convertHTMLTable(n *html.Node) *ir.Node {
	data := &ir.TableData{}
	taken := make(map[[2]int]bool)
	row := 0

	var doRows func(*html.Node)
	doRows = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "thead", "tbody", "tfoot":
				doRows(c)
			case "tr":
				col := 0
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type != html.ElementNode || (cell.Data != "td" && cell.Data != "th") {
						continue
					}
					for taken[[2]int{row, col}] {
						col++
					}
					rowSpan := intAttr(cell, "rowspan", 1)
					colSpan := intAttr(cell, "colspan", 1)
					ircell := ir.Cell{
						Row:     row,
						Col:     col,
						RowSpan: rowSpan,
						ColSpan: colSpan,
						Header:  cell.Data == "th",
					}
					runs := htmlRuns(cell, ir.Run{})
					if ir.RunText(runs) != "" {
						ircell.Content = []*ir.Node{{
							ID:         ir.NewID(),
							Variant:    ir.Paragraph,
							Confidence: 1.0,
							Paragraph:  &ir.ParagraphData{Runs: runs},
						}}
					}
					data.Cells = append(data.Cells, ircell)
					for r := row; r < row+rowSpan; r++ {
						for cc := col; cc < col+colSpan; cc++ {
							taken[[2]int{r, cc}] = true
							if cc+1 > data.Cols {
								data.Cols = cc + 1
							}
						}
					}
					col += colSpan
				}
				row++
			}
		}
	}
	doRows(n)

	data.Rows = row
	for pos := range taken {
		if pos[0]+1 > data.Rows {
			data.Rows = pos[0] + 1
		}
	}
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

func convertHTMLImage(n *html.Node) *ir.Node {
	src := attr(n, "src")
	if src == "" || strings.HasPrefix(src, "data:") {
		return nil
	}
	return &ir.Node{
		ID:         ir.NewID(),
		Variant:    ir.Figure,
		Confidence: 1.0,
		Figure: &ir.FigureData{
			Path:     src,
			Caption:  attr(n, "alt"),
			WidthPx:  intAttr(n, "width", 0),
			HeightPx: intAttr(n, "height", 0),
		},
	}
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func intAttr(n *html.Node, name string, fallback int) int {
	v, err := strconv.Atoi(attr(n, name))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
