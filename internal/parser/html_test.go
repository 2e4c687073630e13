package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docforge/internal/ir"
)

func TestHTMLParser_HeadingsAndFormatting(t *testing.T) {
	input := `<html><head><title>Manual</title></head><body>
<h1>Setup</h1>
<p>Plain with <b>bold</b> and <sub>sub</sub>.</p>
<h2>Wiring</h2>
<p>Wiring text.</p>
</body></html>`

	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "manual.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("invalid IR: %v", err)
	}

	if doc.Metadata.Title != "Manual" {
		t.Errorf("title = %q, want from <title>", doc.Metadata.Title)
	}
	if len(doc.Body) != 1 || doc.Body[0].Heading.Text != "Setup" {
		t.Fatalf("expected single h1 Setup, got %+v", doc.Body)
	}

	h1 := doc.Body[0]
	if len(h1.Children) != 2 {
		t.Fatalf("expected paragraph + h2 under Setup, got %d", len(h1.Children))
	}
	runs := h1.Children[0].Paragraph.Runs
	var bold, sub bool
	for _, r := range runs {
		if r.Text == "bold" && r.Bold {
			bold = true
		}
		if r.Text == "sub" && r.Subscript {
			sub = true
		}
	}
	if !bold || !sub {
		t.Errorf("inline formatting lost: %+v", runs)
	}
	if h1.Children[1].Heading.Level != 2 {
		t.Errorf("expected nested h2, got %+v", h1.Children[1])
	}
}

func TestHTMLParser_TableWithSpans(t *testing.T) {
	input := `<table>
<tr><th colspan="2">Header</th></tr>
<tr><td rowspan="2">tall</td><td>a</td></tr>
<tr><td>b</td></tr>
</table>`

	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "t.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Body) != 1 || doc.Body[0].Variant != ir.Table {
		t.Fatalf("expected one table, got %+v", doc.Body)
	}

	tbl := doc.Body[0].Table
	if tbl.Rows != 3 || tbl.Cols != 2 {
		t.Fatalf("dims = %dx%d, want 3x2", tbl.Rows, tbl.Cols)
	}
	if len(tbl.Cells) != 4 {
		t.Fatalf("expected 4 anchors, got %d", len(tbl.Cells))
	}
	if tbl.Cells[0].ColSpan != 2 || !tbl.Cells[0].Header {
		t.Errorf("header anchor = %+v", tbl.Cells[0])
	}
	if tbl.Cells[1].RowSpan != 2 {
		t.Errorf("tall anchor = %+v", tbl.Cells[1])
	}
	// "b" must land in column 1, pushed right by the open rowspan.
	last := tbl.Cells[3]
	if last.Row != 2 || last.Col != 1 {
		t.Errorf("cell b at (%d,%d), want (2,1)", last.Row, last.Col)
	}

	if err := doc.Validate(); err != nil {
		t.Fatalf("span geometry does not validate: %v", err)
	}
}

func TestHTMLParser_ListsAndImages(t *testing.T) {
	input := `<body>
<ol type="a"><li>one</li><li>two<ul><li>deep</li></ul></li></ol>
<p>See <img src="fig1.png" alt="overview" width="320" height="240"> here.</p>
</body>`

	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "mixed.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Body) != 3 {
		t.Fatalf("expected list + paragraph + figure, got %+v", doc.Body)
	}

	list := doc.Body[0]
	if list.Variant != ir.List || !list.List.Ordered {
		t.Fatalf("expected ordered list, got %+v", list)
	}
	if list.List.Marker != ir.MarkerLowerLetter {
		t.Errorf("marker = %q, want lowerLetter from type attribute", list.List.Marker)
	}
	if len(list.Children) != 3 || list.Children[2].ListItem.Depth != 1 {
		t.Errorf("items = %+v", list.Children)
	}

	fig := doc.Body[2]
	if fig.Variant != ir.Figure {
		t.Fatalf("expected figure, got %+v", fig)
	}
	if fig.Figure.Path != "fig1.png" || fig.Figure.Caption != "overview" {
		t.Errorf("figure = %+v", fig.Figure)
	}
	if fig.Figure.WidthPx != 320 || fig.Figure.HeightPx != 240 {
		t.Errorf("dims = %dx%d", fig.Figure.WidthPx, fig.Figure.HeightPx)
	}
}

func TestHTMLParser_SkipsChrome(t *testing.T) {
	input := `<body>
<nav><p>menu</p></nav>
<p>content</p>
<footer><p>copyright</p></footer>
</body>`
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Body) != 1 {
		t.Fatalf("expected nav/footer stripped, got %+v", doc.Body)
	}
	if got := ir.RunText(doc.Body[0].Paragraph.Runs); got != "content" {
		t.Errorf("text = %q", got)
	}
}
