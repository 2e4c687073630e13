package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docforge/internal/ir"
)

func TestCSVParser_SingleTable(t *testing.T) {
	input := "name,qty,unit\nbolt,4,pcs\nnut,8,pcs\n"
	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader(input), "parts.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("invalid IR: %v", err)
	}

	if len(doc.Body) != 1 || doc.Body[0].Variant != ir.Table {
		t.Fatalf("expected one table node, got %+v", doc.Body)
	}
	tbl := doc.Body[0].Table
	if tbl.Rows != 3 || tbl.Cols != 3 {
		t.Fatalf("dims = %dx%d, want 3x3", tbl.Rows, tbl.Cols)
	}
	for i := 0; i < 3; i++ {
		if !tbl.Cells[i].Header {
			t.Errorf("cell %d of first row not marked header", i)
		}
	}
	if got := ir.RunText(tbl.Cells[4].Content[0].Paragraph.Runs); got != "4" {
		t.Errorf("cell (1,1) = %q", got)
	}
}

func TestCSVParser_RaggedRows(t *testing.T) {
	input := "a,b,c\n1,2\n"
	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader(input), "ragged.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tbl := doc.Body[0].Table
	if tbl.Rows != 2 || tbl.Cols != 3 {
		t.Fatalf("dims = %dx%d, want 2x3", tbl.Rows, tbl.Cols)
	}
	// The short row still covers the full grid with empty cells.
	if err := doc.Validate(); err != nil {
		t.Fatalf("ragged grid does not validate: %v", err)
	}
}

func TestCSVParser_EmptyInput(t *testing.T) {
	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Body) != 0 {
		t.Errorf("expected no nodes, got %+v", doc.Body)
	}
}
