package generator

import (
	"fmt"

	"github.com/dgallion1/docforge/internal/ir"
)

// TableLayoutError reports an irreparable cell-grid overlap. It is fatal
// for the whole document: overlapping anchors indicate a broken extraction,
// not a recoverable per-table fault.
type TableLayoutError struct {
	NodeID string
	Page   int
	Row    int
	Col    int
	Reason string
}

func (e *TableLayoutError) Error() string {
	return fmt.Sprintf("table layout: node %s (page %d) at (%d,%d): %s",
		e.NodeID, e.Page, e.Row, e.Col, e.Reason)
}

// LayoutCell is one anchor cell of the resolved render model. Positions
// covered by its spans hold no content of their own; the target format
// expresses them as merge continuations.
type LayoutCell struct {
	Row     int
	Col     int
	RowSpan int
	ColSpan int
	Header  bool
	Content []*ir.Node
}

// TableLayout is the span-expanded render model of a table: anchors in
// row-major order covering the grid exactly, with no overlaps and no gaps.
type TableLayout struct {
	Rows  int
	Cols  int
	Cells []LayoutCell
}

// LayoutTable expands the span geometry of a Table node. Positions claimed
// by two anchors fail with *TableLayoutError; uncovered positions are
// filled with empty 1x1 anchors so the expanded grid is always rectangular.
func LayoutTable(n *ir.Node) (*TableLayout, error) {
	t := n.Table
	layout := &TableLayout{Rows: t.Rows, Cols: t.Cols}

	// occupancy[r][c] holds 1+index of the claiming anchor, 0 = free.
	occupancy := make([][]int, t.Rows)
	for r := range occupancy {
		occupancy[r] = make([]int, t.Cols)
	}

	headerRows := make(map[int]bool)
	for i := range t.Cells {
		c := &t.Cells[i]
		rs, cs := max(c.RowSpan, 1), max(c.ColSpan, 1)
		for r := c.Row; r < c.Row+rs; r++ {
			for col := c.Col; col < c.Col+cs; col++ {
				if prev := occupancy[r][col]; prev != 0 {
					p := &t.Cells[prev-1]
					return nil, &TableLayoutError{
						NodeID: n.ID,
						Page:   n.Page,
						Row:    r,
						Col:    col,
						Reason: fmt.Sprintf("claimed by anchors (%d,%d) and (%d,%d)",
							p.Row, p.Col, c.Row, c.Col),
					}
				}
				occupancy[r][col] = i + 1
			}
		}
		if c.Header {
			headerRows[c.Row] = true
		}
	}

	// Collect anchors row-major, filling gaps as empty cells.
	for r := 0; r < t.Rows; r++ {
		for col := 0; col < t.Cols; col++ {
			idx := occupancy[r][col]
			if idx == 0 {
				layout.Cells = append(layout.Cells, LayoutCell{
					Row: r, Col: col, RowSpan: 1, ColSpan: 1,
					Header: headerRows[r],
				})
				continue
			}
			c := &t.Cells[idx-1]
			if c.Row != r || c.Col != col {
				continue // covered position, anchor emitted elsewhere
			}
			layout.Cells = append(layout.Cells, LayoutCell{
				Row:     c.Row,
				Col:     c.Col,
				RowSpan: max(c.RowSpan, 1),
				ColSpan: max(c.ColSpan, 1),
				Header:  c.Header || headerRows[c.Row],
				Content: c.Content,
			})
		}
	}
	return layout, nil
}

// CoveredCells returns how many grid positions the layout's anchors cover,
// used to assert rectangularity.
func (l *TableLayout) CoveredCells() int {
	total := 0
	for _, c := range l.Cells {
		total += c.RowSpan * c.ColSpan
	}
	return total
}
