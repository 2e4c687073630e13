// Package docx encodes generator output into an OOXML word processing
// package. It drives github.com/fumiama/go-docx for the document body and
// supplies its own styles and numbering parts through a custom template.
package docx

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	godocx "github.com/fumiama/go-docx"

	"github.com/dgallion1/docforge/internal/config"
	"github.com/dgallion1/docforge/internal/generator"
	"github.com/dgallion1/docforge/internal/ir"
)

// headerShadeFill shades header cells light grey.
const headerShadeFill = "D9D9D9"

// Encoder implements generator.DocumentBuilder over a go-docx document.
// One Encoder produces one file: build it, run the generator, then Flush
// exactly once.
type Encoder struct {
	cfg   config.StyleConfig
	doc   *godocx.Docx
	title string
	defs  []generator.NumberingDefinition

	tbl *tableState
}

// tableState tracks the open table between BeginTable and EndTable.
type tableState struct {
	table   *godocx.Table
	rows    int
	cols    int
	anchors []generator.LayoutCell
	cur     *godocx.WTableCell
}

// NewEncoder returns an Encoder writing a document styled per cfg.
func NewEncoder(cfg config.StyleConfig) *Encoder {
	e := &Encoder{cfg: cfg}
	e.doc = godocx.New().UseTemplate(templateName, templateFiles, &templateFS{enc: e})
	return e
}

func (e *Encoder) SetTitle(title string) { e.title = title }

func (e *Encoder) DefineNumbering(def generator.NumberingDefinition) error {
	e.defs = append(e.defs, def)
	return nil
}

// paragraph opens a new paragraph at the current position: inside the open
// table cell if there is one, in the body otherwise.
func (e *Encoder) paragraph() *godocx.Paragraph {
	if e.tbl != nil && e.tbl.cur != nil {
		return e.tbl.cur.AddParagraph()
	}
	return e.doc.AddParagraph()
}

func (e *Encoder) Heading(styleID string, level int, runs []ir.Run, flag *generator.Flag) error {
	p := e.paragraph().Style(styleRef(styleID))
	e.writeRuns(p, runs, flag)
	return nil
}

func (e *Encoder) Paragraph(runs []ir.Run, flag *generator.Flag) error {
	p := e.paragraph()
	if e.cfg.BodyStyle != "" && e.cfg.BodyStyle != "Normal" {
		p.Style(styleRef(e.cfg.BodyStyle))
	}
	e.writeRuns(p, runs, flag)
	return nil
}

func (e *Encoder) ListItem(numID, depth int, runs []ir.Run, flag *generator.Flag) error {
	p := e.paragraph().Style("ListParagraph")
	p.NumPr(strconv.Itoa(numID), strconv.Itoa(depth))
	e.writeRuns(p, runs, flag)
	return nil
}

func (e *Encoder) BeginTable(rows, cols int) error {
	if e.tbl != nil {
		return errors.New("table inside a table cell is not representable")
	}
	e.tbl = &tableState{
		table: e.doc.AddTable(rows, cols, 0, nil),
		rows:  rows,
		cols:  cols,
	}
	return nil
}

func (e *Encoder) BeginCell(cell generator.LayoutCell) error {
	if e.tbl == nil {
		return errors.New("cell outside a table")
	}
	c := e.tbl.table.TableRows[cell.Row].TableCells[cell.Col]
	if cell.Header {
		c.Shade("clear", "auto", headerShadeFill)
	}
	e.tbl.anchors = append(e.tbl.anchors, cell)
	e.tbl.cur = c
	return nil
}

func (e *Encoder) EndCell() error {
	if e.tbl == nil || e.tbl.cur == nil {
		return errors.New("no open cell")
	}
	// A cell must hold at least one block element.
	if len(e.tbl.cur.Paragraphs) == 0 {
		e.tbl.cur.AddParagraph()
	}
	e.tbl.cur = nil
	return nil
}

// EndTable rewrites the uniform grid built by AddTable into the merged
// shape: anchor cells absorb the positions their spans cover, vertical
// continuations become vMerge cells, and positions consumed by a column
// span disappear from their row.
func (e *Encoder) EndTable() error {
	if e.tbl == nil {
		return errors.New("no open table")
	}
	t := e.tbl

	anchorAt := make(map[[2]int]generator.LayoutCell, len(t.anchors))
	for _, a := range t.anchors {
		for r := a.Row; r < a.Row+max(a.RowSpan, 1); r++ {
			anchorAt[[2]int{r, a.Col}] = a
		}
	}

	for r := 0; r < t.rows; r++ {
		row := t.table.TableRows[r]
		grid := row.TableCells
		cells := make([]*godocx.WTableCell, 0, t.cols)
		for c := 0; c < t.cols; {
			a, ok := anchorAt[[2]int{r, c}]
			if !ok {
				return fmt.Errorf("no anchor covers table position (%d,%d)", r, c)
			}
			cell := grid[c]
			props := cell.TableCellProperties
			if props == nil {
				props = &godocx.WTableCellProperties{}
				cell.TableCellProperties = props
			}
			span := max(a.ColSpan, 1)
			if span > 1 {
				props.GridSpan = &godocx.WGridSpan{Val: span}
			}
			switch {
			case a.Row == r && max(a.RowSpan, 1) > 1:
				props.VMerge = &godocx.WvMerge{Val: "restart"}
			case a.Row < r:
				props.VMerge = &godocx.WvMerge{Val: "continue"}
			}
			if len(cell.Paragraphs) == 0 {
				cell.AddParagraph()
			}
			cells = append(cells, cell)
			c += span
		}
		row.TableCells = cells
	}
	e.tbl = nil
	return nil
}

func (e *Encoder) Image(data []byte, widthEMU, heightEMU int64) error {
	run, err := e.paragraph().AddInlineDrawing(data)
	if err != nil {
		return fmt.Errorf("embed image: %w", err)
	}
	// AddInlineDrawing guesses a page-relative size; replace it with the
	// size the image resolver computed.
	if len(run.Children) > 0 {
		if d, ok := run.Children[0].(*godocx.Drawing); ok && d.Inline != nil {
			d.Inline.Size(widthEMU, heightEMU)
		}
	}
	return nil
}

func (e *Encoder) Caption(text string) error {
	p := e.paragraph().Style(styleRef(e.cfg.CaptionStyle))
	p.AddText(text)
	return nil
}

func (e *Encoder) Placeholder(text string) error {
	e.paragraph().AddText(text).Italic().Color("808080")
	return nil
}

func (e *Encoder) PageBreak() error {
	e.doc.AddParagraph().AddPageBreaks()
	return nil
}

// writeRuns emits formatted runs into p, then the low-confidence
// decoration when flag is set: each text run picks up the configured
// highlight, and a small italic percentage marker is appended.
func (e *Encoder) writeRuns(p *godocx.Paragraph, runs []ir.Run, flag *generator.Flag) {
	for _, run := range runs {
		if run.Text == "" {
			continue
		}
		r := p.AddText(run.Text)
		if run.Bold {
			r.Bold()
		}
		if run.Italic {
			r.Italic()
		}
		if run.Underline {
			r.Underline("single")
		}
		if run.Strikethrough {
			r.Strike(true)
		}
		switch {
		case run.Highlight != "":
			r.Highlight(run.Highlight)
		case flag != nil && flag.Highlight != "":
			r.Highlight(flag.Highlight)
		}
		if run.Superscript {
			r.RunProperties.VertAlign = &godocx.VertAlign{Val: "superscript"}
		} else if run.Subscript {
			r.RunProperties.VertAlign = &godocx.VertAlign{Val: "subscript"}
		}
	}
	if flag != nil {
		marker := p.AddText(fmt.Sprintf(" [%.0f%%]", flag.Confidence*100))
		marker.Italic().Size("16")
	}
}

// Flush writes the finished package to w. It must be called once, after
// generation: the styles, numbering and core-properties parts are rendered
// from the state collected during building.
func (e *Encoder) Flush(w io.Writer) error {
	if e.tbl != nil {
		return errors.New("flush with an open table")
	}
	return e.write(w)
}

var _ generator.DocumentBuilder = (*Encoder)(nil)
