package parser

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	godocx "github.com/fumiama/go-docx"

	"github.com/dgallion1/docforge/internal/ir"
)

// DOCXParser reads .docx files back into the IR. Heading styles map to
// levels directly; run formatting survives the round trip.
type DOCXParser struct{}

var headingStyleRe = regexp.MustCompile(`(?i)^heading\s*(\d)$`)

func (p *DOCXParser) Parse(r io.Reader, filename string) (*ir.Document, error) {
	// go-docx needs a ReadSeeker+size, so write to a temp file.
	tmp, err := os.CreateTemp("", "docforge-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	parsed, err := godocx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	doc := newDocument("docx", filename)
	b := &treeBuilder{}
	for _, item := range parsed.Document.Body.Items {
		switch block := item.(type) {
		case *godocx.Paragraph:
			convertDocxParagraph(b, block)
		case *godocx.Table:
			if tbl := convertDocxTable(block); tbl != nil {
				b.AddBlock(tbl)
			}
		}
	}
	doc.Body = b.Body()
	return doc, nil
}

func convertDocxParagraph(b *treeBuilder, para *godocx.Paragraph) {
	runs := docxRuns(para)
	text := ir.RunText(runs)
	if text == "" {
		return
	}
	if level := docxHeadingLevel(para); level > 0 {
		h := ir.NewHeading(level, text)
		h.Heading.Runs = runs
		b.AddHeading(h)
		return
	}
	b.AddBlock(&ir.Node{
		ID:         ir.NewID(),
		Variant:    ir.Paragraph,
		Confidence: 1.0,
		Paragraph:  &ir.ParagraphData{Runs: runs},
	})
}

func docxHeadingLevel(para *godocx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	m := headingStyleRe.FindStringSubmatch(para.Properties.Style.Val)
	if m == nil {
		return 0
	}
	level, err := strconv.Atoi(m[1])
	if err != nil || level < 1 {
		return 0
	}
	return level
}

func docxRuns(para *godocx.Paragraph) []ir.Run {
	var runs []ir.Run
	for _, child := range para.Children {
		run, ok := child.(*godocx.Run)
		if !ok {
			continue
		}
		var buf strings.Builder
		for _, rc := range run.Children {
			if t, ok := rc.(*godocx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
		text := buf.String()
		if text == "" {
			continue
		}
		r := ir.Run{Text: text}
		if props := run.RunProperties; props != nil {
			r.Bold = props.Bold != nil
			r.Italic = props.Italic != nil
			r.Underline = props.Underline != nil && props.Underline.Val != "none"
			r.Strikethrough = props.Strike != nil && props.Strike.Val != "false"
			if props.Highlight != nil {
				r.Highlight = props.Highlight.Val
			}
			if props.VertAlign != nil {
				r.Superscript = props.VertAlign.Val == "superscript"
				r.Subscript = props.VertAlign.Val == "subscript"
			}
		}
		runs = append(runs, r)
	}
	return mergeRuns(runs)
}

// convertDocxTable rebuilds span geometry from gridSpan and vMerge cell
// properties.
func convertDocxTable(t *godocx.Table) *ir.Node {
	data := &ir.TableData{Rows: len(t.TableRows)}

	// vertical merge continuations extend the anchor above them
	openMerge := make(map[int]int) // start column -> anchor index in Cells
	for r, row := range t.TableRows {
		col := 0
		for _, cell := range row.TableCells {
			span := 1
			var vmerge string
			if props := cell.TableCellProperties; props != nil {
				if props.GridSpan != nil && props.GridSpan.Val > 1 {
					span = props.GridSpan.Val
				}
				if props.VMerge != nil {
					vmerge = props.VMerge.Val
					if vmerge == "" {
						vmerge = "continue"
					}
				}
			}
			if vmerge == "continue" {
				if idx, ok := openMerge[col]; ok {
					data.Cells[idx].RowSpan++
				}
				col += span
				continue
			}

			ircell := ir.Cell{Row: r, Col: col, ColSpan: span, RowSpan: 1}
			var texts []*ir.Node
			for _, para := range cell.Paragraphs {
				runs := docxRuns(para)
				if ir.RunText(runs) == "" {
					continue
				}
				texts = append(texts, &ir.Node{
					ID:         ir.NewID(),
					Variant:    ir.Paragraph,
					Confidence: 1.0,
					Paragraph:  &ir.ParagraphData{Runs: runs},
				})
			}
			ircell.Content = texts
			data.Cells = append(data.Cells, ircell)
			if vmerge == "restart" {
				openMerge[col] = len(data.Cells) - 1
			} else {
				delete(openMerge, col)
			}
			col += span
		}
		if col > data.Cols {
			data.Cols = col
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
