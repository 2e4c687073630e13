package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/docforge/internal/ir"
)

// CSVParser handles CSV files: the whole file becomes one table with the
// first record as its header row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*ir.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := newDocument("csv", filename)
	if len(records) == 0 {
		return doc, nil
	}

	cols := 0
	for _, record := range records {
		if len(record) > cols {
			cols = len(record)
		}
	}
	if cols == 0 {
		return doc, nil
	}

	data := &ir.TableData{Rows: len(records), Cols: cols}
	for i, record := range records {
		for j := 0; j < cols; j++ {
			cell := ir.Cell{Row: i, Col: j, Header: i == 0}
			if j < len(record) && record[j] != "" {
				cell.Content = []*ir.Node{{
					ID:         ir.NewID(),
					Variant:    ir.Paragraph,
					Confidence: 1.0,
					Paragraph:  &ir.ParagraphData{Runs: ir.PlainRuns(record[j])},
				}}
			}
			data.Cells = append(data.Cells, cell)
		}
	}

	doc.Body = []*ir.Node{{
		ID:         ir.NewID(),
		Variant:    ir.Table,
		Confidence: 1.0,
		Table:      data,
	}}
	return doc, nil
}
