// Package generator renders a validated IR tree into an abstract document
// builder, resolving heading-level ambiguity, list numbering, table merges
// and image sizing along the way. The concrete output encoder lives in
// internal/docx; tests use a recording fake.
package generator

import "github.com/dgallion1/docforge/internal/ir"

// Flag marks a block as low-confidence. Builders render it additively (a
// highlight plus a small percentage marker); it never changes document
// structure.
type Flag struct {
	Confidence float64
	Highlight  string // Word highlight colour name
}

// NumberingDefinition is one allocated list numbering. IDs are unique per
// conversion run; every List node gets its own so counters restart at 1.
type NumberingDefinition struct {
	ID      int
	Ordered bool
	Marker  string // ir.Marker* value, empty = decimal
}

// DocumentBuilder receives block-level commands in document order. The
// generator emits exactly the pre-order traversal of the IR body; builder
// errors are treated as fatal except where noted on the generator.
type DocumentBuilder interface {
	// SetTitle records the output document title.
	SetTitle(title string)

	// DefineNumbering is emitted once per allocated numbering definition,
	// before the first ListItem that references it.
	DefineNumbering(def NumberingDefinition) error

	Heading(styleID string, level int, runs []ir.Run, flag *Flag) error
	Paragraph(runs []ir.Run, flag *Flag) error
	ListItem(numID, depth int, runs []ir.Run, flag *Flag) error

	// BeginTable/BeginCell/EndCell/EndTable bracket a table. Between
	// BeginCell and EndCell, block commands target the open cell.
	// Anchor cells arrive in row-major order.
	BeginTable(rows, cols int) error
	BeginCell(cell LayoutCell) error
	EndCell() error
	EndTable() error

	// Image embeds fully buffered image bytes at the given size in EMU.
	Image(data []byte, widthEMU, heightEMU int64) error
	Caption(text string) error

	// Placeholder stands in for a block that could not be rendered.
	Placeholder(text string) error

	PageBreak() error
}
