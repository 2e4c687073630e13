// Package ir defines the intermediate representation of a parsed document.
//
// The IR is a single-rooted tree of confidence-annotated nodes produced by
// the parsing stage and consumed, read-only, by the report builder and the
// Word generator. Headings own their children, mirroring the outline
// structure of the source document.
package ir

// Variant identifies the kind of a Node. Exactly one payload field of the
// Node is set, matching the variant.
type Variant string

const (
	Heading   Variant = "heading"
	Paragraph Variant = "paragraph"
	List      Variant = "list"
	ListItem  Variant = "list_item"
	Table     Variant = "table"
	Figure    Variant = "figure"
	PageBreak Variant = "page_break"
)

// Run is a span of text with inline formatting.
type Run struct {
	Text          string `json:"text"`
	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Underline     bool   `json:"underline,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Superscript   bool   `json:"superscript,omitempty"`
	Subscript     bool   `json:"subscript,omitempty"`
	Highlight     string `json:"highlight,omitempty"` // Word highlight colour name
}

// PlainRuns wraps a bare string in a single unformatted run.
func PlainRuns(text string) []Run {
	if text == "" {
		return nil
	}
	return []Run{{Text: text}}
}

// RunText concatenates the text of a run sequence.
func RunText(runs []Run) string {
	if len(runs) == 1 {
		return runs[0].Text
	}
	var out string
	for _, r := range runs {
		out += r.Text
	}
	return out
}

// HeadingData is the payload of a Heading node. Children of the node are the
// blocks (and sub-headings) governed by this heading.
type HeadingData struct {
	Level int    `json:"level"` // 1 = top-level
	Text  string `json:"text"`
	Runs  []Run  `json:"runs,omitempty"`
	// Reason records why the parser classified this block as a heading.
	Reason string `json:"reason,omitempty"`
}

// ParagraphData is the payload of a Paragraph node.
type ParagraphData struct {
	Runs []Run `json:"runs"`
}

// Ordered-list marker formats, matching OOXML numFmt values.
const (
	MarkerDecimal     = "decimal"
	MarkerLowerLetter = "lowerLetter"
	MarkerUpperLetter = "upperLetter"
	MarkerLowerRoman  = "lowerRoman"
	MarkerUpperRoman  = "upperRoman"
)

// ListData is the payload of a List node. The node's children are its
// ListItem nodes, in order.
type ListData struct {
	Ordered bool `json:"ordered"`
	// Marker selects the numbering format of ordered lists at depth 0
	// (decimal when empty). Ignored for unordered lists.
	Marker string `json:"marker,omitempty"`
}

// ListItemData is the payload of a ListItem node.
type ListItemData struct {
	Depth int   `json:"depth"` // 0 = outermost
	Runs  []Run `json:"runs"`
}

// Cell is one cell of a table grid. Only anchor cells appear in the IR:
// positions covered by a span are implied, not stored.
type Cell struct {
	Row     int `json:"row"`
	Col     int `json:"col"`
	RowSpan int `json:"row_span,omitempty"` // 0 and 1 both mean no span
	ColSpan int `json:"col_span,omitempty"`
	// Content holds the nodes rendered inside the cell: paragraphs,
	// nested lists, figures.
	Content []*Node `json:"content,omitempty"`
	Header  bool    `json:"header,omitempty"` // part of a header row
}

// TableData is the payload of a Table node.
type TableData struct {
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
	Cells []Cell `json:"cells"`
}

// FigureData is the payload of a Figure node. Image bytes may be carried
// inline or referenced by path; both may be absent, in which case the
// generator emits a placeholder.
type FigureData struct {
	Path    string `json:"path,omitempty"`
	Data    []byte `json:"data,omitempty"` // JSON-encoded as base64
	Caption string `json:"caption,omitempty"`
	WidthPx  int   `json:"width_px,omitempty"`  // 0 = unknown
	HeightPx int   `json:"height_px,omitempty"` // 0 = unknown
}

// Node is the unit of the IR tree: a variant tag plus the matching payload.
type Node struct {
	ID      string  `json:"id"`
	Variant Variant `json:"variant"`
	// Page is the 1-based source page, 0 when the source has no pages.
	Page int `json:"page,omitempty"`
	// Confidence is the parser's certainty in [0,1] about this structural
	// inference. 1.0 for non-heuristic nodes.
	Confidence float64 `json:"confidence"`
	Children   []*Node `json:"children,omitempty"`

	Heading   *HeadingData   `json:"heading,omitempty"`
	Paragraph *ParagraphData `json:"paragraph,omitempty"`
	List      *ListData      `json:"list,omitempty"`
	ListItem  *ListItemData  `json:"list_item,omitempty"`
	Table     *TableData     `json:"table,omitempty"`
	Figure    *FigureData    `json:"figure,omitempty"`
}

// Furniture kinds.
const (
	FurnitureHeader = "header"
	FurnitureFooter = "footer"
)

// Furniture is repeating page decoration (header/footer) captured by the
// parser but excluded from the body flow.
type Furniture struct {
	Kind  string `json:"kind"`
	Text  string `json:"text"`
	Pages []int  `json:"pages,omitempty"`
}

// Metadata describes the source document and the parser that produced the IR.
type Metadata struct {
	SourceFile    string `json:"source_file,omitempty"`
	SourceHash    string `json:"source_hash,omitempty"`
	Parser        string `json:"parser,omitempty"`
	ParserVersion string `json:"parser_version,omitempty"`
	PageCount     int    `json:"page_count,omitempty"`
	Title         string `json:"title,omitempty"`
}

// Document is the root of the IR: a synthetic owner of the top-level
// sibling nodes.
type Document struct {
	Metadata  Metadata    `json:"metadata"`
	Body      []*Node     `json:"body"`
	Furniture []Furniture `json:"furniture,omitempty"`
}

// NewHeading builds a Heading node with a fresh ID and full confidence.
func NewHeading(level int, text string) *Node {
	return &Node{
		ID:         NewID(),
		Variant:    Heading,
		Confidence: 1.0,
		Heading:    &HeadingData{Level: level, Text: text},
	}
}

// NewParagraph builds a Paragraph node from plain text.
func NewParagraph(text string) *Node {
	return &Node{
		ID:         NewID(),
		Variant:    Paragraph,
		Confidence: 1.0,
		Paragraph:  &ParagraphData{Runs: PlainRuns(text)},
	}
}

// NewPageBreak builds a PageBreak node.
func NewPageBreak() *Node {
	return &Node{ID: NewID(), Variant: PageBreak, Confidence: 1.0}
}
