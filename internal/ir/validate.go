package ir

// Validate checks the structural invariants of the tree and returns a
// *SchemaError on the first violation. It must be called once after
// construction (or deserialization); downstream consumers assume a valid,
// immutable tree.
//
// Enforced: node ID uniqueness across the whole tree (cell content
// included), acyclicity, confidence in [0,1], non-negative pages, payload
// presence matching the variant, heading levels >= 1 with non-empty text,
// list item depths >= 0, and table span geometry that stays inside the
// declared grid with no two anchors claiming the same position.
func (d *Document) Validate() error {
	v := &validator{
		seen:    make(map[string]bool),
		visited: make(map[*Node]bool),
	}
	for _, n := range d.Body {
		if err := v.node(n); err != nil {
			return err
		}
	}
	return nil
}

type validator struct {
	seen    map[string]bool // node IDs
	visited map[*Node]bool  // cycle/sharing guard
}

func (v *validator) node(n *Node) error {
	if n == nil {
		return &SchemaError{Reason: "nil node"}
	}
	if v.visited[n] {
		return schemaErrf(n, "node appears more than once in the tree")
	}
	v.visited[n] = true

	if n.ID == "" {
		return schemaErrf(n, "empty node id")
	}
	if v.seen[n.ID] {
		return schemaErrf(n, "duplicate node id")
	}
	v.seen[n.ID] = true

	if n.Page < 0 {
		return schemaErrf(n, "negative page %d", n.Page)
	}
	if n.Confidence < 0 || n.Confidence > 1 {
		return schemaErrf(n, "confidence %g outside [0,1]", n.Confidence)
	}

	if err := v.payload(n); err != nil {
		return err
	}

	for _, c := range n.Children {
		if err := v.node(c); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) payload(n *Node) error {
	// Exactly the payload matching the variant may be set.
	set := 0
	for _, p := range []bool{
		n.Heading != nil, n.Paragraph != nil, n.List != nil,
		n.ListItem != nil, n.Table != nil, n.Figure != nil,
	} {
		if p {
			set++
		}
	}

	switch n.Variant {
	case Heading:
		if n.Heading == nil || set != 1 {
			return schemaErrf(n, "heading node without heading payload")
		}
		if n.Heading.Level < 1 {
			return schemaErrf(n, "heading level %d < 1", n.Heading.Level)
		}
		if n.Heading.Text == "" && len(n.Heading.Runs) == 0 {
			return schemaErrf(n, "heading with empty text")
		}
	case Paragraph:
		if n.Paragraph == nil || set != 1 {
			return schemaErrf(n, "paragraph node without paragraph payload")
		}
		if len(n.Children) > 0 {
			return schemaErrf(n, "paragraph node with children")
		}
	case List:
		if n.List == nil || set != 1 {
			return schemaErrf(n, "list node without list payload")
		}
		for _, c := range n.Children {
			if c != nil && c.Variant != ListItem {
				return schemaErrf(c, "list child is %q, want list_item", c.Variant)
			}
		}
	case ListItem:
		if n.ListItem == nil || set != 1 {
			return schemaErrf(n, "list_item node without list_item payload")
		}
		if n.ListItem.Depth < 0 {
			return schemaErrf(n, "negative list depth %d", n.ListItem.Depth)
		}
		if len(n.Children) > 0 {
			return schemaErrf(n, "list_item node with children")
		}
	case Table:
		if n.Table == nil || set != 1 {
			return schemaErrf(n, "table node without table payload")
		}
		if err := v.table(n); err != nil {
			return err
		}
	case Figure:
		if n.Figure == nil || set != 1 {
			return schemaErrf(n, "figure node without figure payload")
		}
		if n.Figure.WidthPx < 0 || n.Figure.HeightPx < 0 {
			return schemaErrf(n, "negative intrinsic image dimensions")
		}
		if len(n.Children) > 0 {
			return schemaErrf(n, "figure node with children")
		}
	case PageBreak:
		if set != 0 {
			return schemaErrf(n, "page_break node with payload")
		}
		if len(n.Children) > 0 {
			return schemaErrf(n, "page_break node with children")
		}
	default:
		return schemaErrf(n, "unknown variant %q", n.Variant)
	}
	return nil
}

// table checks span geometry: every anchor stays inside the grid, and cell
// content subtrees obey the same node invariants. Anchor overlap is the
// generator's concern (it has the expansion map); here only bounds are
// rejected so an out-of-grid span never reaches layout.
func (v *validator) table(n *Node) error {
	t := n.Table
	if t.Rows < 1 || t.Cols < 1 {
		return schemaErrf(n, "table grid %dx%d", t.Rows, t.Cols)
	}
	for i := range t.Cells {
		c := &t.Cells[i]
		if c.Row < 0 || c.Col < 0 {
			return schemaErrf(n, "cell at (%d,%d) outside grid", c.Row, c.Col)
		}
		rs, cs := c.RowSpan, c.ColSpan
		if rs == 0 {
			rs = 1
		}
		if cs == 0 {
			cs = 1
		}
		if rs < 1 || cs < 1 {
			return schemaErrf(n, "cell at (%d,%d) has span %dx%d", c.Row, c.Col, rs, cs)
		}
		if c.Row+rs > t.Rows || c.Col+cs > t.Cols {
			return schemaErrf(n, "cell at (%d,%d) span %dx%d extends past %dx%d grid",
				c.Row, c.Col, rs, cs, t.Rows, t.Cols)
		}
		for _, cn := range c.Content {
			if err := v.node(cn); err != nil {
				return err
			}
		}
	}
	return nil
}
