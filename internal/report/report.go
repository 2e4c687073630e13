// Package report builds conversion diagnostics from an IR tree.
package report

import (
	"encoding/json"
	"fmt"

	"github.com/dgallion1/docforge/internal/ir"
)

// Warning kinds recorded during reporting and generation.
const (
	WarnDuplicateHeading = "duplicate_heading"
	WarnLevelClamped     = "level_clamped"
	WarnStyleDegraded    = "style_degraded"
	WarnMissingImage     = "missing_image"
	WarnRenderFailed     = "render_failed"
)

// Warning is a non-fatal diagnostic tied to a node. Warnings never abort a
// conversion; they surface in the report instead.
type Warning struct {
	Kind    string `json:"kind"`
	NodeID  string `json:"node_id,omitempty"`
	Page    int    `json:"page,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.NodeID == "" {
		return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", w.Kind, w.NodeID, w.Message)
}

// Warnf builds a Warning for a node.
func Warnf(kind string, n *ir.Node, format string, args ...any) Warning {
	w := Warning{Kind: kind, Message: fmt.Sprintf(format, args...)}
	if n != nil {
		w.NodeID = n.ID
		w.Page = n.Page
	}
	return w
}

// LowConfidenceItem is a heading whose classification confidence fell below
// the report threshold.
type LowConfidenceItem struct {
	NodeID     string  `json:"node_id"`
	Text       string  `json:"text"`
	Level      int     `json:"level"`
	Page       int     `json:"page,omitempty"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// Timing holds wall-clock stage durations in seconds.
type Timing struct {
	ParseSeconds    float64 `json:"parse_seconds"`
	GenerateSeconds float64 `json:"generate_seconds"`
	TotalSeconds    float64 `json:"total_seconds"`
}

// BlockCounts counts top-level node kinds.
type BlockCounts struct {
	Headings   int `json:"headings"`
	Paragraphs int `json:"paragraphs"`
	Lists      int `json:"lists"`
	Tables     int `json:"tables"`
	Figures    int `json:"figures"`
	PageBreaks int `json:"page_breaks"`
}

// Report is the structured summary of one conversion run.
type Report struct {
	SourceFile string `json:"source_file,omitempty"`
	PageCount  int    `json:"page_count,omitempty"`

	Timing Timing `json:"timing"`

	TotalNodes int         `json:"total_nodes"`
	Counts     BlockCounts `json:"block_counts"`

	// HeadingsByLevel maps declared heading level to occurrence count.
	HeadingsByLevel map[int]int `json:"headings_by_level"`

	ConfidenceThreshold float64             `json:"confidence_threshold"`
	LowConfidence       []LowConfidenceItem `json:"low_confidence_items,omitempty"`

	Warnings []Warning `json:"warnings,omitempty"`
}

// AddWarning appends a warning.
func (r *Report) AddWarning(w Warning) {
	r.Warnings = append(r.Warnings, w)
}

// ToJSON serializes the report with indentation.
func (r *Report) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// FromDocument builds a report in a single pre-order pass over the tree.
// The pass is read-only; the input is never mutated.
func FromDocument(d *ir.Document, threshold float64) *Report {
	r := &Report{
		SourceFile:          d.Metadata.SourceFile,
		PageCount:           d.Metadata.PageCount,
		HeadingsByLevel:     make(map[int]int),
		ConfidenceThreshold: threshold,
	}

	// Sibling heading texts under the current parent, for duplicate
	// detection. Keyed by parent identity; the root uses "".
	siblings := make(map[string]map[string]bool)
	parentOf := make(map[string]string)
	for _, n := range d.Body {
		parentOf[n.ID] = ""
	}

	for n := range d.Walk() {
		r.TotalNodes++
		for _, c := range n.Children {
			parentOf[c.ID] = n.ID
		}
		if n.Variant == ir.Table && n.Table != nil {
			for i := range n.Table.Cells {
				for _, cn := range n.Table.Cells[i].Content {
					parentOf[cn.ID] = n.ID
				}
			}
		}

		switch n.Variant {
		case ir.Heading:
			r.Counts.Headings++
			r.HeadingsByLevel[n.Heading.Level]++
			if n.Confidence < threshold {
				r.LowConfidence = append(r.LowConfidence, LowConfidenceItem{
					NodeID:     n.ID,
					Text:       headingText(n),
					Level:      n.Heading.Level,
					Page:       n.Page,
					Confidence: n.Confidence,
					Reason:     n.Heading.Reason,
				})
			}
			parent := parentOf[n.ID]
			texts := siblings[parent]
			if texts == nil {
				texts = make(map[string]bool)
				siblings[parent] = texts
			}
			text := headingText(n)
			if texts[text] {
				r.AddWarning(Warnf(WarnDuplicateHeading, n,
					"duplicate sibling heading %q", text))
			}
			texts[text] = true
		case ir.Paragraph:
			r.Counts.Paragraphs++
		case ir.List:
			r.Counts.Lists++
		case ir.Table:
			r.Counts.Tables++
		case ir.Figure:
			r.Counts.Figures++
		case ir.PageBreak:
			r.Counts.PageBreaks++
		}
	}
	return r
}

func headingText(n *ir.Node) string {
	if n.Heading.Text != "" {
		return n.Heading.Text
	}
	return ir.RunText(n.Heading.Runs)
}
