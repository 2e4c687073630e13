package generator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/docforge/internal/config"
	"github.com/dgallion1/docforge/internal/ir"
	"github.com/dgallion1/docforge/internal/report"
)

// levelClampPenalty is subtracted from a heading's confidence when its
// declared level had to be clamped: a level jump is itself evidence that
// the classification was shaky.
const levelClampPenalty = 0.15

// Generator walks an IR tree once, in pre-order, and emits block commands
// to a DocumentBuilder. One Generator serves one conversion run; it owns a
// private style/numbering registry so parallel runs never share state.
type Generator struct {
	cfg     config.Config
	builder DocumentBuilder
	styles  *Styles

	// baseDir resolves relative figure paths.
	baseDir string

	warnings []report.Warning
}

// Option configures a Generator.
type Option func(*Generator)

// WithBaseDir sets the directory relative figure paths resolve against.
func WithBaseDir(dir string) Option {
	return func(g *Generator) { g.baseDir = dir }
}

// New builds a Generator emitting into b.
func New(cfg config.Config, b DocumentBuilder, opts ...Option) *Generator {
	g := &Generator{
		cfg:     cfg,
		builder: b,
		styles:  NewStyles(cfg.Style.HeadingPrefix),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Warnings returns the render warnings collected so far, for merging into
// the conversion report.
func (g *Generator) Warnings() []report.Warning {
	return g.warnings
}

// Styles exposes the run's registry; the output encoder reads the
// numbering definitions from it at flush time.
func (g *Generator) Styles() *Styles {
	return g.styles
}

// Generate renders the whole document. Structural validation failures and
// irreparable table geometry abort with an error; per-node content
// failures degrade to placeholders plus a warning. The builder is not
// flushed here; the caller flushes exactly once after Generate returns.
func (g *Generator) Generate(doc *ir.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	g.builder.SetTitle(doc.Metadata.Title)

	for _, n := range doc.Body {
		if err := g.renderNode(n, 0); err != nil {
			return err
		}
	}
	return nil
}

// renderNode dispatches one node. parentLevel is the emitted level of the
// nearest heading ancestor (0 at the root); it drives level normalization.
func (g *Generator) renderNode(n *ir.Node, parentLevel int) error {
	switch n.Variant {
	case ir.Heading:
		return g.renderHeading(n, parentLevel)
	case ir.Paragraph:
		return g.builder.Paragraph(n.Paragraph.Runs, g.flag(n.Confidence))
	case ir.List:
		return g.renderList(n)
	case ir.Table:
		return g.renderTable(n, parentLevel)
	case ir.Figure:
		return g.renderFigure(n)
	case ir.PageBreak:
		return g.builder.PageBreak()
	default:
		// Validate rejects unknown variants; reaching here is a bug.
		return fmt.Errorf("unrenderable variant %q", n.Variant)
	}
}

// renderHeading normalizes the declared level against the ancestor chain:
// a level deeper than parent+1 is clamped to parent+1, with a confidence
// penalty and a report warning. Shallower levels pass through freely.
func (g *Generator) renderHeading(n *ir.Node, parentLevel int) error {
	declared := n.Heading.Level
	level := declared
	confidence := n.Confidence

	if declared > parentLevel+1 {
		level = parentLevel + 1
		confidence = max(0, confidence-levelClampPenalty)
		g.warn(report.Warnf(report.WarnLevelClamped, n,
			"heading %q declared at level %d under level %d, clamped to %d",
			n.Heading.Text, declared, parentLevel, level))
	}

	styleID, _, warnDegraded := g.styles.HeadingStyle(level)
	if warnDegraded {
		g.warn(report.Warnf(report.WarnStyleDegraded, n,
			"heading level %d beyond native maximum %d, styled as %q",
			level, MaxHeadingLevel, styleID))
	}

	runs := n.Heading.Runs
	if len(runs) == 0 {
		runs = ir.PlainRuns(n.Heading.Text)
	}
	if err := g.builder.Heading(styleID, level, runs, g.flag(confidence)); err != nil {
		return fmt.Errorf("emit heading %s: %w", n.ID, err)
	}

	for _, c := range n.Children {
		if err := g.renderNode(c, level); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) renderList(n *ir.Node) error {
	def, isNew := g.styles.NumberingFor(n.ID, n.List.Ordered, n.List.Marker)
	if isNew {
		if err := g.builder.DefineNumbering(def); err != nil {
			return fmt.Errorf("define numbering %d: %w", def.ID, err)
		}
	}
	for _, item := range n.Children {
		if item.Variant != ir.ListItem {
			continue
		}
		if err := g.builder.ListItem(def.ID, item.ListItem.Depth, item.ListItem.Runs, g.flag(item.Confidence)); err != nil {
			return fmt.Errorf("emit list item %s: %w", item.ID, err)
		}
	}
	return nil
}

// renderTable resolves the merge layout, then renders each anchor cell's
// content through the same node-rendering path used at document level.
func (g *Generator) renderTable(n *ir.Node, parentLevel int) error {
	layout, err := LayoutTable(n)
	if err != nil {
		return err
	}
	if err := g.builder.BeginTable(layout.Rows, layout.Cols); err != nil {
		// A builder that cannot open a table here (e.g. a table nested
		// inside another table's cell) degrades to a placeholder.
		g.warn(report.Warnf(report.WarnRenderFailed, n, "table not rendered: %v", err))
		return g.builder.Placeholder(fmt.Sprintf("[Table %dx%d omitted]", layout.Rows, layout.Cols))
	}
	for _, cell := range layout.Cells {
		if err := g.builder.BeginCell(cell); err != nil {
			return fmt.Errorf("emit table cell (%d,%d): %w", cell.Row, cell.Col, err)
		}
		for _, content := range cell.Content {
			if err := g.renderNode(content, parentLevel); err != nil {
				return err
			}
		}
		if err := g.builder.EndCell(); err != nil {
			return fmt.Errorf("close table cell (%d,%d): %w", cell.Row, cell.Col, err)
		}
	}
	if err := g.builder.EndTable(); err != nil {
		return fmt.Errorf("close table %s: %w", n.ID, err)
	}
	return nil
}

// renderFigure always produces a block: an image when the bytes resolve
// and decode, a caption-bearing placeholder otherwise. A missing image
// must never abort an otherwise-successful conversion.
func (g *Generator) renderFigure(n *ir.Node) error {
	fig := n.Figure
	data, w, h, err := resolveImage(fig, g.cfg.Image, g.baseDir, g.cfg.Parser.MaxInputBytes)
	if err == nil {
		if imgErr := g.builder.Image(data, w, h); imgErr != nil {
			err = imgErr
		} else {
			if fig.Caption != "" {
				if err := g.builder.Caption(fig.Caption); err != nil {
					return fmt.Errorf("emit caption %s: %w", n.ID, err)
				}
			}
			return nil
		}
	}

	g.warn(report.Warnf(report.WarnMissingImage, n, "image not rendered: %v", err))
	text := g.cfg.Image.PlaceholderText
	if fig.Caption != "" {
		text = fig.Caption + " " + text
	}
	if perr := g.builder.Placeholder(strings.TrimSpace(text)); perr != nil {
		return fmt.Errorf("emit image placeholder %s: %w", n.ID, perr)
	}
	return nil
}

func (g *Generator) flag(confidence float64) *Flag {
	if !g.cfg.Style.MarkLowConfidence || confidence >= g.cfg.Style.LowConfidenceThreshold {
		return nil
	}
	return &Flag{Confidence: confidence, Highlight: g.cfg.Style.LowConfidenceHighlight}
}

func (g *Generator) warn(w report.Warning) {
	g.warnings = append(g.warnings, w)
}

// IsFatal reports whether an error from Generate indicates a structural
// fault (schema or table geometry) rather than an output I/O failure.
func IsFatal(err error) bool {
	var se *ir.SchemaError
	var te *TableLayoutError
	return errors.As(err, &se) || errors.As(err, &te)
}
