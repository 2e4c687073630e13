// Package pipeline runs document conversions end to end: parse a source
// file into the intermediate tree, render the tree to docx, and assemble
// the conversion report. It also hosts the batch job system used by the
// HTTP API.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/docforge/internal/config"
	"github.com/dgallion1/docforge/internal/docx"
	"github.com/dgallion1/docforge/internal/generator"
	"github.com/dgallion1/docforge/internal/ir"
	"github.com/dgallion1/docforge/internal/parser"
	"github.com/dgallion1/docforge/internal/report"
)

// Converter runs the conversion stages. It is stateless and safe for
// concurrent use; every run builds its own encoder and generator so style
// and numbering registries are never shared between documents.
type Converter struct {
	cfg config.Config
	log *slog.Logger
}

func NewConverter(cfg config.Config, log *slog.Logger) *Converter {
	if log == nil {
		log = slog.Default()
	}
	return &Converter{cfg: cfg, log: log}
}

// Result bundles the artifacts of one conversion run.
type Result struct {
	Document *ir.Document
	Report   *report.Report
}

// Parse reads a source document into the intermediate tree. The parser is
// chosen by file extension.
func (c *Converter) Parse(ctx context.Context, r io.Reader, filename string) (*ir.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := parser.ForFile(filename)
	if err != nil {
		return nil, err
	}
	if pdfp, ok := p.(*parser.PDFParser); ok {
		pdfp.FallbackPdftotext = c.cfg.Parser.PdftotextFallback
	}
	doc, err := p.Parse(r, filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return doc, nil
}

// Generate renders a tree to docx on out and returns the warnings raised
// while rendering. baseDir resolves relative figure paths; with an empty
// baseDir unresolvable images degrade to placeholders.
func (c *Converter) Generate(ctx context.Context, doc *ir.Document, baseDir string, out io.Writer) ([]report.Warning, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	enc := docx.NewEncoder(c.cfg.Style)
	gen := generator.New(c.cfg, enc, generator.WithBaseDir(baseDir))
	if err := gen.Generate(doc); err != nil {
		return gen.Warnings(), err
	}
	if err := enc.Flush(out); err != nil {
		return gen.Warnings(), fmt.Errorf("write docx: %w", err)
	}
	return gen.Warnings(), nil
}

// Convert runs the full pipeline from a source file to a docx file. The
// output is written atomically; a failed run leaves no partial file behind.
func (c *Converter) Convert(ctx context.Context, inPath, outPath string) (*Result, error) {
	start := time.Now()

	f, err := c.openInput(inPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := c.Parse(ctx, f, filepath.Base(inPath))
	if err != nil {
		return nil, err
	}
	parsed := time.Now()

	rep := report.FromDocument(doc, c.cfg.Style.LowConfidenceThreshold)

	var warnings []report.Warning
	err = writeAtomic(outPath, func(w io.Writer) error {
		var genErr error
		warnings, genErr = c.Generate(ctx, doc, filepath.Dir(inPath), w)
		return genErr
	})
	if err != nil {
		return nil, err
	}
	for _, wn := range warnings {
		rep.AddWarning(wn)
	}
	done := time.Now()
	rep.Timing = report.Timing{
		ParseSeconds:    parsed.Sub(start).Seconds(),
		GenerateSeconds: done.Sub(parsed).Seconds(),
		TotalSeconds:    done.Sub(start).Seconds(),
	}

	c.log.Info("conversion complete",
		"input", inPath,
		"output", outPath,
		"nodes", rep.TotalNodes,
		"warnings", len(rep.Warnings),
		"duration", done.Sub(start).Round(time.Millisecond))
	return &Result{Document: doc, Report: rep}, nil
}

// ConvertBytes converts an in-memory document and returns the docx bytes
// alongside the report. Used by the synchronous API; figures with relative
// paths degrade to placeholders since there is no base directory.
func (c *Converter) ConvertBytes(ctx context.Context, data []byte, filename, title string) ([]byte, *Result, error) {
	start := time.Now()

	if int64(len(data)) > c.cfg.Parser.MaxInputBytes {
		return nil, nil, fmt.Errorf("input %s is %d bytes, above the %d byte limit",
			filename, len(data), c.cfg.Parser.MaxInputBytes)
	}
	doc, err := c.Parse(ctx, bytes.NewReader(data), filename)
	if err != nil {
		return nil, nil, err
	}
	if title != "" {
		doc.Metadata.Title = title
	}
	parsed := time.Now()

	rep := report.FromDocument(doc, c.cfg.Style.LowConfidenceThreshold)

	var buf bytes.Buffer
	warnings, err := c.Generate(ctx, doc, "", &buf)
	for _, wn := range warnings {
		rep.AddWarning(wn)
	}
	if err != nil {
		return nil, nil, err
	}
	done := time.Now()
	rep.Timing = report.Timing{
		ParseSeconds:    parsed.Sub(start).Seconds(),
		GenerateSeconds: done.Sub(parsed).Seconds(),
		TotalSeconds:    done.Sub(start).Seconds(),
	}
	return buf.Bytes(), &Result{Document: doc, Report: rep}, nil
}

// Inspect parses a source file and builds its report without generating
// docx output. When checkpointPath is non-empty the tree is also written
// there as a versioned JSON checkpoint.
func (c *Converter) Inspect(ctx context.Context, inPath, checkpointPath string) (*Result, error) {
	start := time.Now()

	f, err := c.openInput(inPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := c.Parse(ctx, f, filepath.Base(inPath))
	if err != nil {
		return nil, err
	}
	rep := report.FromDocument(doc, c.cfg.Style.LowConfidenceThreshold)

	if checkpointPath != "" {
		err = writeAtomic(checkpointPath, func(w io.Writer) error {
			return ir.WriteCheckpoint(w, doc)
		})
		if err != nil {
			return nil, err
		}
	}

	total := time.Since(start).Seconds()
	rep.Timing = report.Timing{ParseSeconds: total, TotalSeconds: total}
	return &Result{Document: doc, Report: rep}, nil
}

// FromIR resumes a conversion from a checkpoint file, skipping the parse
// stage entirely.
func (c *Converter) FromIR(ctx context.Context, irPath, outPath string) (*Result, error) {
	start := time.Now()

	doc, err := ir.LoadCheckpoint(irPath)
	if err != nil {
		return nil, err
	}
	rep := report.FromDocument(doc, c.cfg.Style.LowConfidenceThreshold)

	var warnings []report.Warning
	err = writeAtomic(outPath, func(w io.Writer) error {
		var genErr error
		warnings, genErr = c.Generate(ctx, doc, filepath.Dir(irPath), w)
		return genErr
	})
	if err != nil {
		return nil, err
	}
	for _, wn := range warnings {
		rep.AddWarning(wn)
	}
	total := time.Since(start).Seconds()
	rep.Timing = report.Timing{GenerateSeconds: total, TotalSeconds: total}

	c.log.Info("conversion from checkpoint complete",
		"checkpoint", irPath,
		"output", outPath,
		"warnings", len(rep.Warnings))
	return &Result{Document: doc, Report: rep}, nil
}

// openInput opens a source file and enforces the configured size limit.
func (c *Converter) openInput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if info.Size() > c.cfg.Parser.MaxInputBytes {
		f.Close()
		return nil, fmt.Errorf("input %s is %d bytes, above the %d byte limit",
			path, info.Size(), c.cfg.Parser.MaxInputBytes)
	}
	return f, nil
}

// writeAtomic writes through a sibling temp file and renames it into place,
// so readers never observe a truncated output.
func writeAtomic(path string, fn func(io.Writer) error) error {
	tmp := path + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
