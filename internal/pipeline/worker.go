package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docforge/internal/report"
)

// Worker processes a single conversion job. Each job gets a fresh encoder
// and generator via the Converter, so numbering and style state never
// leaks between documents.
type Worker struct {
	conv *Converter
	log  *slog.Logger
}

func NewWorker(conv *Converter, log *slog.Logger) *Worker {
	return &Worker{conv: conv, log: log}
}

// Process runs the full conversion for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	start := time.Now()

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	doc, err := w.conv.Parse(ctx, bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if job.Title != "" {
		doc.Metadata.Title = job.Title
	}
	doc.Metadata.SourceHash = job.ContentHash
	parsed := time.Now()

	rep := report.FromDocument(doc, w.conv.cfg.Style.LowConfidenceThreshold)
	log.Info("parsed document", "nodes", rep.TotalNodes, "headings", rep.Counts.Headings)

	// Phase 2: Generate
	// Uploaded documents have no base directory, so relative figure paths
	// degrade to placeholders and surface as warnings.
	job.SetStatus(StatusGenerating, "generating")
	var buf bytes.Buffer
	warnings, err := w.conv.Generate(ctx, doc, "", &buf)
	for _, wn := range warnings {
		rep.AddWarning(wn)
	}
	if err != nil {
		log.Error("generate failed", "error", err)
		job.AddError(fmt.Sprintf("generate: %s", err))
		job.SetStatus(StatusFailed, "generating")
		return
	}

	done := time.Now()
	rep.Timing = report.Timing{
		ParseSeconds:    parsed.Sub(start).Seconds(),
		GenerateSeconds: done.Sub(parsed).Seconds(),
		TotalSeconds:    done.Sub(start).Seconds(),
	}

	job.SetResult(buf.Bytes(), rep)
	job.ReleaseFileData()
	log.Info("conversion complete",
		"bytes", buf.Len(),
		"warnings", len(rep.Warnings),
		"duration", done.Sub(start).Round(time.Millisecond))

	if degraded(rep) {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

// degraded reports whether any content was replaced by a placeholder.
func degraded(rep *report.Report) bool {
	for _, wn := range rep.Warnings {
		if wn.Kind == report.WarnMissingImage || wn.Kind == report.WarnRenderFailed {
			return true
		}
	}
	return false
}
