package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docforge/internal/config"
	"github.com/dgallion1/docforge/internal/ir"
)

const sampleMarkdown = `# Quarterly Report

Revenue grew in every region.

## Regions

- North
- South

| Region | Revenue |
| ------ | ------- |
| North  | 120     |
| South  | 80      |
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readDocPart(t *testing.T, docxBytes []byte, part string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(docxBytes), int64(len(docxBytes)))
	if err != nil {
		t.Fatalf("output is not a zip archive: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != part {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", part, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read %s: %v", part, err)
		}
		return string(data)
	}
	t.Fatalf("archive has no part %s", part)
	return ""
}

func TestConverter_ConvertMarkdownToDocx(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "report.md")
	outPath := filepath.Join(dir, "report.docx")
	if err := os.WriteFile(inPath, []byte(sampleMarkdown), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	conv := NewConverter(config.Default(), discardLogger())
	res, err := conv.Convert(context.Background(), inPath, outPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	doc := readDocPart(t, out, "word/document.xml")
	if !strings.Contains(doc, "Quarterly Report") {
		t.Error("expected document body to contain the top heading")
	}
	if !strings.Contains(doc, "Revenue grew in every region.") {
		t.Error("expected document body to contain the paragraph")
	}

	if res.Report.Counts.Headings != 2 {
		t.Errorf("expected 2 headings in report, got %d", res.Report.Counts.Headings)
	}
	if res.Report.Counts.Tables != 1 {
		t.Errorf("expected 1 table in report, got %d", res.Report.Counts.Tables)
	}
	if res.Report.Timing.TotalSeconds <= 0 {
		t.Error("expected total timing to be recorded")
	}

	if _, err := os.Stat(outPath + ".partial"); !os.IsNotExist(err) {
		t.Error("expected temp file to be renamed away")
	}
}

func TestConverter_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "report.xyz")
	outPath := filepath.Join(dir, "report.docx")
	if err := os.WriteFile(inPath, []byte("data"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	conv := NewConverter(config.Default(), discardLogger())
	if _, err := conv.Convert(context.Background(), inPath, outPath); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Error("expected no output file after a failed conversion")
	}
}

func TestConverter_RejectsOversizeInput(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "big.md")
	if err := os.WriteFile(inPath, []byte(sampleMarkdown), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	cfg := config.Default()
	cfg.Parser.MaxInputBytes = 10
	conv := NewConverter(cfg, discardLogger())
	_, err := conv.Convert(context.Background(), inPath, filepath.Join(dir, "out.docx"))
	if err == nil || !strings.Contains(err.Error(), "byte limit") {
		t.Fatalf("expected size limit error, got %v", err)
	}
}

func TestConverter_InspectWritesCheckpoint(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "report.md")
	cpPath := filepath.Join(dir, "report.ir.json")
	if err := os.WriteFile(inPath, []byte(sampleMarkdown), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	conv := NewConverter(config.Default(), discardLogger())
	res, err := conv.Inspect(context.Background(), inPath, cpPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Report.TotalNodes == 0 {
		t.Fatal("expected report to count nodes")
	}

	loaded, err := ir.LoadCheckpoint(cpPath)
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if len(loaded.Body) != len(res.Document.Body) {
		t.Errorf("expected %d top-level nodes after round-trip, got %d",
			len(res.Document.Body), len(loaded.Body))
	}
	if loaded.Metadata.Parser != "markdown" {
		t.Errorf("expected parser metadata to survive, got %q", loaded.Metadata.Parser)
	}
}

func TestConverter_FromIRCheckpoint(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "report.md")
	cpPath := filepath.Join(dir, "report.ir.json")
	outPath := filepath.Join(dir, "report.docx")
	if err := os.WriteFile(inPath, []byte(sampleMarkdown), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	conv := NewConverter(config.Default(), discardLogger())
	if _, err := conv.Inspect(context.Background(), inPath, cpPath); err != nil {
		t.Fatalf("inspect: %v", err)
	}

	res, err := conv.FromIR(context.Background(), cpPath, outPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Report.Counts.Headings != 2 {
		t.Errorf("expected 2 headings, got %d", res.Report.Counts.Headings)
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if doc := readDocPart(t, out, "word/document.xml"); !strings.Contains(doc, "Quarterly Report") {
		t.Error("expected docx generated from checkpoint to carry the heading")
	}
}

func TestConverter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conv := NewConverter(config.Default(), discardLogger())
	_, err := conv.Parse(ctx, strings.NewReader(sampleMarkdown), "a.md")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestWriteAtomic_CleansUpOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.docx")

	err := writeAtomic(path, func(w io.Writer) error {
		io.WriteString(w, "half a file")
		return io.ErrUnexpectedEOF
	})
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected no final file after failure")
	}
	if _, err := os.Stat(path + ".partial"); !os.IsNotExist(err) {
		t.Error("expected temp file to be removed after failure")
	}
}

func TestWorker_ProcessCompletesJob(t *testing.T) {
	conv := NewConverter(config.Default(), discardLogger())
	w := NewWorker(conv, discardLogger())

	job := NewJob("report.md", "Override Title", []byte(sampleMarkdown))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q (errors: %v)",
			StatusCompleted, snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.Nodes == 0 || snap.Progress.Headings != 2 {
		t.Errorf("unexpected progress counts: %+v", snap.Progress)
	}
	out := job.Output()
	if len(out) == 0 {
		t.Fatal("expected docx output bytes")
	}
	if doc := readDocPart(t, out, "word/document.xml"); !strings.Contains(doc, "Quarterly Report") {
		t.Error("expected rendered document body")
	}
	if job.FileData() != nil {
		t.Error("expected input bytes to be released after completion")
	}
	if core := readDocPart(t, out, "docProps/core.xml"); !strings.Contains(core, "Override Title") {
		t.Error("expected submitted title to override the parsed one")
	}
}

func TestWorker_MissingImageMakesJobPartial(t *testing.T) {
	src := "# Doc\n\n![diagram](figures/missing.png)\n"
	conv := NewConverter(config.Default(), discardLogger())
	w := NewWorker(conv, discardLogger())

	job := NewJob("doc.md", "", []byte(src))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("expected status %q, got %q", StatusPartial, snap.Status)
	}
	if snap.Progress.Warnings == 0 {
		t.Error("expected a missing-image warning in progress")
	}
	if len(job.Output()) == 0 {
		t.Error("expected output despite the missing image")
	}
}

func TestWorker_UnsupportedFormatFailsJob(t *testing.T) {
	conv := NewConverter(config.Default(), discardLogger())
	w := NewWorker(conv, discardLogger())

	job := NewJob("doc.xyz", "", []byte("data"))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Fatalf("expected status %q, got %q", StatusFailed, snap.Status)
	}
	if len(snap.Progress.Errors) == 0 {
		t.Error("expected a recorded error")
	}
}

func TestOrchestrator_ProcessesSubmittedJob(t *testing.T) {
	cfg := config.Default()
	cfg.Server.WorkerCount = 2
	o := NewOrchestrator(cfg, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("report.md", "", []byte(sampleMarkdown))
	if err := o.Submit(job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := waitForJob(t, o, job.ID)
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q (errors: %v)",
			StatusCompleted, snap.Status, snap.Progress.Errors)
	}
	if got := o.GetJob(job.ID); got == nil || len(got.Output()) == 0 {
		t.Error("expected finished job with output in the store")
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxQueueSize = 1
	o := NewOrchestrator(cfg, discardLogger())
	// Not started: nothing drains the queue.

	if err := o.Submit(NewJob("a.md", "", []byte("# A"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	overflow := NewJob("b.md", "", []byte("# B"))
	if err := o.Submit(overflow); err == nil {
		t.Fatal("expected queue-full error")
	}
	if overflow.Snapshot().Status != StatusFailed {
		t.Error("expected overflow job to be marked failed")
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}

func waitForJob(t *testing.T, o *Orchestrator, id string) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := o.GetJob(id).Snapshot()
		switch snap.Status {
		case StatusCompleted, StatusPartial, StatusFailed:
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal status", id)
	return JobSnapshot{}
}
