// Command docforge converts structured documents into Word files, either
// one-shot from the command line or as a batch HTTP service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/dgallion1/docforge/internal/api"
	"github.com/dgallion1/docforge/internal/config"
	"github.com/dgallion1/docforge/internal/ir"
	"github.com/dgallion1/docforge/internal/pipeline"
	"github.com/dgallion1/docforge/internal/report"
)

const version = "0.3.0"

// CLI defines the command-line interface for docforge.
var CLI struct {
	Verbose bool `short:"v" help:"Enable debug logging."`

	Convert ConvertCmd `cmd:"" help:"Convert a document to docx."`
	Inspect InspectCmd `cmd:"" help:"Parse a document and write its IR checkpoint."`
	FromIR  FromIRCmd  `cmd:"" name:"from-ir" help:"Generate docx from an IR checkpoint."`
	Report  ReportCmd  `cmd:"" help:"Print the conversion report for a document."`
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP conversion service."`
	Version VersionCmd `cmd:"" help:"Print version information."`
}

// app carries the shared dependencies into command Run methods.
type app struct {
	ctx  context.Context
	cfg  config.Config
	log  *slog.Logger
	conv *pipeline.Converter
}

// ConvertCmd converts a single document to docx.
type ConvertCmd struct {
	Input  string `arg:"" help:"Source document." type:"existingfile"`
	Output string `short:"o" help:"Output path (defaults to the input name with a .docx extension)." type:"path"`
	IR     string `help:"Also write the IR checkpoint JSON to this path." type:"path"`
	Report string `help:"Also write the conversion report JSON to this path." type:"path"`
}

func (c *ConvertCmd) Run(a *app) error {
	out := c.Output
	if out == "" {
		out = replaceExt(c.Input, ".docx")
	}
	res, err := a.conv.Convert(a.ctx, c.Input, out)
	if err != nil {
		return err
	}
	for _, w := range res.Report.Warnings {
		a.log.Warn("conversion warning", "kind", w.Kind, "message", w.Message)
	}
	if c.IR != "" {
		data, err := ir.MarshalCheckpoint(res.Document)
		if err != nil {
			return err
		}
		if err := os.WriteFile(c.IR, data, 0o644); err != nil {
			return fmt.Errorf("write checkpoint: %w", err)
		}
	}
	if c.Report != "" {
		if err := writeReport(res, c.Report); err != nil {
			return err
		}
	}
	fmt.Printf("wrote %s (%d nodes, %d warnings, %.2fs)\n",
		out, res.Report.TotalNodes, len(res.Report.Warnings), res.Report.Timing.TotalSeconds)
	return nil
}

// InspectCmd parses a document and emits the IR checkpoint, to stdout by
// default.
type InspectCmd struct {
	Input  string `arg:"" help:"Source document." type:"existingfile"`
	Output string `short:"o" help:"Checkpoint path (stdout when omitted)." type:"path"`
}

func (c *InspectCmd) Run(a *app) error {
	res, err := a.conv.Inspect(a.ctx, c.Input, c.Output)
	if err != nil {
		return err
	}
	if c.Output == "" {
		return ir.WriteCheckpoint(os.Stdout, res.Document)
	}
	fmt.Printf("wrote %s (%d nodes, %d headings, %d low-confidence)\n",
		c.Output, res.Report.TotalNodes, res.Report.Counts.Headings, len(res.Report.LowConfidence))
	return nil
}

// FromIRCmd resumes a conversion from a checkpoint.
type FromIRCmd struct {
	Checkpoint string `arg:"" help:"IR checkpoint file." type:"existingfile"`
	Output     string `short:"o" help:"Output path (defaults to the checkpoint name with a .docx extension)." type:"path"`
}

func (c *FromIRCmd) Run(a *app) error {
	out := c.Output
	if out == "" {
		out = replaceExt(strings.TrimSuffix(c.Checkpoint, ".ir.json"), ".docx")
	}
	res, err := a.conv.FromIR(a.ctx, c.Checkpoint, out)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d warnings)\n", out, len(res.Report.Warnings))
	return nil
}

// ReportCmd prints the conversion report for a source document or an IR
// checkpoint without generating docx output.
type ReportCmd struct {
	Input string `arg:"" help:"Source document or .ir.json checkpoint." type:"existingfile"`
}

func (c *ReportCmd) Run(a *app) error {
	var rep *report.Report
	if strings.HasSuffix(c.Input, ".ir.json") || strings.HasSuffix(c.Input, ".json") {
		doc, err := ir.LoadCheckpoint(c.Input)
		if err != nil {
			return err
		}
		rep = report.FromDocument(doc, a.cfg.Style.LowConfidenceThreshold)
	} else {
		res, err := a.conv.Inspect(a.ctx, c.Input, "")
		if err != nil {
			return err
		}
		rep = res.Report
	}
	data, err := rep.ToJSON()
	if err != nil {
		return err
	}
	os.Stdout.Write(data)
	return nil
}

// ServeCmd runs the batch conversion service.
type ServeCmd struct {
	Port string `help:"Listen port (overrides DOCFORGE_PORT)."`
}

func (c *ServeCmd) Run(a *app) error {
	cfg := a.cfg
	if c.Port != "" {
		cfg.Server.Port = c.Port
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, cancel := context.WithCancel(a.ctx)
	defer cancel()

	orch := pipeline.NewOrchestrator(cfg, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, log, cfg)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting docforge", "port", cfg.Server.Port, "workers", cfg.Server.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(a *app) error {
	fmt.Printf("docforge %s\n", version)
	return nil
}

func writeReport(res *pipeline.Result, path string) error {
	data, err := res.Report.ToJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("docforge"),
		kong.Description("Structured document to Word converter"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	level := slog.LevelInfo
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.Load()
	if CLI.Verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	a := &app{
		ctx:  context.Background(),
		cfg:  cfg,
		log:  log,
		conv: pipeline.NewConverter(cfg, log),
	}
	err := ctx.Run(a)
	ctx.FatalIfErrorf(err)
}
