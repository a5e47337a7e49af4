// Command ada-annotator generates and applies alternative text for images in
// DOCX and PPTX documents (PDF is analysis-only).
//
// Full pipeline:
//
//	ada-annotator run report.docx \
//	  --provider openai --model gpt-4o-mini \
//	  --context-file notes.md \
//	  --report report.md --xlsx review.xlsx
//
// Extraction only, no model calls:
//
//	ada-annotator extract slides.pptx --json
//
// Re-apply a reviewed record file:
//
//	ada-annotator apply report.docx report_alttext.json --output final.docx
//
// List recorded runs:
//
//	ada-annotator runs --ledger ~/.ada-annotator/runs.db
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	annotator "github.com/dlambright03/picture-annotations-sub001"
	"github.com/dlambright03/picture-annotations-sub001/report"
	"github.com/dlambright03/picture-annotations-sub001/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// A .env alongside the binary or cwd supplies provider credentials.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(ctx, os.Args[2:])
	case "extract":
		err = extractCmd(ctx, os.Args[2:])
	case "apply":
		err = applyCmd(ctx, os.Args[2:])
	case "runs":
		err = runsCmd(ctx, os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `ada-annotator - alt text for document images

Commands:
  run <document>              extract, describe, validate, and write back
  extract <document>          extract images and text without model calls
  apply <document> <record>   write a saved record file back into a document
  runs                        list recorded pipeline runs

Run 'ada-annotator <command> -h' for command flags.
`)
}

// setupLogging configures the process-wide slog handler.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// buildConfig assembles the pipeline config from file, env, and flags.
func buildConfig(configFile, provider, model, baseURL, contextFile, ledger string, concurrency, maxImages int, skipExisting bool) (annotator.Config, error) {
	cfg := annotator.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = annotator.LoadConfigFile(configFile)
		if err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()

	if provider != "" {
		cfg.Vision.Provider = provider
	}
	if model != "" {
		cfg.Vision.Model = model
	}
	if baseURL != "" {
		cfg.Vision.BaseURL = baseURL
	}
	if contextFile != "" {
		cfg.ExternalContextFile = contextFile
	}
	if ledger != "" {
		cfg.LedgerPath = ledger
	}
	if concurrency > 0 {
		cfg.Concurrency = concurrency
	}
	if maxImages > 0 {
		cfg.MaxImages = maxImages
	}
	if skipExisting {
		cfg.SkipExisting = true
	}
	return cfg, nil
}

func runCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var (
		configFile   = fs.String("config", "", "YAML config file")
		provider     = fs.String("provider", "", "Vision provider: openai, azure, ollama, gemini, custom")
		model        = fs.String("model", "", "Vision model name")
		baseURL      = fs.String("base-url", "", "Vision provider base URL override")
		contextFile  = fs.String("context-file", "", "External context file (.txt or .md)")
		output       = fs.String("output", "", "Output document path (default: <stem>_annotated<ext>)")
		recordPath   = fs.String("record", "", "Record file path (default: <stem>_alttext.json)")
		reportPath   = fs.String("report", "", "Write a Markdown report to this path")
		xlsxPath     = fs.String("xlsx", "", "Write a review spreadsheet to this path")
		ledger       = fs.String("ledger", "", "Run ledger SQLite path ('default' for ~/.ada-annotator/runs.db)")
		concurrency  = fs.Int("concurrency", 0, "Parallel description requests")
		maxImages    = fs.Int("max-images", 0, "Cap images described per run")
		skipExisting = fs.Bool("skip-existing", false, "Leave images with existing alt text untouched")
		dryRun       = fs.Bool("dry-run", false, "Describe and record, but do not write the document")
		verbose      = fs.Bool("v", false, "Debug logging")
	)
	fs.Parse(args)
	setupLogging(*verbose)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: ada-annotator run <document> [flags]")
	}
	docPath := fs.Arg(0)

	cfg, err := buildConfig(*configFile, *provider, *model, *baseURL, *contextFile, *ledger, *concurrency, *maxImages, *skipExisting)
	if err != nil {
		return err
	}

	a, err := annotator.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var opts []annotator.RunOption
	if *output != "" {
		opts = append(opts, annotator.WithOutputPath(*output))
	}
	if *recordPath != "" {
		opts = append(opts, annotator.WithRecordPath(*recordPath))
	}
	if *dryRun {
		opts = append(opts, annotator.WithDryRun())
	}

	result, err := a.Annotate(ctx, docPath, opts...)
	if err != nil {
		return err
	}

	if *reportPath != "" {
		if err := os.WriteFile(*reportPath, report.Markdown(result.Record), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	if *xlsxPath != "" {
		if err := report.WriteXLSX(*xlsxPath, result.Record); err != nil {
			return err
		}
	}

	printRunSummary(result)
	return nil
}

func extractCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	var (
		asJSON  = fs.Bool("json", false, "Print the extraction result as JSON")
		verbose = fs.Bool("v", false, "Debug logging")
	)
	fs.Parse(args)
	setupLogging(*verbose)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: ada-annotator extract <document> [flags]")
	}

	cfg := annotator.DefaultConfig()
	cfg.Vision.Provider = "custom" // extraction never dials out
	a, err := annotator.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Extract(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Printf("format: %s\n", res.Format)
	fmt.Printf("images: %d\n", len(res.Images))
	for _, img := range res.Images {
		fmt.Printf("  %-24s %-5s %dx%d  existing_alt=%q\n",
			img.ID, img.Format, img.Width, img.Height, img.ExistingAltText)
	}
	for _, w := range res.Warnings {
		fmt.Printf("warning: %s: %s\n", w.ImageID, w.Message)
	}
	return nil
}

func applyCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	var (
		output  = fs.String("output", "", "Output document path (default: <stem>_annotated<ext>)")
		verbose = fs.Bool("v", false, "Debug logging")
	)
	fs.Parse(args)
	setupLogging(*verbose)

	if fs.NArg() != 2 {
		return fmt.Errorf("usage: ada-annotator apply <document> <record> [flags]")
	}

	cfg := annotator.DefaultConfig()
	cfg.Vision.Provider = "custom" // apply never dials out
	a, err := annotator.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var opts []annotator.RunOption
	if *output != "" {
		opts = append(opts, annotator.WithOutputPath(*output))
	}

	result, err := a.ApplyRecord(ctx, fs.Arg(0), fs.Arg(1), opts...)
	if err != nil {
		return err
	}
	printRunSummary(result)
	return nil
}

func runsCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	var (
		ledger = fs.String("ledger", "default", "Run ledger SQLite path")
		limit  = fs.Int("limit", 20, "Number of runs to show")
	)
	fs.Parse(args)
	setupLogging(false)

	cfg := annotator.DefaultConfig()
	cfg.LedgerPath = *ledger
	cfg.Vision.Provider = "custom"
	a, err := annotator.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ledgerStore := a.Ledger()
	if ledgerStore == nil {
		return fmt.Errorf("no ledger configured")
	}

	runs, err := ledgerStore.ListRuns(ctx, *limit)
	if err != nil {
		return err
	}
	printRuns(runs)

	total, err := ledgerStore.TotalCost(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\ntotal recorded cost: $%.4f\n", total)
	return nil
}

func printRuns(runs []store.Run) {
	fmt.Printf("%-36s  %-20s  %-5s  %8s  %8s  %10s\n",
		"RUN", "STARTED", "TYPE", "IMAGES", "APPLIED", "COST")
	for _, r := range runs {
		fmt.Printf("%-36s  %-20s  %-5s  %8d  %8d  %10.4f\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"),
			r.DocumentType, r.ImagesTotal, r.ImagesApplied, r.CostUSD)
	}
}

func printRunSummary(result *annotator.RunResult) {
	fmt.Printf("run %s\n", result.RunID)
	fmt.Printf("  images:    %d\n", result.ImagesTotal)
	fmt.Printf("  described: %d\n", result.Described)
	fmt.Printf("  accepted:  %d\n", result.Accepted)
	fmt.Printf("  applied:   %d\n", result.Applied)
	if result.OutputPath != "" {
		fmt.Printf("  output:    %s\n", result.OutputPath)
	}
	if result.RecordPath != "" {
		fmt.Printf("  record:    %s\n", result.RecordPath)
	}
	if result.CostUSD > 0 {
		fmt.Printf("  cost:      $%.4f\n", result.CostUSD)
	}
	for _, f := range result.Failures {
		fmt.Printf("  failure:   [%s] %s: %s\n", f.Stage, f.ImageID, f.Reason)
	}
}
