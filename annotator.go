// Package annotator generates and applies alternative text for images in
// office documents. The pipeline extracts images with their positions and
// surrounding text, asks a vision model for descriptions, validates them
// against accessibility policy, and writes accepted text back into a copy of
// the document without disturbing any other content.
package annotator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dlambright03/picture-annotations-sub001/apply"
	"github.com/dlambright03/picture-annotations-sub001/docctx"
	"github.com/dlambright03/picture-annotations-sub001/extract"
	"github.com/dlambright03/picture-annotations-sub001/record"
	"github.com/dlambright03/picture-annotations-sub001/store"
	"github.com/dlambright03/picture-annotations-sub001/validate"
	"github.com/dlambright03/picture-annotations-sub001/vision"
)

// Pipeline stages used in failure reporting.
const (
	StageExtraction  = "extraction"
	StageContext     = "context"
	StageDescription = "description"
	StageValidation  = "validation"
	StageReassembly  = "reassembly"
)

// Annotator is the main entry point for the alt text pipeline.
type Annotator interface {
	// Annotate runs the full pipeline on one document: extract, describe,
	// validate, record, and write back.
	Annotate(ctx context.Context, path string, opts ...RunOption) (*RunResult, error)

	// Extract runs extraction only, without calling the description service.
	Extract(ctx context.Context, path string) (*extract.Result, error)

	// ApplyRecord writes a previously saved record file back into the
	// document, skipping the description phase entirely.
	ApplyRecord(ctx context.Context, path, recordPath string, opts ...RunOption) (*RunResult, error)

	// Ledger returns the run ledger, nil when not configured.
	Ledger() *store.Store

	// Close releases held resources.
	Close() error
}

// Failure describes one image the pipeline could not fully process. The run
// continues past individual failures; only container-level problems abort it.
type Failure struct {
	ImageID string `json:"image_id"`
	Stage   string `json:"stage"`
	Reason  string `json:"reason"`
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	RunID            string        `json:"run_id"`
	SourcePath       string        `json:"source_path"`
	OutputPath       string        `json:"output_path,omitempty"`
	RecordPath       string        `json:"record_path,omitempty"`
	DocumentType     string        `json:"document_type"`
	ImagesTotal      int           `json:"images_total"`
	Described        int           `json:"described"`
	Accepted         int           `json:"accepted"`
	Applied          int           `json:"applied"`
	Failures         []Failure     `json:"failures,omitempty"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	CostUSD          float64       `json:"cost_usd"`
	Duration         time.Duration `json:"duration"`
	Record           *record.File  `json:"-"`
}

// RunOption configures one pipeline run.
type RunOption func(*runOptions)

type runOptions struct {
	outputPath      string
	recordPath      string
	externalContext string
	dryRun          bool
}

// WithOutputPath overrides the output document path.
func WithOutputPath(path string) RunOption {
	return func(o *runOptions) { o.outputPath = path }
}

// WithRecordPath overrides the intermediate record file path.
func WithRecordPath(path string) RunOption {
	return func(o *runOptions) { o.recordPath = path }
}

// WithExternalContext supplies external context text directly, bypassing the
// configured context file.
func WithExternalContext(text string) RunOption {
	return func(o *runOptions) { o.externalContext = text }
}

// WithDryRun skips write-back; the record file and reports are still
// produced.
func WithDryRun() RunOption {
	return func(o *runOptions) { o.dryRun = true }
}

// New creates an Annotator from configuration.
func New(cfg Config) (Annotator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := vision.NewProvider(cfg.Vision)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVisionUnavailable, err)
	}

	var ledger *store.Store
	if path := cfg.resolveLedgerPath(); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
		ledger, err = store.New(path)
		if err != nil {
			return nil, err
		}
	}

	return &pipeline{
		cfg:      cfg,
		registry: extract.NewRegistry(),
		provider: provider,
		ledger:   ledger,
	}, nil
}

type pipeline struct {
	cfg      Config
	registry *extract.Registry
	provider vision.Provider
	ledger   *store.Store
}

func (p *pipeline) Ledger() *store.Store { return p.ledger }

func (p *pipeline) Close() error {
	if p.ledger != nil {
		return p.ledger.Close()
	}
	return nil
}

func (p *pipeline) Extract(ctx context.Context, path string) (*extract.Result, error) {
	format := extract.FormatForPath(path)
	extractor, err := p.registry.Get(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	res, err := extractor.Extract(ctx, path)
	if err != nil {
		if errors.Is(err, extract.ErrContainer) {
			return nil, fmt.Errorf("%w: %v", ErrContainerUnreadable, err)
		}
		return nil, err
	}
	return res, nil
}

// described pairs a vision answer with the image index it belongs to.
type described struct {
	desc *vision.Description
	err  error
}

func (p *pipeline) Annotate(ctx context.Context, path string, opts ...RunOption) (*RunResult, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	result := &RunResult{
		RunID:      uuid.NewString(),
		SourcePath: path,
	}

	res, err := p.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	result.DocumentType = res.Format
	for _, w := range res.Warnings {
		result.Failures = append(result.Failures, Failure{
			ImageID: w.ImageID, Stage: StageExtraction, Reason: w.Message,
		})
	}

	images := p.selectImages(res, result)
	result.ImagesTotal = len(res.Images)
	if len(images) == 0 {
		slog.Info("annotate: no images to process", "source", path)
	}

	external := p.loadExternalContext(o, result)

	// Context building is sequential: the heading scan threads a cursor
	// through images in document order.
	contexts := make([]string, len(images))
	cursor := &docctx.HeadingCursor{}
	for i, img := range images {
		bundle := docctx.Build(img, res, external, cursor, p.cfg.Context)
		contexts[i] = docctx.Merge(bundle, p.cfg.MaxContextChars)
	}

	// Description requests fan out; results land in slots keyed by image
	// index so completion order never affects output order.
	answers := make([]described, len(images))
	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.Concurrency > 0 {
		g.SetLimit(p.cfg.Concurrency)
	}
	for i := range images {
		if len(images[i].Data) == 0 {
			answers[i] = described{err: fmt.Errorf("no image payload available")}
			continue
		}
		i := i
		g.Go(func() error {
			desc, err := p.provider.Describe(gctx, vision.Request{
				ImageData: images[i].Data,
				Format:    images[i].Format,
				Context:   contexts[i],
			})
			answers[i] = described{desc: desc, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	recFile := &record.File{
		SourceDocument: path,
		DocumentType:   res.Format,
		Model:          p.cfg.Vision.Model,
	}

	for i, img := range images {
		entry := record.Entry{
			ImageID:         img.ID,
			Position:        img.Position,
			Format:          img.Format,
			ExistingAltText: img.ExistingAltText,
			Context:         contexts[i],
		}
		entry.EncodePayload(img.Data)

		a := answers[i]
		if a.err != nil {
			result.Failures = append(result.Failures, Failure{
				ImageID: img.ID, Stage: StageDescription, Reason: a.err.Error(),
			})
			recFile.Entries = append(recFile.Entries, entry)
			continue
		}
		result.Described++
		result.PromptTokens += a.desc.PromptTokens
		result.CompletionTokens += a.desc.CompletionTokens
		result.CostUSD += a.desc.CostUSD
		entry.Metrics = record.Metrics{
			Model:            a.desc.Model,
			PromptTokens:     a.desc.PromptTokens,
			CompletionTokens: a.desc.CompletionTokens,
			TotalTokens:      a.desc.TotalTokens,
			CostUSD:          a.desc.CostUSD,
			DurationMS:       a.desc.Duration.Milliseconds(),
		}

		if strings.TrimSpace(a.desc.Text) == vision.DecorativeAnswer {
			entry.Decorative = true
			entry.Accepted = true
			result.Accepted++
			recFile.Entries = append(recFile.Entries, entry)
			continue
		}

		outcome := validate.Validate(a.desc.Text, p.cfg.Policy)
		entry.AltText = outcome.Text
		entry.Accepted = outcome.Accepted
		entry.Warnings = outcome.Warnings
		entry.RejectionReason = outcome.RejectionReason
		if outcome.Accepted {
			result.Accepted++
		} else {
			result.Failures = append(result.Failures, Failure{
				ImageID: img.ID, Stage: StageValidation, Reason: outcome.RejectionReason,
			})
		}
		recFile.Entries = append(recFile.Entries, entry)
	}

	result.RecordPath = o.recordPath
	if result.RecordPath == "" {
		result.RecordPath = record.DefaultPath(path)
	}
	if err := record.Save(result.RecordPath, recFile); err != nil {
		return nil, err
	}
	result.Record = recFile

	if !o.dryRun {
		p.writeBack(ctx, path, o, recFile, result)
	}

	result.Duration = time.Since(start)
	p.saveRun(ctx, result, recFile, start)

	slog.Info("annotate: run complete",
		"run_id", result.RunID,
		"source", path,
		"images", result.ImagesTotal,
		"described", result.Described,
		"accepted", result.Accepted,
		"applied", result.Applied,
		"failures", len(result.Failures),
		"cost_usd", result.CostUSD,
		"duration", result.Duration)
	return result, nil
}

func (p *pipeline) ApplyRecord(ctx context.Context, path, recordPath string, opts ...RunOption) (*RunResult, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	recFile, err := record.Load(recordPath)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &RunResult{
		RunID:        uuid.NewString(),
		SourcePath:   path,
		RecordPath:   recordPath,
		DocumentType: recFile.DocumentType,
		ImagesTotal:  len(recFile.Entries),
	}
	for _, e := range recFile.Entries {
		if e.Accepted {
			result.Accepted++
		}
	}

	p.writeBack(ctx, path, o, recFile, result)
	result.Duration = time.Since(start)
	return result, nil
}

// writeBack applies accepted entries to a copy of the source document.
func (p *pipeline) writeBack(ctx context.Context, path string, o runOptions, recFile *record.File, result *RunResult) {
	var updates []apply.Update
	for _, e := range recFile.Entries {
		if !e.Accepted {
			continue
		}
		updates = append(updates, apply.Update{
			ImageID:    e.ImageID,
			Position:   e.Position,
			AltText:    e.AltText,
			Decorative: e.Decorative,
		})
	}
	if len(updates) == 0 {
		return
	}

	writer, err := apply.ForFormat(recFile.DocumentType)
	if err != nil {
		result.Failures = append(result.Failures, Failure{
			Stage:  StageReassembly,
			Reason: fmt.Sprintf("%v: %s", ErrWriteBackUnsupported, recFile.DocumentType),
		})
		return
	}

	outputPath := o.outputPath
	if outputPath == "" {
		ext := filepath.Ext(path)
		outputPath = strings.TrimSuffix(path, ext) + "_annotated" + ext
	}

	failures, err := writer.Apply(ctx, path, outputPath, updates)
	if err != nil {
		result.Failures = append(result.Failures, Failure{
			Stage: StageReassembly, Reason: err.Error(),
		})
		return
	}
	for _, f := range failures {
		result.Failures = append(result.Failures, Failure{
			ImageID: f.ImageID, Stage: StageReassembly, Reason: f.Reason,
		})
	}
	result.OutputPath = outputPath
	result.Applied = len(updates) - len(failures)
}

// selectImages applies the skip-existing and max-images policies.
func (p *pipeline) selectImages(res *extract.Result, result *RunResult) []extract.ImageRecord {
	images := res.Images
	if p.cfg.SkipExisting {
		kept := images[:0:0]
		for _, img := range images {
			if img.ExistingAltText == "" {
				kept = append(kept, img)
			}
		}
		images = kept
	}
	if p.cfg.MaxImages > 0 && len(images) > p.cfg.MaxImages {
		slog.Warn("annotate: image cap reached",
			"selected", p.cfg.MaxImages, "found", len(images))
		images = images[:p.cfg.MaxImages]
	}
	return images
}

// loadExternalContext resolves external context from the run options or the
// configured file. Load failures downgrade to a context-stage failure note.
func (p *pipeline) loadExternalContext(o runOptions, result *RunResult) string {
	if o.externalContext != "" {
		return o.externalContext
	}
	if p.cfg.ExternalContextFile == "" {
		return ""
	}
	external, err := docctx.LoadExternal(p.cfg.ExternalContextFile)
	if err != nil {
		result.Failures = append(result.Failures, Failure{
			Stage:  StageContext,
			Reason: fmt.Sprintf("external context unavailable: %v", err),
		})
		return ""
	}
	return external
}

// saveRun records the run in the ledger when one is configured.
func (p *pipeline) saveRun(ctx context.Context, result *RunResult, recFile *record.File, start time.Time) {
	if p.ledger == nil {
		return
	}

	failedByImage := make(map[string]Failure, len(result.Failures))
	for _, f := range result.Failures {
		if f.ImageID != "" {
			failedByImage[f.ImageID] = f
		}
	}

	images := make([]store.RunImage, 0, len(recFile.Entries))
	for _, e := range recFile.Entries {
		img := store.RunImage{
			ImageID:          e.ImageID,
			Format:           e.Format,
			AltText:          e.AltText,
			Accepted:         e.Accepted,
			Decorative:       e.Decorative,
			RejectionReason:  e.RejectionReason,
			Warnings:         e.Warnings,
			PromptTokens:     e.Metrics.PromptTokens,
			CompletionTokens: e.Metrics.CompletionTokens,
			CostUSD:          e.Metrics.CostUSD,
			DurationMS:       e.Metrics.DurationMS,
		}
		if f, ok := failedByImage[e.ImageID]; ok {
			img.FailureStage = f.Stage
			img.FailureReason = f.Reason
		}
		images = append(images, img)
	}

	run := store.Run{
		ID:               result.RunID,
		SourcePath:       result.SourcePath,
		OutputPath:       result.OutputPath,
		DocumentType:     result.DocumentType,
		Model:            p.cfg.Vision.Model,
		ImagesTotal:      result.ImagesTotal,
		ImagesDescribed:  result.Described,
		ImagesAccepted:   result.Accepted,
		ImagesApplied:    result.Applied,
		ImagesFailed:     len(result.Failures),
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		CostUSD:          result.CostUSD,
		DurationMS:       result.Duration.Milliseconds(),
		StartedAt:        start.UTC(),
		FinishedAt:       time.Now().UTC(),
	}

	if err := p.ledger.SaveRun(ctx, run, images); err != nil {
		slog.Warn("annotate: ledger write failed", "run_id", result.RunID, "error", err)
	}
}
