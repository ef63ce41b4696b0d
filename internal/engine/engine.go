// Package engine runs the per-category scrape: listing, then every detail
// page in listing order, each sanitized and appended to the category output.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/zhongyi/internal/catalog"
	"github.com/IshaanNene/zhongyi/internal/config"
	"github.com/IshaanNene/zhongyi/internal/fetcher"
	"github.com/IshaanNene/zhongyi/internal/observability"
	"github.com/IshaanNene/zhongyi/internal/parser"
	"github.com/IshaanNene/zhongyi/internal/pipeline"
	"github.com/IshaanNene/zhongyi/internal/storage"
	"github.com/IshaanNene/zhongyi/internal/types"
)

// Pipeline is the interface for the record sanitizing pipeline.
type Pipeline interface {
	Process(rec *types.Record) (*types.Record, error)
}

// SinkOpener opens the output of one category run.
type SinkOpener func(ctx context.Context, cat catalog.Category) (storage.Sink, error)

// Progress is reported after every listing entry has been handled.
type Progress struct {
	Category string
	Index    int
	Total    int
	Entry    types.ListingEntry
	Outcome  Outcome
}

// Percent returns the completed share of the category in percent.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Index) * 100 / float64(p.Total)
}

// Outcome is what happened to one listing entry.
type Outcome int

const (
	OutcomeWritten Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWritten:
		return "written"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result summarizes one category run.
type Result struct {
	Category string
	Listed   int
	Written  int
	Skipped  int
	Failed   int
	Elapsed  time.Duration
}

// Engine orchestrates category runs. It is strictly sequential: one detail
// page is fetched, parsed and written before the next one starts.
type Engine struct {
	cfg        *config.Config
	logger     *slog.Logger
	fetcher    fetcher.Fetcher
	pipeline   Pipeline
	openSink   SinkOpener
	metrics    *observability.Metrics
	onProgress func(Progress)
}

// New creates an Engine with the HTTP fetcher, the configured sanitizer and
// the configured storage. The css and xpath engines re-render markup, so they
// always decode entities; their cells then match a regex run with decoding on.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	sanitize := cfg.Sanitize
	if parser.NormalizesEntities(cfg.Parser.Engine) && !sanitize.UnescapeEntities {
		logger.Info("entity decoding enabled for DOM parser engine", "engine", cfg.Parser.Engine)
		sanitize.UnescapeEntities = true
	}

	e := &Engine{
		cfg:      cfg,
		logger:   logger.With("component", "engine"),
		fetcher:  fetcher.NewHTTPFetcher(cfg, logger),
		pipeline: pipeline.NewSanitizer(sanitize, logger),
		metrics:  observability.NewMetrics(logger),
	}
	e.openSink = func(ctx context.Context, cat catalog.Category) (storage.Sink, error) {
		return storage.Open(ctx, &cfg.Storage, cat, logger)
	}
	return e
}

// SetFetcher replaces the page fetcher.
func (e *Engine) SetFetcher(f fetcher.Fetcher) {
	e.fetcher = f
}

// SetPipeline replaces the sanitizing pipeline.
func (e *Engine) SetPipeline(p Pipeline) {
	e.pipeline = p
}

// SetSinkOpener replaces how category outputs are opened.
func (e *Engine) SetSinkOpener(open SinkOpener) {
	e.openSink = open
}

// SetMetrics replaces the metrics collector.
func (e *Engine) SetMetrics(m *observability.Metrics) {
	e.metrics = m
}

// OnProgress registers an observer called after every listing entry.
func (e *Engine) OnProgress(fn func(Progress)) {
	e.onProgress = fn
}

// Metrics returns the metrics collector.
func (e *Engine) Metrics() *observability.Metrics {
	return e.metrics
}

// Close releases the fetcher.
func (e *Engine) Close() error {
	return e.fetcher.Close()
}

// RunAll runs categories in the given order. The first fatal error stops the
// run; results of completed categories are still returned.
func (e *Engine) RunAll(ctx context.Context, cats []catalog.Category) ([]Result, error) {
	results := make([]Result, 0, len(cats))
	for _, cat := range cats {
		res, err := e.Run(ctx, cat)
		results = append(results, res)
		if err != nil {
			return results, fmt.Errorf("category %s: %w", cat.Key, err)
		}
	}
	return results, nil
}

// Run scrapes one category. Detail fetch failures and empty detail pages
// only affect their own entry; listing failures, sink failures and
// cancellation end the run.
func (e *Engine) Run(ctx context.Context, cat catalog.Category) (res Result, err error) {
	start := time.Now()
	res.Category = cat.Key
	logger := e.logger.With("category", cat.Key)
	defer func() { res.Elapsed = time.Since(start) }()

	listing, err := parser.NewListingExtractor(cat)
	if err != nil {
		return res, err
	}
	detail, err := parser.NewDetailExtractor(e.cfg.Parser.Engine, cat, e.logger)
	if err != nil {
		return res, err
	}

	sink, err := e.openSink(ctx, cat)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	logger.Info("fetching listing", "url", cat.ListingURL)
	page, err := e.fetch(ctx, cat, cat.ListingURL, types.TagListing)
	if err != nil {
		return res, err
	}
	e.metrics.ListingsFetched.Add(1)

	entries, err := listing.ExtractListing(page)
	if err != nil {
		return res, err
	}
	res.Listed = len(entries)
	e.metrics.EntriesListed.Add(int64(len(entries)))
	logger.Info("listing extracted", "entries", len(entries))

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		outcome, err := e.processEntry(ctx, cat, detail, sink, entry)
		if err != nil {
			return res, err
		}

		switch outcome {
		case OutcomeWritten:
			res.Written++
		case OutcomeSkipped:
			res.Skipped++
		case OutcomeFailed:
			res.Failed++
		}

		p := Progress{Category: cat.Key, Index: i + 1, Total: len(entries), Entry: entry, Outcome: outcome}
		logger.Info("entry processed",
			"id", entry.ID,
			"name", entry.Name,
			"outcome", outcome,
			"progress", fmt.Sprintf("%d/%d", p.Index, p.Total),
			"percent", fmt.Sprintf("%.1f%%", p.Percent()),
		)
		if e.onProgress != nil {
			e.onProgress(p)
		}
	}

	logger.Info("category complete",
		"listed", res.Listed,
		"written", res.Written,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
	return res, nil
}

// processEntry handles one listing entry. A non-nil error is fatal for the run.
func (e *Engine) processEntry(ctx context.Context, cat catalog.Category, detail parser.DetailExtractor, sink storage.Sink, entry types.ListingEntry) (Outcome, error) {
	url := cat.DetailURL(entry.ID)

	page, err := e.fetch(ctx, cat, url, types.TagDetail)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeFailed, ctx.Err()
		}
		e.logger.Warn("detail fetch failed", "category", cat.Key, "id", entry.ID, "url", url, "error", err)
		return OutcomeFailed, nil
	}
	e.metrics.DetailsFetched.Add(1)

	rec, err := detail.ExtractDetail(page)
	if errors.Is(err, types.ErrEmptyExtraction) {
		e.metrics.RecordsSkipped.Add(1)
		e.logger.Debug("detail page has no fields", "category", cat.Key, "id", entry.ID)
		return OutcomeSkipped, nil
	}
	if err != nil {
		e.logger.Warn("detail extraction failed", "category", cat.Key, "id", entry.ID, "error", err)
		return OutcomeFailed, nil
	}

	rec.Category = cat.Key
	rec.SourceURL = url
	if cat.OverridesName() && !rec.Has(catalog.NameLabel) {
		rec.Prepend(catalog.NameLabel, entry.Name)
	}

	rec, err = e.pipeline.Process(rec)
	if err != nil {
		return OutcomeFailed, err
	}
	if rec == nil {
		e.metrics.RecordsSkipped.Add(1)
		return OutcomeSkipped, nil
	}

	if err := sink.Append(rec); err != nil {
		return OutcomeFailed, err
	}
	e.metrics.RecordsWritten.Add(1)
	e.logger.Debug("record appended", "category", cat.Key, "id", entry.ID, "record", rec.String())
	return OutcomeWritten, nil
}

func (e *Engine) fetch(ctx context.Context, cat catalog.Category, url, tag string) (string, error) {
	resp, err := fetcher.Get(ctx, e.fetcher, url, tag, cat.Key)
	if err != nil {
		e.metrics.FetchErrors.Add(1)
		return "", err
	}
	if resp.FinalURL != url {
		e.logger.Debug("redirected", "category", cat.Key, "url", url, "final_url", resp.FinalURL)
	}
	e.logger.Debug("page fetched",
		"category", cat.Key,
		"tag", tag,
		"status", resp.StatusCode,
		"duration", resp.FetchDuration,
	)
	e.metrics.BytesDownloaded.Add(int64(len(resp.Body)))
	return resp.Body, nil
}
