package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"avtopress/internal/backfill"
	"avtopress/internal/config"
	"avtopress/internal/httpx"
	"avtopress/internal/logger"
	"avtopress/internal/model"
	"avtopress/internal/photos"
	"avtopress/internal/scraper"
	"avtopress/internal/storage"
	"avtopress/internal/translate"
)

// Progress bands per stage. Collection fills 10-45, translation 50-75,
// the remaining stages get fixed checkpoints.
const (
	collectProgressStart = 10.0
	collectProgressEnd   = 45.0

	translateProgressStart = 50.0
	translateProgressEnd   = 75.0
)

const progressTitleLimit = 72

// Result is what one full pipeline pass produced.
type Result struct {
	Run             model.RunSummary      `json:"run"`
	Backfill        backfill.PhotoSummary `json:"backfill"`
	CollectedItems  int                   `json:"collected_items"`
	TranslatedItems int                   `json:"translated_items"`
}

// Runner owns the wired pipeline stages for one process.
type Runner struct {
	cfg       *config.Config
	collector *scraper.Collector
	engine    *translate.Engine
	store     *storage.Store
}

// New wires the full pipeline from configuration. The photo vocabulary is
// optional; a broken override falls back to the built-in one.
func New(cfg *config.Config) *Runner {
	client := httpx.New(cfg.RequestTimeout, cfg.UserAgent, cfg.MaxImageBytes)

	vocab := photos.DefaultVocabulary()
	if cfg.VocabPath != "" {
		loaded, err := photos.LoadVocabulary(cfg.VocabPath)
		if err != nil {
			logger.Warn("photo vocabulary load failed, using defaults", "path", cfg.VocabPath, "error", err)
		} else {
			vocab = loaded
		}
	}

	engine := translate.New(cfg.RequestTimeout, cfg.UserAgent)
	if cfg.GeminiAPIKey != "" {
		fallback, err := translate.NewGeminiClient(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			logger.Warn("gemini fallback unavailable", "error", err)
		} else {
			engine = engine.WithFallback(fallback)
		}
	}

	resolver := photos.NewResolver(client, vocab)
	outputPath := filepath.Join(cfg.OutputDir, "news.json")
	store := storage.New(outputPath, "", resolver)

	return &Runner{
		cfg:       cfg,
		collector: scraper.NewCollector(client, cfg.MinArticleChars, cfg.MaxParagraphs),
		engine:    engine,
		store:     store,
	}
}

// Store exposes the wired output store for the server and sink commands.
func (r *Runner) Store() *storage.Store { return r.store }

// Engine exposes the wired translation engine for the backfill commands.
func (r *Runner) Engine() *translate.Engine { return r.engine }

func stageProgress(done, total int, start, end float64) float64 {
	if total < 1 {
		total = 1
	}
	ratio := float64(done) / float64(total)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return start + (end-start)*ratio
}

func progressTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= progressTitleLimit {
		return title
	}
	return string(runes[:progressTitleLimit]) + "..."
}

// Run executes the whole pipeline: collect, translate, save, backfill.
// tracker may be nil when no one watches the progress.
func (r *Runner) Run(ctx context.Context, tracker *Tracker) (Result, error) {
	update := func(stage string, percent float64, message string) {
		if tracker != nil {
			tracker.Update(stage, percent, message)
		}
	}
	fail := func(err error) (Result, error) {
		if tracker != nil {
			tracker.Fail(err.Error())
		}
		return Result{}, err
	}

	startedAt := time.Now()
	scrapedAt := startedAt.UTC().Format(time.RFC3339)

	update("initializing", 2, "Preparing scrape pipeline...")

	update("loading_sources", 6, "Loading source configuration...")
	sources, err := config.LoadSources(r.cfg.SourcesPath, r.cfg.MaxItemsPerSource)
	if err != nil {
		return fail(fmt.Errorf("load sources: %w", err))
	}

	update("collecting", collectProgressStart, fmt.Sprintf("Collecting items from %d source(s)...", len(sources)))
	collected := r.collector.Collect(ctx, sources, scrapedAt, func(p model.CollectProgress) {
		label := p.CurrentSourceName
		if label == "" {
			label = p.CurrentSourceID
		}
		total := p.TotalSources
		if total < 1 {
			total = 1
		}
		update("collecting",
			stageProgress(p.CompletedSources, p.TotalSources, collectProgressStart, collectProgressEnd),
			fmt.Sprintf("Collecting source %d/%d: %s", p.CompletedSources+1, total, label))
	})
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	update("collecting", collectProgressEnd, fmt.Sprintf("Collected %d item(s).", len(collected.Items)))
	if tracker != nil {
		tracker.SetCounts(len(collected.Items), 0)
	}

	update("translating", translateProgressStart, "Translating and sanitizing content...")
	translated := scraper.TranslateItems(ctx, r.engine, collected.Items, scraper.TranslateOptions{
		Enabled:         !r.cfg.DisableTranslation,
		TargetLanguage:  r.cfg.TargetLanguage,
		MaxContentChars: r.cfg.MaxContentChars,
		OnProgress: func(p model.TranslateProgress) {
			total := p.TotalItems
			if total < 1 {
				total = 1
			}
			message := fmt.Sprintf("Translating item %d/%d", p.CompletedItems+1, total)
			if title := progressTitle(p.CurrentItemTitle); title != "" {
				message += ": " + title
			}
			update("translating",
				stageProgress(p.CompletedItems, p.TotalItems, translateProgressStart, translateProgressEnd),
				message)
		},
	})
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if tracker != nil {
		tracker.SetCounts(len(collected.Items), len(translated))
	}

	update("saving", 80, "Saving run outputs...")
	runSummary, err := r.store.SaveOutput(ctx, translated, scrapedAt, collected.SourceReports)
	if err != nil {
		return fail(fmt.Errorf("save output: %w", err))
	}

	update("backfilling", 92, "Backfilling missing photos for latest run items...")
	photoSummary, err := backfill.MissingPhotosForRun(ctx, r.store, backfill.PhotoOptions{RunPath: runSummary.RunPath})
	if err != nil {
		logger.Warn("photo backfill failed", "error", err)
		photoSummary = backfill.PhotoSummary{RunPath: runSummary.RunPath}
	}

	result := Result{
		Run:             runSummary,
		Backfill:        photoSummary,
		CollectedItems:  len(collected.Items),
		TranslatedItems: len(translated),
	}
	if tracker != nil {
		tracker.Complete(result)
	}
	logger.Info("scrape finished",
		"run_id", runSummary.RunID,
		"collected", result.CollectedItems,
		"translated", result.TranslatedItems,
		"backfilled_photos", photoSummary.UpdatedPhotos,
		"duration", time.Since(startedAt).Round(time.Millisecond).String())
	return result, nil
}
