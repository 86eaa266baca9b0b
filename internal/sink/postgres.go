package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"avtopress/internal/dedup"
	"avtopress/internal/logger"
	"avtopress/internal/model"
	"avtopress/internal/photos"
	"avtopress/internal/storage"
)

// Scope selects which file feeds the sync.
type Scope string

const (
	ScopeLatestRun Scope = "latest_run"
	ScopeSnapshot  Scope = "snapshot"
)

const upsertBatchSize = 100

// ParseScope accepts both spellings of the latest-run scope and falls back
// to it for anything unrecognized.
func ParseScope(value string) Scope {
	switch strings.TrimSpace(value) {
	case "snapshot":
		return ScopeSnapshot
	case "latest-run", "latest_run":
		return ScopeLatestRun
	default:
		return ScopeLatestRun
	}
}

// Options configure one sync pass.
type Options struct {
	Scope           Scope
	ExcludedIDsPath string
}

// Result reports what one sync pass did.
type Result struct {
	OK            bool   `json:"ok"`
	Scope         Scope  `json:"scope"`
	SourceFile    string `json:"source_file"`
	SelectedItems int    `json:"selected_items"`
	UniqueItems   int    `json:"unique_items"`
	SubmittedRows int    `json:"submitted_rows"`
}

const schema = `
CREATE TABLE IF NOT EXISTS news_items (
	id SERIAL PRIMARY KEY,
	slug TEXT NOT NULL,
	external_id TEXT NOT NULL,
	dedupe_key VARCHAR(64) UNIQUE NOT NULL,
	source_id TEXT,
	source_name TEXT NOT NULL,
	source_url TEXT NOT NULL,
	article_path TEXT NOT NULL,
	title TEXT NOT NULL,
	excerpt TEXT,
	summary TEXT,
	content TEXT NOT NULL,
	image TEXT,
	image_url TEXT,
	photos JSONB NOT NULL DEFAULT '[]',
	date TEXT,
	published_at TIMESTAMPTZ,
	published_date TEXT,
	published_time TEXT,
	scraped_at TIMESTAMPTZ NOT NULL,
	rights_flag VARCHAR(32) NOT NULL,
	license_text TEXT NOT NULL,
	category TEXT,
	is_featured BOOLEAN NOT NULL DEFAULT FALSE,
	is_popular BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_news_items_slug ON news_items(slug);
CREATE INDEX IF NOT EXISTS idx_news_items_published_at ON news_items(published_at);
`

const upsertQuery = `
INSERT INTO news_items (
	slug, external_id, dedupe_key, source_id, source_name, source_url,
	article_path, title, excerpt, summary, content, image, image_url,
	photos, date, published_at, published_date, published_time, scraped_at,
	rights_flag, license_text, category, is_featured, is_popular
) VALUES (
	:slug, :external_id, :dedupe_key, :source_id, :source_name, :source_url,
	:article_path, :title, :excerpt, :summary, :content, :image, :image_url,
	:photos, :date, :published_at, :published_date, :published_time, :scraped_at,
	:rights_flag, :license_text, :category, :is_featured, :is_popular
)
ON CONFLICT (dedupe_key) DO UPDATE SET
	slug = EXCLUDED.slug,
	external_id = EXCLUDED.external_id,
	source_id = EXCLUDED.source_id,
	source_name = EXCLUDED.source_name,
	source_url = EXCLUDED.source_url,
	article_path = EXCLUDED.article_path,
	title = EXCLUDED.title,
	excerpt = EXCLUDED.excerpt,
	summary = EXCLUDED.summary,
	content = EXCLUDED.content,
	image = EXCLUDED.image,
	image_url = EXCLUDED.image_url,
	photos = EXCLUDED.photos,
	date = EXCLUDED.date,
	published_at = EXCLUDED.published_at,
	published_date = EXCLUDED.published_date,
	published_time = EXCLUDED.published_time,
	scraped_at = EXCLUDED.scraped_at,
	rights_flag = EXCLUDED.rights_flag,
	license_text = EXCLUDED.license_text,
	category = EXCLUDED.category,
	updated_at = NOW()
`

// Syncer owns the database handle for repeated sync passes.
type Syncer struct {
	db *sqlx.DB
}

// NewSyncer connects, pings and prepares the schema.
func NewSyncer(ctx context.Context, databaseURL string) (*Syncer, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare schema: %w", err)
	}
	return &Syncer{db: db}, nil
}

func (s *Syncer) Close() error {
	return s.db.Close()
}

// resolveSourceFile picks the run file for the latest-run scope, falling
// back to the merged snapshot when no usable run is recorded.
func resolveSourceFile(store *storage.Store, scope Scope) string {
	if scope == ScopeSnapshot {
		return store.OutputPath
	}

	runPath := store.LatestRunPath()
	if runPath == "" {
		return store.OutputPath
	}
	runNewsPath := filepath.Join(store.AbsPath(runPath), "news.json")
	if info, err := os.Stat(runNewsPath); err != nil || info.IsDir() {
		return store.OutputPath
	}
	return runNewsPath
}

func usablePhotos(root string, assets []model.PhotoAsset) []model.PhotoAsset {
	existing := photos.FilterPhotosWithExistingFiles(root, assets)
	kept := make([]model.PhotoAsset, 0, len(existing))
	for _, photo := range existing {
		if photos.IsAllowedByRightsPolicy(photo) {
			kept = append(kept, photo)
		}
	}
	return kept
}

// Sync reads the scoped news file, filters and dedupes its items and
// upserts them in batches keyed by the dedupe hash.
func (s *Syncer) Sync(ctx context.Context, store *storage.Store, opts Options) (Result, error) {
	scope := opts.Scope
	if scope == "" {
		scope = ScopeLatestRun
	}

	sourceFile := resolveSourceFile(store, scope)
	var items []model.NewsItem
	if !dedup.ReadJSONFileSafe(sourceFile, &items) {
		return Result{}, fmt.Errorf("read news file: %s", sourceFile)
	}

	excludedIDs := ListExcludedIDs(opts.ExcludedIDsPath)
	selected, removedByExclusion := FilterExcludedItems(items, excludedIDs)
	if removedByExclusion > 0 {
		logger.Info("sink skipped excluded items", "count", removedByExclusion)
	}

	unique := DedupeItems(selected)

	rows := make([]NewsRow, 0, len(unique))
	removedPhotoRefs := 0
	for _, item := range unique {
		kept := usablePhotos(store.Root, item.Photos)
		removedPhotoRefs += len(item.Photos) - len(kept)
		rows = append(rows, MapItemToRow(item, kept))
	}
	if removedPhotoRefs > 0 {
		logger.Info("sink dropped unavailable photo references", "count", removedPhotoRefs)
	}

	submitted, err := s.upsertRows(ctx, rows)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		OK:            true,
		Scope:         scope,
		SourceFile:    filepath.ToSlash(sourceFile),
		SelectedItems: len(selected),
		UniqueItems:   len(unique),
		SubmittedRows: submitted,
	}
	logger.Info("sink finished",
		"scope", string(scope),
		"selected", result.SelectedItems,
		"unique", result.UniqueItems,
		"submitted", result.SubmittedRows)
	return result, nil
}

func (s *Syncer) upsertRows(ctx context.Context, rows []NewsRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	submitted := 0
	for start := 0; start < len(rows); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		logger.Debug("sink upsert batch", "rows", len(batch))

		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return submitted, fmt.Errorf("begin upsert batch: %w", err)
		}
		if _, err := tx.NamedExecContext(ctx, upsertQuery, batch); err != nil {
			tx.Rollback()
			return submitted, fmt.Errorf("upsert batch: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return submitted, fmt.Errorf("commit upsert batch: %w", err)
		}
		submitted += len(batch)
	}
	return submitted, nil
}
