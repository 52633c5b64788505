// Package storage provides an optional relational archive of raw crawl
// results, alongside the JSON knowledge store that remains the source of
// truth for retrieval.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	pq "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ewdlop/DarkWebNote/internal/config"
	"github.com/ewdlop/DarkWebNote/pkg/types"
)

// Archive persists crawl results into a SQL database. Supported drivers are
// "postgres" (lib/pq) and "sqlite" (modernc.org/sqlite, CGo-free).
type Archive struct {
	db          *sql.DB
	driver      string
	autoMigrate bool
}

// Open initialises an archive from configuration.
func Open(cfg config.ArchiveConfig) (*Archive, error) {
	if !cfg.Enabled() {
		return nil, errors.New("archive config missing driver or dsn")
	}

	driver, err := driverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open archive connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping archive connection: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime.Duration > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Duration)
	}

	archive := &Archive{db: db, driver: driver, autoMigrate: cfg.AutoMigrate}
	if cfg.AutoMigrate {
		if err := archive.ensureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return archive, nil
}

func driverName(configured string) (string, error) {
	switch strings.ToLower(configured) {
	case "postgres", "postgresql":
		return "postgres", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported archive driver %q", configured)
	}
}

// SavePage upserts a crawl result keyed by URL.
func (a *Archive) SavePage(ctx context.Context, result types.CrawlResult) error {
	if a == nil || a.db == nil {
		return nil
	}
	if err := a.upsertPage(ctx, result); err != nil {
		if a.autoMigrate && a.isUndefinedTable(err) {
			if schemaErr := a.ensureSchema(ctx); schemaErr != nil {
				return fmt.Errorf("ensure schema: %w", schemaErr)
			}
			if retryErr := a.upsertPage(ctx, result); retryErr != nil {
				return fmt.Errorf("insert page: %w", retryErr)
			}
			return nil
		}
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

func (a *Archive) upsertPage(ctx context.Context, result types.CrawlResult) error {
	query := a.rebind(`
        INSERT INTO pages (url, title, content, depth, success, error, link_count, crawled_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (url) DO UPDATE SET
            title = EXCLUDED.title,
            content = EXCLUDED.content,
            depth = EXCLUDED.depth,
            success = EXCLUDED.success,
            error = EXCLUDED.error,
            link_count = EXCLUDED.link_count,
            crawled_at = EXCLUDED.crawled_at
    `)
	_, err := a.db.ExecContext(ctx, query,
		result.URL,
		result.Title,
		result.Content,
		result.Depth,
		result.Success,
		result.Error,
		len(result.Links),
		time.Now().UTC(),
	)
	return err
}

// PageCount reports the number of archived pages.
func (a *Archive) PageCount(ctx context.Context) (int, error) {
	if a == nil || a.db == nil {
		return 0, nil
	}
	var count int
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pages").Scan(&count); err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return count, nil
}

// Close closes the underlying DB connection.
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *Archive) ensureSchema(ctx context.Context) error {
	schemaCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pages (
		    url TEXT PRIMARY KEY,
		    title TEXT,
		    content TEXT,
		    depth INT,
		    success BOOLEAN,
		    error TEXT,
		    link_count INT,
		    crawled_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_crawled_at ON pages (crawled_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := a.db.ExecContext(schemaCtx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// rebind converts $N placeholders to ? for the sqlite driver. Postgres
// queries pass through unchanged.
func (a *Archive) rebind(query string) string {
	if a.driver != "sqlite" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			b.WriteByte('?')
			for i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
				i++
			}
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (a *Archive) isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "no such table") ||
		(strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist"))
}
