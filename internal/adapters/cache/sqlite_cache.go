package cache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/phish-guard/internal/core"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of the CacheRepository interface
type SQLiteCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS verdict_cache (
			sender TEXT PRIMARY KEY,
			score INTEGER,
			risk_level TEXT,
			confidence_text TEXT,
			used_remote BOOLEAN,
			reasons TEXT,
			ml_score REAL,
			ml_confidence REAL,
			last_seen TIMESTAMP,
			expires_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_verdict_expires_at ON verdict_cache(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	cache := &SQLiteCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go cache.startCleanupTask()

	return cache, nil
}

// Get retrieves a cached verdict for a sender
func (c *SQLiteCache) Get(sender string) (*core.ScoringResult, bool) {
	var result core.ScoringResult
	var riskLevel, reasons string

	err := c.db.QueryRow(`
		SELECT score, risk_level, confidence_text, used_remote, reasons, ml_score, ml_confidence
		FROM verdict_cache
		WHERE sender = ? AND expires_at > datetime('now')
	`, sender).Scan(&result.Score, &riskLevel, &result.ConfidenceText, &result.UsedRemote,
		&reasons, &result.Details.MLScore, &result.Details.MLConfidence)

	if err != nil {
		if err != sql.ErrNoRows {
			c.logger.Error("Failed to query cache", zap.Error(err), zap.String("sender", sender))
		}
		return nil, false
	}

	result.RiskLevel = core.RiskLevel(riskLevel)
	result.Reasons = strings.Split(reasons, "\n")
	result.Details.UsedAI = result.UsedRemote

	return &result, true
}

// Set stores a verdict for a sender
func (c *SQLiteCache) Set(sender string, result *core.ScoringResult, ttl time.Duration) {
	expiresAt := time.Now().Add(ttl)

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO verdict_cache
			(sender, score, risk_level, confidence_text, used_remote, reasons, ml_score, ml_confidence, last_seen, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sender, result.Score, string(result.RiskLevel), result.ConfidenceText, result.UsedRemote,
		strings.Join(result.Reasons, "\n"), result.Details.MLScore, result.Details.MLConfidence,
		time.Now().Format(time.RFC3339), expiresAt.Format(time.RFC3339))

	if err != nil {
		c.logger.Error("Failed to insert cache entry", zap.Error(err), zap.String("sender", sender))
	}
}

// Delete removes a cached verdict
func (c *SQLiteCache) Delete(ctx context.Context, sender string) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM verdict_cache
		WHERE sender = ?
	`, sender)

	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

// Cleanup removes expired entries
func (c *SQLiteCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM verdict_cache
		WHERE expires_at <= datetime('now')
	`)

	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *SQLiteCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (c *SQLiteCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
