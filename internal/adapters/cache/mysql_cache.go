package cache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/phish-guard/internal/core"
	"go.uber.org/zap"
)

// MySQLCache is a MySQL implementation of the CacheRepository interface
type MySQLCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS verdict_cache (
			sender VARCHAR(255) PRIMARY KEY,
			score INT,
			risk_level VARCHAR(16),
			confidence_text TEXT,
			used_remote BOOLEAN,
			reasons TEXT,
			ml_score FLOAT,
			ml_confidence FLOAT,
			last_seen TIMESTAMP,
			expires_at TIMESTAMP,
			INDEX idx_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	cache := &MySQLCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go cache.startCleanupTask()

	return cache, nil
}

// Get retrieves a cached verdict for a sender
func (c *MySQLCache) Get(sender string) (*core.ScoringResult, bool) {
	var result core.ScoringResult
	var riskLevel, reasons string

	err := c.db.QueryRow(`
		SELECT score, risk_level, confidence_text, used_remote, reasons, ml_score, ml_confidence
		FROM verdict_cache
		WHERE sender = ? AND expires_at > NOW()
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
func (c *MySQLCache) Set(sender string, result *core.ScoringResult, ttl time.Duration) {
	now := time.Now()

	_, err := c.db.Exec(`
		INSERT INTO verdict_cache
			(sender, score, risk_level, confidence_text, used_remote, reasons, ml_score, ml_confidence, last_seen, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			score = VALUES(score),
			risk_level = VALUES(risk_level),
			confidence_text = VALUES(confidence_text),
			used_remote = VALUES(used_remote),
			reasons = VALUES(reasons),
			ml_score = VALUES(ml_score),
			ml_confidence = VALUES(ml_confidence),
			last_seen = VALUES(last_seen),
			expires_at = VALUES(expires_at)
	`, sender, result.Score, string(result.RiskLevel), result.ConfidenceText, result.UsedRemote,
		strings.Join(result.Reasons, "\n"), result.Details.MLScore, result.Details.MLConfidence,
		now.Format("2006-01-02 15:04:05"), now.Add(ttl).Format("2006-01-02 15:04:05"))

	if err != nil {
		c.logger.Error("Failed to insert cache entry", zap.Error(err), zap.String("sender", sender))
	}
}

// Delete removes a cached verdict
func (c *MySQLCache) Delete(ctx context.Context, sender string) error {
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
func (c *MySQLCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM verdict_cache
		WHERE expires_at <= NOW()
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
func (c *MySQLCache) startCleanupTask() {
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
func (c *MySQLCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
