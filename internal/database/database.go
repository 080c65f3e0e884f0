package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"postback-ingest-api/internal/models"
)

// DB wraps the database connection and provides methods for data access.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist.
// received_at is a storage-layer default; application code never sets it.
func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS postbacks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			partner TEXT NOT NULL,
			click_id TEXT,
			offer_id TEXT,
			goal TEXT,
			payout TEXT,
			currency TEXT,
			geo TEXT,
			gclid TEXT,
			transaction_id TEXT,
			status TEXT,
			ip TEXT,
			raw_query TEXT NOT NULL,
			dedup_key TEXT NOT NULL,
			received_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_dedup_key ON postbacks(dedup_key)`,
		`CREATE INDEX IF NOT EXISTS idx_partner ON postbacks(partner)`,
		`CREATE INDEX IF NOT EXISTS idx_click_id ON postbacks(click_id)`,
		`CREATE INDEX IF NOT EXISTS idx_received_at ON postbacks(received_at)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// InsertPostback persists one normalized postback row. Duplicate postbacks
// (same dedup key, typically a network retry) are suppressed by the unique
// index rather than erroring; the return value reports whether a new row was
// actually written.
func (db *DB) InsertPostback(ctx context.Context, p models.Postback) (inserted bool, err error) {
	query := `INSERT OR IGNORE INTO postbacks (
		partner, click_id, offer_id, goal, payout, currency, geo,
		gclid, transaction_id, status, ip, raw_query, dedup_key
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := db.conn.ExecContext(
		ctx,
		query,
		p.Partner,
		p.ClickID,
		p.OfferID,
		p.Goal,
		p.Payout,
		p.Currency,
		p.Geo,
		p.Gclid,
		p.TransactionID,
		p.Status,
		p.IP,
		p.RawQuery,
		p.DedupKey,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert postback: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

// RecentPostbacks returns the most recent rows, optionally filtered by
// partner, newest first.
func (db *DB) RecentPostbacks(ctx context.Context, partner string, limit int) ([]models.StoredPostback, error) {
	query := `SELECT id, partner, click_id, offer_id, goal, payout, currency, geo,
		gclid, transaction_id, status, ip, raw_query, dedup_key, received_at
		FROM postbacks`

	var args []interface{}
	if partner != "" {
		query += ` WHERE partner = ?`
		args = append(args, partner)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query postbacks: %w", err)
	}
	defer rows.Close()

	var postbacks []models.StoredPostback
	for rows.Next() {
		var p models.StoredPostback
		err := rows.Scan(
			&p.ID,
			&p.Partner,
			&p.ClickID,
			&p.OfferID,
			&p.Goal,
			&p.Payout,
			&p.Currency,
			&p.Geo,
			&p.Gclid,
			&p.TransactionID,
			&p.Status,
			&p.IP,
			&p.RawQuery,
			&p.DedupKey,
			&p.ReceivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan postback: %w", err)
		}
		postbacks = append(postbacks, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating postbacks: %w", err)
	}

	return postbacks, nil
}

// CountByPartner returns the number of stored postbacks per partner scheme.
func (db *DB) CountByPartner(ctx context.Context) ([]models.PartnerCount, error) {
	query := `SELECT partner, COUNT(*) FROM postbacks GROUP BY partner ORDER BY COUNT(*) DESC, partner`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count postbacks: %w", err)
	}
	defer rows.Close()

	var counts []models.PartnerCount
	for rows.Next() {
		var c models.PartnerCount
		if err := rows.Scan(&c.Partner, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan partner count: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating partner counts: %w", err)
	}

	return counts, nil
}
