package sqlite

import (
	"fmt"
	"time"

	"github.com/islandcalc/islandcalc/internal/domain"
)

// ─── Price Quotes ───────────────────────────────────────────────────────────

// InsertQuote appends a fetched quote to the log.
func (d *DB) InsertQuote(q domain.PriceQuote) (int64, error) {
	result, err := d.db.Exec(
		`INSERT INTO price_quotes (token_id, usd, source, fetched_at) VALUES (?, ?, ?, ?)`,
		q.TokenID, q.USD, q.Source, q.FetchedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert quote: %w", err)
	}
	return result.LastInsertId()
}

// RecentQuotes returns up to limit quotes for a token, newest first.
func (d *DB) RecentQuotes(tokenID string, limit int) ([]domain.PriceQuote, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.Query(
		`SELECT token_id, usd, source, fetched_at
		 FROM price_quotes WHERE token_id = ? ORDER BY id DESC LIMIT ?`,
		tokenID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotes := []domain.PriceQuote{}
	for rows.Next() {
		var q domain.PriceQuote
		var fetchedAt int64
		if err := rows.Scan(&q.TokenID, &q.USD, &q.Source, &fetchedAt); err != nil {
			return nil, err
		}
		q.FetchedAt = time.UnixMilli(fetchedAt).UTC()
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// PruneQuotes keeps only the newest keep quotes per token.
func (d *DB) PruneQuotes(tokenID string, keep int) (int64, error) {
	result, err := d.db.Exec(
		`DELETE FROM price_quotes WHERE token_id = ? AND id NOT IN (
			SELECT id FROM price_quotes WHERE token_id = ? ORDER BY id DESC LIMIT ?
		)`,
		tokenID, tokenID, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune quotes: %w", err)
	}
	return result.RowsAffected()
}
