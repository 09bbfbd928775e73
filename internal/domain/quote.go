package domain

import "time"

// PriceQuote is one spot price read from the external feed.
type PriceQuote struct {
	TokenID   string    `json:"token_id"`
	USD       float64   `json:"usd"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// QuoteStore records fetched quotes. Implemented by infra/sqlite.
type QuoteStore interface {
	InsertQuote(q PriceQuote) (int64, error)
	RecentQuotes(tokenID string, limit int) ([]PriceQuote, error)
}
