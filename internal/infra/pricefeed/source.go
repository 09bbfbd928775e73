package pricefeed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"

	"github.com/islandcalc/islandcalc/internal/domain"
	"github.com/islandcalc/islandcalc/internal/infra/metrics"
)

// Source holds the last known-good price and refreshes it fail-soft.
// A failed refresh is logged and leaves the held price unchanged.
type Source struct {
	fetcher Fetcher
	tokenID string
	store   domain.QuoteStore // optional quote log
	cache   *expirable.LRU[string, domain.PriceQuote]
	logger  *log.Entry

	mu   sync.RWMutex
	last domain.PriceQuote
	ok   bool
}

// NewSource wraps a fetcher. Successful quotes are reused for cacheTTL by
// non-forced refreshes (zero disables reuse); store may be nil.
func NewSource(fetcher Fetcher, tokenID string, store domain.QuoteStore, cacheTTL time.Duration) *Source {
	if tokenID == "" {
		tokenID = DefaultTokenID
	}
	s := &Source{
		fetcher: fetcher,
		tokenID: tokenID,
		store:   store,
		logger:  log.WithField("component", "pricefeed"),
	}
	if cacheTTL > 0 {
		s.cache = expirable.NewLRU[string, domain.PriceQuote](1, nil, cacheTTL)
	}
	return s
}

// Price returns the last known-good price. ok is false until the first
// successful fetch.
func (s *Source) Price() (price float64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last.USD, s.ok
}

// Last returns the last known-good quote.
func (s *Source) Last() (domain.PriceQuote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.ok
}

// Refresh fetches a new quote unless a cached one is still fresh and force is
// false. It never returns an error: ok reports whether the returned quote is
// usable, and on failure the previously held quote is returned.
func (s *Source) Refresh(ctx context.Context, force bool) (domain.PriceQuote, bool) {
	if !force && s.cache != nil {
		if q, hit := s.cache.Get(s.tokenID); hit {
			metrics.PriceFetches.WithLabelValues("cached").Inc()
			return q, true
		}
	}

	start := time.Now()
	q, err := s.fetcher.Fetch(ctx)
	metrics.PriceFetchLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, domain.ErrPriceThrottled):
			outcome = "throttled"
		case errors.Is(err, domain.ErrPriceCircuitOpen):
			outcome = "circuit_open"
		}
		metrics.PriceFetches.WithLabelValues(outcome).Inc()
		s.logger.WithError(err).Warn("price refresh failed, keeping last known price")
		return s.Last()
	}

	metrics.PriceFetches.WithLabelValues("ok").Inc()
	metrics.TokenPriceUSD.Set(q.USD)
	if s.cache != nil {
		s.cache.Add(s.tokenID, q)
	}

	s.mu.Lock()
	s.last = q
	s.ok = true
	s.mu.Unlock()

	if s.store != nil {
		if _, err := s.store.InsertQuote(q); err != nil {
			s.logger.WithError(err).Warn("record quote failed")
		}
	}

	s.logger.WithFields(log.Fields{"token": q.TokenID, "usd": q.USD}).Debug("price refreshed")
	return q, true
}

// History returns recently recorded quotes, newest first. Empty when no
// store is attached.
func (s *Source) History(limit int) ([]domain.PriceQuote, error) {
	if s.store == nil {
		return []domain.PriceQuote{}, nil
	}
	return s.store.RecentQuotes(s.tokenID, limit)
}
