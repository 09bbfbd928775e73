package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/islandcalc/islandcalc/internal/domain"
)

// ─── Spot Price (/api/price) ────────────────────────────────────────────────

type priceResponse struct {
	Quote     domain.PriceQuote `json:"quote"`
	Refreshed bool              `json:"refreshed"`
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	if s.prices == nil {
		s.writeDomainError(w, fmt.Errorf("%w: feed disabled", domain.ErrPriceUnavailable))
		return
	}

	q, ok := s.prices.Last()
	if !ok {
		q, ok = s.prices.Refresh(r.Context(), false)
	}
	if !ok {
		s.writeDomainError(w, domain.ErrPriceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{Quote: q})
}

func (s *Server) handleRefreshPrice(w http.ResponseWriter, r *http.Request) {
	if s.prices == nil {
		s.writeDomainError(w, fmt.Errorf("%w: feed disabled", domain.ErrPriceUnavailable))
		return
	}

	before, _ := s.prices.Last()
	q, ok := s.prices.Refresh(r.Context(), true)
	if !ok {
		s.writeDomainError(w, domain.ErrPriceUnavailable)
		return
	}
	// A failed refresh hands back the previous quote unchanged.
	writeJSON(w, http.StatusOK, priceResponse{
		Quote:     q,
		Refreshed: !q.FetchedAt.Equal(before.FetchedAt),
	})
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	if s.prices == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"quotes": []domain.PriceQuote{}})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, 500)
	}

	quotes, err := s.prices.History(limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"quotes": quotes})
}
