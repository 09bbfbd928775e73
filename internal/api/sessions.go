package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/islandcalc/islandcalc/internal/app/session"
	"github.com/islandcalc/islandcalc/internal/domain"
	"github.com/islandcalc/islandcalc/internal/infra/metrics"
)

// ─── Calculator Sessions (/api/sessions) ────────────────────────────────────

type sessionResponse struct {
	session.Session
	Results domain.Results `json:"results"`
}

type createSessionRequest struct {
	TokenPriceUSD *float64 `json:"token_price_usd,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := s.sessions.Create()
	metrics.SessionsCreated.Inc()
	s.trackSessions()

	// An explicit price wins; otherwise seed from the feed if it answers.
	switch {
	case req.TokenPriceUSD != nil:
		if updated, err := s.sessions.SetPrice(sess.ID, *req.TokenPriceUSD); err == nil {
			sess = updated
		}
	case s.prices != nil:
		if q, ok := s.prices.Refresh(r.Context(), false); ok {
			if updated, err := s.sessions.SetPrice(sess.ID, q.USD); err == nil {
				sess = updated
			}
		}
	}

	s.writeSession(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, sess)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var p session.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.sessions.Update(chi.URLParam(r, "id"), p)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sessions.Delete(id) {
		s.writeDomainError(w, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id))
		return
	}
	s.trackSessions()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddBoost(w http.ResponseWriter, r *http.Request) {
	var req boostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.sessions.AddBoost(chi.URLParam(r, "id"), req.Tier, req.Count)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, sess)
}

func (s *Server) handleRemoveBoost(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "boost index must be an integer")
		return
	}

	sess, err := s.sessions.RemoveBoost(chi.URLParam(r, "id"), index)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, sess)
}

// writeSession recomputes results for the session and writes both.
func (s *Server) writeSession(w http.ResponseWriter, status int, sess session.Session) {
	res, err := s.compute("session", sess.Inputs)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, status, sessionResponse{Session: sess, Results: res})
}

func (s *Server) trackSessions() {
	metrics.SessionsActive.Set(float64(s.sessions.Len()))
}
