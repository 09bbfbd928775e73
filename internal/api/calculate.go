package api

import (
	"encoding/json"
	"net/http"

	"github.com/islandcalc/islandcalc/internal/app/calculator"
	"github.com/islandcalc/islandcalc/internal/domain"
	"github.com/islandcalc/islandcalc/internal/infra/metrics"
)

// ─── Reference Tables (/api/tables) ─────────────────────────────────────────

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.econ)
}

// ─── Stateless Calculation (/api/calculate) ─────────────────────────────────

// boostRequest names a tier by key instead of embedding the whole tier.
type boostRequest struct {
	Tier  string `json:"tier"`
	Count int64  `json:"count"`
}

// inputsRequest is the wire form of CalculatorInputs. Missing fields take
// the calculator defaults.
type inputsRequest struct {
	TokenPriceUSD       *float64             `json:"token_price_usd"`
	Intensity           *domain.IntensityKey `json:"intensity"`
	CustomBloomsPerDay  *int64               `json:"custom_blooms_per_day"`
	Boosts              []boostRequest       `json:"boosts"`
	StakedAmount        *float64             `json:"staked_amount"`
	CompoundRatePercent *int                 `json:"compound_rate_percent"`
}

func (req inputsRequest) toInputs(econ *calculator.Economy) (domain.CalculatorInputs, error) {
	in := domain.DefaultInputs()
	if req.TokenPriceUSD != nil {
		in.TokenPriceUSD = *req.TokenPriceUSD
	}
	if req.Intensity != nil {
		in.Intensity = *req.Intensity
	}
	if req.CustomBloomsPerDay != nil {
		in.CustomBloomsPerDay = *req.CustomBloomsPerDay
	}
	if req.StakedAmount != nil {
		in.StakedAmount = *req.StakedAmount
	}
	if req.CompoundRatePercent != nil {
		in.CompoundRatePercent = *req.CompoundRatePercent
	}
	for _, b := range req.Boosts {
		tier, err := econ.BoostTier(b.Tier)
		if err != nil {
			return domain.CalculatorInputs{}, err
		}
		in.Boosts = append(in.Boosts, domain.OwnedBoost{Tier: tier, Count: b.Count})
	}
	return in.Clamp(), nil
}

type calculateResponse struct {
	Inputs  domain.CalculatorInputs `json:"inputs"`
	Results domain.Results          `json:"results"`
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req inputsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	in, err := req.toInputs(s.econ)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	res, err := s.compute("api", in)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, calculateResponse{Inputs: in, Results: res})
}

// compute runs ComputeAll and records it.
func (s *Server) compute(source string, in domain.CalculatorInputs) (domain.Results, error) {
	res, err := calculator.ComputeAll(s.econ, in)
	if err != nil {
		return domain.Results{}, err
	}
	recordCalculation(source, res)
	return res, nil
}

func recordCalculation(source string, res domain.Results) {
	metrics.Calculations.WithLabelValues(source).Inc()
	if res.Projection.Cycle.Capped {
		metrics.CapBound.Inc()
	}
}
