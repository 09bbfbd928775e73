// Package session holds per-user calculator inputs in memory.
// Sessions live in an expiring LRU; nothing is written to disk.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/islandcalc/islandcalc/internal/app/calculator"
	"github.com/islandcalc/islandcalc/internal/domain"
)

// Session is one user's calculator state.
type Session struct {
	ID        string                  `json:"id"`
	Inputs    domain.CalculatorInputs `json:"inputs"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func (s *Session) clone() Session {
	out := *s
	out.Inputs = s.Inputs.Clone()
	return out
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	TokenPriceUSD       *float64             `json:"token_price_usd,omitempty"`
	Intensity           *domain.IntensityKey `json:"intensity,omitempty"`
	CustomBloomsPerDay  *int64               `json:"custom_blooms_per_day,omitempty"`
	StakedAmount        *float64             `json:"staked_amount,omitempty"`
	CompoundRatePercent *int                 `json:"compound_rate_percent,omitempty"`
}

// Store keeps sessions keyed by a random UUID.
type Store struct {
	econ *calculator.Economy

	mu  sync.Mutex // serializes read-modify-write on entries
	lru *expirable.LRU[string, *Session]
	now func() time.Time
}

// NewStore creates a store holding at most size sessions, each evicted after
// ttl without activity.
func NewStore(econ *calculator.Economy, size int, ttl time.Duration) *Store {
	return &Store{
		econ: econ,
		lru:  expirable.NewLRU[string, *Session](size, nil, ttl),
		now:  time.Now,
	}
}

// Create starts a session with default inputs.
func (s *Store) Create() Session {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Inputs:    domain.DefaultInputs(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.lru.Add(sess.ID, sess)
	s.mu.Unlock()
	return sess.clone()
}

// Get returns a copy of the session and refreshes its idle timer.
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	s.lru.Add(id, sess)
	return sess.clone(), nil
}

// Delete ends a session. Reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Remove(id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Update applies a patch. All values are clamped; an unknown intensity key
// rejects the whole patch.
func (s *Store) Update(id string, p Patch) (Session, error) {
	if p.Intensity != nil && *p.Intensity != domain.IntensityCustom {
		if _, err := s.econ.Intensity(*p.Intensity, 0); err != nil {
			return Session{}, err
		}
	}

	return s.mutate(id, func(in *domain.CalculatorInputs) error {
		if p.TokenPriceUSD != nil {
			in.TokenPriceUSD = domain.ClampNonNegative(*p.TokenPriceUSD)
		}
		if p.Intensity != nil {
			if *p.Intensity == domain.IntensityCustom && in.Intensity != domain.IntensityCustom {
				in.CustomBloomsPerDay = 0
			}
			in.Intensity = *p.Intensity
		}
		if p.CustomBloomsPerDay != nil {
			in.CustomBloomsPerDay = max(0, *p.CustomBloomsPerDay)
		}
		if p.StakedAmount != nil {
			in.StakedAmount = domain.ClampNonNegative(*p.StakedAmount)
		}
		if p.CompoundRatePercent != nil {
			in.CompoundRatePercent = domain.ClampPercent(*p.CompoundRatePercent)
		}
		return nil
	})
}

// SetPrice overwrites the session's token price.
func (s *Store) SetPrice(id string, priceUSD float64) (Session, error) {
	return s.Update(id, Patch{TokenPriceUSD: &priceUSD})
}

// AddBoost appends a holding. Selecting the placeholder tier or a count
// below one is a no-op, matching the add button's behaviour.
func (s *Store) AddBoost(id, tierKey string, count int64) (Session, error) {
	tier, err := s.econ.BoostTier(tierKey)
	if err != nil {
		return Session{}, err
	}
	return s.mutate(id, func(in *domain.CalculatorInputs) error {
		if count < 1 || tier.Key == domain.BoostTierNone {
			return nil
		}
		in.Boosts = append(in.Boosts, domain.OwnedBoost{Tier: tier, Count: count})
		return nil
	})
}

// RemoveBoost deletes the holding at index.
func (s *Store) RemoveBoost(id string, index int) (Session, error) {
	return s.mutate(id, func(in *domain.CalculatorInputs) error {
		if index < 0 || index >= len(in.Boosts) {
			return fmt.Errorf("%w: %d (have %d)", domain.ErrBoostIndexInvalid, index, len(in.Boosts))
		}
		in.Boosts = append(in.Boosts[:index:index], in.Boosts[index+1:]...)
		return nil
	})
}

// Compute returns the session with its freshly derived results.
func (s *Store) Compute(id string) (Session, domain.Results, error) {
	sess, err := s.Get(id)
	if err != nil {
		return Session{}, domain.Results{}, err
	}
	res, err := calculator.ComputeAll(s.econ, sess.Inputs)
	if err != nil {
		return Session{}, domain.Results{}, err
	}
	return sess, res, nil
}

func (s *Store) mutate(id string, fn func(in *domain.CalculatorInputs) error) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}

	inputs := sess.Inputs.Clone()
	if err := fn(&inputs); err != nil {
		return Session{}, err
	}

	next := &Session{
		ID:        sess.ID,
		Inputs:    inputs,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: s.now(),
	}
	s.lru.Add(id, next)
	return next.clone(), nil
}

func (s *Store) lookup(id string) (*Session, error) {
	sess, ok := s.lru.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return sess, nil
}
