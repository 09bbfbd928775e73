// Package calculator implements the play-to-earn and stake-to-earn formulas.
// All functions are pure: outputs depend only on the Economy tables and the
// inputs passed in.
package calculator

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/islandcalc/islandcalc/internal/domain"
)

// CapFormula selects how the cycle cap is derived.
type CapFormula string

const (
	// CapFormulaPower adds floor(multiplier × staked^exponent) to the cap.
	CapFormulaPower CapFormula = "power"
	// CapFormulaFlat uses base cap plus boost tiers only.
	CapFormulaFlat CapFormula = "flat"
)

// RateBand is a staked-amount range where the earn rate is linearly
// interpolated instead of read from the step table. To is exclusive.
type RateBand struct {
	From     float64 `yaml:"from" json:"from" validate:"gte=0"`
	To       float64 `yaml:"to" json:"to" validate:"gte=0"`
	FromRate float64 `yaml:"from_rate" json:"from_rate" validate:"gte=0"`
	ToRate   float64 `yaml:"to_rate" json:"to_rate" validate:"gte=0"`
}

// Contains reports whether staked falls in [From, To).
func (b RateBand) Contains(staked float64) bool {
	return b.To > b.From && staked >= b.From && staked < b.To
}

// Economy is the full set of reference tables and game-economy constants.
// It is never mutated after construction; sessions keep their own inputs.
type Economy struct {
	Intensities []domain.PlayIntensityProfile `yaml:"intensities" json:"intensities" validate:"required,dive"`
	BoostTiers  []domain.BoostTier            `yaml:"boost_tiers" json:"boost_tiers" validate:"required,dive"`
	StakeTiers  []domain.StakeRewardTier      `yaml:"stake_tiers" json:"stake_tiers" validate:"dive"`
	EarnRates   []domain.EarnRateTier         `yaml:"earn_rates" json:"earn_rates" validate:"required,dive"`
	Interpolate RateBand                      `yaml:"interpolate" json:"interpolate"`

	BaseCap              int64      `yaml:"base_cap" json:"base_cap" validate:"gte=0"`
	CapFormula           CapFormula `yaml:"cap_formula" json:"cap_formula" validate:"oneof=power flat"`
	StakeBoostMultiplier float64    `yaml:"stake_boost_multiplier" json:"stake_boost_multiplier" validate:"gte=0"`
	StakeBoostExponent   float64    `yaml:"stake_boost_exponent" json:"stake_boost_exponent" validate:"gte=0"`

	BloomsPerRateUnit float64 `yaml:"blooms_per_rate_unit" json:"blooms_per_rate_unit" validate:"gt=0"`
	CyclesPerYear     float64 `yaml:"cycles_per_year" json:"cycles_per_year" validate:"gt=0"`
}

// DefaultEarnRate applies when no earn-rate tier qualifies.
const DefaultEarnRate = 1.0

// DefaultEconomy returns the built-in tables. Each call returns fresh slices.
func DefaultEconomy() *Economy {
	return &Economy{
		Intensities: []domain.PlayIntensityProfile{
			{Key: domain.IntensityCasual, Name: "Casual", BloomsPerDay: 1500, BloomsPerCycle: 15000},
			{Key: domain.IntensityMedium, Name: "Medium", BloomsPerDay: 3000, BloomsPerCycle: 30000},
			{Key: domain.IntensityHigh, Name: "High", BloomsPerDay: 6000, BloomsPerCycle: 60000},
			{Key: domain.IntensitySuper, Name: "Super User", BloomsPerDay: 14000, BloomsPerCycle: 140000},
		},
		BoostTiers: []domain.BoostTier{
			{Key: domain.BoostTierNone, Name: "No Palm", CapBonus: 0},
			{Key: "iron", Name: "Iron Palm", CapBonus: 300},
			{Key: "bronze", Name: "Bronze Palm", CapBonus: 500},
			{Key: "silver", Name: "Silver Palm", CapBonus: 900},
			{Key: "gold", Name: "Gold Palm", CapBonus: 1700},
			{Key: "neon", Name: "Neon Palm", CapBonus: 3300},
			{Key: "ultra", Name: "Ultra Palm", CapBonus: 6400},
		},
		StakeTiers: []domain.StakeRewardTier{
			{Amount: 150, Reward: "Free Gacha Spin"},
			{Amount: 1000, Reward: "Bloom Reward"},
			{Amount: 7500, Reward: "Small Bloom Boost (1.2x for 60min)"},
			{Amount: 15000, Reward: "Medium Bloom Boost (1.5x for 30min)"},
			{Amount: 30000, Reward: "Large Bloom Boost (2.0x for 15min)"},
		},
		EarnRates: []domain.EarnRateTier{
			{Threshold: 0, Rate: 1},
			{Threshold: 10, Rate: 1.25},
			{Threshold: 100, Rate: 1.5},
			{Threshold: 1000, Rate: 2},
			{Threshold: 10000, Rate: 8},
			{Threshold: 100000, Rate: 30},
			{Threshold: 1000000, Rate: 60},
			{Threshold: 10000000, Rate: 360},
		},
		Interpolate:          RateBand{From: 1000, To: 10000, FromRate: 2, ToRate: 8},
		BaseCap:              100,
		CapFormula:           CapFormulaPower,
		StakeBoostMultiplier: 5,
		StakeBoostExponent:   0.36,
		BloomsPerRateUnit:    1000,
		CyclesPerYear:        36.5,
	}
}

// ─── Lookups ────────────────────────────────────────────────────────────────

// Intensity resolves a preset key. The custom key is built from
// customPerDay and never read from the shared table.
func (e *Economy) Intensity(key domain.IntensityKey, customPerDay int64) (domain.PlayIntensityProfile, error) {
	if key == domain.IntensityCustom {
		return domain.CustomIntensity(customPerDay), nil
	}
	for _, p := range e.Intensities {
		if p.Key == key {
			return p, nil
		}
	}
	return domain.PlayIntensityProfile{}, fmt.Errorf("%w: %q", domain.ErrUnknownIntensity, key)
}

// BoostTier resolves a boost tier by key.
func (e *Economy) BoostTier(key string) (domain.BoostTier, error) {
	for _, t := range e.BoostTiers {
		if t.Key == key {
			return t, nil
		}
	}
	return domain.BoostTier{}, fmt.Errorf("%w: %q", domain.ErrUnknownBoostTier, key)
}

// ─── Validation ─────────────────────────────────────────────────────────────

var validate = validator.New()

// Validate checks field constraints and table ordering.
func (e *Economy) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEconomyInvalid, err)
	}

	var errs []error
	seen := make(map[domain.IntensityKey]bool)
	for _, p := range e.Intensities {
		if p.Key == domain.IntensityCustom {
			errs = append(errs, errors.New("intensity \"custom\" is derived from session input and cannot be a preset"))
		}
		if seen[p.Key] {
			errs = append(errs, fmt.Errorf("duplicate intensity %q", p.Key))
		}
		seen[p.Key] = true
	}

	tiers := make(map[string]bool)
	for _, t := range e.BoostTiers {
		if tiers[t.Key] {
			errs = append(errs, fmt.Errorf("duplicate boost tier %q", t.Key))
		}
		tiers[t.Key] = true
	}

	for i := 1; i < len(e.EarnRates); i++ {
		if e.EarnRates[i].Threshold <= e.EarnRates[i-1].Threshold {
			errs = append(errs, fmt.Errorf("earn rate thresholds must ascend (index %d)", i))
		}
	}
	for i := 1; i < len(e.StakeTiers); i++ {
		if e.StakeTiers[i].Amount <= e.StakeTiers[i-1].Amount {
			errs = append(errs, fmt.Errorf("stake tier amounts must ascend (index %d)", i))
		}
	}

	if e.Interpolate.To != 0 && e.Interpolate.To <= e.Interpolate.From {
		errs = append(errs, errors.New("interpolate.to must be greater than interpolate.from"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrEconomyInvalid, errors.Join(errs...))
	}
	return nil
}
