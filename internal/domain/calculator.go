// Package domain holds the calculator's data model: reference-table rows,
// per-session inputs and the derived results.
// Everything here is plain data; formulas live in app/calculator.
package domain

import "math"

// ─── Reference Tables ───────────────────────────────────────────────────────

// IntensityKey names a play-intensity preset.
type IntensityKey string

const (
	IntensityCasual IntensityKey = "casual"
	IntensityMedium IntensityKey = "medium"
	IntensityHigh   IntensityKey = "high"
	IntensitySuper  IntensityKey = "super"
	IntensityCustom IntensityKey = "custom"
)

// CycleDays is the length of an earnings cycle.
const CycleDays = 10

// PlayIntensityProfile describes how many blooms a player produces.
type PlayIntensityProfile struct {
	Key            IntensityKey `json:"key" yaml:"key" validate:"required"`
	Name           string       `json:"name" yaml:"name" validate:"required"`
	BloomsPerDay   int64        `json:"blooms_per_day" yaml:"blooms_per_day" validate:"gte=0"`
	BloomsPerCycle int64        `json:"blooms_per_cycle" yaml:"blooms_per_cycle" validate:"gte=0"`
}

// CustomIntensity builds the custom profile from a user-supplied daily count.
// Negative input is clamped to zero.
func CustomIntensity(bloomsPerDay int64) PlayIntensityProfile {
	if bloomsPerDay < 0 {
		bloomsPerDay = 0
	}
	return PlayIntensityProfile{
		Key:            IntensityCustom,
		Name:           "Custom",
		BloomsPerDay:   bloomsPerDay,
		BloomsPerCycle: SaturatingMul(bloomsPerDay, CycleDays),
	}
}

// BoostTierNone is the placeholder palm tier. It can be selected but never owned.
const BoostTierNone = "none"

// BoostTier is a palm-equivalent item that raises the cycle cap.
type BoostTier struct {
	Key      string `json:"key" yaml:"key" validate:"required"`
	Name     string `json:"name" yaml:"name" validate:"required"`
	CapBonus int64  `json:"cap_bonus" yaml:"cap_bonus" validate:"gte=0"`
}

// OwnedBoost is a quantity of one boost tier held by the player.
type OwnedBoost struct {
	Tier  BoostTier `json:"tier"`
	Count int64     `json:"count"`
}

// CapContribution returns how much this holding adds to the cycle cap.
func (b OwnedBoost) CapContribution() int64 {
	if b.Count < 1 {
		return 0
	}
	return SaturatingMul(b.Tier.CapBonus, b.Count)
}

// StakeRewardTier is a reward unlocked by staking at least Amount tokens.
type StakeRewardTier struct {
	Amount float64 `json:"amount" yaml:"amount" validate:"gte=0"`
	Reward string  `json:"reward" yaml:"reward" validate:"required"`
}

// EarnRateTier maps a staked-amount threshold to tokens per 1000 blooms.
type EarnRateTier struct {
	Threshold float64 `json:"threshold" yaml:"threshold" validate:"gte=0"`
	Rate      float64 `json:"rate" yaml:"rate" validate:"gt=0"`
}

// ─── Session Inputs ─────────────────────────────────────────────────────────

// Default input values for a fresh session.
const (
	DefaultTokenPriceUSD       = 0.05
	DefaultIntensity           = IntensityCasual
	DefaultCompoundRatePercent = 100
)

// CalculatorInputs is the mutable, session-scoped input set.
type CalculatorInputs struct {
	TokenPriceUSD       float64      `json:"token_price_usd"`
	Intensity           IntensityKey `json:"intensity"`
	CustomBloomsPerDay  int64        `json:"custom_blooms_per_day"`
	Boosts              []OwnedBoost `json:"boosts"`
	StakedAmount        float64      `json:"staked_amount"`
	CompoundRatePercent int          `json:"compound_rate_percent"`
}

// DefaultInputs returns the inputs a new session starts with.
func DefaultInputs() CalculatorInputs {
	return CalculatorInputs{
		TokenPriceUSD:       DefaultTokenPriceUSD,
		Intensity:           DefaultIntensity,
		Boosts:              []OwnedBoost{},
		CompoundRatePercent: DefaultCompoundRatePercent,
	}
}

// Clamp coerces every numeric field into its valid range.
// Counts below one are dropped from the boost list.
func (in CalculatorInputs) Clamp() CalculatorInputs {
	out := in
	out.TokenPriceUSD = ClampNonNegative(in.TokenPriceUSD)
	out.StakedAmount = ClampNonNegative(in.StakedAmount)
	out.CompoundRatePercent = ClampPercent(in.CompoundRatePercent)
	if out.CustomBloomsPerDay < 0 {
		out.CustomBloomsPerDay = 0
	}
	if out.Intensity == "" {
		out.Intensity = DefaultIntensity
	}

	boosts := make([]OwnedBoost, 0, len(in.Boosts))
	for _, b := range in.Boosts {
		if b.Count < 1 || b.Tier.Key == BoostTierNone {
			continue
		}
		boosts = append(boosts, b)
	}
	out.Boosts = boosts
	return out
}

// Clone returns a deep copy so callers cannot alias the boost list.
func (in CalculatorInputs) Clone() CalculatorInputs {
	out := in
	out.Boosts = append([]OwnedBoost(nil), in.Boosts...)
	if out.Boosts == nil {
		out.Boosts = []OwnedBoost{}
	}
	return out
}

// ClampNonNegative maps negatives and NaN to zero and +Inf to the largest
// finite value.
func ClampNonNegative(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	}
	return v
}

// ClampPercent bounds v to [0, 100].
func ClampPercent(v int) int {
	return max(0, min(v, 100))
}

// ─── Results ────────────────────────────────────────────────────────────────

// WindowYield is the yield for one time window.
type WindowYield struct {
	PreCap  float64 `json:"pre_cap"`
	PostCap float64 `json:"post_cap"`
	USD     float64 `json:"usd"`
	Capped  bool    `json:"capped"`
}

// YearlyYield extrapolates the post-cap cycle yield over a year.
type YearlyYield struct {
	Tokens float64 `json:"tokens"`
	USD    float64 `json:"usd"`
}

// Projection is the play-to-earn estimate for the daily and cycle windows.
type Projection struct {
	Daily  WindowYield `json:"daily"`
	Cycle  WindowYield `json:"cycle"`
	Yearly YearlyYield `json:"yearly"`
}

// StakeSummary is the stake-to-earn view of a staked amount.
type StakeSummary struct {
	StakedAmount  float64           `json:"staked_amount"`
	ValueUSD      float64           `json:"value_usd"`
	Unlocked      []StakeRewardTier `json:"unlocked"`
	Next          *StakeRewardTier  `json:"next,omitempty"`
	NeededForNext float64           `json:"needed_for_next"`
	MaxTier       bool              `json:"max_tier"`
}

// Results is everything derived from one CalculatorInputs snapshot.
type Results struct {
	Intensity       PlayIntensityProfile `json:"intensity"`
	EarnRate        float64              `json:"earn_rate"`
	RateBoost       float64              `json:"rate_boost"`
	StakingCapBonus int64                `json:"staking_cap_bonus"`
	MaxCap          int64                `json:"max_cap"`
	Projection      Projection           `json:"projection"`
	Stake           StakeSummary         `json:"stake"`
	TokenPriceUSD   float64              `json:"token_price_usd"`
}

// ─── Saturating Arithmetic ──────────────────────────────────────────────────
// Counts and caps are non-negative and stop at math.MaxInt64 instead of
// wrapping.

// SaturatingAdd adds two non-negative values, stopping at math.MaxInt64.
func SaturatingAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// SaturatingMul multiplies two non-negative values, stopping at math.MaxInt64.
func SaturatingMul(a, b int64) int64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

// FloorInt64 floors v into [0, math.MaxInt64]. NaN reads as zero.
func FloorInt64(v float64) int64 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	}
	return int64(math.Floor(v))
}
