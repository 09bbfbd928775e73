package calculator

import (
	"math"

	"github.com/islandcalc/islandcalc/internal/domain"
)

// ─── Earn Rate ──────────────────────────────────────────────────────────────
// tokens per 1000 blooms, driven by staked amount

// EarnRate returns the rate for staked. The matched step-table rate is used
// except inside the interpolation band, where the rate rises linearly from
// FromRate to ToRate.
func (e *Economy) EarnRate(staked float64) float64 {
	staked = domain.ClampNonNegative(staked)

	matched := false
	rate := DefaultEarnRate
	for _, t := range e.EarnRates {
		if staked < t.Threshold {
			break
		}
		rate = t.Rate
		matched = true
	}
	if !matched {
		return DefaultEarnRate
	}

	if band := e.Interpolate; band.Contains(staked) {
		position := (staked - band.From) / (band.To - band.From)
		return band.FromRate + position*(band.ToRate-band.FromRate)
	}
	return rate
}

// ─── Cap ────────────────────────────────────────────────────────────────────
// cap = base + floor(multiplier × staked^exponent) + Σ bonus × count

// StakingCapBonus is the cap increase earned by staking alone.
func (e *Economy) StakingCapBonus(staked float64) int64 {
	staked = domain.ClampNonNegative(staked)
	if e.CapFormula == CapFormulaFlat || staked == 0 {
		return 0
	}
	return domain.FloorInt64(e.StakeBoostMultiplier * math.Pow(staked, e.StakeBoostExponent))
}

// MaxCap returns the cycle cap for a staked amount and set of owned boosts.
func (e *Economy) MaxCap(staked float64, boosts []domain.OwnedBoost) int64 {
	total := domain.SaturatingAdd(e.BaseCap, e.StakingCapBonus(staked))
	for _, b := range boosts {
		total = domain.SaturatingAdd(total, b.CapContribution())
	}
	return total
}

// ─── Projection ─────────────────────────────────────────────────────────────

// Project converts blooms into tokens for the daily and cycle windows,
// applying the cap. The daily cap is always one cycle-day's share of maxCap.
func (e *Economy) Project(p domain.PlayIntensityProfile, rate float64, maxCap int64, priceUSD float64) domain.Projection {
	priceUSD = domain.ClampNonNegative(priceUSD)

	dailyCap := float64(maxCap) / domain.CycleDays
	cycleCap := float64(maxCap)

	daily := capWindow(float64(p.BloomsPerDay)*rate/e.BloomsPerRateUnit, dailyCap, priceUSD)
	cycle := capWindow(float64(p.BloomsPerCycle)*rate/e.BloomsPerRateUnit, cycleCap, priceUSD)

	yearly := cycle.PostCap * e.CyclesPerYear
	return domain.Projection{
		Daily:  daily,
		Cycle:  cycle,
		Yearly: domain.YearlyYield{Tokens: yearly, USD: yearly * priceUSD},
	}
}

func capWindow(preCap, limit, priceUSD float64) domain.WindowYield {
	post := math.Min(preCap, limit)
	return domain.WindowYield{
		PreCap:  preCap,
		PostCap: post,
		USD:     post * priceUSD,
		Capped:  preCap > limit,
	}
}
