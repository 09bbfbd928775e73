package calculator

import "github.com/islandcalc/islandcalc/internal/domain"

// UnlockedTiers returns every stake reward tier whose amount is met, in
// ascending order. Never nil.
func (e *Economy) UnlockedTiers(staked float64) []domain.StakeRewardTier {
	staked = domain.ClampNonNegative(staked)
	out := []domain.StakeRewardTier{}
	for _, t := range e.StakeTiers {
		if staked >= t.Amount {
			out = append(out, t)
		}
	}
	return out
}

// NextTier returns the first tier not yet unlocked. ok is false once the
// top tier is reached.
func (e *Economy) NextTier(staked float64) (tier domain.StakeRewardTier, ok bool) {
	staked = domain.ClampNonNegative(staked)
	for _, t := range e.StakeTiers {
		if staked < t.Amount {
			return t, true
		}
	}
	return domain.StakeRewardTier{}, false
}

// StakeSummary builds the stake-to-earn view.
func (e *Economy) StakeSummary(staked, priceUSD float64) domain.StakeSummary {
	staked = domain.ClampNonNegative(staked)
	s := domain.StakeSummary{
		StakedAmount: staked,
		ValueUSD:     staked * domain.ClampNonNegative(priceUSD),
		Unlocked:     e.UnlockedTiers(staked),
	}
	if next, ok := e.NextTier(staked); ok {
		s.Next = &next
		s.NeededForNext = next.Amount - staked
	} else {
		s.MaxTier = true
	}
	return s
}
