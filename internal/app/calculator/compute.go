package calculator

import "github.com/islandcalc/islandcalc/internal/domain"

// ComputeAll derives every output from one input snapshot. Inputs are
// clamped first, so the only error is an unknown intensity key.
func ComputeAll(e *Economy, in domain.CalculatorInputs) (domain.Results, error) {
	in = in.Clamp()

	profile, err := e.Intensity(in.Intensity, in.CustomBloomsPerDay)
	if err != nil {
		return domain.Results{}, err
	}

	rate := e.EarnRate(in.StakedAmount)
	maxCap := e.MaxCap(in.StakedAmount, in.Boosts)

	return domain.Results{
		Intensity:       profile,
		EarnRate:        rate,
		RateBoost:       rate - DefaultEarnRate,
		StakingCapBonus: e.StakingCapBonus(in.StakedAmount),
		MaxCap:          maxCap,
		Projection:      e.Project(profile, rate, maxCap, in.TokenPriceUSD),
		Stake:           e.StakeSummary(in.StakedAmount, in.TokenPriceUSD),
		TokenPriceUSD:   in.TokenPriceUSD,
	}, nil
}
