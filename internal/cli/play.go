package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/islandcalc/islandcalc/internal/app/calculator"
	"github.com/islandcalc/islandcalc/internal/domain"
	"github.com/islandcalc/islandcalc/internal/infra/metrics"
)

func init() {
	playCmd.Flags().Float64Var(&playPrice, "price", domain.DefaultTokenPriceUSD, "Token price in USD")
	playCmd.Flags().BoolVar(&playFetch, "fetch-price", false, "Fetch the spot price from the feed")
	playCmd.Flags().StringVar(&playIntensity, "intensity", string(domain.DefaultIntensity), "Play intensity: casual, medium, high, super, custom")
	playCmd.Flags().Int64Var(&playBlooms, "blooms", 0, "Blooms per day for --intensity custom")
	playCmd.Flags().StringArrayVar(&playBoosts, "boost", nil, "Palm holding as tier=count (repeatable)")
	playCmd.Flags().Float64Var(&playStake, "stake", 0, "Staked ISLAND amount")
	playCmd.Flags().IntVar(&playCompound, "compound", domain.DefaultCompoundRatePercent, "Compound rate percent (0-100)")
	playCmd.Flags().BoolVar(&playJSON, "json", false, "Print inputs and results as JSON")
	rootCmd.AddCommand(playCmd)
}

var (
	playPrice     float64
	playFetch     bool
	playIntensity string
	playBlooms    int64
	playBoosts    []string
	playStake     float64
	playCompound  int
	playJSON      bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Project daily, cycle and yearly earnings",
	Example: `  islandcalc play --intensity high --stake 5000
  islandcalc play --intensity custom --blooms 2500 --boost ultra=2 --fetch-price`,
	RunE: runPlay,
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	econ, err := calculator.LoadEconomy(cfg.Economy.File)
	if err != nil {
		return err
	}

	in := domain.DefaultInputs()
	in.Intensity = domain.IntensityKey(playIntensity)
	in.CustomBloomsPerDay = playBlooms
	in.StakedAmount = playStake
	in.CompoundRatePercent = playCompound
	for _, v := range playBoosts {
		b, err := parseBoost(econ, v)
		if err != nil {
			return err
		}
		in.Boosts = append(in.Boosts, b)
	}
	in.TokenPriceUSD = resolvePrice(cmd.Context(), cfg, playPrice, playFetch)
	in = in.Clamp()

	res, err := calculator.ComputeAll(econ, in)
	if err != nil {
		return err
	}
	metrics.Calculations.WithLabelValues("cli").Inc()

	out := cmd.OutOrStdout()
	if playJSON {
		return writeJSON(out, map[string]interface{}{"inputs": in, "results": res})
	}

	p := res.Intensity
	fmt.Fprintf(out, "Intensity:    %s (%s blooms/day, %s/cycle)\n",
		p.Name, humanize.Comma(p.BloomsPerDay), humanize.Comma(p.BloomsPerCycle))
	fmt.Fprintf(out, "Earn rate:    %s (+%s)\n", fmtRate(res.EarnRate), fmtRate(res.RateBoost))
	fmt.Fprintf(out, "Max cap:      %s tokens/cycle (staking +%s)\n",
		humanize.Comma(res.MaxCap), humanize.Comma(res.StakingCapBonus))
	fmt.Fprintf(out, "Token price:  %s\n\n", fmtPrice(res.TokenPriceUSD))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WINDOW\tPRE-CAP\tEARNED\tUSD\tCAPPED")
	for _, row := range []struct {
		name string
		y    domain.WindowYield
	}{{"Daily", res.Projection.Daily}, {"Cycle", res.Projection.Cycle}} {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			row.name, fmtTokens(row.y.PreCap), fmtTokens(row.y.PostCap), fmtUSD(row.y.USD), yesNo(row.y.Capped))
	}
	fmt.Fprintf(w, "Yearly\t\t%s\t%s\t\n",
		fmtTokens(res.Projection.Yearly.Tokens), fmtUSD(res.Projection.Yearly.USD))
	return w.Flush()
}
