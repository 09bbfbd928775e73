package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/islandcalc/islandcalc/internal/app/calculator"
	"github.com/islandcalc/islandcalc/internal/domain"
)

func init() {
	stakeCmd.Flags().Float64Var(&stakeAmount, "stake", 0, "Staked ISLAND amount")
	stakeCmd.Flags().Float64Var(&stakePrice, "price", domain.DefaultTokenPriceUSD, "Token price in USD")
	stakeCmd.Flags().BoolVar(&stakeFetch, "fetch-price", false, "Fetch the spot price from the feed")
	stakeCmd.Flags().BoolVar(&stakeJSON, "json", false, "Print the summary as JSON")
	rootCmd.AddCommand(stakeCmd)
}

var (
	stakeAmount float64
	stakePrice  float64
	stakeFetch  bool
	stakeJSON   bool
)

var stakeCmd = &cobra.Command{
	Use:   "stake",
	Short: "Show unlocked staking reward tiers and the next one",
	RunE:  runStake,
}

func runStake(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	econ, err := calculator.LoadEconomy(cfg.Economy.File)
	if err != nil {
		return err
	}

	staked := domain.ClampNonNegative(stakeAmount)
	price := domain.ClampNonNegative(resolvePrice(cmd.Context(), cfg, stakePrice, stakeFetch))
	sum := econ.StakeSummary(staked, price)

	out := cmd.OutOrStdout()
	if stakeJSON {
		return writeJSON(out, sum)
	}

	fmt.Fprintf(out, "Staked:     %s ISLAND (%s)\n", fmtTokens(sum.StakedAmount), fmtUSD(sum.ValueUSD))
	fmt.Fprintf(out, "Earn rate:  %s\n", fmtRate(econ.EarnRate(staked)))
	switch {
	case sum.MaxTier:
		fmt.Fprintln(out, "Next tier:  all tiers unlocked")
	case sum.Next != nil:
		fmt.Fprintf(out, "Next tier:  %s at %s (stake %s more)\n",
			sum.Next.Reward, humanize.Commaf(sum.Next.Amount), fmtTokens(sum.NeededForNext))
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AMOUNT\tREWARD\tSTATUS")
	for _, t := range econ.StakeTiers {
		status := "locked"
		if staked >= t.Amount {
			status = "unlocked"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", humanize.Commaf(t.Amount), t.Reward, status)
	}
	return w.Flush()
}
