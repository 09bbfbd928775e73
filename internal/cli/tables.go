package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/islandcalc/islandcalc/internal/app/calculator"
)

func init() {
	tablesCmd.Flags().BoolVar(&tablesYAML, "yaml", false, "Print the tables as an economy YAML file")
	rootCmd.AddCommand(tablesCmd)
}

var tablesYAML bool

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Print the reference tables in effect",
	Long: `Print play intensities, palm boost tiers, earn-rate thresholds and
staking reward tiers. With --yaml the output is a valid --economy file.`,
	RunE: runTables,
}

func runTables(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	econ, err := calculator.LoadEconomy(cfg.Economy.File)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if tablesYAML {
		b, err := econ.YAML()
		if err != nil {
			return err
		}
		_, err = out.Write(b)
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "INTENSITY\tNAME\tBLOOMS/DAY\tBLOOMS/CYCLE")
	for _, p := range econ.Intensities {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Key, p.Name, humanize.Comma(p.BloomsPerDay), humanize.Comma(p.BloomsPerCycle))
	}
	fmt.Fprintln(w, "custom\tCustom\t(--blooms)\t10 x daily")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PALM\tNAME\tCAP BONUS\t")
	for _, b := range econ.BoostTiers {
		fmt.Fprintf(w, "%s\t%s\t+%s\t\n", b.Key, b.Name, humanize.Comma(b.CapBonus))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STAKED FROM\tEARN RATE\t\t")
	for _, t := range econ.EarnRates {
		fmt.Fprintf(w, "%s\t%s\t\t\n", humanize.Commaf(t.Threshold), fmtRate(t.Rate))
	}
	if econ.Interpolate.To > econ.Interpolate.From {
		fmt.Fprintf(w, "(%s to %s interpolates %s to %s)\t\t\t\n",
			humanize.Commaf(econ.Interpolate.From), humanize.Commaf(econ.Interpolate.To),
			fmtRate(econ.Interpolate.FromRate), fmtRate(econ.Interpolate.ToRate))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STAKE\tREWARD\t\t")
	for _, t := range econ.StakeTiers {
		fmt.Fprintf(w, "%s\t%s\t\t\n", humanize.Commaf(t.Amount), t.Reward)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	capRule := fmt.Sprintf("%d + floor(%g x stake^%g)", econ.BaseCap, econ.StakeBoostMultiplier, econ.StakeBoostExponent)
	if econ.CapFormula == calculator.CapFormulaFlat {
		capRule = fmt.Sprintf("%d", econ.BaseCap)
	}
	fmt.Fprintf(out, "\nCycle cap: %s + palm bonuses; daily cap is cycle cap / 10.\n", capRule)
	return nil
}
