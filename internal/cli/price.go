package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/islandcalc/islandcalc/internal/domain"
)

func init() {
	priceCmd.Flags().IntVar(&priceHistory, "history", 0, "Show the last N recorded quotes instead of fetching")
	priceCmd.Flags().BoolVar(&priceJSON, "json", false, "Print as JSON")
	rootCmd.AddCommand(priceCmd)
}

var (
	priceHistory int
	priceJSON    bool
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Fetch the ISLAND spot price or show recorded quotes",
	RunE:  runPrice,
}

func runPrice(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db := openQuoteLog(cfg)
	if db != nil {
		defer db.Close()
	}
	out := cmd.OutOrStdout()

	if priceHistory > 0 {
		if db == nil {
			return fmt.Errorf("quote log unavailable in %s", cfg.Storage.Dir)
		}
		quotes, err := db.RecentQuotes(cfg.PriceFeed.TokenID, priceHistory)
		if err != nil {
			return err
		}
		if priceJSON {
			return writeJSON(out, quotes)
		}
		if len(quotes) == 0 {
			fmt.Fprintln(out, "No quotes recorded yet. Run 'islandcalc price' to fetch one.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FETCHED\tTOKEN\tUSD")
		for _, q := range quotes {
			fmt.Fprintf(w, "%s\t%s\t%s\n", humanize.Time(q.FetchedAt), q.TokenID, fmtPrice(q.USD))
		}
		return w.Flush()
	}

	q, ok := fetchPrice(cmd.Context(), cfg, db)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, cfg.PriceFeed.TokenID)
	}
	if priceJSON {
		return writeJSON(out, q)
	}
	fmt.Fprintf(out, "%s: %s\n", q.TokenID, fmtPrice(q.USD))
	return nil
}
