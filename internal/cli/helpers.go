package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/islandcalc/islandcalc/internal/app/calculator"
	"github.com/islandcalc/islandcalc/internal/daemon"
	"github.com/islandcalc/islandcalc/internal/domain"
	"github.com/islandcalc/islandcalc/internal/infra/pricefeed"
	"github.com/islandcalc/islandcalc/internal/infra/sqlite"
)

// parseBoost parses a "tier=count" flag value. A bare tier means one palm.
func parseBoost(econ *calculator.Economy, v string) (domain.OwnedBoost, error) {
	key, countStr, hasCount := strings.Cut(v, "=")
	count := int64(1)
	if hasCount {
		n, err := strconv.ParseInt(strings.TrimSpace(countStr), 10, 64)
		if err != nil {
			return domain.OwnedBoost{}, fmt.Errorf("boost %q: count must be an integer", v)
		}
		count = n
	}
	tier, err := econ.BoostTier(strings.ToLower(strings.TrimSpace(key)))
	if err != nil {
		return domain.OwnedBoost{}, err
	}
	return domain.OwnedBoost{Tier: tier, Count: count}, nil
}

// openQuoteLog opens the quote log; failure only disables recording.
func openQuoteLog(cfg daemon.Config) *sqlite.DB {
	db, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		log.WithField("component", "cli").WithError(err).Warn("quote log unavailable")
		return nil
	}
	return db
}

// fetchPrice performs one fail-soft price fetch, recording the quote when
// db is non-nil.
func fetchPrice(ctx context.Context, cfg daemon.Config, db *sqlite.DB) (domain.PriceQuote, bool) {
	client := pricefeed.NewClient(cfg.PriceFeed.ClientConfig())
	var store domain.QuoteStore
	if db != nil {
		store = db
	}
	src := pricefeed.NewSource(client, client.TokenID(), store, 0)

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return src.Refresh(ctx, true)
}

// resolvePrice returns the --price value, or a fetched price when
// --fetch-price is set and the feed answers.
func resolvePrice(ctx context.Context, cfg daemon.Config, flagPrice float64, fetch bool) float64 {
	if !fetch {
		return flagPrice
	}
	db := openQuoteLog(cfg)
	if db != nil {
		defer db.Close()
	}
	if q, ok := fetchPrice(ctx, cfg, db); ok {
		return q.USD
	}
	log.WithField("component", "cli").Warnf("price feed unavailable, using $%g", flagPrice)
	return flagPrice
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ─── Formatting ─────────────────────────────────────────────────────────────

func fmtTokens(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

func fmtUSD(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func fmtPrice(v float64) string {
	return "$" + humanize.FormatFloat("#,###.####", v)
}

func fmtRate(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "x"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
