package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/islandcalc/islandcalc/internal/api"
	"github.com/islandcalc/islandcalc/internal/app/calculator"
	"github.com/islandcalc/islandcalc/internal/app/session"
	"github.com/islandcalc/islandcalc/internal/health"
	"github.com/islandcalc/islandcalc/internal/infra/pricefeed"
	"github.com/islandcalc/islandcalc/internal/infra/sqlite"
)

// Daemon is the islandcalc server runtime. It wires together all services.
type Daemon struct {
	Config   Config
	DB       *sqlite.DB
	Economy  *calculator.Economy
	Prices   *pricefeed.Source // nil when the feed is disabled
	Sessions *session.Store
	Server   *api.Server
	Health   *health.Checker

	cron      *cron.Cron
	cancel    context.CancelFunc
	closeOnce sync.Once
	logger    *log.Entry
}

// New creates and initializes a Daemon from the default config file.
func New() (*Daemon, error) {
	cfg, err := LoadConfig("")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	logger := log.WithField("component", "daemon")

	econ, err := calculator.LoadEconomy(cfg.Economy.File)
	if err != nil {
		return nil, fmt.Errorf("load economy: %w", err)
	}

	db, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	logger.WithField("path", db.Path()).Debug("quote log ready")

	d := &Daemon{
		Config:  cfg,
		DB:      db,
		Economy: econ,
		logger:  logger,
	}

	// Price feed
	if cfg.PriceFeed.Enabled {
		client := pricefeed.NewClient(cfg.PriceFeed.ClientConfig())
		d.Prices = pricefeed.NewSource(client, client.TokenID(), db,
			parseDuration(cfg.PriceFeed.CacheTTL, time.Minute))
	} else {
		logger.Info("price feed disabled, sessions start at the default price")
	}

	// Sessions
	d.Sessions = session.NewStore(econ, cfg.Sessions.Max,
		parseDuration(cfg.Sessions.IdleTTL, 30*time.Minute))

	// API server
	var prices api.PriceSource
	if d.Prices != nil {
		prices = d.Prices
	}
	d.Server = api.NewServer(econ, d.Sessions, prices)
	d.Server.SetCORSOrigins(cfg.API.CORSOrigins)
	if cfg.API.Metrics {
		d.Server.EnableMetrics()
	}

	// Health checker
	var holder health.PriceHolder
	if d.Prices != nil {
		holder = d.Prices
	}
	d.Health = health.NewChecker(db, cfg.Storage.Dir, holder, econ)
	d.Server.SetHealth(d.Health)

	// Scheduled refresh
	if d.Prices != nil && cfg.PriceFeed.RefreshCron != "" {
		d.cron = cron.New()
		if _, err := d.cron.AddFunc(cfg.PriceFeed.RefreshCron, d.refreshJob); err != nil {
			db.Close()
			return nil, fmt.Errorf("schedule price refresh: %w", err)
		}
	}

	return d, nil
}

// refreshJob force-refreshes the price and trims the quote log.
func (d *Daemon) refreshJob() {
	ctx, cancel := context.WithTimeout(context.Background(),
		parseDuration(d.Config.PriceFeed.Timeout, 10*time.Second)+time.Second)
	defer cancel()

	if q, ok := d.Prices.Refresh(ctx, true); ok {
		d.logger.WithField("usd", q.USD).Debug("scheduled price refresh")
	}

	removed, err := d.DB.PruneQuotes(d.Config.PriceFeed.TokenID, d.Config.PriceFeed.HistoryKeep)
	if err != nil {
		d.logger.WithError(err).Warn("prune quote log failed")
		return
	}
	if removed > 0 {
		d.logger.WithField("removed", removed).Debug("pruned quote log")
	}
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Health checker (always runs)
	go d.Health.Run(ctx)

	// Warm the price so the first session does not wait on the feed
	if d.Prices != nil {
		go d.Prices.Refresh(ctx, false)
	}
	if d.cron != nil {
		d.cron.Start()
	}

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		d.logger.Info("shutting down")
		cancel()
		if d.cron != nil {
			<-d.cron.Stop().Done()
		}
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	d.logger.WithField("addr", addr).Infof("islandcalc serving on http://%s", addr)
	if d.Config.API.Metrics {
		d.logger.Infof("metrics: http://%s/metrics", addr)
	}

	err := httpServer.ListenAndServe()
	cancel()
	<-stopped // in-flight requests drain before the DB closes
	d.Close()
	if err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources. Safe to call more than once.
func (d *Daemon) Close() {
	d.closeOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		if d.DB != nil {
			_ = d.DB.Close()
		}
	})
}
