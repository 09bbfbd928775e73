// Package health provides periodic health checks with auto-recovery.
package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/islandcalc/islandcalc/internal/app/calculator"
	"github.com/islandcalc/islandcalc/internal/domain"
	"github.com/islandcalc/islandcalc/internal/infra/metrics"
	"github.com/islandcalc/islandcalc/internal/infra/sqlite"
)

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// PriceHolder is the part of pricefeed.Source the checker needs.
type PriceHolder interface {
	Price() (float64, bool)
	Refresh(ctx context.Context, force bool) (domain.PriceQuote, bool)
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// NewChecker creates a checker for the components that are configured.
// db and prices may be nil.
func NewChecker(db *sqlite.DB, dataDir string, prices PriceHolder, econ *calculator.Economy) *Checker {
	c := &Checker{interval: 60 * time.Second}

	c.checks = append(c.checks, Check{
		Name: "economy",
		CheckFn: func(ctx context.Context) error {
			return econ.Validate()
		},
	})
	c.checks = append(c.checks, Check{
		Name: "data_dir",
		CheckFn: func(ctx context.Context) error {
			return checkDataDir(dataDir)
		},
	})
	if db != nil {
		c.checks = append(c.checks, Check{
			Name: "sqlite",
			CheckFn: func(ctx context.Context) error {
				return db.Ping()
			},
			RecoverFn: func(ctx context.Context) error {
				return nil // SQLite auto-recovers via WAL
			},
		})
	}
	if prices != nil {
		c.checks = append(c.checks, Check{
			Name: "price_feed",
			CheckFn: func(ctx context.Context) error {
				if _, ok := prices.Price(); !ok {
					return errors.New("no known-good price yet")
				}
				return nil
			},
			RecoverFn: func(ctx context.Context) error {
				prices.Refresh(ctx, true)
				return nil
			},
		})
	}
	return c
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(0)
			log.WithField("component", "health").WithError(err).Warnf("check %s failed", check.Name)
			if check.RecoverFn != nil {
				_ = check.RecoverFn(ctx)
			}
		} else {
			s.Healthy = true
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(1)
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkDataDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // created on first write
		}
		return fmt.Errorf("check data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data path %s is not a directory", dir)
	}
	return nil
}
