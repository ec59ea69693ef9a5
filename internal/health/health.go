// Package health runs named readiness checks over the daemon's
// dependencies, from the database to the notification channels and the
// host's own resources.
package health

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// Status is the outcome of one check
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Result is one executed check
type Result struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Detail     string `json:"detail,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type check struct {
	name string
	fn   func(ctx context.Context) error
}

// Checker runs registered checks in registration order
type Checker struct {
	logger *zap.Logger
	checks []check
}

// NewChecker creates an empty checker
func NewChecker(logger *zap.Logger) *Checker {
	return &Checker{logger: logger.Named("health")}
}

// Register adds a named check
func (c *Checker) Register(name string, fn func(ctx context.Context) error) {
	c.checks = append(c.checks, check{name: name, fn: fn})
}

// Run executes every check and reports each outcome; a failing check
// never stops the others
func (c *Checker) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(c.checks))

	for _, chk := range c.checks {
		start := time.Now()
		err := chk.fn(ctx)

		result := Result{
			Name:       chk.name,
			Status:     StatusOK,
			DurationMS: time.Since(start).Milliseconds(),
		}
		if err != nil {
			result.Status = StatusFailed
			result.Detail = err.Error()
			c.logger.Warn("Health check failed",
				zap.String("check", chk.name),
				zap.Error(err))
		}
		results = append(results, result)
	}
	return results
}

// Healthy reports whether every check passes
func (c *Checker) Healthy(ctx context.Context) bool {
	for _, result := range c.Run(ctx) {
		if result.Status != StatusOK {
			return false
		}
	}
	return true
}

// DatabasePing verifies the database answers
func DatabasePing(db *sql.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database unreachable: %w", err)
		}
		return nil
	}
}

// ChannelsRegistered verifies every configured channel was built and
// registered with the dispatcher
func ChannelsRegistered(want []string, names func() []string) func(ctx context.Context) error {
	return func(context.Context) error {
		registered := make(map[string]struct{})
		for _, name := range names() {
			registered[name] = struct{}{}
		}

		var missing []string
		for _, name := range want {
			if _, ok := registered[name]; !ok {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("channels not registered: %s", strings.Join(missing, ", "))
		}
		return nil
	}
}

// SystemResources flags the host when CPU or memory usage is above the
// given percentage thresholds
func SystemResources(maxCPUPercent, maxMemoryPercent float64) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		cpuPercent, err := cpu.PercentWithContext(ctx, time.Second, false)
		if err != nil {
			return fmt.Errorf("failed to read CPU usage: %w", err)
		}
		if len(cpuPercent) > 0 && cpuPercent[0] > maxCPUPercent {
			return fmt.Errorf("CPU usage %.1f%% above limit %.1f%%", cpuPercent[0], maxCPUPercent)
		}

		memInfo, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to read memory usage: %w", err)
		}
		if memInfo.UsedPercent > maxMemoryPercent {
			return fmt.Errorf("memory usage %.1f%% above limit %.1f%%", memInfo.UsedPercent, maxMemoryPercent)
		}
		return nil
	}
}
