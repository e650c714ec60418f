package trash

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Cleaner runs AutoCleanup on a cron schedule. Expiry of an id and its
// restoration serialize on the bin lock, so a scheduled cleanup can never
// race a foreground restore of the same id.
type Cleaner struct {
	bin      *Bin
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewCleaner creates a background cleaner for the bin. The schedule uses
// standard cron syntax, e.g. "0 3 * * *" for daily at 3 AM.
func NewCleaner(bin *Bin, schedule string, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		bin:      bin,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "trash.cleaner"),
	}
}

// Start begins scheduled cleanup. An empty schedule disables the cleaner.
func (c *Cleaner) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.schedule == "" {
		c.logger.Info("cleanup schedule not configured, skipping cleaner")
		return nil
	}

	if _, err := cron.ParseStandard(c.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", c.schedule, err)
	}

	if _, err := c.cron.AddFunc(c.schedule, c.runCleanup); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	c.cron.Start()
	c.running = true

	c.logger.Info("trash cleaner started",
		"schedule", c.schedule,
		"retention", c.bin.config.Retention,
	)

	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	return nil
}

// runCleanup executes one cleanup cycle.
func (c *Cleaner) runCleanup() {
	expired, err := c.bin.AutoCleanup(c.bin.config.Retention)
	if err != nil {
		c.logger.Error("scheduled cleanup failed", "error", err)
		return
	}
	if len(expired) > 0 {
		c.logger.Info("scheduled cleanup completed", "expired_count", len(expired))
	} else {
		c.logger.Debug("scheduled cleanup completed, nothing expired")
	}
}

// Stop stops the cleaner and waits for a running cleanup to complete.
func (c *Cleaner) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cron != nil && c.running {
		ctx := c.cron.Stop()
		<-ctx.Done()
		c.running = false
		c.logger.Info("trash cleaner stopped")
	}
}

// IsRunning returns true if the cleaner is running.
func (c *Cleaner) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// NextRun returns the next scheduled cleanup time.
func (c *Cleaner) NextRun() *time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
