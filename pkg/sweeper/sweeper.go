// Package sweeper evicts expired sessions and closed rate-limit windows
// on a cron schedule. Both stores already expire entries lazily on
// access; the sweeper bounds memory for users that never come back.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/lumiebot/lumie/pkg/logger"
)

// Target is a store that can evict entries expired as of now and report
// how many it removed.
type Target interface {
	Sweep(now time.Time) int
}

type Sweeper struct {
	expr    string
	gron    *gronx.Gronx
	targets map[string]Target
	clock   func() time.Time
}

// NewSweeper validates the cron expression up front so a bad schedule
// fails at startup rather than silently never firing.
func NewSweeper(expr string) (*Sweeper, error) {
	gron := gronx.New()
	if !gron.IsValid(expr) {
		return nil, fmt.Errorf("invalid sweep cron expression %q", expr)
	}
	return &Sweeper{
		expr:    expr,
		gron:    gron,
		targets: make(map[string]Target),
		clock:   time.Now,
	}, nil
}

// Register adds a named store to the sweep rotation. Not safe to call
// after Run has started.
func (s *Sweeper) Register(name string, target Target) {
	s.targets[name] = target
}

// SetClock overrides the time source.
func (s *Sweeper) SetClock(clock func() time.Time) {
	s.clock = clock
}

// Run blocks until ctx is done, sweeping all registered targets whenever
// the schedule is due. It checks once per minute, matching cron's
// minute-level resolution.
func (s *Sweeper) Run(ctx context.Context) {
	logger.InfoCF("sweeper", "Sweeper started", map[string]interface{}{
		"schedule": s.expr,
		"targets":  len(s.targets),
	})

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoC("sweeper", "Sweeper stopped")
			return
		case <-ticker.C:
			due, err := s.gron.IsDue(s.expr, s.clock())
			if err != nil {
				logger.ErrorCF("sweeper", "Schedule check failed", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}
			if due {
				s.SweepAll()
			}
		}
	}
}

// SweepAll evicts expired entries from every registered target.
func (s *Sweeper) SweepAll() {
	now := s.clock()
	for name, target := range s.targets {
		removed := target.Sweep(now)
		if removed > 0 {
			logger.InfoCF("sweeper", "Swept expired entries", map[string]interface{}{
				"target":  name,
				"removed": removed,
			})
		}
	}
}
