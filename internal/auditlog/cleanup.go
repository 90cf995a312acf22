package auditlog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Retention deletes entries older than the retention window on a cron
// schedule.
type Retention struct {
	store LogStore
	days  int
	cron  *cron.Cron
	now   func() time.Time
	wg    sync.WaitGroup
}

// NewRetention validates schedule and prepares the job. It does not start
// until Start is called.
func NewRetention(store LogStore, days int, schedule string) (*Retention, error) {
	if schedule == "" {
		schedule = "@hourly"
	}
	r := &Retention{
		store: store,
		days:  days,
		cron:  cron.New(),
		now:   time.Now,
	}
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start runs one cleanup immediately, then follows the schedule.
func (r *Retention) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run()
	}()
	r.cron.Start()
}

// Stop halts the schedule and waits for running cleanups, including the
// initial one, to finish.
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
	r.wg.Wait()
}

// RunOnce deletes expired entries and returns how many were removed.
func (r *Retention) RunOnce(ctx context.Context) (int64, error) {
	if r.days <= 0 {
		return 0, nil
	}
	cutoff := r.now().AddDate(0, 0, -r.days)
	return r.store.DeleteBefore(ctx, cutoff)
}

func (r *Retention) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	deleted, err := r.RunOnce(ctx)
	if err != nil {
		slog.Error("failed to cleanup old audit logs", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("cleaned up old audit logs", "deleted", deleted)
	}
}
