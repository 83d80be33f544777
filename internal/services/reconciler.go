package services

import (
	"context"
	"sync"
	"time"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"

	"github.com/robfig/cron/v3"
)

const (
	defaultBatchSize = 100
	campaignRetry    = 5 * time.Second
)

// Reconciler periodically repairs the ranking indexes against the item hashes
// and bid histories. Only the elected leader runs a sweep.
type Reconciler struct {
	cron       *cron.Cron
	repairer   domain.RankingRepairer
	election   domain.LeaderElection
	instanceID string
	schedule   string
	batchSize  int
	log        logger.Logger

	mu      sync.Mutex
	running bool
}

func NewReconciler(
	repairer domain.RankingRepairer,
	election domain.LeaderElection,
	instanceID string,
	schedule string,
	batchSize int,
	log logger.Logger,
) *Reconciler {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Reconciler{
		cron:       cron.New(cron.WithSeconds()),
		repairer:   repairer,
		election:   election,
		instanceID: instanceID,
		schedule:   schedule,
		batchSize:  batchSize,
		log:        log,
	}
}

func (r *Reconciler) Start(ctx context.Context) error {
	r.log.Info("Starting ranking reconciler", "schedule", r.schedule, "batch_size", r.batchSize)

	_, err := r.cron.AddFunc(r.schedule, func() {
		r.sweep(ctx)
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	return nil
}

// Stop waits for a running sweep to finish.
func (r *Reconciler) Stop() {
	r.log.Info("Stopping ranking reconciler")
	<-r.cron.Stop().Done()
}

// Campaign keeps trying to become leader until ctx ends.
func (r *Reconciler) Campaign(ctx context.Context, interval time.Duration) {
	for {
		wait := interval
		became, err := r.election.BecomeLeader(ctx, r.instanceID)
		switch {
		case err != nil:
			r.log.Error("Failed to attempt leadership", "error", err)
			wait = campaignRetry
		case became:
			r.log.Info("Became reconciler leader", "instance_id", r.instanceID)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) {
	// cron may fire again while a long sweep is still going
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.log.Warn("Previous reconcile sweep still running, skipping")
		return
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	report, err := r.RunOnce(ctx)
	if err != nil {
		r.log.Error("Reconcile sweep failed", "error", err)
		return
	}
	if report.Checked > 0 {
		r.log.Info("Reconcile sweep finished",
			"checked", report.Checked,
			"removed", report.Removed,
			"views_fixed", report.ViewsFixed,
			"ending_fixed", report.EndingFixed,
			"price_fixed", report.PriceFixed,
			"failed", report.Failed)
	}
}

// RunOnce walks every indexed item once. It does nothing unless this instance
// holds leadership. A failure on one item is counted and the sweep goes on.
func (r *Reconciler) RunOnce(ctx context.Context) (domain.ReconcileReport, error) {
	var report domain.ReconcileReport

	leader, err := r.election.IsLeader(ctx, r.instanceID)
	if err != nil {
		return report, err
	}
	if !leader {
		r.log.Debug("Not leader, skipping reconcile", "instance_id", r.instanceID)
		return report, nil
	}

	offset := 0
	for {
		ids, err := r.repairer.IndexedItemIDs(ctx, offset, r.batchSize)
		if err != nil {
			return report, err
		}

		removed := 0
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report.Checked++

			outcome, err := r.repairer.ReconcileItem(ctx, id)
			if err != nil {
				report.Failed++
				r.log.Error("Failed to reconcile item", "item_id", id, "error", err)
				continue
			}
			if outcome.Changed() {
				r.log.Info("Rankings repaired", "item_id", id,
					"removed", outcome.Removed,
					"views", outcome.ViewsFixed,
					"ending", outcome.EndingFixed,
					"price", outcome.PriceFixed)
			}
			if outcome.Removed {
				report.Removed++
				removed++
			}
			if outcome.ViewsFixed {
				report.ViewsFixed++
			}
			if outcome.EndingFixed {
				report.EndingFixed++
			}
			if outcome.PriceFixed {
				report.PriceFixed++
			}
		}

		if len(ids) < r.batchSize {
			return report, nil
		}
		// removed entries shift the rest of the index left
		offset += len(ids) - removed
	}
}
