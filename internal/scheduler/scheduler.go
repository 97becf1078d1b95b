// Package scheduler orchestrates dispatch cycles: campaign selection,
// cadence generation, batch submission, and verified status transitions.
package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/innovareai/outreach-dispatcher/internal/cadence"
	"github.com/innovareai/outreach-dispatcher/internal/config"
	"github.com/innovareai/outreach-dispatcher/internal/dispatch"
	"github.com/innovareai/outreach-dispatcher/internal/domain"
	"github.com/innovareai/outreach-dispatcher/internal/pkg/distlock"
	"github.com/innovareai/outreach-dispatcher/internal/pkg/logger"
	"github.com/innovareai/outreach-dispatcher/internal/schedule"
	"github.com/innovareai/outreach-dispatcher/internal/store"
)

// Datastore is the slice of the store the cycle runner needs.
type Datastore interface {
	ActiveCampaigns(ctx context.Context, limit int) ([]domain.Campaign, error)
	AccountForCampaign(ctx context.Context, campaignID uuid.UUID) (*domain.SenderAccount, error)
	PendingProspects(ctx context.Context, campaignID uuid.UUID, limit int) ([]domain.Prospect, error)
	MarkQueued(ctx context.Context, campaignID uuid.UUID, ids []uuid.UUID) error
	Schedule(ctx context.Context, campaignID, id uuid.UUID, sendAt time.Time) error
}

// Submitter posts one batch to the workflow engine.
type Submitter interface {
	Submit(ctx context.Context, p dispatch.Payload) error
}

// Allowance guards the per-account daily send budget.
type Allowance interface {
	Reserve(ctx context.Context, accountID uuid.UUID, want, limit int) (int, error)
	Refund(ctx context.Context, accountID uuid.UUID, n int)
}

// LockFactory builds a distributed lock for the given key. Overlapping
// cron invocations contend on campaign-scoped keys.
type LockFactory func(key string) distlock.DistLock

// lockTTL bounds how long a crashed run can wedge a campaign.
const lockTTL = 15 * time.Minute

// CycleSummary aggregates one dispatch cycle across all pipelines.
type CycleSummary struct {
	Started       time.Time `json:"started"`
	Finished      time.Time `json:"finished"`
	Campaigns     int       `json:"campaigns"`
	Skipped       int       `json:"skipped"`
	Eligible      int       `json:"eligible_prospects"`
	Dispatched    int       `json:"dispatched_prospects"`
	BatchesSent   int       `json:"batches_sent"`
	BatchesFailed int       `json:"batches_failed"`
	ShortWrites   int       `json:"short_writes"`
}

// Failed reports whether the process should exit non-zero: any dispatch
// failure or any write-verification failure.
func (s *CycleSummary) Failed() bool {
	return s.BatchesFailed > 0 || s.ShortWrites > 0
}

func (s *CycleSummary) add(r pipelineResult) {
	s.Campaigns++
	if r.skipped {
		s.Skipped++
	}
	s.Eligible += r.eligible
	s.Dispatched += r.dispatched
	s.BatchesSent += r.batchesSent
	s.BatchesFailed += r.batchesFailed
	s.ShortWrites += r.shortWrites
}

type pipelineResult struct {
	skipped       bool
	eligible      int
	dispatched    int
	batchesSent   int
	batchesFailed int
	shortWrites   int
}

// Scheduler runs batch dispatch cycles. One goroutine per campaign
// pipeline; batches inside a pipeline are strictly sequential.
type Scheduler struct {
	store     Datastore
	submitter Submitter
	allowance Allowance
	locks     LockFactory
	gen       *cadence.Generator
	cfg       config.SchedulerConfig

	now func() time.Time
}

// New wires a Scheduler from its collaborators. locks may be nil when
// running without any distributed lock backend (single-process dev mode).
func New(ds Datastore, sub Submitter, allow Allowance, locks LockFactory, gen *cadence.Generator, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		store:     ds,
		submitter: sub,
		allowance: allow,
		locks:     locks,
		gen:       gen,
		cfg:       cfg,
		now:       time.Now,
	}
}

// RunCycle executes one full dispatch cycle and returns its summary.
// The returned error covers selection only; per-batch failures are
// reported through the summary so one campaign cannot mask another.
func (s *Scheduler) RunCycle(ctx context.Context) (*CycleSummary, error) {
	summary := &CycleSummary{Started: s.now()}

	campaigns, err := s.store.ActiveCampaigns(ctx, s.cfg.MaxCampaignsPerRun)
	if err != nil {
		summary.Finished = s.now()
		return summary, err
	}
	if len(campaigns) == 0 {
		log.Printf("[Scheduler] No active campaigns, nothing to dispatch")
		summary.Finished = s.now()
		return summary, nil
	}

	log.Printf("[Scheduler] Cycle start: %d active campaigns", len(campaigns))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := range campaigns {
		c := campaigns[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := s.runPipeline(ctx, &c)
			mu.Lock()
			summary.add(res)
			mu.Unlock()
		}()
	}
	wg.Wait()

	summary.Finished = s.now()
	logger.Info("dispatch cycle complete",
		"campaigns", summary.Campaigns,
		"dispatched", summary.Dispatched,
		"batches_sent", summary.BatchesSent,
		"batches_failed", summary.BatchesFailed,
		"short_writes", summary.ShortWrites,
		"duration", summary.Finished.Sub(summary.Started).String(),
	)
	return summary, nil
}

// runPipeline processes one campaign end to end. A failed batch abandons
// the remaining batches of this campaign for this cycle; the prospects
// stay pending and are retried next cycle.
func (s *Scheduler) runPipeline(ctx context.Context, c *domain.Campaign) pipelineResult {
	var res pipelineResult

	if s.locks != nil {
		lock := s.locks("campaign:" + c.ID.String())
		ok, err := lock.Acquire(ctx)
		if err != nil {
			log.Printf("[Scheduler] Campaign %s: lock error, skipping: %v", c.ID, err)
			res.skipped = true
			return res
		}
		if !ok {
			log.Printf("[Scheduler] Campaign %s: already being processed elsewhere, skipping", c.ID)
			res.skipped = true
			return res
		}
		defer lock.Release(context.WithoutCancel(ctx))
	}

	now := s.now()
	if !schedule.InWindow(now, c.Schedule) {
		log.Printf("[Scheduler] Campaign %s: outside send window, skipping", c.ID)
		res.skipped = true
		return res
	}

	acct, err := s.store.AccountForCampaign(ctx, c.ID)
	if err != nil {
		log.Printf("[Scheduler] Campaign %s: sender account unresolvable, skipping: %v", c.ID, err)
		res.skipped = true
		return res
	}
	if !acct.Usable() {
		log.Printf("[Scheduler] Campaign %s: account %s not connected, skipping", c.ID, acct.ID)
		res.skipped = true
		return res
	}

	limit := acct.DailyLimit
	if limit <= 0 {
		limit = c.DailyLimit
	}
	if limit <= 0 {
		limit = s.cfg.DefaultDailyLimit
	}

	pending, err := s.store.PendingProspects(ctx, c.ID, limit)
	if err != nil {
		log.Printf("[Scheduler] Campaign %s: prospect selection failed, skipping: %v", c.ID, err)
		res.skipped = true
		return res
	}
	if len(pending) == 0 {
		return res
	}

	granted, err := s.allowance.Reserve(ctx, acct.ID, len(pending), limit)
	if err != nil {
		log.Printf("[Scheduler] Campaign %s: allowance check failed, skipping: %v", c.ID, err)
		res.skipped = true
		return res
	}
	if granted == 0 {
		log.Printf("[Scheduler] Campaign %s: account %s daily limit reached, skipping", c.ID, acct.ID)
		res.skipped = true
		return res
	}
	pending = pending[:granted]
	res.eligible = granted

	pattern := cadence.PatternFor(now, acct.ExternalID)
	log.Printf("[Scheduler] Campaign %s: dispatching %d prospects on account %s (pattern %s)",
		c.ID, granted, acct.ID, pattern)

	s.dispatchBatches(ctx, c, acct, pending, pattern, granted, &res)
	return res
}

func (s *Scheduler) dispatchBatches(ctx context.Context, c *domain.Campaign, acct *domain.SenderAccount, pending []domain.Prospect, pattern cadence.Pattern, granted int, res *pipelineResult) {
	size := s.cfg.BatchSize
	processed := 0

	for start := 0; start < len(pending); start += size {
		end := start + size
		if end > len(pending) {
			end = len(pending)
		}

		batch := s.buildBatch(pending[start:end], pattern, start/size+1)
		remaining := granted - processed
		payload := dispatch.BuildPayload(c, acct, batch, remaining, s.now())

		if err := s.submitter.Submit(ctx, payload); err != nil {
			log.Printf("[Scheduler] Campaign %s: batch %d dispatch failed, abandoning campaign this cycle: %v",
				c.ID, batch.Number, err)
			res.batchesFailed++
			s.allowance.Refund(context.WithoutCancel(ctx), acct.ID, remaining)
			return
		}

		if err := s.store.MarkQueued(ctx, c.ID, batch.ProspectIDs()); err != nil {
			if errors.Is(err, store.ErrShortWrite) {
				log.Printf("[Scheduler] CRITICAL: campaign %s batch %d accepted by engine but not fully recorded: %v",
					c.ID, batch.Number, err)
				res.shortWrites++
			} else {
				log.Printf("[Scheduler] Campaign %s: batch %d status update failed: %v", c.ID, batch.Number, err)
				res.batchesFailed++
			}
			return
		}

		processed += batch.Size()
		res.dispatched += batch.Size()
		res.batchesSent++
		log.Printf("[Scheduler] Campaign %s: batch %d queued (%d prospects)", c.ID, batch.Number, batch.Size())

		if end < len(pending) {
			if !s.pace(ctx) {
				log.Printf("[Scheduler] Campaign %s: shutdown during pacing, %d prospects deferred to next cycle",
					c.ID, granted-processed)
				s.allowance.Refund(context.WithoutCancel(ctx), acct.ID, granted-processed)
				return
			}
		}
	}
}

func (s *Scheduler) buildBatch(prospects []domain.Prospect, pattern cadence.Pattern, number int) *domain.DispatchBatch {
	delays := s.gen.BatchDelays(pattern, len(prospects), true)
	items := make([]domain.BatchItem, len(prospects))
	for i, p := range prospects {
		items[i] = domain.BatchItem{Prospect: p, DelayMinutes: delays[i]}
	}
	return &domain.DispatchBatch{Number: number, Items: items}
}

// RunScheduleCycle is the persisted counterpart of RunCycle: instead of
// dispatching batches, it stamps each eligible prospect with an absolute
// send time (now + cumulative humanized delay) for the poller to drain one
// at a time. Selection, windowing, locking, and allowance rules are the
// same as in batch mode.
func (s *Scheduler) RunScheduleCycle(ctx context.Context) (*CycleSummary, error) {
	summary := &CycleSummary{Started: s.now()}

	campaigns, err := s.store.ActiveCampaigns(ctx, s.cfg.MaxCampaignsPerRun)
	if err != nil {
		summary.Finished = s.now()
		return summary, err
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := range campaigns {
		c := campaigns[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := s.runSchedulePipeline(ctx, &c)
			mu.Lock()
			summary.add(res)
			mu.Unlock()
		}()
	}
	wg.Wait()

	summary.Finished = s.now()
	log.Printf("[Scheduler] Schedule cycle done: %d prospects timestamped, %d short writes",
		summary.Dispatched, summary.ShortWrites)
	return summary, nil
}

func (s *Scheduler) runSchedulePipeline(ctx context.Context, c *domain.Campaign) pipelineResult {
	var res pipelineResult

	if s.locks != nil {
		lock := s.locks("campaign:" + c.ID.String())
		ok, err := lock.Acquire(ctx)
		if err != nil || !ok {
			res.skipped = true
			return res
		}
		defer lock.Release(context.WithoutCancel(ctx))
	}

	now := s.now()
	if !schedule.InWindow(now, c.Schedule) {
		res.skipped = true
		return res
	}

	acct, err := s.store.AccountForCampaign(ctx, c.ID)
	if err != nil || !acct.Usable() {
		log.Printf("[Scheduler] Campaign %s: no usable sender account, skipping schedule pass", c.ID)
		res.skipped = true
		return res
	}

	limit := acct.DailyLimit
	if limit <= 0 {
		limit = c.DailyLimit
	}
	if limit <= 0 {
		limit = s.cfg.DefaultDailyLimit
	}

	pending, err := s.store.PendingProspects(ctx, c.ID, limit)
	if err != nil || len(pending) == 0 {
		return res
	}

	granted, err := s.allowance.Reserve(ctx, acct.ID, len(pending), limit)
	if err != nil || granted == 0 {
		res.skipped = true
		return res
	}
	pending = pending[:granted]
	res.eligible = granted

	pattern := cadence.PatternFor(now, acct.ExternalID)
	delays := s.gen.BatchDelays(pattern, granted, true)
	times := cadence.SendTimes(now, delays)

	for i, p := range pending {
		if err := s.store.Schedule(ctx, c.ID, p.ID, times[i]); err != nil {
			// The row left pending under us. Its reservation goes back;
			// whoever owns it now carries its own reservation.
			log.Printf("[Scheduler] Campaign %s: prospect %s not schedulable: %v", c.ID, p.ID, err)
			s.allowance.Refund(context.WithoutCancel(ctx), acct.ID, 1)
			continue
		}
		res.dispatched++
	}
	return res
}

// pace waits the inter-batch delay. Returns false if the context was
// cancelled before the delay elapsed.
func (s *Scheduler) pace(ctx context.Context) bool {
	timer := time.NewTimer(s.cfg.BatchDelay())
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
