package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/innovareai/outreach-dispatcher/internal/config"
	"github.com/innovareai/outreach-dispatcher/internal/dispatch"
	"github.com/innovareai/outreach-dispatcher/internal/domain"
	"github.com/innovareai/outreach-dispatcher/internal/pkg/logger"
	"github.com/innovareai/outreach-dispatcher/internal/schedule"
	"github.com/innovareai/outreach-dispatcher/internal/store"
	"github.com/innovareai/outreach-dispatcher/internal/template"
)

// PollerStore is the slice of the store the poller needs.
type PollerStore interface {
	NextDue(ctx context.Context, now time.Time) (*domain.Prospect, error)
	CampaignByID(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)
	AccountForCampaign(ctx context.Context, campaignID uuid.UUID) (*domain.SenderAccount, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, note string) error
}

// Poller is the fine-grained dispatch path: each tick submits at most one
// due prospect, so sends trickle out at a human pace regardless of how
// coarse the batch scheduler's cycles are.
type Poller struct {
	store     PollerStore
	submitter Submitter
	allowance Allowance
	templates *template.Service
	cfg       config.SchedulerConfig

	now func() time.Time
	wg  sync.WaitGroup
}

// NewPoller wires a Poller from its collaborators.
func NewPoller(ps PollerStore, sub Submitter, allow Allowance, tpl *template.Service, cfg config.SchedulerConfig) *Poller {
	return &Poller{
		store:     ps,
		submitter: sub,
		allowance: allow,
		templates: tpl,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Tick processes at most one due prospect. A tick with nothing due is a
// successful no-op. Submission runs in its own goroutine with a bounded
// timeout; Wait blocks until in-flight submissions finish.
func (p *Poller) Tick(ctx context.Context) error {
	now := p.now()

	prospect, err := p.store.NextDue(ctx, now)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select due prospect: %w", err)
	}

	campaign, err := p.store.CampaignByID(ctx, prospect.CampaignID)
	if err != nil {
		log.Printf("[Poller] Prospect %s: campaign %s unresolvable, marking failed: %v",
			prospect.ID, prospect.CampaignID, err)
		return p.store.MarkFailed(ctx, prospect.ID, "campaign unresolvable at send time")
	}
	if !campaign.Dispatchable() {
		// Paused and completed campaigns hold their scheduled prospects.
		log.Printf("[Poller] Prospect %s: campaign %s is %s, holding", prospect.ID, campaign.ID, campaign.Status)
		return nil
	}

	acct, err := p.store.AccountForCampaign(ctx, campaign.ID)
	if err != nil || !acct.Usable() {
		log.Printf("[Poller] Prospect %s: no usable sender account for campaign %s, marking failed",
			prospect.ID, campaign.ID)
		return p.store.MarkFailed(ctx, prospect.ID, "sender account disconnected or missing")
	}

	if !schedule.InWindow(now, campaign.Schedule) {
		// Due but outside the window; it stays scheduled and fires on
		// the first in-window tick.
		return nil
	}

	limit := acct.DailyLimit
	if limit <= 0 {
		limit = p.cfg.DefaultDailyLimit
	}
	granted, err := p.allowance.Reserve(ctx, acct.ID, 1, limit)
	if err != nil {
		return fmt.Errorf("allowance check: %w", err)
	}
	if granted == 0 {
		log.Printf("[Poller] Account %s daily limit reached, holding prospect %s", acct.ID, prospect.ID)
		return nil
	}

	payload, err := p.buildPayload(campaign, acct, prospect, limit-granted)
	if err != nil {
		log.Printf("[Poller] Prospect %s: template render failed, marking failed: %v", prospect.ID, err)
		p.allowance.Refund(ctx, acct.ID, 1)
		return p.store.MarkFailed(ctx, prospect.ID, fmt.Sprintf("template error: %v", err))
	}

	logger.Info("dispatching prospect",
		"prospect_id", prospect.ID.String(),
		"campaign_id", campaign.ID.String(),
		"email", prospect.Email,
		"profile_url", prospect.ProfileURL,
	)

	p.wg.Add(1)
	go p.submit(acct.ID, prospect.ID, payload)
	return nil
}

// submit posts one prospect and records the outcome. Detached from the
// tick so a slow engine cannot stall the poll loop.
func (p *Poller) submit(accountID, prospectID uuid.UUID, payload dispatch.Payload) {
	defer p.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	if err := p.submitter.Submit(ctx, payload); err != nil {
		log.Printf("[Poller] Prospect %s: submission failed, marking failed: %v", prospectID, err)
		p.allowance.Refund(ctx, accountID, 1)
		if mErr := p.store.MarkFailed(ctx, prospectID, fmt.Sprintf("dispatch failed: %v", err)); mErr != nil {
			log.Printf("[Poller] Prospect %s: could not record failure: %v", prospectID, mErr)
		}
		return
	}

	if err := p.store.MarkSent(ctx, prospectID); err != nil {
		log.Printf("[Poller] CRITICAL: prospect %s submitted but not recorded as sent: %v", prospectID, err)
		return
	}
	log.Printf("[Poller] Prospect %s submitted and marked sent", prospectID)
}

// buildPayload renders the campaign templates for this prospect and wraps
// it as a single-entry batch with no additional delay.
func (p *Poller) buildPayload(c *domain.Campaign, acct *domain.SenderAccount, prospect *domain.Prospect, remaining int) (dispatch.Payload, error) {
	rendered := *c
	var err error
	if rendered.Templates.ConnectionRequest, err = p.templates.Render(c.Templates.ConnectionRequest, *prospect); err != nil {
		return dispatch.Payload{}, err
	}
	followUps := make([]string, len(c.Templates.FollowUps))
	for i, tmpl := range c.Templates.FollowUps {
		if followUps[i], err = p.templates.Render(tmpl, *prospect); err != nil {
			return dispatch.Payload{}, err
		}
	}
	rendered.Templates.FollowUps = followUps
	if rendered.Templates.AlternativeMessage, err = p.templates.Render(c.Templates.AlternativeMessage, *prospect); err != nil {
		return dispatch.Payload{}, err
	}

	batch := &domain.DispatchBatch{
		Number: 1,
		Items:  []domain.BatchItem{{Prospect: *prospect, DelayMinutes: 0}},
	}
	return dispatch.BuildPayload(&rendered, acct, batch, remaining, p.now()), nil
}

// Wait blocks until all in-flight submissions have completed.
func (p *Poller) Wait() { p.wg.Wait() }
