package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/innovareai/outreach-dispatcher/internal/config"
	"github.com/innovareai/outreach-dispatcher/internal/domain"
	"github.com/innovareai/outreach-dispatcher/internal/store"
	"github.com/innovareai/outreach-dispatcher/internal/template"
)

type stubPollerStore struct {
	mu          sync.Mutex
	due         *domain.Prospect
	campaign    *domain.Campaign
	campaignErr error
	account     *domain.SenderAccount
	sent        []uuid.UUID
	failed      map[uuid.UUID]string
}

func (s *stubPollerStore) NextDue(ctx context.Context, now time.Time) (*domain.Prospect, error) {
	if s.due == nil {
		return nil, store.ErrNotFound
	}
	return s.due, nil
}

func (s *stubPollerStore) CampaignByID(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	if s.campaignErr != nil {
		return nil, s.campaignErr
	}
	return s.campaign, nil
}

func (s *stubPollerStore) AccountForCampaign(ctx context.Context, campaignID uuid.UUID) (*domain.SenderAccount, error) {
	if s.account == nil {
		return nil, store.ErrNotFound
	}
	return s.account, nil
}

func (s *stubPollerStore) MarkSent(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, id)
	return nil
}

func (s *stubPollerStore) MarkFailed(ctx context.Context, id uuid.UUID, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = make(map[uuid.UUID]string)
	}
	s.failed[id] = note
	return nil
}

func pollerFixture() *stubPollerStore {
	campaignID := uuid.New()
	sendAt := time.Now().Add(-time.Minute)
	return &stubPollerStore{
		due: &domain.Prospect{
			ID:              uuid.New(),
			CampaignID:      campaignID,
			FirstName:       "Pat",
			LastName:        "Doe",
			CompanyName:     "Acme",
			Status:          domain.ProspectScheduled,
			ScheduledSendAt: &sendAt,
		},
		campaign: &domain.Campaign{
			ID:          campaignID,
			WorkspaceID: uuid.New(),
			Status:      domain.CampaignActive,
			Channel:     "linkedin",
			Templates: domain.MessageTemplates{
				ConnectionRequest: "Hi {{ first_name }} at {{ company_name }}",
				FollowUps:         []string{"Following up, {first_name}", "bye"},
			},
			Timing:   domain.DefaultFollowUpTiming(),
			Schedule: domain.ScheduleSettings{Timezone: "UTC", WorkingHoursStart: 0, WorkingHoursEnd: 24},
		},
		account: &domain.SenderAccount{
			ID:         uuid.New(),
			Provider:   "linkedin",
			ExternalID: "acct-1",
			Status:     domain.AccountConnected,
			DailyLimit: 20,
		},
	}
}

func newTestPoller(ps PollerStore, sub Submitter, allow Allowance) *Poller {
	cfg := config.SchedulerConfig{DefaultDailyLimit: 20}
	return NewPoller(ps, sub, allow, template.NewService(), cfg)
}

func TestTickNothingDue(t *testing.T) {
	ps := &stubPollerStore{}
	sub := &stubSubmitter{}
	p := newTestPoller(ps, sub, &stubAllowance{budget: -1})

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	p.Wait()
	if len(sub.payloads) != 0 {
		t.Errorf("empty tick must not submit anything")
	}
}

func TestTickSubmitsDueProspect(t *testing.T) {
	ps := pollerFixture()
	sub := &stubSubmitter{}
	p := newTestPoller(ps, sub, &stubAllowance{budget: -1})

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	p.Wait()

	if len(sub.payloads) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(sub.payloads))
	}
	got := sub.payloads[0]
	if len(got.Prospects) != 1 {
		t.Fatalf("expected single-prospect payload, got %d", len(got.Prospects))
	}
	if got.Prospects[0].SendDelayMinutes != 0 {
		t.Errorf("poller sends have no extra delay, got %d", got.Prospects[0].SendDelayMinutes)
	}
	if got.Messages.ConnectionRequest != "Hi Pat at Acme" {
		t.Errorf("connection request not rendered: %q", got.Messages.ConnectionRequest)
	}
	if got.Messages.FollowUp1 != "Following up, Pat" {
		t.Errorf("legacy placeholder not rendered: %q", got.Messages.FollowUp1)
	}
	if len(ps.sent) != 1 || ps.sent[0] != ps.due.ID {
		t.Errorf("prospect must be marked sent after acknowledgment")
	}
}

func TestTickUnresolvableCampaignMarksFailed(t *testing.T) {
	ps := pollerFixture()
	ps.campaignErr = store.ErrNotFound
	sub := &stubSubmitter{}
	p := newTestPoller(ps, sub, &stubAllowance{budget: -1})

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	p.Wait()

	if len(sub.payloads) != 0 {
		t.Error("unresolvable campaign must not be submitted")
	}
	if note, ok := ps.failed[ps.due.ID]; !ok || !strings.Contains(note, "campaign") {
		t.Errorf("prospect must be failed with a campaign note, got %q", note)
	}
}

func TestTickDisconnectedAccountMarksFailed(t *testing.T) {
	ps := pollerFixture()
	ps.account.Status = domain.AccountDisconnected
	sub := &stubSubmitter{}
	p := newTestPoller(ps, sub, &stubAllowance{budget: -1})

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if _, ok := ps.failed[ps.due.ID]; !ok {
		t.Error("prospect with no usable account must be failed")
	}
}

func TestTickPausedCampaignHoldsProspect(t *testing.T) {
	ps := pollerFixture()
	ps.campaign.Status = domain.CampaignPaused
	sub := &stubSubmitter{}
	p := newTestPoller(ps, sub, &stubAllowance{budget: -1})

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	p.Wait()

	if len(sub.payloads) != 0 || len(ps.failed) != 0 || len(ps.sent) != 0 {
		t.Error("paused campaign must hold the prospect untouched")
	}
}

func TestTickAllowanceExhaustedHoldsProspect(t *testing.T) {
	ps := pollerFixture()
	sub := &stubSubmitter{}
	p := newTestPoller(ps, sub, &stubAllowance{budget: 0})

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	p.Wait()

	if len(sub.payloads) != 0 || len(ps.failed) != 0 {
		t.Error("exhausted allowance must hold the prospect for a later tick")
	}
}

func TestTickSubmitFailureMarksFailedAndRefunds(t *testing.T) {
	ps := pollerFixture()
	sub := &stubSubmitter{failOn: 1, err: errors.New("webhook returned 404")}
	allow := &stubAllowance{budget: -1}
	p := newTestPoller(ps, sub, allow)

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	p.Wait()

	if note, ok := ps.failed[ps.due.ID]; !ok || !strings.Contains(note, "dispatch failed") {
		t.Errorf("failed submission must mark the prospect failed, got %q", note)
	}
	if allow.refunded != 1 {
		t.Errorf("refunded = %d, want 1", allow.refunded)
	}
	if len(ps.sent) != 0 {
		t.Error("failed submission must not be marked sent")
	}
}
