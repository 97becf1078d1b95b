package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/innovareai/outreach-dispatcher/internal/domain"
)

func campaignRow(id, workspaceID, accountID uuid.UUID, templates, schedule string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "workspace_id", "name", "status", "channel",
		"account_id", "message_templates", "schedule_settings",
		"daily_limit", "created_at", "updated_at",
	}).AddRow(id, workspaceID, "Q3 connectors", "active", "linkedin",
		accountID, templates, schedule, 20, now, now)
}

func TestActiveCampaignsParsesSettings(t *testing.T) {
	s, mock := newMockStore(t)
	id, wsID, acctID := uuid.New(), uuid.New(), uuid.New()

	templates := `{"connection_request":"Hi {{ first_name }}","follow_up_messages":["fu1","bye"],"alternative_message":"alt"}`
	schedule := `{"timezone":"America/New_York","working_hours_start":9,"working_hours_end":17,"skip_weekends":true}`

	mock.ExpectQuery("FROM campaigns").
		WithArgs(10).
		WillReturnRows(campaignRow(id, wsID, acctID, templates, schedule))

	got, err := s.ActiveCampaigns(context.Background(), 10)
	if err != nil {
		t.Fatalf("ActiveCampaigns: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 campaign, got %d", len(got))
	}

	c := got[0]
	if c.Templates.ConnectionRequest != "Hi {{ first_name }}" {
		t.Errorf("connection request = %q", c.Templates.ConnectionRequest)
	}
	if len(c.Templates.FollowUps) != 2 || c.Templates.FollowUps[1] != "bye" {
		t.Errorf("follow-ups = %v", c.Templates.FollowUps)
	}
	if c.Schedule.Timezone != "America/New_York" || !c.Schedule.SkipWeekends {
		t.Errorf("schedule = %+v", c.Schedule)
	}
	if c.Timing.FU1DelayDays != 2 {
		t.Errorf("timing must default: %+v", c.Timing)
	}
	if !c.Dispatchable() {
		t.Error("active campaign must be dispatchable")
	}
}

func TestActiveCampaignsToleratesMalformedSettings(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM campaigns").
		WillReturnRows(campaignRow(uuid.New(), uuid.New(), uuid.New(), "not json", "{}"))

	got, err := s.ActiveCampaigns(context.Background(), 10)
	if err != nil {
		t.Fatalf("ActiveCampaigns: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("malformed settings must not drop the row, got %d", len(got))
	}
	if got[0].Templates.ConnectionRequest != "" {
		t.Errorf("unparseable templates must come back zero-valued")
	}
}

func TestCampaignByIDNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM campaigns").
		WillReturnError(sql.ErrNoRows)

	_, err := s.CampaignByID(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountForCampaign(t *testing.T) {
	s, mock := newMockStore(t)
	campaignID, acctID, wsID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery("FROM workspace_accounts").
		WithArgs(campaignID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "workspace_id", "provider", "external_account_id",
			"account_name", "status", "daily_limit", "created_at",
		}).AddRow(acctID, wsID, "linkedin", "ext-1", "Pat's account", "connected", 20, time.Now()))

	got, err := s.AccountForCampaign(context.Background(), campaignID)
	if err != nil {
		t.Fatalf("AccountForCampaign: %v", err)
	}
	if got.ID != acctID || got.Status != domain.AccountConnected {
		t.Errorf("account = %+v", got)
	}
	if !got.Usable() {
		t.Error("connected account with external id must be usable")
	}
}
