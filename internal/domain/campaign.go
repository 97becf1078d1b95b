package domain

import (
	"time"

	"github.com/google/uuid"
)

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

// MessageTemplates holds the campaign's outreach copy: the connection
// request, the ordered follow-up sequence (the last entry is the goodbye
// message), and the alternative message sent when a connection is accepted
// before the first follow-up fires.
type MessageTemplates struct {
	ConnectionRequest  string   `json:"connection_request"`
	FollowUps          []string `json:"follow_up_messages"`
	AlternativeMessage string   `json:"alternative_message"`
}

// FollowUpTiming is the days-between-steps policy forwarded to the
// workflow engine alongside each batch.
type FollowUpTiming struct {
	FU1DelayDays int `json:"fu1_delay_days"`
	FU2DelayDays int `json:"fu2_delay_days"`
	FU3DelayDays int `json:"fu3_delay_days"`
	FU4DelayDays int `json:"fu4_delay_days"`
	GBDelayDays  int `json:"gb_delay_days"`
}

// DefaultFollowUpTiming mirrors the standard connector sequence spacing.
func DefaultFollowUpTiming() FollowUpTiming {
	return FollowUpTiming{
		FU1DelayDays: 2,
		FU2DelayDays: 5,
		FU3DelayDays: 7,
		FU4DelayDays: 5,
		GBDelayDays:  7,
	}
}

// ScheduleSettings is the campaign's send window: local working hours plus
// weekend/holiday skip flags. Zero values fall back to workspace defaults.
type ScheduleSettings struct {
	Timezone          string `json:"timezone"`
	WorkingHoursStart int    `json:"working_hours_start"`
	WorkingHoursEnd   int    `json:"working_hours_end"`
	SkipWeekends      bool   `json:"skip_weekends"`
	SkipHolidays      bool   `json:"skip_holidays"`
}

// Campaign represents a tenant-scoped outreach effort. The scheduler reads
// everything and writes nothing except status.
type Campaign struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	WorkspaceID uuid.UUID        `json:"workspace_id" db:"workspace_id"`
	Name        string           `json:"name" db:"name"`
	Status      CampaignStatus   `json:"status" db:"status"`
	Channel     string           `json:"channel" db:"channel"`
	AccountID   uuid.UUID        `json:"account_id" db:"account_id"`
	Templates   MessageTemplates `json:"message_templates" db:"message_templates"`
	Timing      FollowUpTiming   `json:"timing" db:"timing"`
	Schedule    ScheduleSettings `json:"schedule_settings" db:"schedule_settings"`
	DailyLimit  int              `json:"daily_limit" db:"daily_limit"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// Dispatchable reports whether the scheduler may select prospects for
// this campaign at all.
func (c *Campaign) Dispatchable() bool {
	return c.Status == CampaignActive
}
