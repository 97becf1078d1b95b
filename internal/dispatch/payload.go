package dispatch

import (
	"time"

	"github.com/innovareai/outreach-dispatcher/internal/domain"
)

// Payload is the batch submission contract of the workflow engine. Field
// names are snake_case because the engine's nodes read them verbatim.
type Payload struct {
	WorkspaceID  string `json:"workspace_id"`
	CampaignID   string `json:"campaign_id"`
	Channel      string `json:"channel"`
	CampaignType string `json:"campaign_type"`
	AccountID    string `json:"account_id"`

	AccountTracking  AccountTracking  `json:"account_tracking"`
	ScheduleSettings ScheduleSettings `json:"schedule_settings"`
	Prospects        []ProspectEntry  `json:"prospects"`
	Messages         Messages         `json:"messages"`
	Timing           Timing           `json:"timing"`

	// Service credentials the engine uses for its own callbacks.
	ServiceURL     string `json:"service_url,omitempty"`
	ServiceKey     string `json:"service_key,omitempty"`
	ProviderDSN    string `json:"provider_dsn,omitempty"`
	ProviderAPIKey string `json:"provider_api_key,omitempty"`
}

// AccountTracking reports the sender account's budget so the engine can
// apply its own throttling.
type AccountTracking struct {
	DailyMessageLimit int    `json:"daily_message_limit"`
	MessagesSentToday int    `json:"messages_sent_today"`
	LastMessageDate   string `json:"last_message_date"`
	RemainingToday    int    `json:"remaining_today"`
}

// ScheduleSettings mirrors the campaign's send-window configuration.
type ScheduleSettings struct {
	Timezone          string `json:"timezone"`
	WorkingHoursStart int    `json:"working_hours_start"`
	WorkingHoursEnd   int    `json:"working_hours_end"`
	SkipWeekends      bool   `json:"skip_weekends"`
	SkipHolidays      bool   `json:"skip_holidays"`
}

// ProspectEntry is one recipient with its humanized in-batch delay.
type ProspectEntry struct {
	ID               string `json:"id"`
	CampaignID       string `json:"campaign_id"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	CompanyName      string `json:"company_name,omitempty"`
	Title            string `json:"title,omitempty"`
	ProfileURL       string `json:"profile_url,omitempty"`
	ProfileUsername  string `json:"profile_username,omitempty"`
	ProviderID       string `json:"provider_id,omitempty"`
	SendDelayMinutes int    `json:"send_delay_minutes"`
}

// Messages carries the campaign's template set. The last follow-up slot is
// the goodbye message.
type Messages struct {
	ConnectionRequest  string `json:"connection_request"`
	FollowUp1          string `json:"follow_up_1"`
	FollowUp2          string `json:"follow_up_2"`
	FollowUp3          string `json:"follow_up_3"`
	FollowUp4          string `json:"follow_up_4"`
	GoodbyeMessage     string `json:"goodbye_message"`
	AlternativeMessage string `json:"alternative_message"`
}

// Timing is the follow-up delay policy in days.
type Timing struct {
	FU1DelayDays int `json:"fu1_delay_days"`
	FU2DelayDays int `json:"fu2_delay_days"`
	FU3DelayDays int `json:"fu3_delay_days"`
	FU4DelayDays int `json:"fu4_delay_days"`
	GBDelayDays  int `json:"gb_delay_days"`
}

// BuildPayload assembles the submission for one batch of a campaign's
// pipeline. remaining is the account's unclaimed daily allowance before
// this batch.
func BuildPayload(c *domain.Campaign, acct *domain.SenderAccount, batch *domain.DispatchBatch, remaining int, now time.Time) Payload {
	// The last follow-up slot is the goodbye message; the steps before it
	// are the numbered follow-ups.
	steps := c.Templates.FollowUps
	goodbye := ""
	if n := len(steps); n > 0 {
		goodbye = steps[n-1]
		steps = steps[:n-1]
	}
	followUp := func(i int) string {
		if i < len(steps) {
			return steps[i]
		}
		return ""
	}
	alternative := c.Templates.AlternativeMessage
	if alternative == "" {
		alternative = followUp(0)
	}

	prospects := make([]ProspectEntry, 0, len(batch.Items))
	for _, item := range batch.Items {
		p := item.Prospect
		prospects = append(prospects, ProspectEntry{
			ID:               p.ID.String(),
			CampaignID:       p.CampaignID.String(),
			FirstName:        p.FirstName,
			LastName:         p.LastName,
			CompanyName:      p.CompanyName,
			Title:            p.Title,
			ProfileURL:       p.ProfileURL,
			ProfileUsername:  p.ProfileSlug(),
			ProviderID:       p.ProviderID,
			SendDelayMinutes: item.DelayMinutes,
		})
	}

	return Payload{
		WorkspaceID:  c.WorkspaceID.String(),
		CampaignID:   c.ID.String(),
		Channel:      c.Channel,
		CampaignType: "connector",
		AccountID:    acct.ExternalID,
		AccountTracking: AccountTracking{
			DailyMessageLimit: acct.DailyLimit,
			MessagesSentToday: acct.DailyLimit - remaining,
			LastMessageDate:   now.UTC().Format(time.RFC3339),
			RemainingToday:    remaining,
		},
		ScheduleSettings: ScheduleSettings{
			Timezone:          c.Schedule.Timezone,
			WorkingHoursStart: c.Schedule.WorkingHoursStart,
			WorkingHoursEnd:   c.Schedule.WorkingHoursEnd,
			SkipWeekends:      c.Schedule.SkipWeekends,
			SkipHolidays:      c.Schedule.SkipHolidays,
		},
		Prospects: prospects,
		Messages: Messages{
			ConnectionRequest:  c.Templates.ConnectionRequest,
			FollowUp1:          followUp(0),
			FollowUp2:          followUp(1),
			FollowUp3:          followUp(2),
			FollowUp4:          followUp(3),
			GoodbyeMessage:     goodbye,
			AlternativeMessage: alternative,
		},
		Timing: Timing{
			FU1DelayDays: c.Timing.FU1DelayDays,
			FU2DelayDays: c.Timing.FU2DelayDays,
			FU3DelayDays: c.Timing.FU3DelayDays,
			FU4DelayDays: c.Timing.FU4DelayDays,
			GBDelayDays:  c.Timing.GBDelayDays,
		},
	}
}
