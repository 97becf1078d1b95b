package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProspectStatus enumerates the dispatch lifecycle of a prospect.
//
//	pending → scheduled → queued → sent | failed
//
// Batch mode goes straight from pending to queued; the fine-grained poller
// parks prospects in scheduled (with a scheduled_send_at) and moves them to
// sent once the single-prospect dispatch is acknowledged. Only an operator
// resetting status back to pending makes a prospect eligible again.
type ProspectStatus string

const (
	ProspectPending   ProspectStatus = "pending"
	ProspectScheduled ProspectStatus = "scheduled"
	ProspectQueued    ProspectStatus = "queued"
	ProspectSent      ProspectStatus = "sent"
	ProspectFailed    ProspectStatus = "failed"
)

// Terminal returns true for states the scheduler never transitions out of.
func (s ProspectStatus) Terminal() bool {
	return s == ProspectSent || s == ProspectFailed
}

// Prospect is one outreach target within a campaign.
type Prospect struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	CampaignID      uuid.UUID      `json:"campaign_id" db:"campaign_id"`
	WorkspaceID     uuid.UUID      `json:"workspace_id" db:"workspace_id"`
	FirstName       string         `json:"first_name" db:"first_name"`
	LastName        string         `json:"last_name" db:"last_name"`
	Email           string         `json:"email" db:"email"`
	CompanyName     string         `json:"company_name" db:"company_name"`
	Title           string         `json:"title" db:"title"`
	ProfileURL      string         `json:"profile_url" db:"profile_url"`
	ProviderID      string         `json:"provider_id" db:"provider_id"`
	Status          ProspectStatus `json:"status" db:"status"`
	ScheduledSendAt *time.Time     `json:"scheduled_send_at" db:"scheduled_send_at"`
	ContactedAt     *time.Time     `json:"contacted_at" db:"contacted_at"`
	Notes           string         `json:"notes" db:"notes"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// ProfileSlug extracts the vanity segment from the prospect's profile URL,
// e.g. "https://linkedin.com/in/jane-doe/" → "jane-doe". Returns "" when
// the URL has no /in/ segment.
func (p *Prospect) ProfileSlug() string {
	const marker = "/in/"
	idx := strings.Index(p.ProfileURL, marker)
	if idx < 0 {
		return ""
	}
	slug := strings.TrimRight(p.ProfileURL[idx+len(marker):], "/")
	if i := strings.IndexAny(slug, "?#"); i >= 0 {
		slug = slug[:i]
	}
	return slug
}
