package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/innovareai/outreach-dispatcher/internal/domain"
)

// ActiveCampaigns returns campaigns in active status, oldest first, capped
// at limit. Campaigns with unparseable template or schedule JSON are
// returned with zero-valued settings rather than dropped; the selector
// logs and skips them downstream if the templates are unusable.
func (s *Store) ActiveCampaigns(ctx context.Context, limit int) ([]domain.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, status, COALESCE(channel, 'linkedin'),
		       account_id, COALESCE(message_templates::text, '{}'),
		       COALESCE(schedule_settings::text, '{}'),
		       COALESCE(daily_limit, 0), created_at, updated_at
		FROM campaigns
		WHERE status = 'active'
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select active campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var (
			c            domain.Campaign
			templatesRaw string
			scheduleRaw  string
		)
		if err := rows.Scan(
			&c.ID, &c.WorkspaceID, &c.Name, &c.Status, &c.Channel,
			&c.AccountID, &templatesRaw, &scheduleRaw,
			&c.DailyLimit, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}

		json.Unmarshal([]byte(templatesRaw), &c.Templates)
		json.Unmarshal([]byte(scheduleRaw), &c.Schedule)
		c.Timing = domain.DefaultFollowUpTiming()

		out = append(out, c)
	}
	return out, rows.Err()
}

// CampaignByID fetches one campaign regardless of status. Used by the
// fine-grained poller to resolve a due prospect's campaign.
func (s *Store) CampaignByID(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	var (
		c            domain.Campaign
		templatesRaw string
		scheduleRaw  string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, status, COALESCE(channel, 'linkedin'),
		       account_id, COALESCE(message_templates::text, '{}'),
		       COALESCE(schedule_settings::text, '{}'),
		       COALESCE(daily_limit, 0), created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.WorkspaceID, &c.Name, &c.Status, &c.Channel,
		&c.AccountID, &templatesRaw, &scheduleRaw,
		&c.DailyLimit, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}

	json.Unmarshal([]byte(templatesRaw), &c.Templates)
	json.Unmarshal([]byte(scheduleRaw), &c.Schedule)
	c.Timing = domain.DefaultFollowUpTiming()

	return &c, nil
}

// AccountForCampaign resolves the campaign's sender account.
func (s *Store) AccountForCampaign(ctx context.Context, campaignID uuid.UUID) (*domain.SenderAccount, error) {
	var a domain.SenderAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.workspace_id, COALESCE(a.provider, 'linkedin'),
		       COALESCE(a.external_account_id, ''), COALESCE(a.account_name, ''),
		       a.status, COALESCE(a.daily_limit, 0), a.created_at
		FROM workspace_accounts a
		JOIN campaigns c ON c.account_id = a.id
		WHERE c.id = $1
	`, campaignID).Scan(
		&a.ID, &a.WorkspaceID, &a.Provider,
		&a.ExternalID, &a.Name,
		&a.Status, &a.DailyLimit, &a.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account for campaign: %w", err)
	}
	return &a, nil
}
