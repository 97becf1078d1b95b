package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/innovareai/outreach-dispatcher/internal/domain"
)

const prospectColumns = `
	id, campaign_id, workspace_id,
	COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(email, ''),
	COALESCE(company_name, ''), COALESCE(title, ''),
	COALESCE(profile_url, ''), COALESCE(provider_id, ''),
	status, scheduled_send_at, contacted_at, COALESCE(notes, ''),
	created_at, updated_at`

func scanProspect(row interface{ Scan(...interface{}) error }) (domain.Prospect, error) {
	var p domain.Prospect
	err := row.Scan(
		&p.ID, &p.CampaignID, &p.WorkspaceID,
		&p.FirstName, &p.LastName, &p.Email,
		&p.CompanyName, &p.Title,
		&p.ProfileURL, &p.ProviderID,
		&p.Status, &p.ScheduledSendAt, &p.ContactedAt, &p.Notes,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// PendingProspects returns the campaign's pending prospects oldest-created
// first, capped at limit. Oldest-first ordering guarantees fairness and
// eventual completion: a prospect can only be passed over so many cycles.
func (s *Store) PendingProspects(ctx context.Context, campaignID uuid.UUID, limit int) ([]domain.Prospect, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prospectColumns+`
		FROM campaign_prospects
		WHERE campaign_id = $1 AND status = 'pending'
		ORDER BY created_at ASC
		LIMIT $2
	`, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending prospects: %w", err)
	}
	defer rows.Close()

	var out []domain.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prospect: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// NextDue returns the single most overdue prospect whose scheduled_send_at
// has arrived, or ErrNotFound when nothing is due. Prospects queued through
// batch dispatch carry no scheduled_send_at and are never selected here.
func (s *Store) NextDue(ctx context.Context, now time.Time) (*domain.Prospect, error) {
	p, err := scanProspect(s.db.QueryRowContext(ctx, `
		SELECT `+prospectColumns+`
		FROM campaign_prospects
		WHERE status IN ('scheduled', 'queued')
		  AND scheduled_send_at IS NOT NULL
		  AND scheduled_send_at <= $1
		ORDER BY scheduled_send_at ASC
		LIMIT 1
	`, now))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select due prospect: %w", err)
	}
	return &p, nil
}

// MarkQueued transitions the given prospects from pending to queued after
// a successful batch dispatch. The update is scoped to the campaign and to
// rows still in pending, and the affected row count must equal the number
// submitted; anything less is reported as ErrShortWrite because the
// downstream engine already accepted the batch.
func (s *Store) MarkQueued(ctx context.Context, campaignID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE campaign_prospects
		SET status = 'queued', updated_at = NOW()
		WHERE campaign_id = $1 AND id = ANY($2) AND status = 'pending'
	`, campaignID, pq.Array(strIDs))
	if err != nil {
		return fmt.Errorf("mark queued: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark queued rows affected: %w", err)
	}
	if affected != int64(len(ids)) {
		return fmt.Errorf("%w: expected %d, updated %d (campaign %s)",
			ErrShortWrite, len(ids), affected, campaignID)
	}
	return nil
}

// Schedule transitions one pending prospect to scheduled with an absolute
// send time. GREATEST keeps scheduled_send_at monotonically non-decreasing
// even if an overlapping run computes an earlier slot.
func (s *Store) Schedule(ctx context.Context, campaignID, id uuid.UUID, sendAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaign_prospects
		SET status = 'scheduled',
		    scheduled_send_at = GREATEST(COALESCE(scheduled_send_at, $3), $3),
		    updated_at = NOW()
		WHERE campaign_id = $1 AND id = $2 AND status = 'pending'
	`, campaignID, id, sendAt)
	if err != nil {
		return fmt.Errorf("schedule prospect: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule prospect rows affected: %w", err)
	}
	if affected != 1 {
		return fmt.Errorf("%w: expected 1, updated %d (prospect %s)", ErrShortWrite, affected, id)
	}
	return nil
}

// MarkSent records submission acknowledgment for one scheduled prospect.
// Delivery confirmation arrives asynchronously from the workflow engine
// and is tracked outside this component.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaign_prospects
		SET status = 'sent', contacted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('scheduled', 'queued')
	`, id)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark sent rows affected: %w", err)
	}
	if affected != 1 {
		return fmt.Errorf("%w: expected 1, updated %d (prospect %s)", ErrShortWrite, affected, id)
	}
	return nil
}

// MarkFailed parks a prospect in failed with an operator-facing note.
// Failed is distinguishable from pending so the selector never retries it
// without operator action.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, note string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE campaign_prospects
		SET status = 'failed', notes = $2, updated_at = NOW()
		WHERE id = $1
	`, id, note)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// DispatchedLast24h counts prospects the account dispatched in the rolling
// 24-hour window (any status that left pending).
// This is the SQL fallback for the daily allowance when Redis is not
// configured.
func (s *Store) DispatchedLast24h(ctx context.Context, accountID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM campaign_prospects p
		JOIN campaigns c ON c.id = p.campaign_id
		WHERE c.account_id = $1
		  AND p.status IN ('scheduled', 'queued', 'sent')
		  AND p.updated_at >= NOW() - INTERVAL '24 hours'
	`, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count dispatched: %w", err)
	}
	return count, nil
}
