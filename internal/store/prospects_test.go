package store

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func prospectRows(ids ...uuid.UUID) *sqlmock.Rows {
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "campaign_id", "workspace_id",
		"first_name", "last_name", "email",
		"company_name", "title", "profile_url", "provider_id",
		"status", "scheduled_send_at", "contacted_at", "notes",
		"created_at", "updated_at",
	})
	for i, id := range ids {
		rows.AddRow(
			id, uuid.New(), uuid.New(),
			"Pat", "Doe", "pat@example.com",
			"Acme", "VP Sales", "https://www.linkedin.com/in/patdoe", "prov-1",
			"pending", nil, nil, "",
			now.Add(time.Duration(i)*time.Minute), now,
		)
	}
	return rows
}

func TestPendingProspectsOrdersOldestFirst(t *testing.T) {
	s, mock := newMockStore(t)
	campaignID := uuid.New()
	first, second := uuid.New(), uuid.New()

	mock.ExpectQuery("FROM campaign_prospects").
		WithArgs(campaignID, 5).
		WillReturnRows(prospectRows(first, second))

	got, err := s.PendingProspects(context.Background(), campaignID, 5)
	if err != nil {
		t.Fatalf("PendingProspects: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 prospects, got %d", len(got))
	}
	if got[0].ID != first || got[1].ID != second {
		t.Errorf("row order not preserved: %v, %v", got[0].ID, got[1].ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestNextDueEmpty(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM campaign_prospects").
		WillReturnRows(prospectRows())

	_, err := s.NextDue(context.Background(), time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkQueuedVerifiesRowCount(t *testing.T) {
	s, mock := newMockStore(t)
	campaignID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"all rows updated", 3, nil},
		{"short write", 2, ErrShortWrite},
		{"nothing updated", 0, ErrShortWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectExec("UPDATE campaign_prospects").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := s.MarkQueued(context.Background(), campaignID, ids)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("MarkQueued: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMarkQueuedEmptyBatchIsNoop(t *testing.T) {
	s, mock := newMockStore(t)

	if err := s.MarkQueued(context.Background(), uuid.New(), nil); err != nil {
		t.Fatalf("MarkQueued(nil): %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected statements executed: %v", err)
	}
}

func TestScheduleRequiresPendingRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE campaign_prospects").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Schedule(context.Background(), uuid.New(), uuid.New(), time.Now().Add(5*time.Minute))
	if !errors.Is(err, ErrShortWrite) {
		t.Fatalf("expected ErrShortWrite for missing row, got %v", err)
	}
}

func TestMarkSent(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE campaign_prospects").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.MarkSent(context.Background(), id); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
}

func TestDispatchedLast24h(t *testing.T) {
	s, mock := newMockStore(t)
	accountID := uuid.New()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))

	n, err := s.DispatchedLast24h(context.Background(), accountID)
	if err != nil {
		t.Fatalf("DispatchedLast24h: %v", err)
	}
	if n != 17 {
		t.Errorf("expected 17, got %d", n)
	}
}
