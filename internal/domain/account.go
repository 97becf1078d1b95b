package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus enumerates sender account connection states.
type AccountStatus string

const (
	AccountConnected    AccountStatus = "connected"
	AccountDisconnected AccountStatus = "disconnected"
)

// SenderAccount is a workspace-scoped network identity used to perform
// sends. The scheduler never writes to it; connection repair is an
// operator concern.
type SenderAccount struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	WorkspaceID uuid.UUID     `json:"workspace_id" db:"workspace_id"`
	Provider    string        `json:"provider" db:"provider"`
	ExternalID  string        `json:"external_account_id" db:"external_account_id"`
	Name        string        `json:"account_name" db:"account_name"`
	Status      AccountStatus `json:"status" db:"status"`
	DailyLimit  int           `json:"daily_limit" db:"daily_limit"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

// Usable reports whether the account can carry outbound dispatches.
func (a *SenderAccount) Usable() bool {
	return a.Status == AccountConnected && a.ExternalID != ""
}
