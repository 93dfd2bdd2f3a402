package points

import (
	"github.com/google/uuid"

	"github.com/pointbank/pointbank-backend/pkg/enums"
)

// GrantPointsInput is a batch credit (or debit) against many users.
type GrantPointsInput struct {
	ActorUserID uuid.UUID
	ActorRole   enums.Role
	UserIDs     []uuid.UUID
	Amount      int
	Description string
}

// Grant outcome statuses. Each user in the batch resolves independently.
const (
	GrantStatusGranted = "granted"
	GrantStatusSkipped = "skipped"
	GrantStatusFailed  = "failed"
)

// GrantOutcome reports how one user in the batch fared.
type GrantOutcome struct {
	UserID     uuid.UUID `json:"user_id"`
	Status     string    `json:"status"`
	NewBalance *int      `json:"new_balance,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// GrantResult wraps the per-user outcomes plus tallies.
type GrantResult struct {
	Outcomes []GrantOutcome `json:"outcomes"`
	Granted  int            `json:"granted"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
}

// HistoryParams selects a page of one user's transaction history on behalf of
// an actor.
type HistoryParams struct {
	TargetUserID uuid.UUID
	ActorUserID  uuid.UUID
	ActorRole    enums.Role
	Limit        int
	Cursor       string
}

// RosterScope filters the student roster.
type RosterScope string

const (
	RosterScopeAll        RosterScope = "all"
	RosterScopeUnassigned RosterScope = "unassigned"
	RosterScopeClass      RosterScope = "class"
)

// RosterParams selects students for the teacher roster view.
type RosterParams struct {
	ActorRole enums.Role
	Scope     RosterScope
	ClassID   int64
}

// StudentRow is one roster entry with the student's current balance.
type StudentRow struct {
	UserID          uuid.UUID `json:"user_id"`
	Username        string    `json:"username"`
	Name            string    `json:"name"`
	ClassID         *int64    `json:"class_id,omitempty"`
	ClassName       string    `json:"class_name,omitempty"`
	Balance         int       `json:"balance"`
	IsActiveStudent bool      `json:"is_active_student"`
}
