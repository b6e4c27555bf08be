package models

import (
	"time"

	id "fichaje/pkg/domain"
)

// Record is one punch in a member's trail. Records alternate strictly
// IN, OUT, IN, OUT; corrective records synthesized by incident resolution
// carry the Corrective flag and keep the alternation intact.
type Record struct {
	ID           id.RecordID     `json:"id"`
	Type         id.RecordType   `json:"type"`
	UserID       id.UserID       `json:"user_id"`
	MembershipID id.MembershipID `json:"membership_id"`
	CompanyID    id.CompanyID    `json:"company_id"`
	BranchID     id.BranchID     `json:"branch_id"`
	At           time.Time       `json:"at"`
	Corrective   bool            `json:"corrective"`
}

// EvaluationStatus is the evaluator's verdict on a punch.
type EvaluationStatus string

const (
	StatusOK      EvaluationStatus = "OK"
	StatusEarly   EvaluationStatus = "EARLY"
	StatusLate    EvaluationStatus = "LATE"
	StatusNoShift EvaluationStatus = "NO_SHIFT"
)

// Evaluation is the outcome of matching a punch against the day's turns.
// ExpectedAt and DiffMinutes are meaningful only when Status is not NO_SHIFT.
type Evaluation struct {
	Status      EvaluationStatus `json:"status"`
	ExpectedAt  time.Time        `json:"expected_at,omitempty"`
	DiffMinutes int              `json:"diff_minutes,omitempty"`
}

// PunchResult is what the punch endpoints return: the stored record, its
// evaluation, and whether the member must confirm an off-schedule IN.
type PunchResult struct {
	Record               Record     `json:"record"`
	Evaluation           Evaluation `json:"evaluation"`
	RequiresConfirmation bool       `json:"requires_confirmation"`
}
