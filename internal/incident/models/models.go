package models

import (
	"time"

	id "fichaje/pkg/domain"
)

// Type classifies the discrepancy an incident tracks.
type Type string

const (
	// TypeForgotIn is raised by the sweep when the expected start passed
	// with no IN punch.
	TypeForgotIn Type = "FORGOT_IN"
	// TypeNoShow is raised by the sweep when the shift ended with no IN
	// punch at all.
	TypeNoShow Type = "NO_SHOW"
	// TypeInEarly and friends are raised at punch time from the
	// evaluator's EARLY/LATE classification.
	TypeInEarly  Type = "IN_EARLY"
	TypeInLate   Type = "IN_LATE"
	TypeOutEarly Type = "OUT_EARLY"
	TypeOutLate  Type = "OUT_LATE"
	// TypeForgotOut is raised by the sweep when an OUT_LATE sat unresolved
	// for hours with no manual OUT.
	TypeForgotOut Type = "FORGOT_OUT"
	// TypeWrongIn and TypeWrongOut are synthesized by incident resolution,
	// never by a job.
	TypeWrongIn  Type = "WRONG_IN"
	TypeWrongOut Type = "WRONG_OUT"
	// TypeAdminNote is a manual annotation, excluded from all automatic
	// logic.
	TypeAdminNote Type = "ADMIN_NOTE"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeForgotIn, TypeNoShow, TypeInEarly, TypeInLate, TypeOutEarly,
		TypeOutLate, TypeForgotOut, TypeWrongIn, TypeWrongOut, TypeAdminNote:
		return true
	}
	return false
}

// Origin records which actor created the incident.
type Origin string

const (
	OriginSystem   Origin = "SYSTEM"
	OriginEmployee Origin = "EMPLOYEE"
	OriginAdmin    Origin = "ADMIN"
)

// State is the resolution state. PENDING incidents await the employee's
// answer; ADMITTED ones are kept for the record. The other terminal outcome
// is deletion with a corrective punch, which leaves no row behind.
type State string

const (
	StatePending  State = "PENDING"
	StateAdmitted State = "ADMITTED"
)

// Incident is one tracked discrepancy between the expected schedule and the
// punch trail.
type Incident struct {
	ID           id.IncidentID   `json:"id"`
	Type         Type            `json:"type"`
	Origin       Origin          `json:"origin"`
	State        State           `json:"state"`
	Admitted     bool            `json:"admitted"`
	UserID       id.UserID       `json:"user_id"`
	MembershipID id.MembershipID `json:"membership_id"`
	CompanyID    id.CompanyID    `json:"company_id"`
	BranchID     id.BranchID     `json:"branch_id"`
	ExpectedAt   time.Time       `json:"expected_at"`
	OccurredAt   time.Time       `json:"occurred_at"`
	RecordID     *id.RecordID    `json:"record_id,omitempty"`
	Note         string          `json:"note,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Answer is the employee's response to a pending incident.
type Answer string

const (
	AnswerYes Answer = "YES"
	AnswerNo  Answer = "NO"
)

func (a Answer) IsValid() bool {
	return a == AnswerYes || a == AnswerNo
}

// Filter narrows incident listings. Zero fields are ignored.
type Filter struct {
	CompanyID    id.CompanyID
	BranchID     id.BranchID
	UserID       id.UserID
	MembershipID id.MembershipID
	Types        []Type
	From         time.Time
	To           time.Time
	PendingOnly  bool
}
