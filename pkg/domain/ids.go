// Package domain holds the shared primitives of the attendance platform:
// typed identifiers, the role hierarchy, weekday and time-of-day values.
//
// IDs are distinct uuid-backed types so the compiler rejects mixing a
// membership ID with a user ID. Parsing enforces "valid, non-empty, non-nil"
// at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "fichaje/pkg/domain-errors"
)

type (
	UserID       uuid.UUID
	CompanyID    uuid.UUID
	BranchID     uuid.UUID
	MembershipID uuid.UUID
	ScheduleID   uuid.UUID
	ShiftID      uuid.UUID
	ExceptionID  uuid.UUID
	IncidentID   uuid.UUID
	RecordID     uuid.UUID
)

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", what)
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseCompanyID(s string) (CompanyID, error) {
	u, err := parseUUID(s, "company id")
	return CompanyID(u), err
}

func ParseBranchID(s string) (BranchID, error) {
	u, err := parseUUID(s, "branch id")
	return BranchID(u), err
}

func ParseMembershipID(s string) (MembershipID, error) {
	u, err := parseUUID(s, "membership id")
	return MembershipID(u), err
}

func ParseScheduleID(s string) (ScheduleID, error) {
	u, err := parseUUID(s, "schedule id")
	return ScheduleID(u), err
}

func ParseShiftID(s string) (ShiftID, error) {
	u, err := parseUUID(s, "shift id")
	return ShiftID(u), err
}

func ParseExceptionID(s string) (ExceptionID, error) {
	u, err := parseUUID(s, "exception id")
	return ExceptionID(u), err
}

func ParseIncidentID(s string) (IncidentID, error) {
	u, err := parseUUID(s, "incident id")
	return IncidentID(u), err
}

func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record id")
	return RecordID(u), err
}

func (i UserID) String() string       { return uuid.UUID(i).String() }
func (i CompanyID) String() string    { return uuid.UUID(i).String() }
func (i BranchID) String() string     { return uuid.UUID(i).String() }
func (i MembershipID) String() string { return uuid.UUID(i).String() }
func (i ScheduleID) String() string   { return uuid.UUID(i).String() }
func (i ShiftID) String() string      { return uuid.UUID(i).String() }
func (i ExceptionID) String() string  { return uuid.UUID(i).String() }
func (i IncidentID) String() string   { return uuid.UUID(i).String() }
func (i RecordID) String() string     { return uuid.UUID(i).String() }

func (i UserID) IsNil() bool       { return uuid.UUID(i) == uuid.Nil }
func (i CompanyID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }
func (i BranchID) IsNil() bool     { return uuid.UUID(i) == uuid.Nil }
func (i MembershipID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i ScheduleID) IsNil() bool   { return uuid.UUID(i) == uuid.Nil }
func (i ShiftID) IsNil() bool      { return uuid.UUID(i) == uuid.Nil }
func (i ExceptionID) IsNil() bool  { return uuid.UUID(i) == uuid.Nil }
func (i IncidentID) IsNil() bool   { return uuid.UUID(i) == uuid.Nil }
func (i RecordID) IsNil() bool     { return uuid.UUID(i) == uuid.Nil }

// The ID types marshal as canonical UUID strings. uuid.UUID's methods don't
// carry over to the named types, so JSON would otherwise render the raw bytes.
func (i UserID) MarshalText() ([]byte, error)       { return []byte(i.String()), nil }
func (i CompanyID) MarshalText() ([]byte, error)    { return []byte(i.String()), nil }
func (i BranchID) MarshalText() ([]byte, error)     { return []byte(i.String()), nil }
func (i MembershipID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }
func (i ScheduleID) MarshalText() ([]byte, error)   { return []byte(i.String()), nil }
func (i ShiftID) MarshalText() ([]byte, error)      { return []byte(i.String()), nil }
func (i ExceptionID) MarshalText() ([]byte, error)  { return []byte(i.String()), nil }
func (i IncidentID) MarshalText() ([]byte, error)   { return []byte(i.String()), nil }
func (i RecordID) MarshalText() ([]byte, error)     { return []byte(i.String()), nil }

func (i *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	*i = parsed
	return err
}

func (i *CompanyID) UnmarshalText(b []byte) error {
	parsed, err := ParseCompanyID(string(b))
	*i = parsed
	return err
}

func (i *BranchID) UnmarshalText(b []byte) error {
	parsed, err := ParseBranchID(string(b))
	*i = parsed
	return err
}

func (i *MembershipID) UnmarshalText(b []byte) error {
	parsed, err := ParseMembershipID(string(b))
	*i = parsed
	return err
}

func (i *ScheduleID) UnmarshalText(b []byte) error {
	parsed, err := ParseScheduleID(string(b))
	*i = parsed
	return err
}

func (i *ShiftID) UnmarshalText(b []byte) error {
	parsed, err := ParseShiftID(string(b))
	*i = parsed
	return err
}

func (i *ExceptionID) UnmarshalText(b []byte) error {
	parsed, err := ParseExceptionID(string(b))
	*i = parsed
	return err
}

func (i *IncidentID) UnmarshalText(b []byte) error {
	parsed, err := ParseIncidentID(string(b))
	*i = parsed
	return err
}

func (i *RecordID) UnmarshalText(b []byte) error {
	parsed, err := ParseRecordID(string(b))
	*i = parsed
	return err
}

// NewUserID and friends mint fresh identifiers. Services mint IDs so stores
// stay free of generation concerns.
func NewUserID() UserID             { return UserID(uuid.New()) }
func NewCompanyID() CompanyID       { return CompanyID(uuid.New()) }
func NewBranchID() BranchID         { return BranchID(uuid.New()) }
func NewMembershipID() MembershipID { return MembershipID(uuid.New()) }
func NewScheduleID() ScheduleID     { return ScheduleID(uuid.New()) }
func NewShiftID() ShiftID           { return ShiftID(uuid.New()) }
func NewExceptionID() ExceptionID   { return ExceptionID(uuid.New()) }
func NewIncidentID() IncidentID     { return IncidentID(uuid.New()) }
func NewRecordID() RecordID         { return RecordID(uuid.New()) }
