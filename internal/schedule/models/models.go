package models

import (
	"time"

	id "fichaje/pkg/domain"
)

// ScheduleStatus tracks the lifecycle of a schedule. Drafts are editable and
// invisible to the resolver; confirming a draft activates it and closes any
// previously active schedule of the same member.
type ScheduleStatus string

const (
	ScheduleDraft  ScheduleStatus = "DRAFT"
	ScheduleActive ScheduleStatus = "ACTIVE"
	ScheduleClosed ScheduleStatus = "CLOSED"
)

// Schedule is the container for a member's shift blocks and exceptions.
// Validity is half-open: the schedule applies on dates d with
// ValidFrom <= d and (ValidTo == nil || d < ValidTo).
type Schedule struct {
	ID           id.ScheduleID   `json:"id"`
	MembershipID id.MembershipID `json:"membership_id"`
	CompanyID    id.CompanyID    `json:"company_id"`
	BranchID     id.BranchID     `json:"branch_id"`
	Status       ScheduleStatus  `json:"status"`
	ValidFrom    time.Time       `json:"valid_from"`
	ValidTo      *time.Time      `json:"valid_to,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ContainsDate reports whether the schedule's validity window covers the
// given calendar date.
func (s Schedule) ContainsDate(date time.Time) bool {
	d := id.DateOf(date)
	if d.Before(id.DateOf(s.ValidFrom)) {
		return false
	}
	if s.ValidTo != nil && !d.Before(id.DateOf(*s.ValidTo)) {
		return false
	}
	return true
}

// Shift is a recurring block on one weekday. Its own validity window lets a
// block be closed independently of the schedule, which is how forward
// deletions work.
type Shift struct {
	ID         id.ShiftID    `json:"id"`
	ScheduleID id.ScheduleID `json:"schedule_id"`
	Weekday    id.Weekday    `json:"weekday"`
	Start      id.TimeOfDay  `json:"start"`
	End        id.TimeOfDay  `json:"end"`
	ValidFrom  time.Time     `json:"valid_from"`
	ValidTo    *time.Time    `json:"valid_to,omitempty"`
}

// AppliesOn reports whether the shift produces a turn on the given date.
func (sh Shift) AppliesOn(date time.Time) bool {
	if id.WeekdayOf(date) != sh.Weekday {
		return false
	}
	d := id.DateOf(date)
	if d.Before(id.DateOf(sh.ValidFrom)) {
		return false
	}
	if sh.ValidTo != nil && d.After(id.DateOf(*sh.ValidTo)) {
		return false
	}
	return true
}

// OverlapsTime reports whether two time ranges on the same day intersect.
// Touching endpoints do not overlap.
func (sh Shift) OverlapsTime(start, end id.TimeOfDay) bool {
	return sh.Start.Before(end) && start.Before(sh.End)
}

// OverlapsValidity reports whether the shift's validity window intersects
// [from, to]. A nil bound is open-ended.
func (sh Shift) OverlapsValidity(from time.Time, to *time.Time) bool {
	if to != nil && id.DateOf(*to).Before(id.DateOf(sh.ValidFrom)) {
		return false
	}
	if sh.ValidTo != nil && id.DateOf(from).After(id.DateOf(*sh.ValidTo)) {
		return false
	}
	return true
}

// ExceptionType classifies a one-day deviation from the recurring pattern.
type ExceptionType string

const (
	// ExceptionVacation suppresses the whole day and flags it as vacation.
	ExceptionVacation ExceptionType = "VACATION"
	// ExceptionDayOff suppresses the whole day without the vacation flag.
	ExceptionDayOff ExceptionType = "DAY_OFF"
	// ExceptionModifiedShift removes the base turn with the exact same
	// start and end on that date.
	ExceptionModifiedShift ExceptionType = "MODIFIED_SHIFT"
	// ExceptionExtraShift adds a turn on that date.
	ExceptionExtraShift ExceptionType = "EXTRA_SHIFT"
)

func (t ExceptionType) IsValid() bool {
	switch t {
	case ExceptionVacation, ExceptionDayOff, ExceptionModifiedShift, ExceptionExtraShift:
		return true
	}
	return false
}

// Exception is a dated deviation attached to a schedule. Start and End are
// set only for MODIFIED_SHIFT and EXTRA_SHIFT.
type Exception struct {
	ID         id.ExceptionID `json:"id"`
	ScheduleID id.ScheduleID  `json:"schedule_id"`
	Date       time.Time      `json:"date"`
	Type       ExceptionType  `json:"type"`
	Start      *id.TimeOfDay  `json:"start,omitempty"`
	End        *id.TimeOfDay  `json:"end,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Turn is one expected presence block on a concrete date, after exceptions
// have been applied.
type Turn struct {
	Start id.TimeOfDay `json:"start"`
	End   id.TimeOfDay `json:"end"`
}

// Minutes returns the turn's duration in minutes.
func (t Turn) Minutes() int {
	return t.End.Sub(t.Start)
}

// DaySchedule is the fully resolved expectation for one member on one date.
type DaySchedule struct {
	Date       time.Time  `json:"date"`
	Weekday    id.Weekday `json:"weekday"`
	Turns      []Turn     `json:"turns"`
	IsDayOff   bool       `json:"is_day_off"`
	IsVacation bool       `json:"is_vacation"`
}

// HasWork reports whether any presence is expected on the day.
func (d DaySchedule) HasWork() bool {
	return !d.IsDayOff && !d.IsVacation && len(d.Turns) > 0
}
