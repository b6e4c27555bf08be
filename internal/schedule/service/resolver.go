package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"fichaje/internal/schedule/models"
	id "fichaje/pkg/domain"
	dErrors "fichaje/pkg/domain-errors"
	"fichaje/pkg/platform/sentinel"
)

// ResolveDay computes the expected presence of a member on one date: the
// blocks of the active schedule whose weekday and validity match, with the
// date's exceptions applied. A member without an active schedule covering the
// date gets an empty day, not an error; punching on such a day is handled
// downstream as an off-schedule punch.
//
// Exception precedence: a VACATION or DAY_OFF wipes the whole day and wins
// over block-level deviations. Otherwise MODIFIED_SHIFT removes the base
// block with the exact same start and end, and EXTRA_SHIFT appends one.
func (s *Service) ResolveDay(ctx context.Context, membershipID id.MembershipID, date time.Time) (models.DaySchedule, error) {
	day := models.DaySchedule{
		Date:    id.DateOf(date),
		Weekday: id.WeekdayOf(date),
	}

	sch, err := s.schedules.FindActiveForDate(ctx, membershipID, date)
	if errors.Is(err, sentinel.ErrNotFound) {
		return day, nil
	}
	if err != nil {
		return models.DaySchedule{}, dErrors.Wrap(err, dErrors.CodeInternal, "finding active schedule")
	}

	shifts, err := s.shifts.ListByScheduleWeekday(ctx, sch.ID, day.Weekday)
	if err != nil {
		return models.DaySchedule{}, dErrors.Wrap(err, dErrors.CodeInternal, "listing shifts")
	}
	for _, sh := range shifts {
		if sh.AppliesOn(date) {
			day.Turns = append(day.Turns, models.Turn{Start: sh.Start, End: sh.End})
		}
	}

	exceptions, err := s.exceptions.ListForDate(ctx, sch.ID, date)
	if err != nil {
		return models.DaySchedule{}, dErrors.Wrap(err, dErrors.CodeInternal, "listing exceptions")
	}
	for _, e := range exceptions {
		switch e.Type {
		case models.ExceptionVacation:
			day.Turns = nil
			day.IsVacation = true
			return day, nil
		case models.ExceptionDayOff:
			day.Turns = nil
			day.IsDayOff = true
			return day, nil
		}
	}
	for _, e := range exceptions {
		switch e.Type {
		case models.ExceptionModifiedShift:
			if e.Start == nil || e.End == nil {
				continue
			}
			day.Turns = removeTurn(day.Turns, models.Turn{Start: *e.Start, End: *e.End})
		case models.ExceptionExtraShift:
			if e.Start == nil || e.End == nil {
				continue
			}
			day.Turns = append(day.Turns, models.Turn{Start: *e.Start, End: *e.End})
		}
	}

	sort.Slice(day.Turns, func(i, j int) bool { return day.Turns[i].Start.Before(day.Turns[j].Start) })
	return day, nil
}

// removeTurn drops the first turn equal to target.
func removeTurn(turns []models.Turn, target models.Turn) []models.Turn {
	for i, t := range turns {
		if t == target {
			return append(turns[:i], turns[i+1:]...)
		}
	}
	return turns
}

// WeekGrid resolves the seven days of the week containing the anchor date,
// normalized to start on Monday. This backs the schedule screen.
func (s *Service) WeekGrid(ctx context.Context, membershipID id.MembershipID, anchor time.Time) ([]models.DaySchedule, error) {
	monday := id.DateOf(anchor).AddDate(0, 0, -int(id.WeekdayOf(anchor)-id.Monday))
	days := make([]models.DaySchedule, 0, 7)
	for i := 0; i < 7; i++ {
		day, err := s.ResolveDay(ctx, membershipID, monday.AddDate(0, 0, i))
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

// ActiveScheduleFor returns the member's active schedule covering the date.
func (s *Service) ActiveScheduleFor(ctx context.Context, membershipID id.MembershipID, date time.Time) (models.Schedule, error) {
	sch, err := s.schedules.FindActiveForDate(ctx, membershipID, date)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Schedule{}, dErrors.New(dErrors.CodeNotFound, "no active schedule for date")
	}
	if err != nil {
		return models.Schedule{}, dErrors.Wrap(err, dErrors.CodeInternal, "finding active schedule")
	}
	return sch, nil
}

// ListActiveSchedules returns every active schedule covering the instant,
// across all members. The nightly jobs iterate this.
func (s *Service) ListActiveSchedules(ctx context.Context, at time.Time) ([]models.Schedule, error) {
	out, err := s.schedules.ListActiveAt(ctx, at)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing active schedules")
	}
	return out, nil
}
