package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fichaje/internal/schedule/models"
	exceptionstore "fichaje/internal/schedule/store/exception"
	schedulestore "fichaje/internal/schedule/store/schedule"
	shiftstore "fichaje/internal/schedule/store/shift"
	tenantmodels "fichaje/internal/tenant/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/platform/tx"
	"fichaje/pkg/testutil"
)

type ResolverSuite struct {
	suite.Suite
	svc    *Service
	ctx    context.Context
	member tenantmodels.Membership
	sch    models.Schedule
}

func (s *ResolverSuite) SetupTest() {
	s.svc = New(schedulestore.NewInMemory(), shiftstore.NewInMemory(), exceptionstore.NewInMemory(), tx.NopRunner{})
	s.ctx = testutil.ContextAt(testNow)
	s.member = tenantmodels.Membership{
		ID:        id.NewMembershipID(),
		UserID:    id.NewUserID(),
		CompanyID: id.NewCompanyID(),
		BranchID:  id.NewBranchID(),
		Role:      id.RoleEmpleado,
		Active:    true,
	}
	sch, err := s.svc.CreateDraft(s.ctx, s.member, testNow)
	s.Require().NoError(err)
	s.addShift(sch, id.Tuesday, "09:00", "13:00")
	s.addShift(sch, id.Tuesday, "15:00", "19:00")
	s.sch, err = s.svc.Confirm(s.ctx, sch.ID)
	s.Require().NoError(err)
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) addShift(sch models.Schedule, weekday id.Weekday, start, end string) {
	_, err := s.svc.AddShift(s.ctx, sch.ID, AddShiftInput{
		Weekday:   weekday,
		Start:     id.MustTimeOfDay(start),
		End:       id.MustTimeOfDay(end),
		ValidFrom: testNow,
	})
	s.Require().NoError(err)
}

func (s *ResolverSuite) TestBaseResolution() {
	s.Run("matching weekday yields the turns in order", func() {
		day, err := s.svc.ResolveDay(s.ctx, s.member.ID, testNow)
		s.Require().NoError(err)
		s.Require().Len(day.Turns, 2)
		s.Equal(id.MustTimeOfDay("09:00"), day.Turns[0].Start)
		s.Equal(id.MustTimeOfDay("15:00"), day.Turns[1].Start)
		s.True(day.HasWork())
	})

	s.Run("other weekdays are empty", func() {
		day, err := s.svc.ResolveDay(s.ctx, s.member.ID, testNow.AddDate(0, 0, 1))
		s.Require().NoError(err)
		s.Empty(day.Turns)
		s.False(day.HasWork())
	})

	s.Run("member without schedule resolves to an empty day, not an error", func() {
		day, err := s.svc.ResolveDay(s.ctx, id.NewMembershipID(), testNow)
		s.Require().NoError(err)
		s.Empty(day.Turns)
		s.False(day.IsDayOff)
		s.False(day.IsVacation)
	})

	s.Run("dates before the schedule's validity are empty", func() {
		day, err := s.svc.ResolveDay(s.ctx, s.member.ID, testNow.AddDate(0, 0, -7))
		s.Require().NoError(err)
		s.Empty(day.Turns)
	})
}

func (s *ResolverSuite) TestExceptionPrecedence() {
	s.Run("vacation wipes the day and wins over block deviations", func() {
		start, end := id.MustTimeOfDay("20:00"), id.MustTimeOfDay("22:00")
		s.Require().NoError(s.svc.AddExceptions(s.ctx, s.sch.ID, []ExceptionInput{
			{Date: testNow, Type: models.ExceptionExtraShift, Start: &start, End: &end},
		}))
		s.Require().NoError(s.svc.AddVacation(s.ctx, s.sch.ID, []time.Time{testNow}))

		day, err := s.svc.ResolveDay(s.ctx, s.member.ID, testNow)
		s.Require().NoError(err)
		s.True(day.IsVacation)
		s.Empty(day.Turns)
	})

	s.Run("day off wipes the day without the vacation flag", func() {
		target := testNow.AddDate(0, 0, 7)
		s.Require().NoError(s.svc.AddExceptions(s.ctx, s.sch.ID, []ExceptionInput{
			{Date: target, Type: models.ExceptionDayOff},
		}))

		day, err := s.svc.ResolveDay(s.ctx, s.member.ID, target)
		s.Require().NoError(err)
		s.True(day.IsDayOff)
		s.False(day.IsVacation)
		s.Empty(day.Turns)
	})

	s.Run("modified shift removes only the exact matching turn", func() {
		target := testNow.AddDate(0, 0, 14)
		start, end := id.MustTimeOfDay("09:00"), id.MustTimeOfDay("13:00")
		s.Require().NoError(s.svc.AddExceptions(s.ctx, s.sch.ID, []ExceptionInput{
			{Date: target, Type: models.ExceptionModifiedShift, Start: &start, End: &end},
		}))

		day, err := s.svc.ResolveDay(s.ctx, s.member.ID, target)
		s.Require().NoError(err)
		s.Require().Len(day.Turns, 1)
		s.Equal(id.MustTimeOfDay("15:00"), day.Turns[0].Start)
	})

	s.Run("extra shift appends a turn in sorted position", func() {
		target := testNow.AddDate(0, 0, 21)
		start, end := id.MustTimeOfDay("06:00"), id.MustTimeOfDay("08:00")
		s.Require().NoError(s.svc.AddExceptions(s.ctx, s.sch.ID, []ExceptionInput{
			{Date: target, Type: models.ExceptionExtraShift, Start: &start, End: &end},
		}))

		day, err := s.svc.ResolveDay(s.ctx, s.member.ID, target)
		s.Require().NoError(err)
		s.Require().Len(day.Turns, 3)
		s.Equal(id.MustTimeOfDay("06:00"), day.Turns[0].Start)
	})
}

func (s *ResolverSuite) TestWeekGrid() {
	s.Run("week always starts on Monday regardless of anchor", func() {
		for offset := 0; offset < 7; offset++ {
			anchor := testNow.AddDate(0, 0, offset)
			week, err := s.svc.WeekGrid(s.ctx, s.member.ID, anchor)
			s.Require().NoError(err)
			s.Require().Len(week, 7)
			s.Equal(id.Monday, week[0].Weekday)
			s.Equal(id.Sunday, week[6].Weekday)
		}
	})

	s.Run("the grid carries the resolved turns", func() {
		week, err := s.svc.WeekGrid(s.ctx, s.member.ID, testNow)
		s.Require().NoError(err)
		s.Empty(week[0].Turns)  // Monday
		s.Len(week[1].Turns, 2) // Tuesday
		s.Empty(week[2].Turns)  // Wednesday
	})
}

// TestResolutionIsPure verifies resolving never mutates stored state: the
// same inputs give the same day, run after run.
func (s *ResolverSuite) TestResolutionIsPure() {
	first, err := s.svc.ResolveDay(s.ctx, s.member.ID, testNow)
	s.Require().NoError(err)
	for i := 0; i < 5; i++ {
		again, err := s.svc.ResolveDay(s.ctx, s.member.ID, testNow)
		s.Require().NoError(err)
		s.Equal(first, again)
	}
}
