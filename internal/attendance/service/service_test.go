package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fichaje/internal/attendance/models"
	recordstore "fichaje/internal/attendance/store/record"
	incidentmodels "fichaje/internal/incident/models"
	incidentservice "fichaje/internal/incident/service"
	incidentstore "fichaje/internal/incident/store/incident"
	scheduleservice "fichaje/internal/schedule/service"
	exceptionstore "fichaje/internal/schedule/store/exception"
	schedulestore "fichaje/internal/schedule/store/schedule"
	shiftstore "fichaje/internal/schedule/store/shift"
	tenantmodels "fichaje/internal/tenant/models"
	tenantservice "fichaje/internal/tenant/service"
	membershipstore "fichaje/internal/tenant/store/membership"
	id "fichaje/pkg/domain"
	dErrors "fichaje/pkg/domain-errors"
	"fichaje/pkg/platform/tx"
	"fichaje/pkg/testutil"
)

// Tuesday with a 09:00-13:00 shift.
var punchDay = testutil.MustTime("2026-03-10T00:00:00Z")

type PunchSuite struct {
	suite.Suite
	svc       *Service
	schedules *scheduleservice.Service
	incidents *incidentstore.InMemory
	records   *recordstore.InMemory
	member    tenantmodels.Membership
}

func (s *PunchSuite) SetupTest() {
	s.records = recordstore.NewInMemory()
	s.incidents = incidentstore.NewInMemory()
	memberships := membershipstore.NewInMemory()

	s.member = tenantmodels.Membership{
		ID:        id.NewMembershipID(),
		UserID:    id.NewUserID(),
		CompanyID: id.NewCompanyID(),
		BranchID:  id.NewBranchID(),
		Role:      id.RoleEmpleado,
		Active:    true,
		CreatedAt: punchDay,
	}
	s.Require().NoError(memberships.Create(context.Background(), s.member))

	s.schedules = scheduleservice.New(schedulestore.NewInMemory(), shiftstore.NewInMemory(), exceptionstore.NewInMemory(), tx.NopRunner{})
	tenants := tenantservice.New(memberships)
	incidents := incidentservice.New(s.incidents, s.records, tx.NopRunner{})
	s.svc = New(s.records, s.schedules, tenants, incidents, tx.NopRunner{})

	ctx := s.at("08:00")
	sch, err := s.schedules.CreateDraft(ctx, s.member, punchDay)
	s.Require().NoError(err)
	_, err = s.schedules.AddShift(ctx, sch.ID, scheduleservice.AddShiftInput{
		Weekday:   id.Tuesday,
		Start:     id.MustTimeOfDay("09:00"),
		End:       id.MustTimeOfDay("13:00"),
		ValidFrom: punchDay,
	})
	s.Require().NoError(err)
	_, err = s.schedules.Confirm(ctx, sch.ID)
	s.Require().NoError(err)
}

func TestPunchSuite(t *testing.T) {
	suite.Run(t, new(PunchSuite))
}

// at builds an authenticated context frozen at the given clock on the test
// day.
func (s *PunchSuite) at(clock string) context.Context {
	now := id.MustTimeOfDay(clock).At(punchDay)
	return testutil.ActorContext(now, s.member.UserID, s.member.CompanyID, s.member.Role)
}

func (s *PunchSuite) memberIncidents() []incidentmodels.Incident {
	out, err := s.incidents.List(context.Background(), incidentmodels.Filter{MembershipID: s.member.ID})
	s.Require().NoError(err)
	return out
}

func (s *PunchSuite) TestOnTimePunches() {
	res, err := s.svc.PunchIn(s.at("09:05"))
	s.Require().NoError(err)
	s.Equal(models.StatusOK, res.Evaluation.Status)
	s.False(res.RequiresConfirmation)

	res, err = s.svc.PunchOut(s.at("13:10"))
	s.Require().NoError(err)
	s.Equal(models.StatusOK, res.Evaluation.Status)

	s.Empty(s.memberIncidents())
}

func (s *PunchSuite) TestPunchIncidents() {
	s.Run("early in raises IN_EARLY", func() {
		res, err := s.svc.PunchIn(s.at("08:30"))
		s.Require().NoError(err)
		s.Equal(models.StatusEarly, res.Evaluation.Status)

		incs := s.memberIncidents()
		s.Require().Len(incs, 1)
		s.Equal(incidentmodels.TypeInEarly, incs[0].Type)
		s.Equal(incidentmodels.StatePending, incs[0].State)
		s.Require().NotNil(incs[0].RecordID)
		s.Equal(res.Record.ID, *incs[0].RecordID)
	})

	s.Run("early out raises OUT_EARLY, not IN_EARLY", func() {
		res, err := s.svc.PunchOut(s.at("11:00"))
		s.Require().NoError(err)
		s.Equal(models.StatusEarly, res.Evaluation.Status)

		incs := s.memberIncidents()
		s.Require().Len(incs, 2)
		s.Equal(incidentmodels.TypeOutEarly, incs[0].Type, "newest first")
	})
}

func (s *PunchSuite) TestLatePunchIncidents() {
	_, err := s.svc.PunchIn(s.at("09:20"))
	s.Require().NoError(err)
	_, err = s.svc.PunchOut(s.at("13:40"))
	s.Require().NoError(err)

	incs := s.memberIncidents()
	s.Require().Len(incs, 2)
	s.Equal(incidentmodels.TypeOutLate, incs[0].Type, "newest first")
	s.Equal(incidentmodels.TypeInLate, incs[1].Type)
}

func (s *PunchSuite) TestAlternationGuard() {
	s.Run("out without an open in is rejected", func() {
		_, err := s.svc.PunchOut(s.at("09:00"))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("two consecutive ins are rejected", func() {
		_, err := s.svc.PunchIn(s.at("09:00"))
		s.Require().NoError(err)
		_, err = s.svc.PunchIn(s.at("09:01"))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("a rejected punch leaves no record behind", func() {
		records, err := s.records.ListRecent(context.Background(), s.member.ID, 10)
		s.Require().NoError(err)
		s.Len(records, 1)
	})
}

func (s *PunchSuite) TestConcurrentPunchesKeepAlternation() {
	ctx := s.at("09:00")

	var (
		wg       sync.WaitGroup
		admitted atomic.Int32
	)
	for range 25 {
		wg.Go(func() {
			if _, err := s.svc.PunchIn(ctx); err == nil {
				admitted.Add(1)
			}
		})
	}
	wg.Wait()

	s.Equal(int32(1), admitted.Load(), "exactly one of the racing punches lands")
	records, err := s.records.ListRecent(context.Background(), s.member.ID, 50)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(id.RecordIn, records[0].Type)
}

func (s *PunchSuite) TestOffScheduleIn() {
	// Wednesday has no shift.
	wednesday := punchDay.AddDate(0, 0, 1)
	ctx := testutil.ActorContext(
		id.MustTimeOfDay("09:00").At(wednesday),
		s.member.UserID, s.member.CompanyID, s.member.Role)

	res, err := s.svc.PunchIn(ctx)
	s.Require().NoError(err)
	s.Equal(models.StatusNoShift, res.Evaluation.Status)
	s.True(res.RequiresConfirmation)
	s.Empty(s.memberIncidents(), "off-schedule punches raise nothing until the member answers")

	s.Run("answering yes keeps the trail as is", func() {
		s.Require().NoError(s.svc.ConfirmWorking(ctx, res.Record.ID, true))
		s.Empty(s.memberIncidents())
	})

	s.Run("answering no raises WRONG_IN and closes the interval", func() {
		s.Require().NoError(s.svc.ConfirmWorking(ctx, res.Record.ID, false))

		incs := s.memberIncidents()
		s.Require().Len(incs, 1)
		s.Equal(incidentmodels.TypeWrongIn, incs[0].Type)
		s.Equal(incidentmodels.OriginEmployee, incs[0].Origin)

		records, err := s.records.ListRecent(context.Background(), s.member.ID, 10)
		s.Require().NoError(err)
		s.Require().Len(records, 2)
		s.Equal(id.RecordOut, records[0].Type)
		s.True(records[0].Corrective)
		s.Equal(res.Record.At.Add(time.Second), records[0].At)
	})
}

func (s *PunchSuite) TestConfirmWorkingOwnership() {
	res, err := s.svc.PunchIn(s.at("09:00"))
	s.Require().NoError(err)

	other := tenantmodels.Membership{
		ID:        id.NewMembershipID(),
		UserID:    id.NewUserID(),
		CompanyID: s.member.CompanyID,
		BranchID:  s.member.BranchID,
		Role:      id.RoleEmpleado,
		Active:    true,
	}
	memberships := membershipstore.NewInMemory()
	s.Require().NoError(memberships.Create(context.Background(), other))
	tenants := tenantservice.New(memberships)
	incidents := incidentservice.New(s.incidents, s.records, tx.NopRunner{})
	otherSvc := New(s.records, s.schedules, tenants, incidents, tx.NopRunner{})

	otherCtx := testutil.ActorContext(
		id.MustTimeOfDay("09:30").At(punchDay),
		other.UserID, other.CompanyID, other.Role)
	err = otherSvc.ConfirmWorking(otherCtx, res.Record.ID, false)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *PunchSuite) TestRecentRecords() {
	_, err := s.svc.PunchIn(s.at("09:00"))
	s.Require().NoError(err)
	_, err = s.svc.PunchOut(s.at("13:00"))
	s.Require().NoError(err)

	records, err := s.svc.RecentRecords(s.at("14:00"))
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(id.RecordOut, records[0].Type, "newest first")
}
