package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	attendancemodels "fichaje/internal/attendance/models"
	recordstore "fichaje/internal/attendance/store/record"
	"fichaje/internal/incident/models"
	incidentstore "fichaje/internal/incident/store/incident"
	id "fichaje/pkg/domain"
	dErrors "fichaje/pkg/domain-errors"
	"fichaje/pkg/platform/tx"
	"fichaje/pkg/testutil"
)

type RespondSuite struct {
	suite.Suite
	svc     *Service
	store   *incidentstore.InMemory
	records *recordstore.InMemory

	userID       id.UserID
	membershipID id.MembershipID
	companyID    id.CompanyID
	branchID     id.BranchID
	now          time.Time
	expectedAt   time.Time
}

func (s *RespondSuite) SetupTest() {
	s.store = incidentstore.NewInMemory()
	s.records = recordstore.NewInMemory()
	s.svc = New(s.store, s.records, tx.NopRunner{})

	s.userID = id.NewUserID()
	s.membershipID = id.NewMembershipID()
	s.companyID = id.NewCompanyID()
	s.branchID = id.NewBranchID()
	s.now = testutil.MustTime("2026-03-10T10:00:00Z")
	s.expectedAt = testutil.MustTime("2026-03-10T09:00:00Z")
}

func TestRespondSuite(t *testing.T) {
	suite.Run(t, new(RespondSuite))
}

func (s *RespondSuite) ctx() context.Context {
	return testutil.ActorContext(s.now, s.userID, s.companyID, id.RoleEmpleado)
}

// seed stores a pending incident, optionally linked to a trigger punch.
func (s *RespondSuite) seed(t models.Type, direction id.RecordType, withRecord bool) models.Incident {
	inc := models.Incident{
		ID:           id.NewIncidentID(),
		Type:         t,
		Origin:       models.OriginSystem,
		State:        models.StatePending,
		UserID:       s.userID,
		MembershipID: s.membershipID,
		CompanyID:    s.companyID,
		BranchID:     s.branchID,
		ExpectedAt:   s.expectedAt,
		OccurredAt:   s.now.Add(-30 * time.Minute),
		CreatedAt:    s.now.Add(-30 * time.Minute),
	}
	if withRecord {
		r := attendancemodels.Record{
			ID:           id.NewRecordID(),
			Type:         direction,
			UserID:       s.userID,
			MembershipID: s.membershipID,
			CompanyID:    s.companyID,
			BranchID:     s.branchID,
			At:           inc.OccurredAt,
		}
		s.Require().NoError(s.records.Create(context.Background(), r))
		inc.RecordID = &r.ID
	}
	s.Require().NoError(s.store.Create(context.Background(), inc))
	return inc
}

func (s *RespondSuite) all() []models.Incident {
	out, err := s.store.List(context.Background(), models.Filter{MembershipID: s.membershipID})
	s.Require().NoError(err)
	return out
}

func (s *RespondSuite) correctives() []attendancemodels.Record {
	records, err := s.records.ListRecent(context.Background(), s.membershipID, 20)
	s.Require().NoError(err)
	var out []attendancemodels.Record
	for _, r := range records {
		if r.Corrective {
			out = append(out, r)
		}
	}
	return out
}

func (s *RespondSuite) TestGuards() {
	inc := s.seed(models.TypeInEarly, id.RecordIn, true)

	s.Run("invalid answer", func() {
		_, err := s.svc.Respond(s.ctx(), inc.ID, models.Answer("MAYBE"))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown incident", func() {
		_, err := s.svc.Respond(s.ctx(), id.NewIncidentID(), models.AnswerYes)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("only the owner may respond", func() {
		stranger := testutil.ActorContext(s.now, id.NewUserID(), s.companyID, id.RoleEmpleado)
		_, err := s.svc.Respond(stranger, inc.ID, models.AnswerYes)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *RespondSuite) TestRespondIsIdempotent() {
	inc := s.seed(models.TypeInEarly, id.RecordIn, true)

	first, err := s.svc.Respond(s.ctx(), inc.ID, models.AnswerYes)
	s.Require().NoError(err)
	s.Equal(models.StateAdmitted, first.State)

	// A retried answer, even the opposite one, changes nothing.
	second, err := s.svc.Respond(s.ctx(), inc.ID, models.AnswerNo)
	s.Require().NoError(err)
	s.Equal(first, second)
	s.Empty(s.correctives())
}

func (s *RespondSuite) TestInEarly() {
	s.Run("yes admits the early arrival", func() {
		inc := s.seed(models.TypeInEarly, id.RecordIn, true)
		out, err := s.svc.Respond(s.ctx(), inc.ID, models.AnswerYes)
		s.Require().NoError(err)
		s.Equal(models.StateAdmitted, out.State)
		s.True(out.Admitted)
		s.Empty(s.correctives())
	})

	s.Run("no replaces it with WRONG_IN and closes the interval", func() {
		inc := s.seed(models.TypeInEarly, id.RecordIn, true)
		out, err := s.svc.Respond(s.ctx(), inc.ID, models.AnswerNo)
		s.Require().NoError(err)
		s.Equal(models.TypeWrongIn, out.Type)
		s.Equal(models.OriginEmployee, out.Origin)
		s.Equal(models.StateAdmitted, out.State)

		_, err = s.store.FindByID(context.Background(), inc.ID)
		s.Error(err, "the original incident is gone")

		corr := s.correctives()
		s.Require().Len(corr, 1)
		s.Equal(id.RecordOut, corr[0].Type)
		s.Equal(inc.OccurredAt.Add(time.Second), corr[0].At)
	})
}

func (s *RespondSuite) TestOutEarly() {
	s.Run("yes means the OUT was a mistake", func() {
		inc := s.seed(models.TypeOutEarly, id.RecordOut, true)
		out, err := s.svc.Respond(s.ctx(), inc.ID, models.AnswerYes)
		s.Require().NoError(err)
		s.Equal(models.TypeWrongOut, out.Type)

		corr := s.correctives()
		s.Require().Len(corr, 1)
		s.Equal(id.RecordIn, corr[0].Type, "a corrective IN reopens the interval")
		s.Equal(inc.OccurredAt.Add(time.Second), corr[0].At)
	})

	s.Run("no admits the early leave", func() {
		inc := s.seed(models.TypeOutEarly, id.RecordOut, true)
		out, err := s.svc.Respond(s.ctx(), inc.ID, models.AnswerNo)
		s.Require().NoError(err)
		s.Equal(models.TypeOutEarly, out.Type)
		s.Equal(models.StateAdmitted, out.State)
	})
}

func (s *RespondSuite) TestOutLate() {
	s.Run("yes admits the late OUT", func() {
		inc := s.seed(models.TypeOutLate, id.RecordOut, true)
		out, err := s.svc.Respond(s.ctx(), inc.ID, models.AnswerYes)
		s.Require().NoError(err)
		s.Equal(models.StateAdmitted, out.State)
		s.Empty(s.correctives())
	})

	s.Run("no raises FORGOT_OUT next to a linked punch", func() {
		inc := s.seed(models.TypeOutLate, id.RecordOut, true)
		out, err := s.svc.Respond(s.ctx(), inc.ID, models.AnswerNo)
		s.Require().NoError(err)
		s.Equal(models.StateAdmitted, out.State)

		incs := s.all()
		s.Require().Len(incs, 2)
		s.Equal(models.TypeForgotOut, incs[0].Type, "newest first")
		s.Equal(models.StateAdmitted, incs[0].State)

		corr := s.correctives()
		s.Require().Len(corr, 1)
		s.Equal(inc.OccurredAt.Add(time.Second), corr[0].At)
	})

}

// Sweep-created OUT_LATE incidents have no trigger punch, so the corrective
// OUT lands at the expected shift end instead of next to a record.
func (s *RespondSuite) TestOutLateFromSweep() {
	inc := s.seed(models.TypeOutLate, id.RecordOut, false)
	_, err := s.svc.Respond(s.ctx(), inc.ID, models.AnswerNo)
	s.Require().NoError(err)

	corr := s.correctives()
	s.Require().Len(corr, 1)
	s.Equal(s.expectedAt, corr[0].At)
}

func (s *RespondSuite) TestForgotOut() {
	s.Run("yes leaves it pending for admin review", func() {
		inc := s.seed(models.TypeForgotOut, id.RecordOut, false)
		out, err := s.svc.Respond(s.ctx(), inc.ID, models.AnswerYes)
		s.Require().NoError(err)
		s.Equal(models.StatePending, out.State)
		s.Empty(s.correctives())
	})

	s.Run("no closes the interval at the expected end", func() {
		inc := s.seed(models.TypeForgotOut, id.RecordOut, false)
		out, err := s.svc.Respond(s.ctx(), inc.ID, models.AnswerNo)
		s.Require().NoError(err)
		s.Equal(models.StateAdmitted, out.State)

		corr := s.correctives()
		s.Require().Len(corr, 1)
		s.Equal(id.RecordOut, corr[0].Type)
		s.Equal(s.expectedAt, corr[0].At)
	})
}

func (s *RespondSuite) TestInformationalTypes() {
	inc := s.seed(models.TypeInLate, id.RecordIn, true)
	out, err := s.svc.Respond(s.ctx(), inc.ID, models.AnswerNo)
	s.Require().NoError(err)
	s.Equal(models.StateAdmitted, out.State)
	s.False(out.Admitted, "the answer is kept on the settled incident")
	s.Empty(s.correctives())
}
