package service

import (
	"context"
	"errors"
	"time"

	attendancemodels "fichaje/internal/attendance/models"
	"fichaje/internal/incident/models"
	id "fichaje/pkg/domain"
	dErrors "fichaje/pkg/domain-errors"
	"fichaje/pkg/platform/sentinel"
	"fichaje/pkg/requestcontext"
)

// Respond applies the employee's YES/NO answer to a pending incident. Only
// the incident's own user may respond, and answering a non-pending incident
// is a no-op rather than an error, so retried requests are safe.
//
// The whole resolution, including any corrective punch and incident deletion,
// runs in one transaction: a crash can't leave a corrective record without
// its incident decision or the other way round.
func (s *Service) Respond(ctx context.Context, incidentID id.IncidentID, answer models.Answer) (models.Incident, error) {
	if !answer.IsValid() {
		return models.Incident{}, dErrors.Newf(dErrors.CodeValidation, "answer must be YES or NO, got %q", answer)
	}

	inc, err := s.incidents.FindByID(ctx, incidentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Incident{}, dErrors.New(dErrors.CodeNotFound, "incident not found")
	}
	if err != nil {
		return models.Incident{}, dErrors.Wrap(err, dErrors.CodeInternal, "loading incident")
	}
	if inc.UserID != requestcontext.UserID(ctx) {
		return models.Incident{}, dErrors.New(dErrors.CodeForbidden, "only the incident's owner may respond")
	}
	if inc.State != models.StatePending {
		return inc, nil
	}

	var out models.Incident
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		out, txErr = s.resolve(ctx, inc, answer)
		return txErr
	})
	if err != nil {
		return models.Incident{}, err
	}
	s.metrics.Resolved(string(answer))
	return out, nil
}

func (s *Service) resolve(ctx context.Context, inc models.Incident, answer models.Answer) (models.Incident, error) {
	yes := answer == models.AnswerYes
	switch inc.Type {
	case models.TypeInEarly:
		// YES: the early arrival was real work.
		if yes {
			return s.admit(ctx, inc)
		}
		// NO: the IN was a mistake. Replace it with a WRONG_IN trail entry
		// and close the accidental interval with a corrective OUT.
		return s.replaceWithCorrection(ctx, inc, models.TypeWrongIn, id.RecordOut)
	case models.TypeOutEarly:
		// YES: the OUT was a mistake; reopen the interval.
		if yes {
			return s.replaceWithCorrection(ctx, inc, models.TypeWrongOut, id.RecordIn)
		}
		return s.admit(ctx, inc)
	case models.TypeOutLate:
		// YES: still working, the late OUT stands.
		if yes {
			return s.admit(ctx, inc)
		}
		// NO: the member forgot to punch out. Raise FORGOT_OUT, close the
		// interval at the expected end, and settle the original.
		if err := s.createResolved(ctx, inc, models.TypeForgotOut); err != nil {
			return models.Incident{}, err
		}
		if err := s.correctiveRecord(ctx, inc, id.RecordOut); err != nil {
			return models.Incident{}, err
		}
		return s.admit(ctx, inc)
	case models.TypeForgotOut:
		// YES: no correction wanted; the incident stays open for admin
		// review.
		if yes {
			return inc, nil
		}
		if err := s.correctiveRecord(ctx, inc, id.RecordOut); err != nil {
			return models.Incident{}, err
		}
		return s.admit(ctx, inc)
	default:
		// Informational types have no branching: any answer settles them,
		// and the admitted flag records what the member said.
		inc.State = models.StateAdmitted
		inc.Admitted = yes
		if err := s.incidents.Update(ctx, inc); err != nil {
			return models.Incident{}, dErrors.Wrap(err, dErrors.CodeInternal, "updating incident")
		}
		return inc, nil
	}
}

func (s *Service) admit(ctx context.Context, inc models.Incident) (models.Incident, error) {
	inc.State = models.StateAdmitted
	inc.Admitted = true
	if err := s.incidents.Update(ctx, inc); err != nil {
		return models.Incident{}, dErrors.Wrap(err, dErrors.CodeInternal, "updating incident")
	}
	return inc, nil
}

// replaceWithCorrection swaps the incident for a settled wrong-punch entry
// plus a corrective record, then deletes the original.
func (s *Service) replaceWithCorrection(ctx context.Context, inc models.Incident, wrongType models.Type, correction id.RecordType) (models.Incident, error) {
	now := requestcontext.Now(ctx)
	replacement := models.Incident{
		ID:           id.NewIncidentID(),
		Type:         wrongType,
		Origin:       models.OriginEmployee,
		State:        models.StateAdmitted,
		Admitted:     true,
		UserID:       inc.UserID,
		MembershipID: inc.MembershipID,
		CompanyID:    inc.CompanyID,
		BranchID:     inc.BranchID,
		ExpectedAt:   inc.ExpectedAt,
		OccurredAt:   inc.OccurredAt,
		RecordID:     inc.RecordID,
		CreatedAt:    now,
	}
	if err := s.incidents.Create(ctx, replacement); err != nil {
		return models.Incident{}, dErrors.Wrap(err, dErrors.CodeInternal, "creating replacement incident")
	}
	s.metrics.Created(string(wrongType))
	if err := s.correctiveRecord(ctx, inc, correction); err != nil {
		return models.Incident{}, err
	}
	if err := s.incidents.Delete(ctx, inc.ID); err != nil {
		return models.Incident{}, dErrors.Wrap(err, dErrors.CodeInternal, "deleting incident")
	}
	return replacement, nil
}

// createResolved raises a settled employee-origin incident alongside the one
// being answered.
func (s *Service) createResolved(ctx context.Context, inc models.Incident, t models.Type) error {
	now := requestcontext.Now(ctx)
	created := models.Incident{
		ID:           id.NewIncidentID(),
		Type:         t,
		Origin:       models.OriginEmployee,
		State:        models.StateAdmitted,
		Admitted:     true,
		UserID:       inc.UserID,
		MembershipID: inc.MembershipID,
		CompanyID:    inc.CompanyID,
		BranchID:     inc.BranchID,
		ExpectedAt:   inc.ExpectedAt,
		OccurredAt:   now,
		RecordID:     inc.RecordID,
		CreatedAt:    now,
	}
	if err := s.incidents.Create(ctx, created); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "creating incident")
	}
	s.metrics.Created(string(t))
	return nil
}

// correctiveRecord inserts the synthesized punch that restores the IN/OUT
// alternation. A correction tied to a concrete punch lands one second after
// it; otherwise it lands at the incident's expected time.
func (s *Service) correctiveRecord(ctx context.Context, inc models.Incident, t id.RecordType) error {
	at := s.correctiveTime(ctx, inc)
	r := attendancemodels.Record{
		ID:           id.NewRecordID(),
		Type:         t,
		UserID:       inc.UserID,
		MembershipID: inc.MembershipID,
		CompanyID:    inc.CompanyID,
		BranchID:     inc.BranchID,
		At:           at,
		Corrective:   true,
	}
	if err := s.records.Create(ctx, r); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "creating corrective record")
	}
	s.metrics.CorrectiveRecord()
	return nil
}

func (s *Service) correctiveTime(ctx context.Context, inc models.Incident) time.Time {
	if inc.RecordID != nil {
		if trigger, err := s.records.FindByID(ctx, *inc.RecordID); err == nil {
			return trigger.At.Add(time.Second)
		}
	}
	if !inc.ExpectedAt.IsZero() {
		return inc.ExpectedAt
	}
	return requestcontext.Now(ctx)
}
