package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	attendanceservice "fichaje/internal/attendance/service"
	recordstore "fichaje/internal/attendance/store/record"
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
	"fichaje/pkg/platform/tx"
	"fichaje/pkg/testutil"
)

var handlerDay = testutil.MustTime("2026-03-10T00:00:00Z")

type AttendanceHandlerSuite struct {
	suite.Suite
	router chi.Router
	member tenantmodels.Membership
}

func (s *AttendanceHandlerSuite) SetupTest() {
	records := recordstore.NewInMemory()
	memberships := membershipstore.NewInMemory()

	s.member = tenantmodels.Membership{
		ID:        id.NewMembershipID(),
		UserID:    id.NewUserID(),
		CompanyID: id.NewCompanyID(),
		BranchID:  id.NewBranchID(),
		Role:      id.RoleEmpleado,
		Active:    true,
	}
	s.Require().NoError(memberships.Create(context.Background(), s.member))

	schedules := scheduleservice.New(schedulestore.NewInMemory(), shiftstore.NewInMemory(), exceptionstore.NewInMemory(), tx.NopRunner{})
	tenants := tenantservice.New(memberships)
	incidents := incidentservice.New(incidentstore.NewInMemory(), records, tx.NopRunner{})
	attendance := attendanceservice.New(records, schedules, tenants, incidents, tx.NopRunner{})

	adminCtx := testutil.ActorContext(id.MustTimeOfDay("08:00").At(handlerDay),
		s.member.UserID, s.member.CompanyID, id.RoleAdminSucursal)
	sch, err := schedules.CreateDraft(adminCtx, s.member, handlerDay)
	s.Require().NoError(err)
	_, err = schedules.AddShift(adminCtx, sch.ID, scheduleservice.AddShiftInput{
		Weekday:   id.Tuesday,
		Start:     id.MustTimeOfDay("09:00"),
		End:       id.MustTimeOfDay("13:00"),
		ValidFrom: handlerDay,
	})
	s.Require().NoError(err)
	_, err = schedules.Confirm(adminCtx, sch.ID)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(attendance, logger).Register(s.router)
}

func TestAttendanceHandlerSuite(t *testing.T) {
	suite.Run(t, new(AttendanceHandlerSuite))
}

// do issues a request as the suite's member with the clock frozen at the
// given time of day.
func (s *AttendanceHandlerSuite) do(method, target, clock string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := testutil.ActorContext(id.MustTimeOfDay(clock).At(handlerDay),
		s.member.UserID, s.member.CompanyID, s.member.Role)
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *AttendanceHandlerSuite) TestPunchRoundTrip() {
	w := s.do(http.MethodPost, "/records/in", "09:05", nil)
	s.Require().Equal(http.StatusCreated, w.Code)

	var result struct {
		Record struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"record"`
		Evaluation struct {
			Status      string `json:"status"`
			DiffMinutes int    `json:"diff_minutes"`
		} `json:"evaluation"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &result))
	s.Equal("IN", result.Record.Type)
	s.Equal("OK", result.Evaluation.Status)
	s.Equal(5, result.Evaluation.DiffMinutes)

	w = s.do(http.MethodPost, "/records/out", "13:02", nil)
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/records", "14:00", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var listing struct {
		Records []json.RawMessage `json:"records"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &listing))
	s.Len(listing.Records, 2)
}

func (s *AttendanceHandlerSuite) TestAlternationConflict() {
	w := s.do(http.MethodPost, "/records/out", "09:00", nil)
	s.Equal(http.StatusConflict, w.Code)
}

func (s *AttendanceHandlerSuite) TestConfirmValidation() {
	w := s.do(http.MethodPost, "/records/in", "15:30", nil)
	s.Require().Equal(http.StatusCreated, w.Code)

	var result struct {
		Record struct {
			ID string `json:"id"`
		} `json:"record"`
		RequiresConfirmation bool `json:"requires_confirmation"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &result))
	s.False(result.RequiresConfirmation, "late punches inside a scheduled day do not need confirmation")

	s.Run("working flag is mandatory", func() {
		w := s.do(http.MethodPost, "/records/"+result.Record.ID+"/confirm", "15:35", []byte(`{}`))
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("bad record id", func() {
		w := s.do(http.MethodPost, "/records/not-a-uuid/confirm", "15:35", []byte(`{"working":true}`))
		s.Equal(http.StatusBadRequest, w.Code)
	})
}
