package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fichaje/internal/schedule/models"
	scheduleservice "fichaje/internal/schedule/service"
	tenantservice "fichaje/internal/tenant/service"
	id "fichaje/pkg/domain"
	dErrors "fichaje/pkg/domain-errors"
	"fichaje/pkg/platform/httputil"
	"fichaje/pkg/requestcontext"
)

const dateLayout = "2006-01-02"

// Handler exposes the schedule administration endpoints.
type Handler struct {
	schedules *scheduleservice.Service
	tenants   *tenantservice.Service
	logger    *slog.Logger
}

func New(schedules *scheduleservice.Service, tenants *tenantservice.Service, logger *slog.Logger) *Handler {
	return &Handler{schedules: schedules, tenants: tenants, logger: logger}
}

// Register mounts the schedule routes. The router is expected to already
// carry the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/schedules", h.handleCreateDraft)
	r.Post("/schedules/{scheduleID}/shifts", h.handleAddShift)
	r.Get("/schedules/{scheduleID}/shifts", h.handleListShifts)
	r.Get("/schedules/{scheduleID}/weekly-minutes", h.handleWeeklyMinutes)
	r.Post("/schedules/{scheduleID}/confirm", h.handleConfirm)
	r.Post("/schedules/{scheduleID}/vacations", h.handleAddVacation)
	r.Delete("/schedules/{scheduleID}/vacations", h.handleDeleteVacation)
	r.Post("/schedules/{scheduleID}/exceptions", h.handleAddExceptions)
	r.Delete("/shifts/{shiftID}", h.handleDeleteShift)
	r.Get("/members/{membershipID}/week", h.handleWeekGrid)
	r.Get("/members/{membershipID}/day", h.handleExpectedDay)
}

type createDraftRequest struct {
	MembershipID id.MembershipID `json:"membership_id"`
	ValidFrom    string          `json:"valid_from,omitempty"`
}

func (h *Handler) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := h.tenants.RequireAdmin(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req createDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	member, err := h.tenants.ResolveMember(ctx, req.MembershipID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var validFrom time.Time
	if req.ValidFrom != "" {
		validFrom, err = time.Parse(dateLayout, req.ValidFrom)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "valid_from must be YYYY-MM-DD"))
			return
		}
	}
	sch, err := h.schedules.CreateDraft(ctx, member, validFrom)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sch)
}

type addShiftRequest struct {
	Weekday   int          `json:"weekday"`
	Start     id.TimeOfDay `json:"start"`
	End       id.TimeOfDay `json:"end"`
	ValidFrom string       `json:"valid_from"`
	ValidTo   string       `json:"valid_to,omitempty"`
}

func (h *Handler) handleAddShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := h.tenants.RequireAdmin(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req addShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	in := scheduleservice.AddShiftInput{
		Weekday: id.Weekday(req.Weekday),
		Start:   req.Start,
		End:     req.End,
	}
	if req.ValidFrom != "" {
		if in.ValidFrom, err = time.Parse(dateLayout, req.ValidFrom); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "valid_from must be YYYY-MM-DD"))
			return
		}
	}
	if req.ValidTo != "" {
		validTo, err := time.Parse(dateLayout, req.ValidTo)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "valid_to must be YYYY-MM-DD"))
			return
		}
		in.ValidTo = &validTo
	}
	sh, err := h.schedules.AddShift(ctx, scheduleID, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sh)
}

func (h *Handler) handleListShifts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := h.tenants.RequireAdmin(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	shifts, err := h.schedules.ListShifts(ctx, scheduleID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"shifts": shifts})
}

func (h *Handler) handleWeeklyMinutes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := h.tenants.RequireAdmin(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	minutes, err := h.schedules.WeeklyMinutes(ctx, scheduleID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"weekly_minutes": minutes})
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := h.tenants.RequireAdmin(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sch, err := h.schedules.Confirm(ctx, scheduleID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sch)
}

type addVacationRequest struct {
	Dates []string `json:"dates"`
}

func (h *Handler) handleAddVacation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := h.tenants.RequireAdmin(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req addVacationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	dates := make([]time.Time, 0, len(req.Dates))
	for _, raw := range req.Dates {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "date %q must be YYYY-MM-DD", raw))
			return
		}
		dates = append(dates, d)
	}
	if err := h.schedules.AddVacation(ctx, scheduleID, dates); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteVacation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := h.tenants.RequireAdmin(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "date query parameter must be YYYY-MM-DD"))
		return
	}
	forward := r.URL.Query().Get("forward") == "true"
	removed, err := h.schedules.DeleteVacation(ctx, scheduleID, date, forward)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

type exceptionRequest struct {
	Date  string        `json:"date"`
	Type  string        `json:"type"`
	Start *id.TimeOfDay `json:"start,omitempty"`
	End   *id.TimeOfDay `json:"end,omitempty"`
}

type addExceptionsRequest struct {
	Exceptions []exceptionRequest `json:"exceptions"`
}

func (h *Handler) handleAddExceptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := h.tenants.RequireAdmin(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req addExceptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	inputs := make([]scheduleservice.ExceptionInput, 0, len(req.Exceptions))
	for _, e := range req.Exceptions {
		date, err := time.Parse(dateLayout, e.Date)
		if err != nil {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "date %q must be YYYY-MM-DD", e.Date))
			return
		}
		inputs = append(inputs, scheduleservice.ExceptionInput{
			Date:  date,
			Type:  models.ExceptionType(e.Type),
			Start: e.Start,
			End:   e.End,
		})
	}
	if err := h.schedules.AddExceptions(ctx, scheduleID, inputs); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type deleteShiftRequest struct {
	Date string `json:"date"`
	Mode string `json:"mode"`
}

func (h *Handler) handleDeleteShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := h.tenants.RequireAdmin(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	shiftID, err := id.ParseShiftID(chi.URLParam(r, "shiftID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req deleteShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD"))
		return
	}
	if err := h.schedules.DeleteShift(ctx, shiftID, date, scheduleservice.DeleteMode(req.Mode)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleWeekGrid returns the Monday-normalized 7-day grid for a member.
// Employees may only view their own week; admins any member of their company.
func (h *Handler) handleWeekGrid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	membershipID, err := id.ParseMembershipID(chi.URLParam(r, "membershipID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	member, err := h.tenants.ResolveMember(ctx, membershipID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !requestcontext.Role(ctx).IsAdmin() && member.UserID != requestcontext.UserID(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "cannot view another member's schedule"))
		return
	}
	anchor := requestcontext.Now(ctx)
	if raw := r.URL.Query().Get("anchor"); raw != "" {
		if anchor, err = time.Parse(dateLayout, raw); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "anchor must be YYYY-MM-DD"))
			return
		}
	}
	week, err := h.schedules.WeekGrid(ctx, member.ID, anchor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"days": week})
}

// handleExpectedDay resolves what a member is expected to work on a date,
// exceptions applied. Defaults to today.
func (h *Handler) handleExpectedDay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	membershipID, err := id.ParseMembershipID(chi.URLParam(r, "membershipID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	member, err := h.tenants.ResolveMember(ctx, membershipID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !requestcontext.Role(ctx).IsAdmin() && member.UserID != requestcontext.UserID(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "cannot view another member's schedule"))
		return
	}
	date := requestcontext.Now(ctx)
	if raw := r.URL.Query().Get("date"); raw != "" {
		if date, err = time.Parse(dateLayout, raw); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD"))
			return
		}
	}
	day, err := h.schedules.ResolveDay(ctx, member.ID, date)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, day)
}
