package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	attendanceservice "fichaje/internal/attendance/service"
	id "fichaje/pkg/domain"
	dErrors "fichaje/pkg/domain-errors"
	"fichaje/pkg/platform/httputil"
)

// Handler exposes the punch endpoints. All routes act on the authenticated
// member; the service resolves the membership from the request context.
type Handler struct {
	attendance *attendanceservice.Service
	logger     *slog.Logger
}

func New(attendance *attendanceservice.Service, logger *slog.Logger) *Handler {
	return &Handler{attendance: attendance, logger: logger}
}

// Register mounts the punch routes. The router is expected to already carry
// the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/records/in", h.handlePunchIn)
	r.Post("/records/out", h.handlePunchOut)
	r.Post("/records/{recordID}/confirm", h.handleConfirm)
	r.Get("/records", h.handleRecent)
}

func (h *Handler) handlePunchIn(w http.ResponseWriter, r *http.Request) {
	result, err := h.attendance.PunchIn(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handlePunchOut(w http.ResponseWriter, r *http.Request) {
	result, err := h.attendance.PunchOut(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

type confirmRequest struct {
	Working *bool `json:"working"`
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Working == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "working is required"))
		return
	}
	if err := h.attendance.ConfirmWorking(r.Context(), recordID, *req.Working); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	records, err := h.attendance.RecentRecords(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": records})
}
