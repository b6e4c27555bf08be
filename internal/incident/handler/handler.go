package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fichaje/internal/incident/models"
	incidentservice "fichaje/internal/incident/service"
	tenantservice "fichaje/internal/tenant/service"
	id "fichaje/pkg/domain"
	dErrors "fichaje/pkg/domain-errors"
	"fichaje/pkg/platform/httputil"
)

const dateLayout = "2006-01-02"

// Handler exposes the incident listing and resolution endpoints.
type Handler struct {
	incidents *incidentservice.Service
	tenants   *tenantservice.Service
	logger    *slog.Logger
}

func New(incidents *incidentservice.Service, tenants *tenantservice.Service, logger *slog.Logger) *Handler {
	return &Handler{incidents: incidents, tenants: tenants, logger: logger}
}

// Register mounts the incident routes. The router is expected to already
// carry the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/incidents", h.handleList)
	r.Post("/incidents/{incidentID}/respond", h.handleRespond)
	r.Post("/incidents/notes", h.handleAddNote)
}

// handleList returns incidents visible to the actor. The service scopes the
// filter to the actor's company, and to the actor's own user unless they are
// an admin.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f models.Filter
	var err error

	if raw := q.Get("user_id"); raw != "" {
		if f.UserID, err = id.ParseUserID(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if raw := q.Get("branch_id"); raw != "" {
		if f.BranchID, err = id.ParseBranchID(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if raw := q.Get("type"); raw != "" {
		t := models.Type(raw)
		if !t.IsValid() {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "unknown incident type %q", raw))
			return
		}
		f.Types = []models.Type{t}
	}
	if raw := q.Get("from"); raw != "" {
		if f.From, err = time.Parse(dateLayout, raw); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "from must be YYYY-MM-DD"))
			return
		}
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "to must be YYYY-MM-DD"))
			return
		}
		// Inclusive day bound.
		f.To = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	f.PendingOnly = q.Get("pending") == "true"

	incidents, err := h.incidents.List(r.Context(), f)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"incidents": incidents})
}

type respondRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) handleRespond(w http.ResponseWriter, r *http.Request) {
	incidentID, err := id.ParseIncidentID(chi.URLParam(r, "incidentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	inc, err := h.incidents.Respond(r.Context(), incidentID, models.Answer(req.Answer))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inc)
}

type addNoteRequest struct {
	MembershipID id.MembershipID `json:"membership_id"`
	Note         string          `json:"note"`
}

func (h *Handler) handleAddNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req addNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	member, err := h.tenants.ResolveMember(ctx, req.MembershipID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	inc, err := h.incidents.AddAdminNote(ctx, incidentservice.NewIncidentInput{
		UserID:       member.UserID,
		MembershipID: member.ID,
		CompanyID:    member.CompanyID,
		BranchID:     member.BranchID,
	}, req.Note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, inc)
}
