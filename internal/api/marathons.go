package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"example.com/marathon/internal/domain"
	"example.com/marathon/internal/validation"
)

// MarathonRequest is the payload for POST /marathon.
type MarathonRequest struct {
	Title                 string     `json:"title" validate:"required"`
	Location              string     `json:"location"`
	RunningDistance       string     `json:"runningDistance"`
	Description           string     `json:"description"`
	Image                 string     `json:"image"`
	StartRegistrationDate string     `json:"startRegistrationDate"`
	EndRegistrationDate   string     `json:"endRegistrationDate"`
	MarathonStartDate     string     `json:"marathonStartDate"`
	Email                 string     `json:"email" validate:"required,email"`
	CreatedAt             *time.Time `json:"createdAt"`
}

// MarathonPatchRequest is the payload for PATCH /marathon/{id}. Absent fields are left untouched.
type MarathonPatchRequest struct {
	Title                 *string `json:"title"`
	Location              *string `json:"location"`
	RunningDistance       *string `json:"runningDistance"`
	Description           *string `json:"description"`
	Image                 *string `json:"image"`
	StartRegistrationDate *string `json:"startRegistrationDate"`
	EndRegistrationDate   *string `json:"endRegistrationDate"`
	MarathonStartDate     *string `json:"marathonStartDate"`
}

// InsertResponse reports the ID of a newly stored document.
type InsertResponse struct {
	InsertedID string `json:"insertedId"`
}

// DeleteResponse reports how many documents were removed.
type DeleteResponse struct {
	DeletedCount int64 `json:"deletedCount"`
}

func (h *Handler) listMarathons(w http.ResponseWriter, r *http.Request) {
	out, err := h.marathons.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) latestMarathons(w http.ResponseWriter, r *http.Request) {
	out, err := h.marathons.Latest(r.Context())
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) myMarathons(w http.ResponseWriter, r *http.Request) {
	out, err := h.marathons.ListByOrganiser(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getMarathon(w http.ResponseWriter, r *http.Request) {
	m, err := h.marathons.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrMarathonNotFound) {
		writeMessage(w, http.StatusNotFound, "Marathon not found")
		return
	}
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) createMarathon(w http.ResponseWriter, r *http.Request) {
	var req MarathonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := validation.Struct(req, ""); err != nil {
		writeDomainError(w, r, err, "")
		return
	}

	m := domain.Marathon{
		Title:                 req.Title,
		Location:              req.Location,
		RunningDistance:       req.RunningDistance,
		Description:           req.Description,
		Image:                 req.Image,
		StartRegistrationDate: req.StartRegistrationDate,
		EndRegistrationDate:   req.EndRegistrationDate,
		MarathonStartDate:     req.MarathonStartDate,
		Email:                 req.Email,
	}
	if req.CreatedAt != nil {
		m.CreatedAt = req.CreatedAt.UTC()
	}

	created, err := h.marathons.Create(r.Context(), m)
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, InsertResponse{InsertedID: created.ID})
}

func (h *Handler) updateMarathon(w http.ResponseWriter, r *http.Request) {
	var req MarathonPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	res, err := h.marathons.Update(r.Context(), chi.URLParam(r, "id"), domain.MarathonPatch{
		Title:                 req.Title,
		Location:              req.Location,
		RunningDistance:       req.RunningDistance,
		Description:           req.Description,
		Image:                 req.Image,
		StartRegistrationDate: req.StartRegistrationDate,
		EndRegistrationDate:   req.EndRegistrationDate,
		MarathonStartDate:     req.MarathonStartDate,
	})
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) deleteMarathon(w http.ResponseWriter, r *http.Request) {
	n, err := h.marathons.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{DeletedCount: n})
}
