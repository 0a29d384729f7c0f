package api

import (
	"net/http"

	"example.com/marathon/internal/domain"
	"example.com/marathon/internal/validation"
)

// ApplicationRequest is the payload for POST /applications.
type ApplicationRequest struct {
	MarathonID        string `json:"marathonID"`
	Title             string `json:"title"`
	MarathonStartDate string `json:"marathonStartDate"`
	Email             string `json:"email" validate:"required,email"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	ContactNumber     string `json:"contactNumber"`
	AdditionalInfo    string `json:"additionalInfo"`
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.applications.List(r.Context(), domain.ApplicationFilter{
		Email: q.Get("email"),
		Title: q.Get("title"),
	})
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createApplication(w http.ResponseWriter, r *http.Request) {
	var req ApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := validation.Struct(req, ""); err != nil {
		writeDomainError(w, r, err, "")
		return
	}

	created, err := h.applications.Register(r.Context(), domain.Application{
		MarathonID:        req.MarathonID,
		Title:             req.Title,
		MarathonStartDate: req.MarathonStartDate,
		Email:             req.Email,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		ContactNumber:     req.ContactNumber,
		AdditionalInfo:    req.AdditionalInfo,
	})
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, InsertResponse{InsertedID: created.ID})
}
