package branch

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/trackhouse/service/internal/apperr"
	"github.com/trackhouse/service/internal/middleware"
	"github.com/trackhouse/service/internal/response"
)

// Handler holds HTTP handlers for branch endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new branch Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// Create godoc
//
//	@Summary		Create branch
//	@Tags			branches
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			projectID	path		string	true	"Project ID"
//	@Success		201	{object}	response.Envelope{data=Branch}
//	@Failure		400	{object}	response.Envelope
//	@Failure		409	{object}	response.Envelope
//	@Router			/projects/{projectID}/branches [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, apperr.Validationf("invalid JSON body").WithCause(err))
		return
	}
	if len(strings.TrimSpace(req.Name)) < 3 {
		response.Fail(w, apperr.Validationf("name must be at least 3 characters"))
		return
	}

	b, err := h.svc.Create(r.Context(), principalID, chi.URLParam(r, "projectID"), CreateCommand{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.Created(w, b, "Success! Created branch "+b.Name)
}

// Get godoc
//
//	@Summary		Get branch
//	@Tags			branches
//	@Produce		json
//	@Security		BearerAuth
//	@Param			projectID	path		string	true	"Project ID"
//	@Param			branchName	path		string	true	"Branch name"
//	@Success		200	{object}	response.Envelope{data=Branch}
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/projects/{projectID}/branches/{branchName} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	b, err := h.svc.Get(r.Context(), principalID,
		chi.URLParam(r, "projectID"), chi.URLParam(r, "branchName"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.OK(w, b, "")
}

type updateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Update godoc
//
//	@Summary		Update branch
//	@Description	Partially updates a branch. Renaming relocates the branch's stored files to the new prefix, best-effort.
//	@Tags			branches
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			projectID	path		string	true	"Project ID"
//	@Param			branchName	path		string	true	"Branch name"
//	@Success		200	{object}	response.Envelope{data=Branch}
//	@Failure		400	{object}	response.Envelope
//	@Failure		409	{object}	response.Envelope
//	@Router			/projects/{projectID}/branches/{branchName} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, apperr.Validationf("invalid JSON body").WithCause(err))
		return
	}
	if req.Name != nil && len(strings.TrimSpace(*req.Name)) < 3 {
		response.Fail(w, apperr.Validationf("name must be at least 3 characters"))
		return
	}

	b, warning, err := h.svc.Update(r.Context(), principalID,
		chi.URLParam(r, "projectID"), chi.URLParam(r, "branchName"),
		UpdateCommand{Name: req.Name, Description: req.Description})
	if err != nil {
		response.Fail(w, err)
		return
	}

	msg := "Updated branch " + b.Name
	if warning != "" {
		msg = warning
	}
	response.OK(w, b, msg)
}

// Delete godoc
//
//	@Summary		Delete branch
//	@Description	Deletes the branch, its versions and previews, and their stored files.
//	@Tags			branches
//	@Produce		json
//	@Security		BearerAuth
//	@Param			projectID	path		string	true	"Project ID"
//	@Param			branchName	path		string	true	"Branch name"
//	@Success		200	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/projects/{projectID}/branches/{branchName} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	branchName := chi.URLParam(r, "branchName")
	if err := h.svc.Delete(r.Context(), principalID,
		chi.URLParam(r, "projectID"), branchName); err != nil {
		response.Fail(w, err)
		return
	}

	response.OK(w, nil, "Success! Deleted branch "+branchName)
}
