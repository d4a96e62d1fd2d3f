package preview

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/trackhouse/service/internal/apperr"
	"github.com/trackhouse/service/internal/middleware"
	"github.com/trackhouse/service/internal/multipart"
	"github.com/trackhouse/service/internal/response"
)

// Handler holds HTTP handlers for preview endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new preview Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// previewField is the multipart fieldname carrying the preview media.
const previewField = "preview"

// Create godoc
//
//	@Summary		Create preview
//	@Description	Attaches a preview to a version from multipart form data. Exactly one preview file must be attached.
//	@Tags			previews
//	@Accept			mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			projectID	path		string	true	"Project ID"
//	@Param			branchName	path		string	true	"Branch name"
//	@Param			versionName	path		string	true	"Version name"
//	@Success		201	{object}	response.Envelope{data=Details}
//	@Failure		400	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/projects/{projectID}/branches/{branchName}/versions/{versionName}/previews [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	form, err := multipart.Parse(r, previewField)
	if err != nil {
		response.Fail(w, err)
		return
	}

	cmd := CreateCommand{Title: strings.TrimSpace(form.Value("title"))}
	if len(cmd.Title) < 3 {
		response.Fail(w, apperr.Validationf("title must be at least 3 characters"))
		return
	}
	if cmd.File, err = form.RequireFile(previewField); err != nil {
		response.Fail(w, err)
		return
	}

	details, warning, err := h.svc.Create(r.Context(), principalID,
		chi.URLParam(r, "projectID"), chi.URLParam(r, "branchName"), chi.URLParam(r, "versionName"), cmd)
	if err != nil {
		response.Fail(w, err)
		return
	}

	msg := "Success! Created preview " + details.Title
	if warning != "" {
		msg = warning
	}
	response.Created(w, details, msg)
}

// List godoc
//
//	@Summary		List previews
//	@Tags			previews
//	@Produce		json
//	@Security		BearerAuth
//	@Param			projectID	path		string	true	"Project ID"
//	@Param			branchName	path		string	true	"Branch name"
//	@Param			versionName	path		string	true	"Version name"
//	@Success		200	{object}	response.Envelope{data=[]Details}
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/projects/{projectID}/branches/{branchName}/versions/{versionName}/previews [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	details, err := h.svc.List(r.Context(), principalID,
		chi.URLParam(r, "projectID"), chi.URLParam(r, "branchName"), chi.URLParam(r, "versionName"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.OK(w, details, "")
}

// Delete godoc
//
//	@Summary		Delete preview
//	@Description	Deletes a preview and its stored file. The parent version is untouched.
//	@Tags			previews
//	@Produce		json
//	@Security		BearerAuth
//	@Param			projectID	path		string	true	"Project ID"
//	@Param			branchName	path		string	true	"Branch name"
//	@Param			versionName	path		string	true	"Version name"
//	@Param			previewID	path		string	true	"Preview ID"
//	@Success		200	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/projects/{projectID}/branches/{branchName}/versions/{versionName}/previews/{previewID} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	previewID := chi.URLParam(r, "previewID")
	if err := h.svc.Delete(r.Context(), principalID, previewID); err != nil {
		response.Fail(w, err)
		return
	}

	response.OK(w, nil, "Success! Deleted preview "+previewID)
}
