package version

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/trackhouse/service/internal/apperr"
	"github.com/trackhouse/service/internal/middleware"
	"github.com/trackhouse/service/internal/multipart"
	"github.com/trackhouse/service/internal/response"
)

// Handler holds HTTP handlers for version endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new version Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// projectFilesField is the multipart fieldname carrying the archive upload.
const projectFilesField = "projectFiles"

// List godoc
//
//	@Summary		List versions
//	@Tags			versions
//	@Produce		json
//	@Security		BearerAuth
//	@Param			projectID	path		string	true	"Project ID"
//	@Param			branchName	path		string	true	"Branch name"
//	@Success		200	{object}	response.Envelope{data=[]Version}
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/projects/{projectID}/branches/{branchName}/versions [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	versions, err := h.svc.List(r.Context(), principalID,
		chi.URLParam(r, "projectID"), chi.URLParam(r, "branchName"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	if versions == nil {
		versions = []*Version{}
	}

	response.OK(w, versions, "")
}

// Create godoc
//
//	@Summary		Create version
//	@Description	Creates a version from multipart form data. Exactly one projectFiles archive must be attached.
//	@Tags			versions
//	@Accept			mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			projectID	path		string	true	"Project ID"
//	@Param			branchName	path		string	true	"Branch name"
//	@Success		201	{object}	response.Envelope{data=Details}
//	@Failure		400	{object}	response.Envelope
//	@Failure		409	{object}	response.Envelope
//	@Router			/projects/{projectID}/branches/{branchName}/versions [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	form, err := multipart.Parse(r, projectFilesField)
	if err != nil {
		response.Fail(w, err)
		return
	}

	cmd := CreateCommand{Name: strings.TrimSpace(form.Value("name"))}
	if len(cmd.Name) < 3 {
		response.Fail(w, apperr.Validationf("name must be at least 3 characters"))
		return
	}
	if form.HasValue("tags") {
		if err := json.Unmarshal([]byte(form.Value("tags")), &cmd.Tags); err != nil {
			response.Fail(w, apperr.Validationf("tags must be a JSON string array").WithCause(err))
			return
		}
	}
	if form.HasValue("description") {
		desc := form.Value("description")
		cmd.Description = &desc
	}
	if cmd.Archive, err = form.RequireFile(projectFilesField); err != nil {
		response.Fail(w, err)
		return
	}

	details, warning, err := h.svc.Create(r.Context(), principalID,
		chi.URLParam(r, "projectID"), chi.URLParam(r, "branchName"), cmd)
	if err != nil {
		response.Fail(w, err)
		return
	}

	msg := "Success! Created version " + details.Name
	if warning != "" {
		msg = warning
	}
	response.Created(w, details, msg)
}

// Get godoc
//
//	@Summary		Get version
//	@Tags			versions
//	@Produce		json
//	@Security		BearerAuth
//	@Param			projectID	path		string	true	"Project ID"
//	@Param			branchName	path		string	true	"Branch name"
//	@Param			versionName	path		string	true	"Version name"
//	@Success		200	{object}	response.Envelope{data=Details}
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/projects/{projectID}/branches/{branchName}/versions/{versionName} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	details, err := h.svc.Get(r.Context(), principalID,
		chi.URLParam(r, "projectID"), chi.URLParam(r, "branchName"), chi.URLParam(r, "versionName"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.OK(w, details, "")
}

// Delete godoc
//
//	@Summary		Delete version
//	@Description	Deletes the version, its previews, and their stored files.
//	@Tags			versions
//	@Produce		json
//	@Security		BearerAuth
//	@Param			projectID	path		string	true	"Project ID"
//	@Param			branchName	path		string	true	"Branch name"
//	@Param			versionName	path		string	true	"Version name"
//	@Success		200	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/projects/{projectID}/branches/{branchName}/versions/{versionName} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	versionName := chi.URLParam(r, "versionName")
	if err := h.svc.Delete(r.Context(), principalID,
		chi.URLParam(r, "projectID"), chi.URLParam(r, "branchName"), versionName); err != nil {
		response.Fail(w, err)
		return
	}

	response.OK(w, nil, "Success! Deleted version "+versionName)
}
