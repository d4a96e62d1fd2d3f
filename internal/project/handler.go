package project

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

// Handler holds HTTP handlers for project endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new project Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// coverArtField is the multipart fieldname carrying the cover-art image.
const coverArtField = "coverArt"

// parseTags decodes the JSON-encoded string array carried in a multipart text
// field (form-data fields can only be strings).
func parseTags(raw string) ([]string, error) {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, apperr.Validationf("tags must be a JSON string array").WithCause(err)
	}
	return tags, nil
}

// Create godoc
//
//	@Summary		Create project
//	@Description	Creates a project with its default "original" branch. Accepts multipart form data with an optional coverArt file.
//	@Tags			projects
//	@Accept			mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Success		201	{object}	response.Envelope{data=Details}
//	@Failure		400	{object}	response.Envelope
//	@Failure		409	{object}	response.Envelope
//	@Router			/projects [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	form, err := multipart.Parse(r, coverArtField)
	if err != nil {
		response.Fail(w, err)
		return
	}

	cmd := CreateCommand{
		Name:  strings.TrimSpace(form.Value("name")),
		Genre: strings.TrimSpace(form.Value("genre")),
	}
	if len(cmd.Name) < 3 {
		response.Fail(w, apperr.Validationf("name must be at least 3 characters"))
		return
	}
	if len(cmd.Genre) < 3 {
		response.Fail(w, apperr.Validationf("genre must be at least 3 characters"))
		return
	}
	if form.HasValue("tags") {
		if cmd.Tags, err = parseTags(form.Value("tags")); err != nil {
			response.Fail(w, err)
			return
		}
	}
	if form.HasValue("description") {
		desc := form.Value("description")
		cmd.Description = &desc
	}
	if cmd.CoverArt, err = form.File(coverArtField); err != nil {
		response.Fail(w, err)
		return
	}

	details, warning, err := h.svc.Create(r.Context(), principalID, cmd)
	if err != nil {
		response.Fail(w, err)
		return
	}

	msg := "Success! Created project " + details.Name
	if warning != "" {
		msg = warning
	}
	response.Created(w, details, msg)
}

// List godoc
//
//	@Summary		List projects
//	@Tags			projects
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=[]Details}
//	@Router			/projects [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	details, err := h.svc.List(r.Context(), principalID)
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.OK(w, details, "")
}

// Get godoc
//
//	@Summary		Get project
//	@Description	Returns a single project with its branches and a signed cover-art URL.
//	@Tags			projects
//	@Produce		json
//	@Security		BearerAuth
//	@Param			projectID	path		string	true	"Project ID"
//	@Success		200	{object}	response.Envelope{data=Details}
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/projects/{projectID} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	details, err := h.svc.Get(r.Context(), principalID, chi.URLParam(r, "projectID"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.OK(w, details, "")
}

// Update godoc
//
//	@Summary		Update project
//	@Description	Partially updates a project. Accepts multipart form data; a coverArt file replaces the existing cover art.
//	@Tags			projects
//	@Accept			mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			projectID	path		string	true	"Project ID"
//	@Success		200	{object}	response.Envelope{data=Details}
//	@Failure		400	{object}	response.Envelope
//	@Failure		409	{object}	response.Envelope
//	@Router			/projects/{projectID} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	form, err := multipart.Parse(r, coverArtField)
	if err != nil {
		response.Fail(w, err)
		return
	}

	var cmd UpdateCommand
	if form.HasValue("name") {
		name := strings.TrimSpace(form.Value("name"))
		if len(name) < 3 {
			response.Fail(w, apperr.Validationf("name must be at least 3 characters"))
			return
		}
		cmd.Name = &name
	}
	if form.HasValue("genre") {
		genre := strings.TrimSpace(form.Value("genre"))
		if len(genre) < 3 {
			response.Fail(w, apperr.Validationf("genre must be at least 3 characters"))
			return
		}
		cmd.Genre = &genre
	}
	if form.HasValue("tags") {
		tags, err := parseTags(form.Value("tags"))
		if err != nil {
			response.Fail(w, err)
			return
		}
		cmd.Tags = &tags
	}
	if form.HasValue("description") {
		desc := form.Value("description")
		cmd.Description = &desc
	}
	if cmd.CoverArt, err = form.File(coverArtField); err != nil {
		response.Fail(w, err)
		return
	}

	details, warning, err := h.svc.Update(r.Context(), principalID, chi.URLParam(r, "projectID"), cmd)
	if err != nil {
		response.Fail(w, err)
		return
	}

	msg := "Updated project " + details.Name
	if warning != "" {
		msg = warning
	}
	response.OK(w, details, msg)
}

// Delete godoc
//
//	@Summary		Delete project
//	@Description	Deletes the project, all descendant branches/versions/previews, and their stored files.
//	@Tags			projects
//	@Produce		json
//	@Security		BearerAuth
//	@Param			projectID	path		string	true	"Project ID"
//	@Success		200	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/projects/{projectID} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	projectID := chi.URLParam(r, "projectID")
	if err := h.svc.Delete(r.Context(), principalID, projectID); err != nil {
		response.Fail(w, err)
		return
	}

	response.OK(w, nil, "Success! Deleted project "+projectID)
}
