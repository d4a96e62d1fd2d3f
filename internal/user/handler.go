package user

import (
	"encoding/json"
	"net/http"

	"github.com/trackhouse/service/internal/apperr"
	"github.com/trackhouse/service/internal/middleware"
	"github.com/trackhouse/service/internal/response"
)

// Handler holds HTTP handlers for user-related endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new user Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetMe godoc
//
//	@Summary		Get current user
//	@Description	Returns the profile of the currently authenticated user.
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=User}
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/users/me [get]
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	u, err := h.svc.GetByID(r.Context(), principalID)
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.OK(w, u, "")
}

type updateMeRequest struct {
	Password    string  `json:"password"`
	Email       *string `json:"email,omitempty"`
	Name        *string `json:"name,omitempty"`
	NewPassword *string `json:"newPassword,omitempty"`
}

// UpdateMe godoc
//
//	@Summary		Update profile
//	@Description	Partially updates the authenticated user's profile. The current password is required.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=User}
//	@Failure		400	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Router			/users/me [patch]
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req updateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, apperr.Validationf("invalid JSON body").WithCause(err))
		return
	}
	if len(req.Password) < 6 {
		response.Fail(w, apperr.Validationf("current password is required"))
		return
	}
	if req.NewPassword != nil && len(*req.NewPassword) < 6 {
		response.Fail(w, apperr.Validationf("new password must be at least 6 characters"))
		return
	}

	u, err := h.svc.UpdateProfile(r.Context(), principalID, UpdateCommand(req))
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.OK(w, u, "Updated your profile")
}

// DeleteMe godoc
//
//	@Summary		Delete account
//	@Description	Deletes the account and every owned project, branch, version, and preview, then cleans up stored files.
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Router			/users/me [delete]
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := h.svc.DeleteAccount(r.Context(), principalID); err != nil {
		response.Fail(w, err)
		return
	}

	response.OK(w, nil, "Success! Deleted your account")
}

// Onboarding godoc
//
//	@Summary		Onboarding status
//	@Description	Reports whether the user has created a project, a non-default branch, and a version.
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=Onboarding}
//	@Router			/users/onboarding [get]
func (h *Handler) Onboarding(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.PrincipalID(r.Context())
	if principalID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	o, err := h.svc.Onboarding(r.Context(), principalID)
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.OK(w, o, "")
}
