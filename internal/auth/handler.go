package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/trackhouse/service/internal/apperr"
	"github.com/trackhouse/service/internal/response"
	"github.com/trackhouse/service/internal/user"
)

// Handler holds HTTP handlers for authentication endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new auth Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type signupRequest struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Password    string `json:"password"`
	AccountType string `json:"type"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

var accountTypes = map[string]bool{"ARTIST": true, "PRODUCER": true, "ENGINEER": true}

func (req *signupRequest) validate() error {
	if !strings.Contains(req.Email, "@") {
		return apperr.Validationf("a valid email is required")
	}
	if n := len(strings.TrimSpace(req.Name)); n < 3 || n > 16 {
		return apperr.Validationf("name must be 3-16 characters")
	}
	if len(req.Password) < 6 {
		return apperr.Validationf("password must be at least 6 characters")
	}
	if req.AccountType == "" {
		req.AccountType = "ARTIST"
	}
	if !accountTypes[req.AccountType] {
		return apperr.Validationf("type must be one of ARTIST, PRODUCER, ENGINEER")
	}
	return nil
}

// Signup godoc
//
//	@Summary		Create account
//	@Description	Registers a new account and returns a JWT token.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	response.Envelope{data=authResponse}
//	@Failure		400	{object}	response.Envelope
//	@Failure		409	{object}	response.Envelope
//	@Router			/auth/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, apperr.Validationf("invalid JSON body").WithCause(err))
		return
	}
	if err := req.validate(); err != nil {
		response.Fail(w, err)
		return
	}

	token, u, err := h.svc.Signup(r.Context(), SignupCommand{
		Email:       req.Email,
		Name:        req.Name,
		Password:    req.Password,
		AccountType: req.AccountType,
	})
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.Created(w, authResponse{Token: token, User: u}, "Welcome aboard")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login godoc
//
//	@Summary		Log in
//	@Description	Verifies credentials and returns a JWT token.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=authResponse}
//	@Failure		400	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Router			/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, apperr.Validationf("invalid JSON body").WithCause(err))
		return
	}
	if req.Email == "" || req.Password == "" {
		response.Fail(w, apperr.Validationf("email and password are required"))
		return
	}

	token, u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.OK(w, authResponse{Token: token, User: u}, "")
}
