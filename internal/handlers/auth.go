package handlers

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/craftplan/craftplan-api/internal/apperr"
	"github.com/craftplan/craftplan-api/internal/authz"
	"github.com/craftplan/craftplan-api/internal/identity"
	"github.com/craftplan/craftplan-api/internal/models"
	"github.com/craftplan/craftplan-api/internal/repository"
)

type AuthHandler struct {
	provider  identity.Provider
	userRepo  repository.UserRepository
	resolver  *authz.Resolver
	evaluator *authz.Evaluator
	logger    zerolog.Logger
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,max=200"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func NewAuthHandler(provider identity.Provider, userRepo repository.UserRepository, resolver *authz.Resolver, evaluator *authz.Evaluator, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		provider:  provider,
		userRepo:  userRepo,
		resolver:  resolver,
		evaluator: evaluator,
		logger:    logger.With().Str("handler", "auth").Logger(),
	}
}

// SignUp provisions an identity account plus a tenant-less local user.
// The user stays inactive until a tenant binds them via an invitation
// or an approved access request, or until they create a tenant.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	ident, err := h.provider.CreateAccount(req.Email, req.Password)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	user, err := h.userRepo.CreateUser(models.User{
		AccountID: ident.ID,
		Email:     ident.Email,
		FullName:  strings.TrimSpace(req.FullName),
	})
	if err != nil {
		// Compensate: without the local row the identity account is an
		// orphan, so roll it back rather than leave a half-signup.
		if delErr := h.provider.DeleteAccount(ident.ID); delErr != nil {
			h.logger.Error().Err(delErr).Str("account_id", ident.ID).Msg("failed to compensate orphaned identity account")
		}
		if repository.IsUniqueViolation(err) {
			apperr.Write(w, h.logger, apperr.Conflict("a user with this email already exists"))
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	ident, err := h.provider.VerifyCredentials(req.Email, req.Password)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	token, err := h.provider.IssueSession(ident)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type meResponse struct {
	User        models.User   `json:"user"`
	Tenant      models.Tenant `json:"tenant"`
	Roles       []models.Role `json:"roles"`
	Permissions []string      `json:"permissions"`
}

// Me resolves the caller into their tenant context and returns the
// display/audit view of it. The two failure kinds keep their distinct
// codes so the client knows whether to send the user to login or to
// onboarding.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ident, ok := authz.IdentityFromRequest(r)
	if !ok {
		apperr.Write(w, h.logger, apperr.NotAuthenticated(""))
		return
	}

	tc, err := h.resolver.Resolve(ident)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	roles, err := h.evaluator.GetUserRoles(tc.UserID, tc.TenantID)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	permissions, err := h.evaluator.GetUserPermissions(tc.UserID, tc.TenantID)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		User:        tc.User,
		Tenant:      tc.Tenant,
		Roles:       roles,
		Permissions: permissions,
	})
}
