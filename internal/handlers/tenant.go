package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/craftplan/craftplan-api/internal/apperr"
	"github.com/craftplan/craftplan-api/internal/authz"
	"github.com/craftplan/craftplan-api/internal/models"
	"github.com/craftplan/craftplan-api/internal/repository"
	"github.com/craftplan/craftplan-api/internal/stats"
)

type TenantHandler struct {
	tenantRepo repository.TenantRepository
	userRepo   repository.UserRepository
	roleRepo   repository.RoleRepository
	stats      *stats.Service
	logger     zerolog.Logger
}

func NewTenantHandler(tenantRepo repository.TenantRepository, userRepo repository.UserRepository, roleRepo repository.RoleRepository, statsService *stats.Service, logger zerolog.Logger) *TenantHandler {
	return &TenantHandler{
		tenantRepo: tenantRepo,
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		stats:      statsService,
		logger:     logger.With().Str("handler", "tenant").Logger(),
	}
}

type createTenantRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	Slug string `json:"slug" validate:"required,min=2,max=64"`
	Plan string `json:"plan" validate:"omitempty,oneof=trial basic professional enterprise"`
}

// CreateTenant provisions a new tenant and binds the authenticated,
// not-yet-onboarded caller as its admin.
func (h *TenantHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	ident, ok := authz.IdentityFromRequest(r)
	if !ok {
		apperr.Write(w, h.logger, apperr.NotAuthenticated(""))
		return
	}

	user, err := h.userRepo.GetUserByAccountID(ident.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apperr.Write(w, h.logger, apperr.NotFound("user not found - sign up first"))
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}
	if user.TenantID != nil && *user.TenantID != "" {
		apperr.Write(w, h.logger, apperr.Conflict("user already belongs to a tenant"))
		return
	}

	var req createTenantRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	plan := models.TenantPlan(req.Plan)
	if req.Plan == "" {
		plan = models.PlanTrial
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	tenant, err := h.tenantRepo.CreateTenant(strings.TrimSpace(req.Name), slug, plan)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			apperr.Write(w, h.logger, apperr.Conflict("a tenant with this slug already exists"))
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}

	if _, err := h.userRepo.BindTenant(user.ID, tenant.ID); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	adminRole, err := h.roleRepo.GetRoleByName(models.RoleAdmin)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	if err := h.roleRepo.AssignRole(user.ID, tenant.ID, adminRole.ID); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	h.stats.Invalidate(tenant.ID)
	h.logger.Info().Str("tenant_id", tenant.ID).Str("user_id", user.ID).Msg("tenant created")
	writeJSON(w, http.StatusCreated, tenant)
}

// GetCurrent returns the caller's tenant record.
func (h *TenantHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	tc, ok := authz.FromRequest(r)
	if !ok {
		apperr.Write(w, h.logger, apperr.NotAuthenticated(""))
		return
	}
	writeJSON(w, http.StatusOK, tc.Tenant)
}

type limitsResponse struct {
	Usage          models.TenantUsageStats `json:"usage"`
	MaxUsers       int                     `json:"max_users"`
	MaxProjects    int                     `json:"max_projects"`
	UsersRemaining int                     `json:"users_remaining"`
}

// Limits reports the tenant's advisory usage against its plan ceilings.
func (h *TenantHandler) Limits(w http.ResponseWriter, r *http.Request) {
	tc, ok := authz.FromRequest(r)
	if !ok {
		apperr.Write(w, h.logger, apperr.NotAuthenticated(""))
		return
	}

	usage, err := h.stats.Usage(r.Context(), tc.TenantID)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	remaining := tc.Tenant.MaxUsers - usage.UserCount - usage.PendingInviteCount
	if remaining < 0 {
		remaining = 0
	}

	writeJSON(w, http.StatusOK, limitsResponse{
		Usage:          usage,
		MaxUsers:       tc.Tenant.MaxUsers,
		MaxProjects:    tc.Tenant.MaxProjects,
		UsersRemaining: remaining,
	})
}

// ListMembers returns the tenant's users.
func (h *TenantHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	tc, ok := authz.FromRequest(r)
	if !ok {
		apperr.Write(w, h.logger, apperr.NotAuthenticated(""))
		return
	}

	users, err := h.userRepo.ListUsersByTenant(tc.TenantID)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
