package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/craftplan/craftplan-api/internal/apperr"
	"github.com/craftplan/craftplan-api/internal/authz"
	"github.com/craftplan/craftplan-api/internal/models"
	"github.com/craftplan/craftplan-api/internal/notification"
	"github.com/craftplan/craftplan-api/internal/repository"
	"github.com/craftplan/craftplan-api/internal/stats"
)

type AccessRequestHandler struct {
	requestRepo   repository.AccessRequestRepository
	tenantRepo    repository.TenantRepository
	userRepo      repository.UserRepository
	roleRepo      repository.RoleRepository
	stats         *stats.Service
	notifications notification.Service
	logger        zerolog.Logger
}

func NewAccessRequestHandler(
	requestRepo repository.AccessRequestRepository,
	tenantRepo repository.TenantRepository,
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	statsService *stats.Service,
	notifications notification.Service,
	logger zerolog.Logger,
) *AccessRequestHandler {
	return &AccessRequestHandler{
		requestRepo:   requestRepo,
		tenantRepo:    tenantRepo,
		userRepo:      userRepo,
		roleRepo:      roleRepo,
		stats:         statsService,
		notifications: notifications,
		logger:        logger.With().Str("handler", "access_request").Logger(),
	}
}

type createAccessRequestRequest struct {
	TenantSlug string `json:"tenant_slug" validate:"required,min=2,max=64"`
	Message    string `json:"message" validate:"omitempty,max=1000"`
}

// CreateRequest files a self-service join request. The caller must be
// authenticated but not yet bound to any tenant.
func (h *AccessRequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
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

	var req createAccessRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	tenant, err := h.tenantRepo.GetTenantBySlug(strings.ToLower(strings.TrimSpace(req.TenantSlug)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apperr.Write(w, h.logger, apperr.NotFound("tenant not found"))
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}

	request, err := h.requestRepo.CreateAccessRequest(models.TenantAccessRequest{
		TenantID: tenant.ID,
		UserID:   user.ID,
		Message:  strings.TrimSpace(req.Message),
	})
	if err != nil {
		// The partial unique index on (tenant_id, user_id) where
		// status = 'pending' is the duplicate guard.
		if repository.IsUniqueViolation(err) {
			apperr.Write(w, h.logger, apperr.Conflict("a pending request for this tenant already exists"))
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}

	h.notifications.NotifyAccessRequestCreated(tenant.ID, user.Email)
	writeJSON(w, http.StatusCreated, request)
}

// ListPending returns the tenant's unresolved requests. Admin only.
func (h *AccessRequestHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	tc, ok := authz.FromRequest(r)
	if !ok {
		apperr.Write(w, h.logger, apperr.NotAuthenticated(""))
		return
	}

	requests, err := h.requestRepo.ListPendingByTenant(tc.TenantID)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// Approve transitions a pending request to approved, binds the
// requester to the tenant and activates them. Admin only.
func (h *AccessRequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	tc, request, err := h.loadPendingRequest(r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	if err := h.stats.CheckUserLimit(r.Context(), tc.Tenant); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	// Claim the pending -> approved transition before any side effect,
	// so the loser of a concurrent review applies none.
	approved, err := h.requestRepo.Approve(request.ID, tc.TenantID, tc.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apperr.Write(w, h.logger, apperr.AlreadyProcessed("request has already been processed"))
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}

	user, err := h.userRepo.BindTenant(request.UserID, tc.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apperr.Write(w, h.logger, apperr.Conflict("user already belongs to a different tenant"))
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}

	memberRole, err := h.roleRepo.GetRoleByName(models.RoleMember)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	if err := h.roleRepo.AssignRole(user.ID, tc.TenantID, memberRole.ID); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	h.stats.Invalidate(tc.TenantID)
	h.notifications.NotifyAccessRequestResolved(tc.TenantID, user.Email, true)
	writeJSON(w, http.StatusOK, approved)
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

// Reject transitions a pending request to rejected and deactivates the
// requester. Admin only.
func (h *AccessRequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	tc, request, err := h.loadPendingRequest(r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = models.DefaultRejectionReason
	}

	rejected, err := h.requestRepo.Reject(request.ID, tc.TenantID, tc.UserID, reason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apperr.Write(w, h.logger, apperr.AlreadyProcessed("request has already been processed"))
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}

	user, err := h.userRepo.SetActive(request.UserID, false)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		apperr.Write(w, h.logger, err)
		return
	}
	// The requester may have deleted their account since filing; only
	// notify when the deactivation found them.
	if user.Email != "" {
		h.notifications.NotifyAccessRequestResolved(tc.TenantID, user.Email, false)
	}
	writeJSON(w, http.StatusOK, rejected)
}

// loadPendingRequest resolves the caller, fetches the request by id and
// applies the writability, tenant and state guards shared by
// approve/reject.
func (h *AccessRequestHandler) loadPendingRequest(r *http.Request) (authz.TenantContext, models.TenantAccessRequest, error) {
	tc, ok := authz.FromRequest(r)
	if !ok {
		return authz.TenantContext{}, models.TenantAccessRequest{}, apperr.NotAuthenticated("")
	}
	if err := authz.EnsureWritable(tc); err != nil {
		return tc, models.TenantAccessRequest{}, err
	}

	id := mux.Vars(r)["id"]
	request, err := h.requestRepo.GetAccessRequestByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tc, models.TenantAccessRequest{}, apperr.NotFound("access request not found")
		}
		return tc, models.TenantAccessRequest{}, err
	}

	if err := authz.EnsureTenant(h.logger, tc, "access request", id, request.TenantID); err != nil {
		return tc, models.TenantAccessRequest{}, err
	}
	if request.Status.Terminal() {
		return tc, models.TenantAccessRequest{}, apperr.AlreadyProcessed("request has already been " + string(request.Status))
	}

	return tc, request, nil
}
