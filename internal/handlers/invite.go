package handlers

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/craftplan/craftplan-api/internal/apperr"
	"github.com/craftplan/craftplan-api/internal/authz"
	"github.com/craftplan/craftplan-api/internal/identity"
	"github.com/craftplan/craftplan-api/internal/models"
	"github.com/craftplan/craftplan-api/internal/notification"
	"github.com/craftplan/craftplan-api/internal/repository"
	"github.com/craftplan/craftplan-api/internal/stats"
)

const defaultInviteTTL = 7 * 24 * time.Hour

type InviteHandler struct {
	inviteRepo    repository.InvitationRepository
	tenantRepo    repository.TenantRepository
	userRepo      repository.UserRepository
	roleRepo      repository.RoleRepository
	provider      identity.Provider
	stats         *stats.Service
	notifications notification.Service
	mailer        notification.InviteMailer
	tokenTTL      time.Duration
	urlTpl        string
	logger        zerolog.Logger
}

type InviteHandlerDeps struct {
	InviteRepo    repository.InvitationRepository
	TenantRepo    repository.TenantRepository
	UserRepo      repository.UserRepository
	RoleRepo      repository.RoleRepository
	Provider      identity.Provider
	Stats         *stats.Service
	Notifications notification.Service
	Mailer        notification.InviteMailer
	TokenTTL      time.Duration
	URLTemplate   string
}

func NewInviteHandler(deps InviteHandlerDeps, logger zerolog.Logger) *InviteHandler {
	if deps.TokenTTL == 0 {
		deps.TokenTTL = defaultInviteTTL
	}
	if deps.URLTemplate == "" {
		deps.URLTemplate = "https://app.craftplan.io/invitations/accept?token=%s"
	}
	return &InviteHandler{
		inviteRepo:    deps.InviteRepo,
		tenantRepo:    deps.TenantRepo,
		userRepo:      deps.UserRepo,
		roleRepo:      deps.RoleRepo,
		provider:      deps.Provider,
		stats:         deps.Stats,
		notifications: deps.Notifications,
		mailer:        deps.Mailer,
		tokenTTL:      deps.TokenTTL,
		urlTpl:        deps.URLTemplate,
		logger:        logger.With().Str("handler", "invite").Logger(),
	}
}

type createInviteRequest struct {
	Email    string `json:"email" validate:"required,email"`
	RoleName string `json:"role_name" validate:"omitempty,oneof=admin member viewer"`
	Message  string `json:"message" validate:"omitempty,max=1000"`
}

// CreateInvite issues a new invitation for the caller's tenant. Admin
// only; the route is wrapped in RequireAdmin.
func (h *InviteHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	tc, ok := authz.FromRequest(r)
	if !ok {
		apperr.Write(w, h.logger, apperr.NotAuthenticated(""))
		return
	}
	if err := authz.EnsureWritable(tc); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	var req createInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	roleName := req.RoleName
	if roleName == "" {
		roleName = models.RoleMember
	}

	// Advisory limit check; the recount is eventually consistent.
	if err := h.stats.CheckUserLimit(r.Context(), tc.Tenant); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	// Reject if the address already maps to an active member.
	existing, err := h.userRepo.GetTenantUserByEmail(tc.TenantID, email)
	switch {
	case err == nil:
		if existing.IsActive {
			apperr.Write(w, h.logger, apperr.Conflict("user is already an active member of this tenant"))
			return
		}
	case errors.Is(err, sql.ErrNoRows):
		// fine, nobody with that address yet
	default:
		apperr.Write(w, h.logger, err)
		return
	}

	// Fast-path duplicate check; the partial unique index is the
	// authoritative guard under concurrency.
	pending, err := h.inviteRepo.HasPendingInvitation(tc.TenantID, email, time.Now())
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	if pending {
		apperr.Write(w, h.logger, apperr.Conflict("a pending invitation for this email already exists"))
		return
	}

	// Expiry is lazy, so a stale invitation past its deadline still
	// sits at status pending and would trip the partial unique index
	// on insert. Expire it first so a re-issue goes through.
	if err := h.inviteRepo.ExpireStalePending(tc.TenantID, email, time.Now()); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	role, err := h.roleRepo.GetRoleByName(roleName)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	token, err := generateInviteToken()
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	invitation, err := h.inviteRepo.CreateInvitation(models.TenantInvitation{
		TenantID:  tc.TenantID,
		Email:     email,
		RoleID:    &role.ID,
		TokenHash: hashInviteToken(token),
		InvitedBy: &tc.UserID,
		Message:   strings.TrimSpace(req.Message),
		ExpiresAt: time.Now().Add(h.tokenTTL),
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			apperr.Write(w, h.logger, apperr.Conflict("a pending invitation for this email already exists"))
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}

	// Email delivery is best-effort: a mail failure must not fail the
	// invitation.
	inviteURL := fmt.Sprintf(h.urlTpl, token)
	if err := h.mailer.SendInvite(invitation.Email, tc.Tenant.Name, inviteURL); err != nil {
		h.logger.Warn().Err(err).Str("invitation_id", invitation.ID).Msg("failed to send invite email")
	}

	h.notifications.NotifyInvitationCreated(tc.TenantID, invitation.Email, invitation.RoleName)
	h.stats.Invalidate(tc.TenantID)

	response := struct {
		models.TenantInvitation
		Token string `json:"token"`
	}{
		TenantInvitation: invitation,
		Token:            token,
	}
	writeJSON(w, http.StatusCreated, response)
}

type invitationView struct {
	models.TenantInvitation
	EffectiveStatus models.InvitationStatus `json:"effective_status"`
}

// ListInvites returns the tenant's invitations with lazily computed
// effective status, so stale pending rows past expiry render expired.
func (h *InviteHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	tc, ok := authz.FromRequest(r)
	if !ok {
		apperr.Write(w, h.logger, apperr.NotAuthenticated(""))
		return
	}

	invitations, err := h.inviteRepo.ListInvitationsByTenant(tc.TenantID)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	now := time.Now()
	views := make([]invitationView, 0, len(invitations))
	for _, inv := range invitations {
		views = append(views, invitationView{
			TenantInvitation: inv,
			EffectiveStatus:  inv.EffectiveStatus(now),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// CancelInvite soft-transitions a pending invitation to cancelled.
// Restricted to the invitation's own tenant; a foreign invitation is
// indistinguishable from a missing one.
func (h *InviteHandler) CancelInvite(w http.ResponseWriter, r *http.Request) {
	tc, ok := authz.FromRequest(r)
	if !ok {
		apperr.Write(w, h.logger, apperr.NotAuthenticated(""))
		return
	}
	if err := authz.EnsureWritable(tc); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	id := mux.Vars(r)["id"]

	invitation, err := h.inviteRepo.GetInvitationByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apperr.Write(w, h.logger, apperr.NotFound("invitation not found"))
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}
	if err := authz.EnsureTenant(h.logger, tc, "invitation", id, invitation.TenantID); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	if invitation.Status.Terminal() {
		apperr.Write(w, h.logger, apperr.AlreadyProcessed("invitation is already "+string(invitation.Status)))
		return
	}

	cancelled, err := h.inviteRepo.Cancel(id, tc.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost a race against accept or lazy expiry.
			apperr.Write(w, h.logger, apperr.AlreadyProcessed("invitation is no longer pending"))
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}

	h.stats.Invalidate(tc.TenantID)
	writeJSON(w, http.StatusOK, cancelled)
}

type previewResponse struct {
	Email      string    `json:"email"`
	TenantName string    `json:"tenant_name"`
	RoleName   string    `json:"role_name"`
	Message    string    `json:"message,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// PreviewInvite validates a token and returns tenant/role display data.
// Unauthenticated: the token itself is the credential.
func (h *InviteHandler) PreviewInvite(w http.ResponseWriter, r *http.Request) {
	invitation, err := h.validateToken(mux.Vars(r)["token"])
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	tenant, err := h.tenantRepo.GetTenantByID(invitation.TenantID)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{
		Email:      invitation.Email,
		TenantName: tenant.Name,
		RoleName:   invitation.RoleName,
		Message:    invitation.Message,
		ExpiresAt:  invitation.ExpiresAt,
	})
}

type acceptInviteRequest struct {
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,max=200"`
}

// AcceptInvite redeems a token into a tenant-bound user account. The
// invitation is trusted as proof of email ownership, so the user is
// created verified and active.
func (h *InviteHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req acceptInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	invitation, err := h.validateToken(mux.Vars(r)["token"])
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	tenant, err := h.tenantRepo.GetTenantByID(invitation.TenantID)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	if !tenant.IsWritable() {
		apperr.Write(w, h.logger, apperr.AccessDenied("tenant is "+string(tenant.Status)))
		return
	}

	ident, err := h.provider.CreateAccount(invitation.Email, req.Password)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	tenantID := invitation.TenantID
	user, err := h.userRepo.CreateUser(models.User{
		AccountID:     ident.ID,
		TenantID:      &tenantID,
		Email:         ident.Email,
		FullName:      strings.TrimSpace(req.FullName),
		IsActive:      true,
		EmailVerified: true,
	})
	if err != nil {
		// Compensate the identity half of the two-phase creation.
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

	if invitation.RoleID != nil {
		if err := h.roleRepo.AssignRole(user.ID, tenantID, *invitation.RoleID); err != nil {
			apperr.Write(w, h.logger, err)
			return
		}
	}

	accepted, err := h.inviteRepo.MarkAccepted(invitation.ID, user.ID, time.Now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apperr.Write(w, h.logger, apperr.AlreadyProcessed("invitation is no longer pending"))
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}

	h.stats.Invalidate(tenantID)
	h.notifications.NotifyInvitationAccepted(tenantID, user.Email)
	h.logger.Info().
		Str("invitation_id", accepted.ID).
		Str("tenant_id", tenantID).
		Str("user_id", user.ID).
		Msg("invitation accepted")

	writeJSON(w, http.StatusCreated, user)
}

// validateToken performs the shared pending/expiry validation, applying
// the lazy pending -> expired transition when the deadline has passed.
func (h *InviteHandler) validateToken(token string) (models.TenantInvitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.TenantInvitation{}, apperr.Validation(map[string]string{"token": "token is required"})
	}

	invitation, err := h.inviteRepo.GetInvitationByTokenHash(hashInviteToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TenantInvitation{}, apperr.NotFound("invitation not found")
		}
		return models.TenantInvitation{}, err
	}

	if invitation.Status.Terminal() {
		return models.TenantInvitation{}, apperr.AlreadyProcessed("invitation is already " + string(invitation.Status))
	}
	if invitation.IsExpired(time.Now()) {
		if _, err := h.inviteRepo.MarkExpired(invitation.ID); err != nil && !errors.Is(err, sql.ErrNoRows) {
			h.logger.Warn().Err(err).Str("invitation_id", invitation.ID).Msg("failed to mark invitation expired")
		}
		return models.TenantInvitation{}, apperr.AlreadyProcessed("invitation has expired")
	}

	return invitation, nil
}

func generateInviteToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashInviteToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
