package handlers

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/craftplan/craftplan-api/internal/identity"
	"github.com/craftplan/craftplan-api/internal/models"
	"github.com/craftplan/craftplan-api/internal/notification"
	"github.com/craftplan/craftplan-api/internal/repository"
	"github.com/craftplan/craftplan-api/internal/stats"
)

// Function-field fakes. The embedded interface covers the methods a
// test never exercises; calling one of those panics, which is exactly
// what an unexpected call should do.

type fakeInviteRepo struct {
	repository.InvitationRepository
	createInvitation func(models.TenantInvitation) (models.TenantInvitation, error)
	getByID          func(string) (models.TenantInvitation, error)
	getByTokenHash   func(string) (models.TenantInvitation, error)
	listByTenant     func(string) ([]models.TenantInvitation, error)
	hasPending       func(string, string, time.Time) (bool, error)
	expireStale      func(string, string, time.Time) error
	markAccepted     func(string, string, time.Time) (models.TenantInvitation, error)
	markExpired      func(string) (models.TenantInvitation, error)
	cancel           func(string, string) (models.TenantInvitation, error)
}

func (f *fakeInviteRepo) CreateInvitation(inv models.TenantInvitation) (models.TenantInvitation, error) {
	return f.createInvitation(inv)
}

func (f *fakeInviteRepo) GetInvitationByID(id string) (models.TenantInvitation, error) {
	return f.getByID(id)
}

func (f *fakeInviteRepo) GetInvitationByTokenHash(hash string) (models.TenantInvitation, error) {
	return f.getByTokenHash(hash)
}

func (f *fakeInviteRepo) ListInvitationsByTenant(tenantID string) ([]models.TenantInvitation, error) {
	return f.listByTenant(tenantID)
}

func (f *fakeInviteRepo) HasPendingInvitation(tenantID, email string, now time.Time) (bool, error) {
	return f.hasPending(tenantID, email, now)
}

func (f *fakeInviteRepo) ExpireStalePending(tenantID, email string, now time.Time) error {
	return f.expireStale(tenantID, email, now)
}

func (f *fakeInviteRepo) MarkAccepted(id, acceptedBy string, now time.Time) (models.TenantInvitation, error) {
	return f.markAccepted(id, acceptedBy, now)
}

func (f *fakeInviteRepo) MarkExpired(id string) (models.TenantInvitation, error) {
	return f.markExpired(id)
}

func (f *fakeInviteRepo) Cancel(id, tenantID string) (models.TenantInvitation, error) {
	return f.cancel(id, tenantID)
}

type fakeUserRepo struct {
	repository.UserRepository
	createUser           func(models.User) (models.User, error)
	getByAccountID       func(string) (models.User, error)
	getTenantUserByEmail func(string, string) (models.User, error)
	bindTenant           func(string, string) (models.User, error)
	setActive            func(string, bool) (models.User, error)
	listByTenant         func(string) ([]models.User, error)
}

func (f *fakeUserRepo) ListUsersByTenant(tenantID string) ([]models.User, error) {
	return f.listByTenant(tenantID)
}

func (f *fakeUserRepo) CreateUser(user models.User) (models.User, error) {
	return f.createUser(user)
}

func (f *fakeUserRepo) GetUserByAccountID(accountID string) (models.User, error) {
	return f.getByAccountID(accountID)
}

func (f *fakeUserRepo) GetTenantUserByEmail(tenantID, email string) (models.User, error) {
	return f.getTenantUserByEmail(tenantID, email)
}

func (f *fakeUserRepo) BindTenant(userID, tenantID string) (models.User, error) {
	return f.bindTenant(userID, tenantID)
}

func (f *fakeUserRepo) SetActive(userID string, active bool) (models.User, error) {
	return f.setActive(userID, active)
}

type fakeTenantRepo struct {
	repository.TenantRepository
	createTenant func(string, string, models.TenantPlan) (models.Tenant, error)
	getByID      func(string) (models.Tenant, error)
	getBySlug    func(string) (models.Tenant, error)
}

func (f *fakeTenantRepo) CreateTenant(name, slug string, plan models.TenantPlan) (models.Tenant, error) {
	return f.createTenant(name, slug, plan)
}

func (f *fakeTenantRepo) GetTenantByID(id string) (models.Tenant, error) {
	return f.getByID(id)
}

func (f *fakeTenantRepo) GetTenantBySlug(slug string) (models.Tenant, error) {
	return f.getBySlug(slug)
}

type fakeRoleRepo struct {
	repository.RoleRepository
	getRoleByName func(string) (models.Role, error)
	assignRole    func(string, string, string) error
}

func (f *fakeRoleRepo) GetRoleByName(name string) (models.Role, error) {
	return f.getRoleByName(name)
}

func (f *fakeRoleRepo) AssignRole(userID, tenantID, roleID string) error {
	return f.assignRole(userID, tenantID, roleID)
}

type fakeRequestRepo struct {
	repository.AccessRequestRepository
	create  func(models.TenantAccessRequest) (models.TenantAccessRequest, error)
	getByID func(string) (models.TenantAccessRequest, error)
	approve func(string, string, string) (models.TenantAccessRequest, error)
	reject  func(string, string, string, string) (models.TenantAccessRequest, error)
}

func (f *fakeRequestRepo) CreateAccessRequest(req models.TenantAccessRequest) (models.TenantAccessRequest, error) {
	return f.create(req)
}

func (f *fakeRequestRepo) GetAccessRequestByID(id string) (models.TenantAccessRequest, error) {
	return f.getByID(id)
}

func (f *fakeRequestRepo) Approve(id, tenantID, reviewerID string) (models.TenantAccessRequest, error) {
	return f.approve(id, tenantID, reviewerID)
}

func (f *fakeRequestRepo) Reject(id, tenantID, reviewerID, reason string) (models.TenantAccessRequest, error) {
	return f.reject(id, tenantID, reviewerID, reason)
}

type fakeProjectRepo struct {
	repository.ProjectRepository
	create  func(models.Project) (models.Project, error)
	getByID func(string) (models.Project, error)
}

func (f *fakeProjectRepo) CreateProject(project models.Project) (models.Project, error) {
	return f.create(project)
}

func (f *fakeProjectRepo) GetProjectByID(id string) (models.Project, error) {
	return f.getByID(id)
}

type fakeProvider struct {
	identity.Provider
	createAccount func(string, string) (identity.Identity, error)
	deleteAccount func(string) error
}

func (f *fakeProvider) CreateAccount(email, password string) (identity.Identity, error) {
	return f.createAccount(email, password)
}

func (f *fakeProvider) DeleteAccount(accountID string) error {
	return f.deleteAccount(accountID)
}

// nopNotifications satisfies notification.Service; handler tests only
// care that the calls do not blow up.
type nopNotifications struct{}

func (nopNotifications) Publish(notification.Event)                       {}
func (nopNotifications) NotifyInvitationCreated(string, string, string)   {}
func (nopNotifications) NotifyInvitationAccepted(string, string)          {}
func (nopNotifications) NotifyAccessRequestCreated(string, string)        {}
func (nopNotifications) NotifyAccessRequestResolved(string, string, bool) {}

func (nopNotifications) ListRecent(string, int) ([]models.Notification, error) {
	return nil, nil
}

func (nopNotifications) MarkRead(string, string) (models.Notification, error) {
	return models.Notification{}, nil
}

// recordingNotifications captures which addresses were told about a
// resolved access request; every other method panics like the embedded
// nil interface would.
type recordingNotifications struct {
	notification.Service
	resolved []string
}

func (r *recordingNotifications) NotifyAccessRequestResolved(tenantID, email string, approved bool) {
	r.resolved = append(r.resolved, email)
}

type recordingMailer struct {
	sent []string
	err  error
}

func (m *recordingMailer) SendInvite(email, tenantName, inviteURL string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

type fixedStatsRepo struct {
	usage models.TenantUsageStats
}

func (f fixedStatsRepo) RecomputeUsage(tenantID string) (models.TenantUsageStats, error) {
	usage := f.usage
	usage.TenantID = tenantID
	return usage, nil
}

func (f fixedStatsRepo) GetUsage(tenantID string) (models.TenantUsageStats, error) {
	return f.RecomputeUsage(tenantID)
}

func newTestStats(usage models.TenantUsageStats) *stats.Service {
	return stats.NewService(fixedStatsRepo{usage: usage}, zerolog.Nop())
}
