package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/craftplan/craftplan-api/internal/authz"
	"github.com/craftplan/craftplan-api/internal/handlers"
	"github.com/craftplan/craftplan-api/internal/identity"
	"github.com/craftplan/craftplan-api/internal/middleware"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Tenant        *handlers.TenantHandler
	Invite        *handlers.InviteHandler
	AccessRequest *handlers.AccessRequestHandler
	Project       *handlers.ProjectHandler
	Notification  *handlers.NotificationHandler
}

// NewRouter sets up the API routes. Three tiers: public, authenticated
// (session but no tenant required), and tenant-scoped; admin-only
// routes additionally wrap RequireAdmin.
func NewRouter(h Handlers, provider identity.Provider, resolver *authz.Resolver, evaluator *authz.Evaluator, logger zerolog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.MetricsMiddleware(routeTemplate))

	// Public endpoints
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/api/signup", h.Auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/login", h.Auth.Login).Methods(http.MethodPost)

	// Invitation redemption: the token is the credential.
	router.HandleFunc("/api/invitations/token/{token}", h.Invite.PreviewInvite).Methods(http.MethodGet)
	router.HandleFunc("/api/invitations/token/{token}/accept", h.Invite.AcceptInvite).Methods(http.MethodPost)

	// Authenticated, tenant optional (setup-phase endpoints).
	authOnly := router.PathPrefix("/api").Subrouter()
	authOnly.Use(authz.Authenticate(provider, logger))
	authOnly.HandleFunc("/me", h.Auth.Me).Methods(http.MethodGet)
	authOnly.HandleFunc("/tenants", h.Tenant.CreateTenant).Methods(http.MethodPost)
	authOnly.HandleFunc("/access-requests", h.AccessRequest.CreateRequest).Methods(http.MethodPost)

	// Tenant-scoped.
	tenantScoped := router.PathPrefix("/api").Subrouter()
	tenantScoped.Use(authz.Authenticate(provider, logger), authz.RequireTenant(resolver, logger))
	tenantScoped.HandleFunc("/tenant", h.Tenant.GetCurrent).Methods(http.MethodGet)
	tenantScoped.HandleFunc("/tenant/limits", h.Tenant.Limits).Methods(http.MethodGet)
	tenantScoped.HandleFunc("/tenant/members", h.Tenant.ListMembers).Methods(http.MethodGet)
	tenantScoped.HandleFunc("/projects", h.Project.ListProjects).Methods(http.MethodGet)
	tenantScoped.HandleFunc("/projects", h.Project.CreateProject).Methods(http.MethodPost)
	tenantScoped.HandleFunc("/projects/{id}", h.Project.GetProject).Methods(http.MethodGet)
	tenantScoped.HandleFunc("/projects/{id}", h.Project.UpdateProject).Methods(http.MethodPut)
	tenantScoped.HandleFunc("/projects/{id}", h.Project.DeleteProject).Methods(http.MethodDelete)
	tenantScoped.HandleFunc("/notifications", h.Notification.ListRecent).Methods(http.MethodGet)
	tenantScoped.HandleFunc("/notifications/{id}/read", h.Notification.MarkRead).Methods(http.MethodPost)

	// Admin-only.
	admin := router.PathPrefix("/api").Subrouter()
	admin.Use(authz.Authenticate(provider, logger), authz.RequireTenant(resolver, logger), authz.RequireAdmin(evaluator, logger))
	admin.HandleFunc("/invitations", h.Invite.ListInvites).Methods(http.MethodGet)
	admin.HandleFunc("/invitations", h.Invite.CreateInvite).Methods(http.MethodPost)
	admin.HandleFunc("/invitations/{id}", h.Invite.CancelInvite).Methods(http.MethodDelete)
	admin.HandleFunc("/access-requests", h.AccessRequest.ListPending).Methods(http.MethodGet)
	admin.HandleFunc("/access-requests/{id}/approve", h.AccessRequest.Approve).Methods(http.MethodPost)
	admin.HandleFunc("/access-requests/{id}/reject", h.AccessRequest.Reject).Methods(http.MethodPost)

	return router
}

// routeTemplate resolves the registered path template for metrics
// labels, keeping label cardinality bounded.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
