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
	"github.com/craftplan/craftplan-api/internal/repository"
	"github.com/craftplan/craftplan-api/internal/stats"
)

// ProjectHandler is the exemplar of the tenant isolation policy: reads
// are tenant-filtered, writes stamp the context's tenant id, and every
// fetch-by-id is re-verified against the caller's tenant before the row
// is returned or mutated.
type ProjectHandler struct {
	projectRepo repository.ProjectRepository
	stats       *stats.Service
	logger      zerolog.Logger
}

func NewProjectHandler(projectRepo repository.ProjectRepository, statsService *stats.Service, logger zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectRepo: projectRepo,
		stats:       statsService,
		logger:      logger.With().Str("handler", "project").Logger(),
	}
}

type projectRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Status      string `json:"status" validate:"omitempty,oneof=planned active on_hold done"`
}

func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	tc, ok := authz.FromRequest(r)
	if !ok {
		apperr.Write(w, h.logger, apperr.NotAuthenticated(""))
		return
	}

	projects, err := h.projectRepo.ListProjectsByTenant(tc.TenantID)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	tc, ok := authz.FromRequest(r)
	if !ok {
		apperr.Write(w, h.logger, apperr.NotAuthenticated(""))
		return
	}
	if err := authz.EnsureWritable(tc); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	if err := h.stats.CheckProjectLimit(r.Context(), tc.Tenant); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	// Tenant id comes from the resolved context, never from the client.
	project, err := h.projectRepo.CreateProject(models.Project{
		TenantID:    tc.TenantID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Status:      req.Status,
		CreatedBy:   &tc.UserID,
	})
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	h.stats.Invalidate(tc.TenantID)
	writeJSON(w, http.StatusCreated, project)
}

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	_, project, err := h.loadProject(r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	tc, project, err := h.loadProject(r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	if err := authz.EnsureWritable(tc); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	project.Name = strings.TrimSpace(req.Name)
	project.Description = strings.TrimSpace(req.Description)
	if req.Status != "" {
		project.Status = req.Status
	}

	updated, err := h.projectRepo.UpdateProject(project)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apperr.Write(w, h.logger, apperr.NotFound("project not found"))
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	tc, project, err := h.loadProject(r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	if err := authz.EnsureWritable(tc); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	if err := h.projectRepo.DeleteProject(project.ID, tc.TenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apperr.Write(w, h.logger, apperr.NotFound("project not found"))
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}

	h.stats.Invalidate(tc.TenantID)
	w.WriteHeader(http.StatusNoContent)
}

// loadProject fetches by id and re-verifies tenant ownership. The
// two-step shape (fetch, then compare) keeps denied access auditable
// while callers see a plain not-found.
func (h *ProjectHandler) loadProject(r *http.Request) (authz.TenantContext, models.Project, error) {
	tc, ok := authz.FromRequest(r)
	if !ok {
		return authz.TenantContext{}, models.Project{}, apperr.NotAuthenticated("")
	}

	id := mux.Vars(r)["id"]
	project, err := h.projectRepo.GetProjectByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tc, models.Project{}, apperr.NotFound("project not found")
		}
		return tc, models.Project{}, err
	}

	if err := authz.EnsureTenant(h.logger, tc, "project", id, project.TenantID); err != nil {
		return tc, models.Project{}, err
	}
	return tc, project, nil
}
