package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftplan/craftplan-api/internal/authz"
	"github.com/craftplan/craftplan-api/internal/models"
)

func projectRequestWithID(tc authz.TenantContext, id string) *http.Request {
	r := tenantRequest(http.MethodGet, "/api/projects/"+id, nil, tc)
	return mux.SetURLVars(r, map[string]string{"id": id})
}

func TestGetProject(t *testing.T) {
	newHandler := func(repo *fakeProjectRepo) *ProjectHandler {
		return NewProjectHandler(repo, newTestStats(models.TenantUsageStats{}), zerolog.Nop())
	}

	t.Run("own project", func(t *testing.T) {
		repo := &fakeProjectRepo{
			getByID: func(id string) (models.Project, error) {
				return models.Project{ID: id, TenantID: "tenant-1", Name: "Widget line"}, nil
			},
		}
		rec := httptest.NewRecorder()
		newHandler(repo).GetProject(rec, projectRequestWithID(adminContext(), "p-1"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Widget line")
	})

	t.Run("missing project", func(t *testing.T) {
		repo := &fakeProjectRepo{
			getByID: func(string) (models.Project, error) {
				return models.Project{}, sql.ErrNoRows
			},
		}
		rec := httptest.NewRecorder()
		newHandler(repo).GetProject(rec, projectRequestWithID(adminContext(), "p-gone"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("foreign project is indistinguishable from a missing one", func(t *testing.T) {
		repo := &fakeProjectRepo{
			getByID: func(id string) (models.Project, error) {
				return models.Project{ID: id, TenantID: "tenant-other", Name: "Secret plan"}, nil
			},
		}
		rec := httptest.NewRecorder()
		newHandler(repo).GetProject(rec, projectRequestWithID(adminContext(), "p-foreign"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NotContains(t, rec.Body.String(), "Secret plan")
		assert.NotContains(t, rec.Body.String(), "tenant-other")
	})
}

func TestCreateProjectStampsTenantFromContext(t *testing.T) {
	var created models.Project
	repo := &fakeProjectRepo{
		create: func(project models.Project) (models.Project, error) {
			created = project
			project.ID = "p-1"
			return project, nil
		},
	}
	h := NewProjectHandler(repo, newTestStats(models.TenantUsageStats{ProjectCount: 0}), zerolog.Nop())

	// the body cannot pick a tenant; the context decides
	body := []byte(`{"name": "Widget line", "description": "Q4 rollout"}`)
	rec := httptest.NewRecorder()
	h.CreateProject(rec, tenantRequest(http.MethodPost, "/api/projects", body, adminContext()))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "tenant-1", created.TenantID)
}
