package stats

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/viccon/sturdyc"

	"github.com/craftplan/craftplan-api/internal/apperr"
	"github.com/craftplan/craftplan-api/internal/models"
	"github.com/craftplan/craftplan-api/internal/repository"
)

const (
	cacheCapacity           = 1024
	cacheShards             = 8
	cacheTTL                = 30 * time.Second
	cacheEvictionPercentage = 10
)

// Service serves the per-tenant usage counters used for advisory limit
// checks. Counters are recomputed by full recount and cached briefly,
// so they are eventually consistent and must never gate anything that
// needs strict correctness.
type Service struct {
	repo   repository.StatsRepository
	cache  *sturdyc.Client[models.TenantUsageStats]
	logger zerolog.Logger
}

func NewService(repo repository.StatsRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  sturdyc.New[models.TenantUsageStats](cacheCapacity, cacheShards, cacheTTL, cacheEvictionPercentage),
		logger: logger.With().Str("component", "stats").Logger(),
	}
}

// Usage returns the tenant's usage counters, recomputing on cache miss.
func (s *Service) Usage(ctx context.Context, tenantID string) (models.TenantUsageStats, error) {
	return s.cache.GetOrFetch(ctx, tenantID, func(ctx context.Context) (models.TenantUsageStats, error) {
		return s.repo.RecomputeUsage(tenantID)
	})
}

// Invalidate drops the cached counters after a membership or project
// change so the next read recounts.
func (s *Service) Invalidate(tenantID string) {
	s.cache.Delete(tenantID)
}

// CheckUserLimit is the advisory gate applied before adding a member or
// issuing an invitation.
func (s *Service) CheckUserLimit(ctx context.Context, tenant models.Tenant) error {
	usage, err := s.Usage(ctx, tenant.ID)
	if err != nil {
		// The limit is advisory: a failed recount should not block the
		// operation, only lose the early exit.
		s.logger.Warn().Err(err).Str("tenant_id", tenant.ID).Msg("usage recount failed, skipping limit check")
		return nil
	}
	if usage.UserCount+usage.PendingInviteCount >= tenant.MaxUsers {
		return apperr.Conflict("tenant has reached its user limit")
	}
	return nil
}

// CheckProjectLimit is the advisory gate applied before creating a
// project.
func (s *Service) CheckProjectLimit(ctx context.Context, tenant models.Tenant) error {
	usage, err := s.Usage(ctx, tenant.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("tenant_id", tenant.ID).Msg("usage recount failed, skipping limit check")
		return nil
	}
	if usage.ProjectCount >= tenant.MaxProjects {
		return apperr.Conflict("tenant has reached its project limit")
	}
	return nil
}
