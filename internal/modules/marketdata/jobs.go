package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// refreshTimeout bounds one background refresh attempt
const refreshTimeout = 15 * time.Second

// IndicesRefreshJob keeps the cached index snapshot warm so the indices
// endpoint stays responsive even when the feed is slow
type IndicesRefreshJob struct {
	service *Service
	log     zerolog.Logger
}

// NewIndicesRefreshJob creates a new indices refresh job
func NewIndicesRefreshJob(service *Service, log zerolog.Logger) *IndicesRefreshJob {
	return &IndicesRefreshJob{
		service: service,
		log:     log.With().Str("job", "indices_refresh").Logger(),
	}
}

// Name returns the job name
func (j *IndicesRefreshJob) Name() string {
	return "indices_refresh"
}

// Run fetches and caches the current index snapshot
func (j *IndicesRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	return j.service.RefreshIndices(ctx)
}

// CachePruneJob evicts quote cache entries old enough to be useless even
// as a stale fallback
type CachePruneJob struct {
	cache  *CacheRepository
	maxAge time.Duration
	log    zerolog.Logger
}

// NewCachePruneJob creates a new cache prune job
func NewCachePruneJob(cache *CacheRepository, maxAge time.Duration, log zerolog.Logger) *CachePruneJob {
	return &CachePruneJob{
		cache:  cache,
		maxAge: maxAge,
		log:    log.With().Str("job", "cache_prune").Logger(),
	}
}

// Name returns the job name
func (j *CachePruneJob) Name() string {
	return "cache_prune"
}

// Run removes expired cache entries
func (j *CachePruneJob) Run() error {
	removed, err := j.cache.Prune(j.maxAge)
	if err != nil {
		return err
	}

	if removed > 0 {
		j.log.Info().Int64("removed", removed).Msg("Evicted expired quote cache entries")
	}

	return nil
}
