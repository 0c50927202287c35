package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/repository"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/stats"
	"github.com/pillflow/pillflow-backend/pkg/cache"
	"github.com/pillflow/pillflow-backend/pkg/logger"
	"github.com/pillflow/pillflow-backend/pkg/owner"
)

const dashboardKeyPrefix = "pillflow:dashboard:"

// DashboardOptions configures caching and bucketing
type DashboardOptions struct {
	CacheTTL  time.Duration
	GraphDays int
	Location  *time.Location
}

// Graph is the daily collection series behind the dashboard chart
type Graph struct {
	From   time.Time          `json:"from"`
	To     time.Time          `json:"to"`
	Series []stats.DailyCount `json:"series"`
}

// DashboardService aggregates collection statistics per subject and caches
// the result. The cache is optional; failures fall through to the database.
type DashboardService struct {
	customers CustomerStore
	scans     ScanStore
	cache     cache.KVStore
	opts      DashboardOptions
	logger    *logger.Logger
	now       clock
}

// NewDashboardService creates a new dashboard service. kv may be nil.
func NewDashboardService(
	customers CustomerStore,
	scans ScanStore,
	kv cache.KVStore,
	opts DashboardOptions,
	log *logger.Logger,
) *DashboardService {
	if opts.GraphDays <= 0 {
		opts.GraphDays = 30
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &DashboardService{
		customers: customers,
		scans:     scans,
		cache:     kv,
		opts:      opts,
		logger:    log,
		now:       time.Now,
	}
}

// Stats returns the summary for the subject's scans, optionally within rng
func (s *DashboardService) Stats(ctx context.Context, rng *stats.DateRange) (*stats.Summary, error) {
	subjectID, err := owner.SubjectID(ctx)
	if err != nil {
		return nil, err
	}

	key := s.cacheKey(ctx, subjectID, rng)
	if key != "" {
		if summary, ok := s.cached(ctx, key); ok {
			return summary, nil
		}
	}

	count, err := s.customers.Count(ctx)
	if err != nil {
		return nil, err
	}

	filter := repository.ScanFilter{}
	if rng != nil {
		filter.From = &rng.Start
		filter.To = &rng.End
	}
	scans, err := s.scans.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	input := make([]stats.Scan, len(scans))
	for i, scan := range scans {
		input[i] = scan.StatsScan()
	}
	summary := stats.Aggregate(input, count, stats.Options{
		Range:    rng,
		Now:      s.now(),
		Location: s.opts.Location,
	})

	if key != "" {
		s.store(ctx, key, &summary)
	}
	return &summary, nil
}

// Graph returns the daily series for the last GraphDays days
func (s *DashboardService) Graph(ctx context.Context) (*Graph, error) {
	rng := stats.LastNDays(s.now(), s.opts.GraphDays, s.opts.Location)
	summary, err := s.Stats(ctx, &rng)
	if err != nil {
		return nil, err
	}
	return &Graph{From: rng.Start, To: rng.End, Series: summary.DailySeries}, nil
}

// Invalidate drops every cached summary of the subject by bumping its
// generation counter
func (s *DashboardService) Invalidate(ctx context.Context, subjectID string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, generationKey(subjectID)); err != nil {
		s.logger.Warn().Err(err).Str("user_id", subjectID).Msg("failed to invalidate dashboard cache")
	}
}

// cacheKey returns "" when caching is disabled or unavailable
func (s *DashboardService) cacheKey(ctx context.Context, subjectID string, rng *stats.DateRange) string {
	if s.cache == nil || s.opts.CacheTTL <= 0 {
		return ""
	}

	gen, err := s.cache.Get(ctx, generationKey(subjectID))
	if err == cache.ErrCacheMiss {
		gen = "0"
	} else if err != nil {
		s.logger.Warn().Err(err).Msg("dashboard cache unavailable")
		return ""
	}

	span := "all"
	if rng != nil {
		span = fmt.Sprintf("%d-%d", rng.Start.Unix(), rng.End.Unix())
	}
	// The ISO-week figure depends on the current day.
	today := s.now().In(s.opts.Location).Format("2006-01-02")
	return dashboardKeyPrefix + subjectID + ":" + gen + ":" + span + ":" + today
}

func (s *DashboardService) cached(ctx context.Context, key string) (*stats.Summary, bool) {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if err != cache.ErrCacheMiss {
			s.logger.Warn().Err(err).Str("key", key).Msg("dashboard cache read failed")
		}
		return nil, false
	}

	var summary stats.Summary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding corrupt dashboard cache entry")
		return nil, false
	}
	return &summary, true
}

func (s *DashboardService) store(ctx context.Context, key string, summary *stats.Summary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.opts.CacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("dashboard cache write failed")
	}
}

func generationKey(subjectID string) string {
	return dashboardKeyPrefix + subjectID + ":gen"
}
