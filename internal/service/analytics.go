package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"example.com/eventhub/internal/metrics"
	"example.com/eventhub/internal/model"
	"example.com/eventhub/internal/repository"
)

// KpiSummary holds the dashboard headline numbers
type KpiSummary struct {
	TotalEvents   int64            `json:"total_events"`
	TotalSubjects int64            `json:"total_subjects"`
	StatusCounts  map[string]int64 `json:"status_counts"`
}

// AnalyticsService computes derived views over the participation store
// and subject registry. Read-only and recomputed on each call; volumes
// are small enough that no materialized view is kept.
type AnalyticsService interface {
	KpiSummary(ctx context.Context) (*KpiSummary, error)
	EventPopularity(ctx context.Context) ([]repository.EventApprovalCount, error)
	GrowthSeries(ctx context.Context) ([]repository.MonthlyCount, error)
}

// analyticsService implements AnalyticsService
type analyticsService struct {
	events        repository.EventRepository
	participation repository.ParticipationRepository
	subjects      repository.SubjectRepository
	queryTimeout  time.Duration
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(
	events repository.EventRepository,
	participation repository.ParticipationRepository,
	subjects repository.SubjectRepository,
	queryTimeout time.Duration,
) AnalyticsService {
	if queryTimeout == 0 {
		queryTimeout = 5 * time.Second
	}
	return &analyticsService{
		events:        events,
		participation: participation,
		subjects:      subjects,
		queryTimeout:  queryTimeout,
	}
}

// KpiSummary computes the headline counts: events, subjects, and
// participations grouped by status. The three counts hit independent
// tables, so they are gathered concurrently under the shared timeout.
func (s *analyticsService) KpiSummary(ctx context.Context) (*KpiSummary, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var (
		totalEvents   int64
		totalSubjects int64
		counts        map[model.ParticipationStatus]int64
	)

	g, gCtx := errgroup.WithContext(opCtx)
	g.Go(func() error {
		var err error
		totalEvents, err = s.events.Count(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		totalSubjects, err = s.subjects.Count(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.participation.CountByStatus(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	statusCounts := make(map[string]int64, len(counts))
	for status, count := range counts {
		statusCounts[status.String()] = count
	}

	metrics.GetMetricsCollector().SetPendingParticipations(counts[model.PendingParticipationStatus])

	return &KpiSummary{
		TotalEvents:   totalEvents,
		TotalSubjects: totalSubjects,
		StatusCounts:  statusCounts,
	}, nil
}

// EventPopularity counts approved participations per event. Ties are
// broken by event UUID so consumers get a deterministic ranking.
func (s *analyticsService) EventPopularity(ctx context.Context) ([]repository.EventApprovalCount, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.participation.CountApprovedByEvent(opCtx)
}

// GrowthSeries buckets subject creations by (year, month), ascending.
// The series is sparse: months without creations are omitted.
func (s *analyticsService) GrowthSeries(ctx context.Context) ([]repository.MonthlyCount, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.subjects.GrowthByMonth(opCtx)
}
