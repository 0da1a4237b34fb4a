package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/schoolvax/portal/pkg/config"
	"github.com/schoolvax/portal/pkg/logger"
	"github.com/schoolvax/portal/services/dashboard-service/internal/models"
	"github.com/schoolvax/portal/services/dashboard-service/internal/upstream"
	"golang.org/x/sync/errgroup"
)

const (
	StudentServiceName = "student-service"
	DriveServiceName   = "drive-service"

	studentsPath = "/students"
	drivesPath   = "/drives"
)

// ErrMissingCredential is returned before any upstream call when the inbound
// request carries no credential.
var ErrMissingCredential = errors.New("missing credential")

// Fetcher retrieves a raw JSON document from an upstream service.
type Fetcher interface {
	Fetch(ctx context.Context, svc upstream.Service, path, credential string) (json.RawMessage, error)
}

// DashboardService aggregates the student and drive services into dashboard
// views. It holds no request state and is safe for concurrent use.
type DashboardService struct {
	fetcher    Fetcher
	normalizer *Normalizer
	students   upstream.Service
	drives     upstream.Service

	overviewStrategy string
	statsStrategy    string

	now func() time.Time
	log logger.Logger
}

type Option func(*DashboardService)

// WithClock overrides the time source used to decide which drives are upcoming.
func WithClock(now func() time.Time) Option {
	return func(s *DashboardService) {
		s.now = now
	}
}

func NewDashboardService(fetcher Fetcher, cfg *config.Config, log logger.Logger, opts ...Option) *DashboardService {
	s := &DashboardService{
		fetcher:          fetcher,
		normalizer:       NewNormalizer(log),
		students:         upstream.Service{Name: StudentServiceName, BaseURL: cfg.Services.StudentServiceURL},
		drives:           upstream.Service{Name: DriveServiceName, BaseURL: cfg.Services.DriveServiceURL},
		overviewStrategy: cfg.Dashboard.OverviewStrategy,
		statsStrategy:    cfg.Dashboard.StatsStrategy,
		now:              time.Now,
		log:              log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOverview returns totals, the participation percentage and the upcoming
// drives. Students and drives are fetched one after the other unless the
// overview strategy is parallel.
func (s *DashboardService) GetOverview(ctx context.Context, credential string) (*models.Overview, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, ErrMissingCredential
	}

	start := time.Now()
	rawStudents, rawDrives, err := s.fetchAll(ctx, credential, s.overviewStrategy)
	if err != nil {
		aggregationErrors.WithLabelValues("overview").Inc()
		return nil, fmt.Errorf("failed to fetch overview data: %w", err)
	}

	students := s.normalizer.NormalizeStudents(rawStudents)
	drives := s.normalizer.NormalizeDrives(rawDrives)

	overview := buildOverview(students, drives, s.now())
	upcomingDrivesGauge.Set(float64(overview.UpcomingDrives))
	aggregationDuration.WithLabelValues("overview", s.overviewStrategy).Observe(time.Since(start).Seconds())

	s.log.Debug("Dashboard overview computed",
		logger.Field{Key: "students", Value: overview.TotalStudents},
		logger.Field{Key: "upcoming_drives", Value: overview.UpcomingDrives},
	)

	return overview, nil
}

// GetStats returns drive counts, averages and the per-class breakdown. Both
// upstreams are queried concurrently unless the stats strategy is sequential.
func (s *DashboardService) GetStats(ctx context.Context, credential string) (*models.Stats, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, ErrMissingCredential
	}

	start := time.Now()
	rawStudents, rawDrives, err := s.fetchAll(ctx, credential, s.statsStrategy)
	if err != nil {
		aggregationErrors.WithLabelValues("stats").Inc()
		return nil, fmt.Errorf("failed to fetch statistics data: %w", err)
	}

	students := s.normalizer.NormalizeStudents(rawStudents)
	drives := s.normalizer.NormalizeDrives(rawDrives)

	stats := buildStats(students, drives)
	aggregationDuration.WithLabelValues("stats", s.statsStrategy).Observe(time.Since(start).Seconds())

	s.log.Debug("Dashboard stats computed",
		logger.Field{Key: "students", Value: len(students)},
		logger.Field{Key: "drives", Value: stats.TotalDrives},
		logger.Field{Key: "grades", Value: stats.VaccinationByGrade.Len()},
	)

	return stats, nil
}

func (s *DashboardService) fetchAll(ctx context.Context, credential, strategy string) (json.RawMessage, json.RawMessage, error) {
	if strategy == config.StrategyParallel {
		return s.fetchParallel(ctx, credential)
	}
	return s.fetchSequential(ctx, credential)
}

func (s *DashboardService) fetchSequential(ctx context.Context, credential string) (json.RawMessage, json.RawMessage, error) {
	students, err := s.fetcher.Fetch(ctx, s.students, studentsPath, credential)
	if err != nil {
		return nil, nil, err
	}
	drives, err := s.fetcher.Fetch(ctx, s.drives, drivesPath, credential)
	if err != nil {
		return nil, nil, err
	}
	return students, drives, nil
}

// fetchParallel reports the first failure; the sibling request is cancelled
// and its result discarded.
func (s *DashboardService) fetchParallel(ctx context.Context, credential string) (json.RawMessage, json.RawMessage, error) {
	var students, drives json.RawMessage

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		students, err = s.fetcher.Fetch(gctx, s.students, studentsPath, credential)
		return err
	})
	g.Go(func() error {
		var err error
		drives, err = s.fetcher.Fetch(gctx, s.drives, drivesPath, credential)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return students, drives, nil
}
