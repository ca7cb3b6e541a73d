package scheduler

import (
	"context"
	"fmt"
	"time"

	"weighbridge-backend/internal/metrics"
	"weighbridge-backend/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const closeTimeout = 2 * time.Minute

// DayCloser produces the end-of-day report.
type DayCloser interface {
	CloseDay(ctx context.Context, day time.Time) (models.DailyReport, error)
}

// Scheduler runs the daily closing on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	closer   DayCloser
	logger   *zap.Logger
	now      func() time.Time
	location *time.Location
}

// NewScheduler uses the standard 5-field cron syntax evaluated in loc.
func NewScheduler(spec string, loc *time.Location, closer DayCloser, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		spec:     spec,
		closer:   closer,
		logger:   logger,
		now:      time.Now,
		location: loc,
	}
}

// Start registers the closing job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.closeDay); err != nil {
		return fmt.Errorf("schedule daily closing %q: %w", s.spec, err)
	}
	s.logger.Info("starting scheduler", zap.String("schedule", s.spec), zap.String("timezone", s.location.String()))
	s.cron.Start()
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) closeDay() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	report, err := s.closer.CloseDay(ctx, s.now().In(s.location))
	if err != nil {
		metrics.DailyClosings.WithLabelValues("error").Inc()
		s.logger.Error("scheduled daily closing failed", zap.Error(err))
		return
	}
	metrics.DailyClosings.WithLabelValues("ok").Inc()
	s.logger.Info("scheduled daily closing done", zap.String("date", report.Date))
}
