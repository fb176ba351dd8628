package worker

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/notifyd/pkg/logger"
	"github.com/angelmondragon/notifyd/pkg/metrics"
	"github.com/angelmondragon/notifyd/pkg/queue"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 25
	maxBackoff          = 30 * time.Second
	jitterWindow        = 250 * time.Millisecond
)

var (
	jitterMu     sync.Mutex
	jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Claimer pops due jobs off a lane.
type Claimer interface {
	Claim(ctx context.Context, lane string, limit int) ([]queue.Job, error)
}

// Dispatcher runs one job.
type Dispatcher interface {
	Handle(ctx context.Context, job queue.Job) error
}

// ServiceParams configure the worker.
type ServiceParams struct {
	Logger       *logger.Logger
	Queue        Claimer
	Dispatcher   Dispatcher
	Metrics      *metrics.JobMetrics
	Lanes        []string
	PollInterval time.Duration
	BatchSize    int
}

// Service polls every lane on its own goroutine and dispatches claimed jobs
// by kind. Jobs on one lane run sequentially.
type Service struct {
	logg         *logger.Logger
	queue        Claimer
	dispatcher   Dispatcher
	metrics      *metrics.JobMetrics
	lanes        []string
	pollInterval time.Duration
	batchSize    int
}

// NewService builds a worker.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Queue == nil {
		return nil, fmt.Errorf("queue required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	lanes := normalizeLanes(params.Lanes)
	if len(lanes) == 0 {
		return nil, fmt.Errorf("at least one lane required")
	}
	interval := params.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Service{
		logg:         params.Logger,
		queue:        params.Queue,
		dispatcher:   params.Dispatcher,
		metrics:      params.Metrics,
		lanes:        lanes,
		pollInterval: interval,
		batchSize:    batch,
	}, nil
}

func normalizeLanes(lanes []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, lane := range lanes {
		lane = strings.TrimSpace(lane)
		if lane == "" {
			continue
		}
		if _, ok := seen[lane]; ok {
			continue
		}
		seen[lane] = struct{}{}
		out = append(out, lane)
	}
	return out
}

// Lanes returns the lanes this worker polls.
func (s *Service) Lanes() []string {
	return append([]string(nil), s.lanes...)
}

// Run polls until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for _, lane := range s.lanes {
		wg.Add(1)
		go func(lane string) {
			defer wg.Done()
			if err := s.runLane(ctx, lane); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		}(lane)
	}
	wg.Wait()

	if errs != nil {
		return errs
	}
	return ctx.Err()
}

func (s *Service) runLane(ctx context.Context, lane string) error {
	laneCtx := s.logg.WithField(ctx, "lane", lane)
	s.logg.Info(laneCtx, "lane polling started")
	backoff := s.pollInterval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(laneCtx, "lane polling stopped")
			return nil
		default:
		}

		processed, err := s.PollOnce(laneCtx, lane)
		if err != nil {
			s.logg.Error(laneCtx, "lane poll failed", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return nil
			}
			continue
		}
		backoff = s.pollInterval

		if processed > 0 {
			continue
		}
		if err := sleep(ctx, withJitter(s.pollInterval)); err != nil {
			return nil
		}
	}
}

// PollOnce claims one batch from lane and runs it. It returns the number of
// jobs claimed. Job failures are logged and counted, not returned.
func (s *Service) PollOnce(ctx context.Context, lane string) (int, error) {
	jobs, err := s.queue.Claim(ctx, lane, s.batchSize)
	if len(jobs) > 0 && s.metrics != nil {
		s.metrics.AddClaimed(lane, len(jobs))
	}
	for _, job := range jobs {
		s.runJob(ctx, job)
	}
	return len(jobs), err
}

func (s *Service) runJob(ctx context.Context, job queue.Job) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{
		"job_id":   job.ID,
		"job_kind": job.Kind,
		"event":    "queue.job",
	})
	start := time.Now()
	err := s.dispatcher.Handle(jobCtx, job)
	duration := time.Since(start)
	s.observeDuration(job, duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.recordFailure(job)
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.recordSuccess(job)
}

func (s *Service) observeDuration(job queue.Job, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job.Lane, job.Kind, duration)
}

func (s *Service) recordSuccess(job queue.Job) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job.Lane, job.Kind)
}

func (s *Service) recordFailure(job queue.Job) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job.Lane, job.Kind)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitterMu.Lock()
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	jitterMu.Unlock()
	return d + jitter
}
