package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
	"github.com/couchcryptid/snowpack-etl/internal/observability"
)

// Extractor fetches the raw report for one request.
type Extractor interface {
	Extract(ctx context.Context, req domain.Request) (domain.RawReport, error)
}

// Transformer converts a raw report into filtered rows.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawReport) (domain.Batch, error)
}

// BatchLoader writes the rows of one report to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, rows []domain.Row) (LoadResult, error)
}

// LoadResult counts what a loader did with a batch.
type LoadResult struct {
	StationsCreated       int `json:"stations_created"`
	StationsExisting      int `json:"stations_existing"`
	ObservationsCreated   int `json:"observations_created"`
	ObservationsDuplicate int `json:"observations_duplicate"`
	EventsPublished       int `json:"events_published"`
}

// Add accumulates o into r.
func (r *LoadResult) Add(o LoadResult) {
	r.StationsCreated += o.StationsCreated
	r.StationsExisting += o.StationsExisting
	r.ObservationsCreated += o.ObservationsCreated
	r.ObservationsDuplicate += o.ObservationsDuplicate
	r.EventsPublished += o.EventsPublished
}

// Summary describes a run, complete or in progress.
type Summary struct {
	RunID        string     `json:"run_id"`
	Requests     int        `json:"requests"`
	Completed    int        `json:"completed"`
	RowsParsed   int        `json:"rows_parsed"`
	RowsFiltered int        `json:"rows_filtered"`
	Load         LoadResult `json:"load"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   time.Time  `json:"finished_at,omitzero"`
}

// Status is a point-in-time view of the pipeline for the status endpoint.
type Status struct {
	Running bool    `json:"running"`
	Current string  `json:"current,omitempty"`
	Error   string  `json:"error,omitempty"`
	Summary Summary `json:"summary"`
}

// Pipeline runs extract, transform and load for each request in turn.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      BatchLoader
	clock       clockwork.Clock
	delay       time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool

	mu     sync.Mutex
	status Status
}

// New creates a Pipeline. A nil loader fetches and transforms without
// writing anything. delay is the pause between consecutive fetches.
func New(e Extractor, t Transformer, l BatchLoader, clock clockwork.Clock, delay time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		clock:       clock,
		delay:       delay,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once the pipeline has completed a request.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed any request yet")
	}
	return nil
}

// Status returns a snapshot of the current or last run.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Run processes reqs sequentially and stops at the first error, which is
// returned wrapped with the failing request. The summary covers the
// requests completed before the error.
func (p *Pipeline) Run(ctx context.Context, reqs []domain.Request) (Summary, error) {
	sum := Summary{
		RunID:     uuid.NewString(),
		Requests:  len(reqs),
		StartedAt: p.clock.Now().UTC(),
	}
	p.setStatus(func(s *Status) { *s = Status{Running: true, Summary: sum} })

	p.logger.Info("pipeline started",
		"run_id", sum.RunID,
		"requests", len(reqs),
		"delay", p.delay,
		"write", p.loader != nil,
	)
	p.metrics.PipelineRunning.Set(1)
	p.metrics.SlicesPlanned.Set(float64(len(reqs)))
	defer p.metrics.PipelineRunning.Set(0)

	var runErr error
	for i, req := range reqs {
		if i > 0 && !p.wait(ctx) {
			runErr = fmt.Errorf("%s: %w", req, ctx.Err())
			break
		}
		p.setStatus(func(s *Status) { s.Current = req.String() })

		if err := p.process(ctx, req, &sum); err != nil {
			runErr = err
			break
		}
		sum.Completed++
		p.metrics.SlicesCompleted.Inc()
		p.ready.Store(true)
		p.setStatus(func(s *Status) { s.Summary = sum })
	}

	sum.FinishedAt = p.clock.Now().UTC()
	p.setStatus(func(s *Status) {
		s.Running = false
		s.Current = ""
		s.Summary = sum
		if runErr != nil {
			s.Error = runErr.Error()
		}
	})

	if runErr != nil {
		p.logger.Error("pipeline stopped", "run_id", sum.RunID, "completed", sum.Completed, "error", runErr)
		return sum, runErr
	}
	p.logger.Info("pipeline finished",
		"run_id", sum.RunID,
		"completed", sum.Completed,
		"rows", sum.RowsParsed,
		"filtered", sum.RowsFiltered,
		"stations_created", sum.Load.StationsCreated,
		"observations_created", sum.Load.ObservationsCreated,
		"duration", sum.FinishedAt.Sub(sum.StartedAt),
	)
	return sum, nil
}

// process runs one request through all three stages.
func (p *Pipeline) process(ctx context.Context, req domain.Request, sum *Summary) error {
	log := p.logger.With("request", req.String())

	raw, err := p.extractor.Extract(ctx, req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", req, err)
	}

	batch, err := p.transformer.Transform(ctx, raw)
	if err != nil {
		return fmt.Errorf("transform %s: %w", req, err)
	}
	sum.RowsParsed += len(batch.Rows) + batch.Filtered
	sum.RowsFiltered += batch.Filtered
	p.metrics.RowsParsed.Add(float64(len(batch.Rows) + batch.Filtered))
	p.metrics.RowsFiltered.Add(float64(batch.Filtered))

	if p.loader == nil {
		log.Info("report transformed, writes disabled", "rows", len(batch.Rows))
		return nil
	}

	stamp(batch.Rows, sum.RunID, domain.Now())

	start := p.clock.Now()
	res, err := p.loader.LoadBatch(ctx, batch.Rows)
	if err != nil {
		return fmt.Errorf("load %s: %w", req, err)
	}
	p.metrics.LoadDuration.Observe(p.clock.Since(start).Seconds())
	sum.Load.Add(res)

	log.Info("report loaded",
		"rows", len(batch.Rows),
		"filtered", batch.Filtered,
		"stations_created", res.StationsCreated,
		"observations_created", res.ObservationsCreated,
		"observations_duplicate", res.ObservationsDuplicate,
	)
	return nil
}

// wait sleeps for the configured delay. Returns false if ctx is cancelled first.
func (p *Pipeline) wait(ctx context.Context) bool {
	if p.delay <= 0 {
		return ctx.Err() == nil
	}
	timer := p.clock.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func (p *Pipeline) setStatus(fn func(*Status)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.status)
}

// stamp records the run on every observation.
func stamp(rows []domain.Row, runID string, loadedAt time.Time) {
	for i := range rows {
		rows[i].Observation.RunID = runID
		rows[i].Observation.LoadedAt = loadedAt
	}
}
