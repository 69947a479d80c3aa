// Package pipeline runs the superquadric estimation cycle on a schedule: acquire points, drop
// sparse ones, fit a superquadric and median-filter the fits over time.
package pipeline

import (
	"context"
	"image/color"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/viam-labs/superquadric-model/config"
	"github.com/viam-labs/superquadric-model/logging"
	"github.com/viam-labs/superquadric-model/pointcloud"
	"github.com/viam-labs/superquadric-model/smoothing"
	"github.com/viam-labs/superquadric-model/superquadric"
	"github.com/viam-labs/superquadric-model/utils"
)

var (
	rawPointsColor      = color.NRGBA{R: 255, A: 255}
	filteredPointsColor = color.NRGBA{G: 255, A: 255}
)

// Dependencies are the collaborators a Controller is built from. Source and Solver are required.
type Dependencies struct {
	Source Source
	Solver superquadric.Solver
	// MedianFilter and EstimatorFactory default to the smoothing package implementations.
	MedianFilter     smoothing.MedianFilter
	EstimatorFactory smoothing.EstimatorFactory
	// Clock defaults to the wall clock.
	Clock clock.Clock
	// Metrics may be nil.
	Metrics *Metrics
}

// Controller owns all pipeline state. A single mutex guards every field. A cycle holds it from
// start to finish, so callers never observe a partial cycle.
type Controller struct {
	mu     sync.Mutex
	name   string
	logger logging.Logger
	clock  clock.Clock

	source   Source
	solver   superquadric.Solver
	fitStage *superquadric.FitStage
	smoother *smoothing.Smoother
	metrics  *Metrics

	policy      utils.ValidationPolicy
	period      time.Duration
	pointFilter pointcloud.DensityFilterParams
	solverOpts  superquadric.Options

	filterPoints bool
	filterSuperq bool
	savePoints   bool
	oneShot      bool
	tagFile      string
	dumpDir      string

	stage          Stage
	rawPoints      pointcloud.Cloud
	pointsSent     bool
	filteredPoints pointcloud.Cloud
	fit            superquadric.Params
	smoothed       superquadric.Params
	lastOutcome    superquadric.Outcome
	cycleDuration  time.Duration
	stageDurations StageDurations
	cycles         uint64

	// stageLoggers are registered globally as "<name>.<stage>" so their levels can be set
	// one by one.
	stageLoggers map[string]logging.Logger

	scheduler gocron.Scheduler
	jobID     uuid.UUID
	cancelCtx context.Context
	cancel    context.CancelFunc
}

// NewController builds a controller from a validated configuration. It does not start cycling
// until Start is called.
func NewController(cfg *config.Config, deps Dependencies, logger logging.Logger) (*Controller, error) {
	if deps.Source == nil {
		return nil, errors.New("pipeline needs a point source")
	}
	if deps.Solver == nil {
		return nil, errors.New("pipeline needs a solver")
	}
	if err := cfg.Validate(logger); err != nil {
		return nil, err
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.MedianFilter == nil {
		deps.MedianFilter = smoothing.NewMedianFilter(cfg.Smoothing.MedianOrder)
	}
	if deps.EstimatorFactory == nil {
		deps.EstimatorFactory = smoothing.DefaultEstimatorFactory
	}

	fitLogger := logger.Sublogger("fit")
	smoothingLogger := logger.Sublogger("smoothing")
	c := &Controller{
		name:         cfg.Name,
		logger:       logger,
		clock:        deps.Clock,
		source:       deps.Source,
		solver:       deps.Solver,
		fitStage:     superquadric.NewFitStage(deps.Solver, fitLogger),
		metrics:      deps.Metrics,
		policy:       cfg.ValidationPolicy,
		period:       cfg.Period,
		pointFilter:  cfg.PointFilter,
		solverOpts:   cfg.Solver,
		filterPoints: cfg.FilterPoints,
		filterSuperq: cfg.FilterSuperq,
		savePoints:   cfg.SavePoints,
		oneShot:      cfg.OneShot,
		tagFile:      cfg.TagFile,
		dumpDir:      cfg.DumpDir,
	}
	c.smoother = smoothing.NewSmootherWith(cfg.Smoothing, deps.MedianFilter, deps.EstimatorFactory, smoothingLogger)
	c.stageLoggers = map[string]logging.Logger{
		"pipeline":  logger,
		"fit":       fitLogger,
		"smoothing": smoothingLogger,
	}
	for stage, stageLogger := range c.stageLoggers {
		logging.RegisterLogger(c.loggerName(stage), stageLogger)
	}
	return c, nil
}

// Start schedules a cycle every period. The first cycle runs immediately. An overrunning cycle
// delays the next one rather than overlapping it.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scheduler != nil {
		return errors.New("pipeline already started")
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	// Cycles outlive ctx; only Close cancels them, after the scheduler has drained.
	c.cancelCtx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))
	job, err := scheduler.NewJob(
		gocron.DurationJob(c.period),
		gocron.NewTask(c.runScheduledCycle),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithName(c.name),
	)
	if err != nil {
		c.cancel()
		return multierr.Combine(err, scheduler.Shutdown())
	}
	c.scheduler = scheduler
	c.jobID = job.ID()
	c.logger.Infow("starting pipeline", "name", c.name, "job", c.jobID.String(), "period", c.period.String())
	scheduler.Start()
	return nil
}

func (c *Controller) runScheduledCycle() {
	if err := c.RunCycle(c.cancelCtx); err != nil {
		c.logger.Debugw("cycle skipped", "job", c.jobID.String(), "error", err)
	}
}

// Close stops scheduling, waits for a running cycle to finish and releases the source and solver
// if they hold resources.
func (c *Controller) Close(ctx context.Context) error {
	var err error
	c.mu.Lock()
	scheduler := c.scheduler
	c.mu.Unlock()
	if scheduler != nil {
		err = multierr.Combine(err, scheduler.Shutdown())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.scheduler = nil
	for stage := range c.stageLoggers {
		logging.DeregisterLogger(c.loggerName(stage))
	}
	if closer, ok := c.source.(io.Closer); ok {
		err = multierr.Combine(err, closer.Close())
	}
	if closer, ok := c.solver.(io.Closer); ok {
		err = multierr.Combine(err, closer.Close())
	}
	return err
}

// RunCycle runs one full cycle under the lock. A returned error means the cycle hit a resource
// fault and was cut short; the previous fits are kept.
func (c *Controller) RunCycle(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.clock.Now()
	var timings StageDurations
	enter := func(s Stage) func() {
		c.stage = s
		t := c.clock.Now()
		return func() {
			d := c.clock.Since(t)
			timings.set(s, d)
			if c.metrics != nil {
				c.metrics.StageDuration.WithLabelValues(s.String()).Observe(d.Seconds())
			}
		}
	}
	defer func() {
		c.stage = StageIdle
		c.stageDurations = timings
		c.cycleDuration = c.clock.Since(start)
		c.cycles++
		if c.metrics != nil {
			c.metrics.CycleDuration.Observe(c.cycleDuration.Seconds())
			c.metrics.Points.WithLabelValues("raw").Set(float64(len(c.rawPoints)))
			c.metrics.Points.WithLabelValues("filtered").Set(float64(len(c.filteredPoints)))
			c.metrics.WindowOrder.Set(float64(c.smoother.Order()))
		}
	}()

	done := enter(StageAcquiring)
	c.acquire(ctx)
	done()

	done = enter(StageFiltering)
	err := c.filter(ctx)
	done()
	if err != nil {
		return c.resourceFault(ctx, "point filter", err)
	}

	done = enter(StageFitting)
	res, err := c.fitStage.Fit(ctx, c.filteredPoints, c.solverOpts)
	done()
	if err != nil {
		return c.resourceFault(ctx, "solver", err)
	}
	c.lastOutcome = res.Outcome
	if c.metrics != nil {
		c.metrics.Cycles.WithLabelValues(res.Outcome.String()).Inc()
	}
	switch res.Outcome {
	case superquadric.OutcomeSkipped:
		c.logger.CDebugw(ctx, "no points this cycle, keeping previous fit")
		return nil
	case superquadric.OutcomeSuccess, superquadric.OutcomeDegraded, superquadric.OutcomeFailed:
		c.fit = res.Params
	}

	if c.filterSuperq && res.Outcome.Accepted() {
		done = enter(StageSmoothing)
		c.smoothed = c.smoother.Smooth(c.fit, c.clock.Now())
		done()
		c.logger.CDebugw(ctx, "smoothed superquadric", "order", c.smoother.Order(), "solution", c.smoothed.String())
	}
	return nil
}

func (c *Controller) resourceFault(ctx context.Context, what string, err error) error {
	if c.metrics != nil {
		c.metrics.ResourceFaults.Inc()
	}
	c.logger.CErrorw(ctx, "skipping cycle", "stage", what, "error", err)
	return errors.Wrapf(err, "%s", what)
}

// acquire replaces the raw points with the next frame. Points sent directly, and one-shot mode,
// keep the current raw points instead.
func (c *Controller) acquire(ctx context.Context) {
	if c.oneShot || c.pointsSent {
		c.pointsSent = false
	} else {
		cloud, ok := c.source.Next(ctx)
		if !ok {
			c.logger.CDebugw(ctx, "no new points")
			cloud = nil
		}
		c.rawPoints = dropOrigin(cloud)
	}
	if len(c.rawPoints) > 0 {
		c.logger.CDebugw(ctx, "points acquired", "points", len(c.rawPoints))
		if c.savePoints {
			c.dumpPoints(ctx, "SFM", c.rawPoints, rawPointsColor)
		}
	}
}

func (c *Controller) filter(ctx context.Context) error {
	if !c.filterPoints || len(c.rawPoints) == 0 {
		c.filteredPoints = c.rawPoints.Clone()
		return nil
	}
	start := c.clock.Now()
	filtered, err := pointcloud.FilterByDensity(c.rawPoints, c.pointFilter.Radius, c.pointFilter.NNThreshold+1)
	if err != nil {
		return err
	}
	c.filteredPoints = filtered
	c.logger.CDebugw(ctx, "points filtered", "kept", len(filtered), "of", len(c.rawPoints), "elapsed", c.clock.Since(start).String())
	if c.savePoints {
		c.dumpPoints(ctx, "filtered", c.filteredPoints, filteredPointsColor)
	}
	return nil
}

// dropOrigin removes points at exactly the origin, which stand for failed reconstructions.
func dropOrigin(cloud pointcloud.Cloud) pointcloud.Cloud {
	out := make(pointcloud.Cloud, 0, len(cloud))
	for _, p := range cloud {
		if p.Position.Norm() > 0 {
			out = append(out, p)
		}
	}
	return out
}
