package pipeline

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/viam-labs/superquadric-model/config"
	"github.com/viam-labs/superquadric-model/logging"
	"github.com/viam-labs/superquadric-model/pointcloud"
	"github.com/viam-labs/superquadric-model/smoothing"
	"github.com/viam-labs/superquadric-model/superquadric"
	"github.com/viam-labs/superquadric-model/utils"
)

// Flag names accepted by SetFlag.
const (
	FlagTagFile      = "tag_file"
	FlagFilterPoints = "filter_points"
	FlagFilterSuperq = "filter_superq"
	FlagSavePoints   = "save_points"
	FlagOneShot      = "one_shot"
)

// PointFilterParams returns the density filter parameters.
func (c *Controller) PointFilterParams() pointcloud.DensityFilterParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pointFilter
}

// SetPointFilterParams validates and applies new density filter parameters. Out-of-range values
// are reset to their defaults, or rejected with an error under utils.PolicyReject.
func (c *Controller) SetPointFilterParams(p pointcloud.DensityFilterParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setPointFilterParams(p)
}

func (c *Controller) setPointFilterParams(p pointcloud.DensityFilterParams) error {
	valid, err := p.Validate(c.policy, c.logger)
	if err != nil {
		return err
	}
	c.pointFilter = valid
	return nil
}

// SmoothingParams returns the smoother parameters.
func (c *Controller) SmoothingParams() smoothing.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.smoother.Params()
}

// SetSmoothingParams validates and applies new smoother parameters.
func (c *Controller) SetSmoothingParams(p smoothing.Params) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setSmoothingParams(p)
}

func (c *Controller) setSmoothingParams(p smoothing.Params) error {
	valid, err := p.Validate(c.policy, c.logger)
	if err != nil {
		return err
	}
	c.smoother.SetParams(valid)
	return nil
}

// SolverOptions returns the solver options.
func (c *Controller) SolverOptions() superquadric.Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.solverOpts
}

// SetSolverOptions validates and applies new solver options.
func (c *Controller) SetSolverOptions(o superquadric.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setSolverOptions(o)
}

func (c *Controller) setSolverOptions(o superquadric.Options) error {
	valid, err := o.Validate(c.policy, c.logger)
	if err != nil {
		return err
	}
	c.solverOpts = valid
	return nil
}

// UpdatePointFilterAttributes applies only the keys present in attrs.
func (c *Controller) UpdatePointFilterAttributes(attrs utils.AttributeMap) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pointFilter
	if err := c.decodeAttributes("point_filter", attrs, &p); err != nil {
		return err
	}
	return c.setPointFilterParams(p)
}

// UpdateSmoothingAttributes applies only the keys present in attrs.
func (c *Controller) UpdateSmoothingAttributes(attrs utils.AttributeMap) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.smoother.Params()
	if err := c.decodeAttributes("smoothing", attrs, &p); err != nil {
		return err
	}
	return c.setSmoothingParams(p)
}

// UpdateSolverAttributes applies only the keys present in attrs.
func (c *Controller) UpdateSolverAttributes(attrs utils.AttributeMap) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	o := c.solverOpts
	if err := c.decodeAttributes("solver", attrs, &o); err != nil {
		return err
	}
	return c.setSolverOptions(o)
}

func (c *Controller) decodeAttributes(group string, attrs utils.AttributeMap, into interface{}) error {
	unused, err := config.DecodeAttributes(attrs, into, utils.NewParamChecker(group, c.policy, c.logger))
	if err != nil {
		return err
	}
	if len(unused) > 0 {
		c.logger.Debugw("ignoring unknown parameters", "keys", unused)
	}
	return nil
}

// SetFlag sets one of the named switches. Switch values are "on"/"off" or "true"/"false"; any
// other value turns the switch off, or is refused under utils.PolicyReject.
func (c *Controller) SetFlag(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == FlagTagFile {
		c.tagFile = value
		return nil
	}
	checker := utils.NewParamChecker("flags", c.policy, c.logger)
	on := checker.Switch(name, value, false)
	if err := checker.Err(); err != nil {
		return err
	}
	switch name {
	case FlagFilterPoints:
		c.filterPoints = on
	case FlagFilterSuperq:
		c.filterSuperq = on
	case FlagSavePoints:
		c.savePoints = on
	case FlagOneShot:
		c.oneShot = on
	default:
		return errors.Errorf("unknown flag %q", name)
	}
	return nil
}

// Flag returns the current value of a named switch as "on"/"off", or the tag for tag_file.
func (c *Controller) Flag(name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var on bool
	switch name {
	case FlagTagFile:
		return c.tagFile, nil
	case FlagFilterPoints:
		on = c.filterPoints
	case FlagFilterSuperq:
		on = c.filterSuperq
	case FlagSavePoints:
		on = c.savePoints
	case FlagOneShot:
		on = c.oneShot
	default:
		return "", errors.Errorf("unknown flag %q", name)
	}
	if on {
		return "on", nil
	}
	return "off", nil
}

// Period returns the time between cycle starts.
func (c *Controller) Period() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.period
}

// SetPeriod changes the time between cycle starts, rescheduling if already started.
func (c *Controller) SetPeriod(period time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setPeriod(period)
}

func (c *Controller) setPeriod(period time.Duration) error {
	if period <= 0 {
		return errors.Errorf("period must be positive, got %v", period)
	}
	if period == c.period {
		return nil
	}
	c.period = period
	if c.scheduler == nil {
		return nil
	}
	_, err := c.scheduler.Update(
		c.jobID,
		gocron.DurationJob(period),
		gocron.NewTask(c.runScheduledCycle),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(c.name),
	)
	return err
}

// ApplyConfig applies a whole new configuration, as read by config.Watch. The validation policy
// changes first so the new groups are checked under it.
func (c *Controller) ApplyConfig(cfg *config.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy = cfg.ValidationPolicy
	c.filterPoints = cfg.FilterPoints
	c.filterSuperq = cfg.FilterSuperq
	c.savePoints = cfg.SavePoints
	c.oneShot = cfg.OneShot
	c.tagFile = cfg.TagFile
	c.dumpDir = cfg.DumpDir
	c.applyLogLevels(cfg)
	return multierr.Combine(
		c.setPointFilterParams(cfg.PointFilter),
		c.setSmoothingParams(cfg.Smoothing),
		c.setSolverOptions(cfg.Solver),
		c.setPeriod(cfg.Period),
	)
}

func (c *Controller) loggerName(stage string) string {
	return c.name + "." + stage
}

// applyLogLevels sets every stage logger to the configured level, then applies the per-stage
// overrides. Overrides for unknown stages are logged and skipped.
func (c *Controller) applyLogLevels(cfg *config.Config) {
	for _, stageLogger := range c.stageLoggers {
		stageLogger.SetLevel(cfg.Level())
	}
	for stage, levelStr := range cfg.LogLevels {
		level, err := logging.LevelFromString(levelStr)
		if err != nil {
			c.logger.Warnw("ignoring log level", "stage", stage, "error", err)
			continue
		}
		if err := logging.UpdateLoggerLevel(c.loggerName(stage), level); err != nil {
			c.logger.Warnw("ignoring log level", "stage", stage, "error", err)
		}
	}
}
