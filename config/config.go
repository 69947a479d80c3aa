// Package config loads the superquadric pipeline configuration from JSON or YAML files and
// decodes partial parameter updates.
package config

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/viam-labs/superquadric-model/logging"
	"github.com/viam-labs/superquadric-model/pointcloud"
	"github.com/viam-labs/superquadric-model/smoothing"
	"github.com/viam-labs/superquadric-model/superquadric"
	"github.com/viam-labs/superquadric-model/utils"
)

// DefaultPeriod is the cycle period used when none is configured.
const DefaultPeriod = 100 * time.Millisecond

// Config describes one pipeline.
type Config struct {
	Name string `json:"name" yaml:"name"`
	// Period between cycle starts.
	Period time.Duration `json:"period" yaml:"period"`

	FilterPoints bool `json:"filter_points" yaml:"filter_points"`
	FilterSuperq bool `json:"filter_superq" yaml:"filter_superq"`
	SavePoints   bool `json:"save_points" yaml:"save_points"`
	// OneShot fits the same points every cycle instead of pulling new ones.
	OneShot bool   `json:"one_shot" yaml:"one_shot"`
	TagFile string `json:"tag_file" yaml:"tag_file"`
	// DumpDir receives the point files written when SavePoints is on.
	DumpDir string `json:"dump_dir" yaml:"dump_dir"`
	// PointCloudFile, if set, is an OFF file fitted in place of live input.
	PointCloudFile string `json:"point_cloud_file" yaml:"point_cloud_file"`

	ValidationPolicy utils.ValidationPolicy `json:"validation_policy" yaml:"validation_policy"`
	LogLevel         string                 `json:"log_level" yaml:"log_level"`
	MetricsAddress   string                 `json:"metrics_address" yaml:"metrics_address"`

	// LogLevels overrides LogLevel per stage: "pipeline", "fit" or "smoothing".
	LogLevels map[string]string `json:"log_levels" yaml:"log_levels"`

	PointFilter pointcloud.DensityFilterParams `json:"point_filter" yaml:"point_filter"`
	Smoothing   smoothing.Params               `json:"smoothing" yaml:"smoothing"`
	Solver      superquadric.Options           `json:"solver" yaml:"solver"`
}

// Default returns a configuration with every documented default filled in.
func Default() *Config {
	return &Config{
		Name:             "superquadric-model",
		Period:           DefaultPeriod,
		FilterPoints:     true,
		FilterSuperq:     true,
		TagFile:          "object",
		ValidationPolicy: utils.PolicyResetToDefault,
		LogLevel:         "info",
		PointFilter:      pointcloud.DefaultDensityFilterParams(),
		Smoothing:        smoothing.DefaultParams(),
		Solver:           superquadric.DefaultOptions(),
	}
}

// Validate checks the top level fields and runs each parameter group through the configured
// validation policy. Under the reset policy the groups are repaired in place.
func (c *Config) Validate(logger logging.Logger) error {
	if c.Period <= 0 {
		return errors.Errorf("period must be positive, got %v", c.Period)
	}
	if _, err := logging.LevelFromString(c.LogLevel); err != nil {
		return err
	}
	for stage, level := range c.LogLevels {
		if _, err := logging.LevelFromString(level); err != nil {
			return errors.Wrapf(err, "log level for %q", stage)
		}
	}

	pointFilter, errFilter := c.PointFilter.Validate(c.ValidationPolicy, logger)
	smoothingParams, errSmoothing := c.Smoothing.Validate(c.ValidationPolicy, logger)
	solver, errSolver := c.Solver.Validate(c.ValidationPolicy, logger)
	if err := multierr.Combine(errFilter, errSmoothing, errSolver); err != nil {
		return err
	}
	c.PointFilter, c.Smoothing, c.Solver = pointFilter, smoothingParams, solver
	return nil
}

// Level returns the parsed log level, or INFO if it does not parse.
func (c *Config) Level() logging.Level {
	level, err := logging.LevelFromString(c.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}
