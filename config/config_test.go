package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/viam-labs/superquadric-model/logging"
	"github.com/viam-labs/superquadric-model/pointcloud"
	"github.com/viam-labs/superquadric-model/smoothing"
	"github.com/viam-labs/superquadric-model/superquadric"
	"github.com/viam-labs/superquadric-model/utils"
)

const jsonConfig = `{
	"name": "table-object",
	"period": "250ms",
	"filter_points": "on",
	"filter_superq": "off",
	"tag_file": "mug",
	"point_filter": {"filter_radius": 0.004, "filter_nnThreshold": 5},
	"smoothing": {"fixed_window": "on", "median_order": 7},
	"solver": {"optimizer_points": 80, "mu_strategy": "adaptive"},
	"unknown": true
}`

const yamlConfig = `
name: table-object
period: 50
validation_policy: reject
log_level: debug
point_filter:
  filter_radius: 0.003
smoothing:
  max_median_order: 10
solver:
  max_iter: 500
  nlp_scaling_method: none
`

func TestReadJSON(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	fn := filepath.Join(t.TempDir(), "config.json")
	test.That(t, os.WriteFile(fn, []byte(jsonConfig), 0o600), test.ShouldBeNil)

	cfg, err := Read(fn, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Name, test.ShouldEqual, "table-object")
	test.That(t, cfg.Period, test.ShouldEqual, 250*time.Millisecond)
	test.That(t, cfg.FilterPoints, test.ShouldBeTrue)
	test.That(t, cfg.FilterSuperq, test.ShouldBeFalse)
	test.That(t, cfg.TagFile, test.ShouldEqual, "mug")
	test.That(t, cfg.ValidationPolicy, test.ShouldEqual, utils.PolicyResetToDefault)
	test.That(t, cfg.PointFilter, test.ShouldResemble, pointcloud.DensityFilterParams{Radius: 0.004, NNThreshold: 5})

	wantSmoothing := smoothing.DefaultParams()
	wantSmoothing.FixedWindow = true
	wantSmoothing.MedianOrder = 7
	test.That(t, cfg.Smoothing, test.ShouldResemble, wantSmoothing)

	wantSolver := superquadric.DefaultOptions()
	wantSolver.OptimizerPoints = 80
	wantSolver.MuStrategy = superquadric.MuStrategyAdaptive
	test.That(t, cfg.Solver, test.ShouldResemble, wantSolver)

	test.That(t, logs.FilterMessageSnippet("unknown config keys").Len(), test.ShouldEqual, 1)
}

func TestReadYAML(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg, err := FromBytes([]byte(yamlConfig), ".yaml", logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Period, test.ShouldEqual, 50*time.Millisecond)
	test.That(t, cfg.ValidationPolicy, test.ShouldEqual, utils.PolicyReject)
	test.That(t, cfg.Level(), test.ShouldEqual, logging.DEBUG)
	test.That(t, cfg.PointFilter.Radius, test.ShouldEqual, 0.003)
	test.That(t, cfg.PointFilter.NNThreshold, test.ShouldEqual, pointcloud.DefaultFilterNNThreshold)
	test.That(t, cfg.Smoothing.MaxMedianOrder, test.ShouldEqual, 10)
	test.That(t, cfg.Solver.MaxIter, test.ShouldEqual, 500)
	test.That(t, cfg.Solver.NLPScalingMethod, test.ShouldEqual, superquadric.ScalingNone)
}

func TestReadExpandsEnvironment(t *testing.T) {
	dumpDir := t.TempDir()
	t.Setenv("SUPERQ_DUMP_DIR", dumpDir)
	fn := filepath.Join(t.TempDir(), "config.json")
	data := `{
		// where save_points writes
		"dump_dir": "${SUPERQ_DUMP_DIR}",
		"save_points": "on",
	}`
	test.That(t, os.WriteFile(fn, []byte(data), 0o600), test.ShouldBeNil)

	cfg, err := Read(fn, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.DumpDir, test.ShouldEqual, dumpDir)
	test.That(t, cfg.SavePoints, test.ShouldBeTrue)
}

func TestReadValidation(t *testing.T) {
	logger := logging.NewTestLogger(t)

	cfg, err := FromBytes([]byte(`{"point_filter": {"filter_radius": 0.02}}`), ".json", logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.PointFilter.Radius, test.ShouldEqual, pointcloud.DefaultFilterRadius)

	_, err = FromBytes([]byte(`{"validation_policy": "reject", "point_filter": {"filter_radius": 0.02}}`), ".json", logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "filter_radius")

	_, err = FromBytes([]byte(`{"period": "-1s"}`), ".json", logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = FromBytes([]byte(`{"log_level": "loud"}`), ".json", logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = FromBytes([]byte(`{"log_levels": {"fit": "loud"}}`), ".json", logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "fit")

	cfg, err = FromBytes([]byte(`{"log_levels": {"fit": "debug"}}`), ".json", logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.LogLevels, test.ShouldResemble, map[string]string{"fit": "debug"})

	_, err = FromBytes([]byte(`{"filter_points": "maybe"}`), ".json", logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = FromBytes([]byte(`{`), ".json", logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = Read(filepath.Join(t.TempDir(), "missing.json"), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecodeAttributes(t *testing.T) {
	params := smoothing.DefaultParams()
	unused, err := DecodeAttributes(utils.AttributeMap{
		"fixed_window":     "on",
		"max_median_order": "12",
		"min_norm_vel":     0.02,
		"bogus":            1,
	}, &params, utils.NewParamChecker("smoothing", utils.PolicyResetToDefault, logging.NewTestLogger(t)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, unused, test.ShouldResemble, []string{"bogus"})

	want := smoothing.DefaultParams()
	want.FixedWindow = true
	want.MaxMedianOrder = 12
	want.MinNormVel = 0.02
	test.That(t, params, test.ShouldResemble, want)

	_, err = DecodeAttributes(utils.AttributeMap{"fixed_window": "maybe"}, &params,
		utils.NewParamChecker("smoothing", utils.PolicyResetToDefault, logging.NewTestLogger(t)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, params.FixedWindow, test.ShouldBeFalse)

	params.FixedWindow = true
	_, err = DecodeAttributes(utils.AttributeMap{"fixed_window": "maybe"}, &params,
		utils.NewParamChecker("smoothing", utils.PolicyReject, logging.NewTestLogger(t)))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, params.FixedWindow, test.ShouldBeTrue)
}

func TestWatch(t *testing.T) {
	logger := logging.NewTestLogger(t)
	fn := filepath.Join(t.TempDir(), "config.json")
	test.That(t, os.WriteFile(fn, []byte(`{"tag_file": "first"}`), 0o600), test.ShouldBeNil)

	changes := make(chan *Config, 10)
	w, err := Watch(context.Background(), fn, logger, func(cfg *Config) {
		changes <- cfg
	})
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, w.Close(), test.ShouldBeNil)
	}()

	test.That(t, os.WriteFile(fn, []byte(`{"tag_file": "second"}`), 0o600), test.ShouldBeNil)
	testutils.WaitForAssertionWithSleep(t, 10*time.Millisecond, 500, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, len(changes), test.ShouldBeGreaterThan, 0)
	})
	cfg := <-changes
	test.That(t, cfg.TagFile, test.ShouldEqual, "second")
}
