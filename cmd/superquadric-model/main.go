// Package main runs the superquadric pipeline against a point cloud file, either once or on a
// schedule, reloading parameters whenever the config file changes.
package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"net/http"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"go.viam.com/utils"

	"github.com/viam-labs/superquadric-model/config"
	"github.com/viam-labs/superquadric-model/logging"
	"github.com/viam-labs/superquadric-model/pipeline"
	"github.com/viam-labs/superquadric-model/pointcloud"
	"github.com/viam-labs/superquadric-model/superquadric"
)

const (
	flagConfig         = "config"
	flagPoints         = "points"
	flagLogFile        = "log-file"
	flagMetricsAddress = "metrics-address"
	flagDebug          = "debug"
)

var logger = logging.NewLogger("superquadric-model")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	app := newApp(logger)
	return app.RunContext(ctx, args)
}

func newApp(logger logging.Logger) *cli.App {
	var closers []io.Closer
	return &cli.App{
		Name:  "superquadric-model",
		Usage: "fit superquadrics to object point clouds",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE` (.json, .yaml or .yml)",
			},
			&cli.StringFlag{
				Name:    flagPoints,
				Aliases: []string{"p"},
				Usage:   "fit the points in the OFF or LAS `FILE`",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to the size-rotated `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger.SetLevel(logging.DEBUG)
				// Stage loggers get their levels from the config, so force debug globally too.
				logging.GlobalLogLevel.SetLevel(zapcore.DebugLevel)
			}
			if path := c.String(flagLogFile); path != "" {
				appender, closer := logging.NewFileAppender(logging.FileAppenderConfig{Path: path})
				logger.AddAppender(appender)
				closers = append(closers, closer)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			var err error
			for _, closer := range closers {
				err = multierr.Combine(err, closer.Close())
			}
			return err
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the pipeline on a schedule until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagMetricsAddress,
						Usage: "serve Prometheus metrics on `ADDRESS`, overriding the config",
					},
				},
				Action: func(c *cli.Context) error {
					return runAction(c, logger)
				},
			},
			{
				Name:  "fit",
				Usage: "run a single cycle and print the estimated superquadric",
				Action: func(c *cli.Context) error {
					return fitAction(c, logger)
				},
			},
			{
				Name:      "convert",
				Usage:     "convert a point cloud between OFF and LAS",
				ArgsUsage: "<input> <output>",
				Action:    convertAction,
			},
		},
	}
}

func loadConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path, logger); err != nil {
			return nil, err
		}
	}
	if points := c.String(flagPoints); points != "" {
		cfg.PointCloudFile = points
	}
	if cfg.PointCloudFile == "" {
		return nil, errors.New("no point cloud file given, use --points or point_cloud_file")
	}
	if !c.Bool(flagDebug) {
		logger.SetLevel(cfg.Level())
	}
	return cfg, nil
}

func newController(
	cfg *config.Config,
	metrics *pipeline.Metrics,
	logger logging.Logger,
) (*pipeline.Controller, error) {
	source, err := pipeline.NewStaticSourceFromFile(cfg.PointCloudFile)
	if err != nil {
		return nil, err
	}
	solver, err := superquadric.NewNloptSolver(logger.Sublogger("nlopt"))
	if err != nil {
		return nil, err
	}
	return pipeline.NewController(cfg, pipeline.Dependencies{
		Source:  source,
		Solver:  solver,
		Metrics: metrics,
	}, logger.Sublogger("pipeline"))
}

func fitAction(c *cli.Context, logger logging.Logger) error {
	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}
	ctrl, err := newController(cfg, nil, logger)
	if err != nil {
		return err
	}
	ctx := context.WithoutCancel(c.Context)
	defer func() {
		utils.UncheckedError(ctrl.Close(ctx))
	}()
	if err := ctrl.RunCycle(ctx); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "outcome: %s\n%s\n", ctrl.LastOutcome(), solutionTable(ctrl.Fit(), ctrl.SmoothedFit()))
	return nil
}

// solutionTable lays the raw and smoothed fits out side by side.
func solutionTable(raw, smoothed superquadric.Params) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Parameter", "Raw", "Smoothed"})
	for i, name := range superquadric.ParamNames {
		t.AppendRow(table.Row{name, fmt.Sprintf("%.4f", raw[i]), fmt.Sprintf("%.4f", smoothed[i])})
	}
	return t.Render()
}

func convertAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("convert needs an input and an output file")
	}
	cloud, err := pointcloud.NewFromFile(c.Args().Get(0))
	if err != nil {
		return err
	}
	return pointcloud.WriteToFile(cloud, c.Args().Get(1), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
}

func runAction(c *cli.Context, logger logging.Logger) (err error) {
	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}
	if addr := c.String(flagMetricsAddress); addr != "" {
		cfg.MetricsAddress = addr
	}
	ctx := c.Context

	var metrics *pipeline.Metrics
	if cfg.MetricsAddress != "" {
		metrics = pipeline.NewMetrics(prometheus.DefaultRegisterer)
		server := serveMetrics(cfg.MetricsAddress, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = multierr.Combine(err, server.Shutdown(shutdownCtx))
		}()
	}

	ctrl, err := newController(cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, ctrl.Close(context.Background()))
	}()

	if path := c.String(flagConfig); path != "" {
		watcher, err := config.Watch(ctx, path, logger.Sublogger("config"), func(updated *config.Config) {
			if err := ctrl.ApplyConfig(updated); err != nil {
				logger.Warnw("could not apply updated config", "error", err)
				return
			}
			logger.Infow("applied updated config", "path", path)
		})
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, watcher.Close())
		}()
	}

	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	logger.Infow("pipeline running", "name", cfg.Name, "period", cfg.Period.String(), "points", cfg.PointCloudFile)
	<-ctx.Done()
	logger.Infow("pipeline stopping", "cycles", ctrl.Cycles())
	return nil
}

func serveMetrics(addr string, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	utils.PanicCapturingGo(func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("metrics server stopped", "error", err)
		}
	})
	logger.Infow("serving metrics", "address", addr)
	return server
}
