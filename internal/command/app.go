package command

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/e7canasta/orion-strobe/internal/config"
	"github.com/e7canasta/orion-strobe/internal/logging"
)

// Version is reported by --version
const Version = "v0.1.0"

type Deps struct {
	LoadConfig func(path string) (*config.Config, error)
	RunCapture func(context.Context, *config.Config, io.Writer) error
	RunServe   func(context.Context, *config.Config) error
	RunProbe   func(context.Context, *config.Config, io.Writer) error
	Stdout     io.Writer
	Stderr     io.Writer
}

func BuildApp(deps Deps) *cli.App {
	return &cli.App{
		Name:    "strobe-capture",
		Usage:   "capture one frame per illumination phase",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to YAML configuration (optional)", EnvVars: []string{"STROBE_CONFIG"}},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Usage: "text or json"},
			&cli.StringFlag{Name: "driver", Usage: "video source: gstreamer, v4l2 or synthetic"},
			&cli.StringFlag{Name: "device", Usage: "video device, e.g. /dev/video0"},
		},
		Commands: []*cli.Command{
			{
				Name:  "capture",
				Usage: "run one capture sequence and save the stills",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "pattern", Aliases: []string{"p"}, Usage: "phase pattern, e.g. 0101... (1/w = lit, 0/b = dark)"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "directory for captured stills"},
					&cli.DurationFlag{Name: "period", Usage: "time each phase is held"},
				},
				Action: func(ctx *cli.Context) error {
					cfg, err := prepare(ctx, deps)
					if err != nil {
						return err
					}
					if deps.RunCapture == nil {
						return errors.New("capture runner is not configured")
					}
					return deps.RunCapture(ctx.Context, cfg, stdout(deps))
				},
			},
			{
				Name:  "serve",
				Usage: "serve the capture API over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "listen address, e.g. :8080"},
				},
				Action: func(ctx *cli.Context) error {
					cfg, err := prepare(ctx, deps)
					if err != nil {
						return err
					}
					if deps.RunServe == nil {
						return errors.New("serve runner is not configured")
					}
					return deps.RunServe(ctx.Context, cfg)
				},
			},
			{
				Name:  "probe",
				Usage: "check the video source and measure its frame rate",
				Action: func(ctx *cli.Context) error {
					cfg, err := prepare(ctx, deps)
					if err != nil {
						return err
					}
					if deps.RunProbe == nil {
						return errors.New("probe runner is not configured")
					}
					return deps.RunProbe(ctx.Context, cfg, stdout(deps))
				},
			},
		},
	}
}

// prepare loads the configuration, applies flag overrides and installs the logger.
func prepare(ctx *cli.Context, deps Deps) (*config.Config, error) {
	cfg, err := loadConfig(ctx.String("config"), deps)
	if err != nil {
		return nil, err
	}

	override(&cfg.Log.Level, ctx.String("log-level"))
	override(&cfg.Log.Format, ctx.String("log-format"))
	override(&cfg.Source.Driver, ctx.String("driver"))
	override(&cfg.Source.Device, ctx.String("device"))
	override(&cfg.Capture.Pattern, ctx.String("pattern"))
	override(&cfg.Capture.OutputDir, ctx.String("output"))
	override(&cfg.HTTP.Listen, ctx.String("listen"))
	if d := ctx.Duration("period"); d > 0 {
		cfg.Capture.PeriodMS = int(d.Milliseconds())
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(logging.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Writer:    stderr(deps),
		Component: "strobe-capture",
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	slog.Info("starting strobe-capture",
		"command", ctx.Command.Name,
		"config", ctx.String("config"),
		"instance_id", cfg.InstanceID,
	)
	return cfg, nil
}

func loadConfig(path string, deps Deps) (*config.Config, error) {
	if deps.LoadConfig != nil {
		return deps.LoadConfig(path)
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func stdout(deps Deps) io.Writer {
	if deps.Stdout != nil {
		return deps.Stdout
	}
	return os.Stdout
}

func stderr(deps Deps) io.Writer {
	if deps.Stderr != nil {
		return deps.Stderr
	}
	return os.Stderr
}
