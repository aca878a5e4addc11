package cmd

import (
	"context"
	"log/slog"

	"github.com/equinix-labs/otel-init-go/otelinit"
	"github.com/nexdatas/nxstools/internal/configserver"
	"github.com/nexdatas/nxstools/internal/configuration"
	"github.com/nexdatas/nxstools/internal/datawriter"
	"github.com/nexdatas/nxstools/internal/log"
	"github.com/nexdatas/nxstools/internal/metrics"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/nexdatas/nxstools/internal/profiling"
	"github.com/nexdatas/nxstools/internal/tango"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
)

// env is what every command needs once the configuration is loaded.
type env struct {
	config   *configuration.Configuration
	logger   *logrus.Logger
	conn     tango.Connector
	shutdown func(context.Context)
}

func newEnv(ctx context.Context, args *model.Args) (context.Context, *env, error) {
	config, err := configuration.Load(args)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return ctx, nil, err
	}

	log.SetLevel(config.LogLevel)

	slog.Info("Configuration loaded", config.AsLogFields()...)

	logger := log.NewLogrusLogger(config.LogLevel)
	otel.SetLogger(log.NewLogr(logger))

	if args.EnableProfiling {
		profiling.Enable(ctx)
	}

	ctx, otelShutdown := otelinit.InitOpenTelemetry(ctx, model.AppName)

	return ctx, &env{config: config, logger: logger, shutdown: otelShutdown}, nil
}

func (e *env) component(name string) *logrus.Entry {
	return log.NewComponentLogger(e.logger, name)
}

// connector returns the device connector, created on first use.
func (e *env) connector(ctx context.Context) (tango.Connector, error) {
	if e.conn != nil {
		return e.conn, nil
	}

	if e.config.DryRun {
		d, err := tango.NewDryRun(
			afero.NewOsFs(),
			e.config.DryRunStateFile,
			e.config.Classes.ConfigServer,
			e.config.Classes.DataWriter,
		)
		if err != nil {
			return nil, err
		}

		e.conn = tango.Instrument(d)

		return e.conn, nil
	}

	rc, err := tango.NewRESTConnector(ctx, e.config.Tango, e.component("tango"))
	if err != nil {
		return nil, err
	}

	e.conn = tango.Instrument(rc)

	return e.conn, nil
}

func (e *env) readyOptions() tango.ReadyOptions {
	return tango.ReadyOptions{
		Interval:    e.config.Readiness.Interval,
		MaxAttempts: e.config.Readiness.MaxAttempts,
		Timeout:     e.config.Readiness.Timeout,
	}
}

// device picks the given name, then the configured one, then the only
// exported device of class.
func device(ctx context.Context, conn tango.Connector, given, configured, class string) (string, error) {
	if given != "" {
		return given, nil
	}

	if configured != "" {
		return configured, nil
	}

	return tango.FindServer(ctx, conn, class)
}

func (e *env) configServer(ctx context.Context, given string) (*configserver.Client, error) {
	conn, err := e.connector(ctx)
	if err != nil {
		return nil, err
	}

	name, err := device(ctx, conn, given, e.config.ConfigServer, e.config.Classes.ConfigServer)
	if err != nil {
		return nil, err
	}

	return configserver.Open(ctx, conn, name, e.readyOptions(), e.component("configserver"))
}

func (e *env) dataWriter(ctx context.Context, given string) (*datawriter.Client, error) {
	conn, err := e.connector(ctx)
	if err != nil {
		return nil, err
	}

	name, err := device(ctx, conn, given, e.config.DataWriter, e.config.Classes.DataWriter)
	if err != nil {
		return nil, err
	}

	return datawriter.Open(ctx, conn, name, e.readyOptions(), e.component("datawriter"))
}

func (e *env) close(ctx context.Context) {
	if e.config.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(e.config.MetricsTextfile); err != nil {
			slog.Error("Failed to write metrics", "error", err, "file", e.config.MetricsTextfile)
		}
	}

	e.shutdown(ctx)
}

// withEnv runs fn with a loaded environment and releases it afterwards.
func withEnv(ctx context.Context, fn func(ctx context.Context, e *env) error) error {
	ctx, e, err := newEnv(ctx, args)
	if err != nil {
		return err
	}

	defer e.close(ctx)

	return fn(ctx, e)
}
