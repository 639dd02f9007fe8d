// bootstrap.go assembles every faultline component from a Config.

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/strongdm/faultline/pkg/faultline"
	"github.com/strongdm/faultline/pkg/faultline/config"
	"github.com/strongdm/faultline/pkg/faultline/intercept"
	"github.com/strongdm/faultline/pkg/faultline/recovery"
	"github.com/strongdm/faultline/pkg/faultline/telemetry"
	"github.com/strongdm/faultline/pkg/faultline/telemetry/sinks/async"
	"github.com/strongdm/faultline/pkg/faultline/telemetry/sinks/crash"
	"github.com/strongdm/faultline/pkg/faultline/telemetry/sinks/cxdb"
	"github.com/strongdm/faultline/pkg/faultline/telemetry/sinks/endpoint"
	"github.com/strongdm/faultline/pkg/faultline/telemetry/sinks/logship"
	"github.com/strongdm/faultline/pkg/faultline/telemetry/sinks/multi"
	"github.com/strongdm/faultline/pkg/faultline/telemetry/sinks/redisstream"
)

// ErrUnknownService is returned by a backend builder for a service name it
// does not know.
var ErrUnknownService = errors.New("bootstrap: unknown telemetry service")

// InstallOption configures Install.
type InstallOption func(*installConfig)

type installConfig struct {
	isolated     bool
	forceReport  bool
	console      faultline.Console
	logshipOut   io.Writer
	backends     map[string]telemetry.SinkFactory
	asyncOptions []async.AsyncSinkOption
}

// Isolated builds a private Logger, Registry and Interceptor instead of the
// process-wide ones, and does not install the interceptor.
func Isolated() InstallOption {
	return func(c *installConfig) {
		c.isolated = true
	}
}

// WithReporting initializes the reporter in every environment. By default
// it is initialized only in production.
func WithReporting() InstallOption {
	return func(c *installConfig) {
		c.forceReport = true
	}
}

// WithConsole sets the console mirror used when the config enables one.
// Default: zerolog on stdout/stderr, pretty in debug builds.
func WithConsole(console faultline.Console) InstallOption {
	return func(c *installConfig) {
		c.console = console
	}
}

// WithLogshipWriter sets where the logship backend writes. Default: os.Stdout.
func WithLogshipWriter(w io.Writer) InstallOption {
	return func(c *installConfig) {
		c.logshipOut = w
	}
}

// WithBackend replaces the builder for one service name.
func WithBackend(service string, factory telemetry.SinkFactory) InstallOption {
	return func(c *installConfig) {
		c.backends[service] = factory
	}
}

// WithAsyncOptions adds options to the async wrapper around the backends.
func WithAsyncOptions(opts ...async.AsyncSinkOption) InstallOption {
	return func(c *installConfig) {
		c.asyncOptions = append(c.asyncOptions, opts...)
	}
}

// System holds the assembled components.
type System struct {
	Config      config.Config
	Logger      *faultline.Logger
	Reporter    *telemetry.Reporter
	Registry    *recovery.Registry
	Dispatcher  *recovery.Dispatcher
	Interceptor *intercept.Interceptor

	shutdownOnce sync.Once
	shutdownErr  error
}

// Install normalizes cfg, builds the Logger, Reporter, Registry, Dispatcher
// and Interceptor, wires ERROR/FATAL forwarding into the Reporter and
// installs the interception hooks once per process. Configuration problems
// are logged as warnings; Install itself does not fail.
func Install(cfg config.Config, opts ...InstallOption) *System {
	ic := &installConfig{
		logshipOut: os.Stdout,
		backends:   map[string]telemetry.SinkFactory{},
	}
	for _, opt := range opts {
		opt(ic)
	}

	warnings := cfg.Normalize()
	logger := buildLogger(cfg, ic)

	sys := &System{Config: cfg, Logger: logger}
	for _, w := range warnings {
		logger.Warn("Invalid faultline configuration", nil, faultline.Fields{"warning": w})
	}

	services := cfg.Services()
	reporterOpts := []telemetry.ReporterOption{
		telemetry.WithEnabled(cfg.Enabled),
		telemetry.WithSampleRate(cfg.SampleRate),
		telemetry.WithEnvironment(cfg.Environment),
		telemetry.WithRelease(cfg.Release),
		telemetry.WithLogger(logger),
	}
	if len(services) > 0 {
		reporterOpts = append(reporterOpts, telemetry.WithSinkFactory(func() (telemetry.Sink, error) {
			return buildSink(cfg, ic, logger, services)
		}))
	}
	sys.Reporter = telemetry.NewReporter(reporterOpts...)
	logger.SetForwarder(sys.Reporter)
	if cfg.IsProduction() || ic.forceReport {
		sys.Reporter.Initialize()
	}

	catalog := recovery.NewCatalog()
	if cfg.CatalogFile != "" {
		if err := catalog.LoadFile(cfg.CatalogFile); err != nil {
			logger.Warn("Message catalog not loaded, using built-in messages", err, faultline.Fields{"path": cfg.CatalogFile})
		}
	}

	if ic.isolated {
		sys.Registry = recovery.NewRegistry(recovery.WithRegistryLogger(logger))
		recovery.RegisterBuiltins(sys.Registry)
	} else {
		sys.Registry = recovery.DefaultRegistry()
	}
	sys.Dispatcher = recovery.NewDispatcher(
		recovery.WithRegistry(sys.Registry),
		recovery.WithCatalog(catalog),
		recovery.WithLogger(logger),
	)

	sys.Interceptor = intercept.New(intercept.WithLogger(logger))
	if !ic.isolated && !intercept.Install(sys.Interceptor) {
		sys.Interceptor = intercept.Installed()
	}

	logger.Debug("Faultline installed", nil, faultline.Fields{
		"environment": cfg.Environment,
		"services":    services,
		"minLevel":    cfg.MinimumLevel().String(),
		"sampleRate":  cfg.SampleRate,
	})
	return sys
}

func buildLogger(cfg config.Config, ic *installConfig) *faultline.Logger {
	opts := []faultline.Option{
		faultline.WithThreshold(cfg.MinimumLevel()),
		faultline.WithMaxLogs(cfg.MaxLogs),
		faultline.WithPersistence(cfg.Persist),
		faultline.WithPerformance(cfg.Performance),
		faultline.WithProduction(cfg.IsProduction()),
		faultline.WithDebug(cfg.Debug),
	}
	if cfg.Console {
		console := ic.console
		if console == nil {
			var consoleOpts []faultline.ConsoleOption
			if cfg.Debug {
				consoleOpts = append(consoleOpts, faultline.WithPretty())
			}
			console = faultline.NewZerologConsole(consoleOpts...)
		}
		opts = append(opts, faultline.WithConsole(console))
	}

	if ic.isolated {
		return faultline.New(opts...)
	}
	logger := faultline.Init(opts...)
	if logger.Threshold() != cfg.MinimumLevel() {
		logger.Warn("Logger already initialized, configuration not applied", nil, faultline.Fields{
			"threshold": logger.Threshold().String(),
		})
	}
	return logger
}

// buildSink builds every configured backend, fans out when there is more
// than one and wraps the result in the async sink. A backend that fails is
// skipped with a warning; if none can be built the error is returned.
func buildSink(cfg config.Config, ic *installConfig, logger *faultline.Logger, services []string) (telemetry.Sink, error) {
	var backends []multi.Backend
	var errs []error
	for _, svc := range services {
		sink, err := buildBackend(cfg, ic, svc)
		if err != nil {
			logger.LogDirect(faultline.SeverityWarn, "Telemetry backend skipped", err, faultline.Fields{"service": svc})
			errs = append(errs, fmt.Errorf("%s: %w", svc, err))
			continue
		}
		backends = append(backends, multi.Backend{Name: svc, Sink: sink})
	}
	if len(backends) == 0 {
		return nil, errors.Join(errs...)
	}

	inner := backends[0].Sink
	if len(backends) > 1 {
		inner = multi.NewMultiSink(backends...)
	}

	asyncOpts := []async.AsyncSinkOption{
		async.WithWriteTimeout(cfg.Timeout),
		async.WithOnError(func(p telemetry.Payload, err error) {
			logger.LogDirect(faultline.SeverityWarn, "Failed to deliver telemetry report", err, faultline.Fields{"event_id": p.EventID})
		}),
		async.WithOnDropped(telemetry.RecordDropped),
	}
	return async.NewAsyncSink(inner, append(asyncOpts, ic.asyncOptions...)...), nil
}

func buildBackend(cfg config.Config, ic *installConfig, service string) (telemetry.Sink, error) {
	if factory, ok := ic.backends[service]; ok {
		return factory()
	}

	switch service {
	case config.ServiceCrash:
		provider := cfg.CrashProvider
		if provider == "" {
			provider = crash.DefaultProvider
		}
		return crash.NewCrashSink(
			crash.WithProvider(provider),
			crash.WithClientOptions(crash.ClientOptions{
				Environment: cfg.Environment,
				Release:     cfg.Release,
				SampleRate:  cfg.SampleRate,
			}),
		)
	case config.ServiceLogship:
		return logship.NewLogshipSink(logship.WithWriter(ic.logshipOut)), nil
	case config.ServiceEndpoint:
		return endpoint.NewEndpointSink(cfg.Endpoint, endpoint.WithTimeout(cfg.Timeout)), nil
	case config.ServiceRedis:
		return redisstream.Dial(cfg.RedisURL, redisstream.WithStream(cfg.RedisStream))
	case config.ServiceCXDB:
		return cxdb.Dial(cfg.CXDBAddr)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, service)
	}
}

// Shutdown flushes pending reports and closes the reporter. Later calls
// return the first result.
func (s *System) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.shutdownErr = errors.Join(s.Reporter.Flush(ctx), s.Reporter.Close())
	})
	return s.shutdownErr
}
