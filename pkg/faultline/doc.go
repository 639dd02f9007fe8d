// Package faultline provides the logging and fault-handling core of an
// administrative application: a severity-leveled event logger with bounded
// in-memory history, a typed fault taxonomy, a priority-ordered recovery
// strategy registry, and a sampled telemetry reporter.
//
// # Core Components
//
// The library is organized around these packages:
//
//   - faultline: Severity, Entry and the Logger (history, console mirror, timers, scoped context)
//   - fault: the closed set of typed faults and total extraction over arbitrary values
//   - recovery: the strategy registry and the dispatcher producing user-facing decisions
//   - telemetry: the reporter forwarding sampled events to a Sink (crash, logship, endpoint, redis, cxdb)
//   - intercept: hooks for panics and for errors returned by unsupervised goroutines
//   - bootstrap: one-shot wiring of all of the above from config
//
// # Quick Start
//
//	sys, err := bootstrap.Install(config.Load())
//	if err != nil {
//	    return err
//	}
//	defer sys.Shutdown(ctx)
//
//	decision := sys.Dispatcher.Resolve(fault.NewAPIFault(503, "GET", "/api/users", body, elapsed))
//
// # Design Principles
//
//   - Logging never breaks the caller: no Logger method panics or returns an error
//   - Reporting is best-effort, at-most-once and fire-and-forget
//   - Dispatch is total: any value, including nil, yields a Decision
package faultline
