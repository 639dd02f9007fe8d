// intercept.go funnels faults nobody caught into the Logger.
//
// Go has no global exception slot to patch. The two channels are panics,
// recovered by a deferred Recover, and errors returned from goroutines that
// nobody waits on, captured by Go.

package intercept

import (
	"context"
	"fmt"
	"sync"

	"github.com/strongdm/faultline/pkg/faultline"
	"github.com/strongdm/faultline/pkg/faultline/fault"
)

// Hook names used in log metadata and metrics.
const (
	HookUncaught  = "uncaught"
	HookRejection = "rejection"
)

// InterceptorOption configures an Interceptor.
type InterceptorOption func(*Interceptor)

// WithLogger sets the Logger faults are recorded on. Default: faultline.Default().
func WithLogger(l *faultline.Logger) InterceptorOption {
	return func(i *Interceptor) {
		if l != nil {
			i.logger = l
		}
	}
}

// Interceptor turns uncaught faults into log entries. In production the
// Logger forwards them to telemetry.
type Interceptor struct {
	logger *faultline.Logger
}

// New creates an Interceptor.
func New(opts ...InterceptorOption) *Interceptor {
	i := &Interceptor{}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = faultline.Default()
	}
	return i
}

// Logger returns the Logger faults are recorded on.
func (i *Interceptor) Logger() *faultline.Logger {
	return i.logger
}

// HandleUncaught records a synchronous fault at FATAL. It returns true:
// the fault is handled and the caller should not re-raise it.
func (i *Interceptor) HandleUncaught(v any) bool {
	i.handle(HookUncaught, faultline.SeverityFatal, "Uncaught fault", v)
	return true
}

// HandleRejection records an unobserved asynchronous fault at ERROR. It
// returns false so the host's own diagnostics still run.
func (i *Interceptor) HandleRejection(v any) bool {
	i.handle(HookRejection, faultline.SeverityError, "Unhandled async fault", v)
	return false
}

func (i *Interceptor) handle(hook string, level faultline.Severity, prefix string, v any) {
	interceptedTotal.WithLabelValues(hook).Inc()

	msg := fault.ExtractMessage(v)
	details := fault.ExtractDetails(v)

	meta := faultline.Fields{
		"hook": hook,
		"name": details.Name,
		"kind": details.Kind.String(),
	}
	if details.Code != "" {
		meta["code"] = details.Code
	}
	if details.StatusCode != 0 {
		meta["statusCode"] = details.StatusCode
	}
	for k, val := range details.Context {
		if _, taken := meta[k]; !taken {
			meta[k] = val
		}
	}

	i.logger.Log(level, fmt.Sprintf("%s: %s", prefix, msg), asError(v), meta)
}

// asError returns v itself when it is an error and a normalized fault otherwise.
func asError(v any) error {
	if err, ok := fault.As[error](v); ok {
		return err
	}
	return fault.Normalize(v)
}

// Recover must be deferred directly. It records a panic through
// HandleUncaught and stops it from unwinding further.
//
//	func handler() {
//	    defer interceptor.Recover()
//	    // code that might panic
//	}
func (i *Interceptor) Recover() {
	if r := recover(); r != nil {
		if !i.HandleUncaught(r) {
			panic(r)
		}
	}
}

// Go runs fn in a new goroutine. A panic is handled as uncaught and a
// non-nil returned error as an unhandled rejection. The returned channel is
// closed when fn has finished.
func (i *Interceptor) Go(ctx context.Context, fn func(context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer i.Recover()
		if err := fn(ctx); err != nil {
			i.HandleRejection(err)
		}
	}()
	return done
}

var (
	installMu sync.Mutex
	installed *Interceptor
)

// Install makes i the process-wide interceptor used by the package-level
// Recover and Go. Only the first call has effect; it reports whether this
// call installed i.
func Install(i *Interceptor) bool {
	installMu.Lock()
	defer installMu.Unlock()
	if installed != nil || i == nil {
		return false
	}
	installed = i
	return true
}

// Installed returns the process-wide interceptor, or nil before Install.
func Installed() *Interceptor {
	installMu.Lock()
	defer installMu.Unlock()
	return installed
}

func current() *Interceptor {
	if i := Installed(); i != nil {
		return i
	}
	return New()
}

// Recover is the package-level form of Interceptor.Recover. It must be
// deferred directly.
func Recover() {
	if r := recover(); r != nil {
		if !current().HandleUncaught(r) {
			panic(r)
		}
	}
}

// Go is the package-level form of Interceptor.Go.
func Go(ctx context.Context, fn func(context.Context) error) <-chan struct{} {
	return current().Go(ctx, fn)
}

// resetForTest clears the installed interceptor.
func resetForTest() {
	installMu.Lock()
	defer installMu.Unlock()
	installed = nil
}
