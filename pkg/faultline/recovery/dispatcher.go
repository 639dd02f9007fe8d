// dispatcher.go routes faults through the registry to a recovery decision.

package recovery

import (
	"fmt"

	"github.com/strongdm/faultline/pkg/faultline"
	"github.com/strongdm/faultline/pkg/faultline/fault"
)

// Dispatcher turns any fault value into a Decision and logs the episode.
// Resolve never panics.
type Dispatcher struct {
	registry *Registry
	catalog  *Catalog
	logger   *faultline.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRegistry sets the strategy registry (default: DefaultRegistry()).
func WithRegistry(r *Registry) DispatcherOption {
	return func(d *Dispatcher) {
		d.registry = r
	}
}

// WithCatalog sets the message catalog used by the policy table.
func WithCatalog(c *Catalog) DispatcherOption {
	return func(d *Dispatcher) {
		d.catalog = c
	}
}

// WithLogger sets the logger episodes are recorded to (default: faultline.Default()).
func WithLogger(l *faultline.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = DefaultRegistry()
	}
	if d.catalog == nil {
		d.catalog = NewCatalog()
	}
	if d.logger == nil {
		d.logger = faultline.Default()
	}
	return d
}

// Registry returns the registry consulted by Resolve.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Catalog returns the message catalog.
func (d *Dispatcher) Catalog() *Catalog { return d.catalog }

// Resolve classifies v, asks the first matching strategy for a decision and
// falls back to the policy table when no strategy handles it. A panic
// anywhere in dispatch is logged at FATAL and answered with a reload decision.
func (d *Dispatcher) Resolve(v any) (decision Decision) {
	defer func() {
		if p := recover(); p != nil {
			decision = criticalDecision()
			d.logger.Fatal("Recovery dispatch failed", fmt.Errorf("panic: %v", p), faultline.Fields{
				"fault": fault.ExtractMessage(v),
			})
		}
		decisionsTotal.WithLabelValues(string(decision.Action)).Inc()
	}()

	strategy := "policy"
	s, ok := d.registry.Resolve(v)
	if ok {
		strategy = s.Name
	}
	if ok && s.Handle != nil {
		decision = s.Handle(v)
	} else {
		decision = Decide(v, d.catalog)
	}

	d.logEpisode(v, decision, strategy)
	return decision
}

// logEpisode records v at ERROR for server-side and unclassified faults and
// at WARN for client errors.
func (d *Dispatcher) logEpisode(v any, decision Decision, strategy string) {
	details := fault.ExtractDetails(v)
	meta := faultline.Fields{
		"action":   string(decision.Action),
		"strategy": strategy,
		"kind":     details.Kind.String(),
	}
	if details.Code != "" {
		meta["code"] = details.Code
	}
	if details.StatusCode != 0 {
		meta["statusCode"] = details.StatusCode
	}
	if api, ok := fault.As[*fault.APIFault](v); ok {
		meta["method"] = api.Method
		meta["url"] = api.URL
		meta["duration_ms"] = api.Duration.Milliseconds()
	}

	err, _ := fault.As[error](v)
	if isClientError(details) {
		d.logger.Warn(details.Message, err, meta)
		return
	}
	d.logger.Error(details.Message, err, meta)
}

func isClientError(details fault.Details) bool {
	if details.StatusCode >= 400 && details.StatusCode < 500 {
		return true
	}
	switch details.Kind {
	case fault.KindValidation, fault.KindAuth, fault.KindPermission, fault.KindNotFound, fault.KindRateLimit:
		return true
	}
	return false
}
