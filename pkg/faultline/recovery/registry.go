// registry.go implements the priority-ordered strategy registry.

package recovery

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/strongdm/faultline/pkg/faultline"
)

// ErrInvalidStrategy is returned by Register for a strategy without a name
// or predicate.
var ErrInvalidStrategy = errors.New("recovery: strategy needs a name and a predicate")

// Strategy is a named, prioritized (predicate, handler) pair. Predicate and
// Handle receive the raw fault value, which may be any Go value.
type Strategy struct {
	Name      string
	Priority  int
	Predicate func(v any) bool
	// Handle may be nil, in which case the dispatcher applies its policy table.
	Handle func(v any) Decision
}

// Registry keeps strategies sorted by priority, highest first. Strategies of
// equal priority keep their registration order. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	strategies []Strategy
	logger     *faultline.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used for overwrite and predicate
// failure warnings (default: faultline.Default()).
func WithRegistryLogger(l *faultline.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) log() *faultline.Logger {
	if r.logger != nil {
		return r.logger
	}
	return faultline.Default()
}

// Register adds s. A strategy with the same name is replaced and a WARN is
// logged; two strategies never share a name.
func (r *Registry) Register(s Strategy) error {
	if s.Name == "" || s.Predicate == nil {
		return ErrInvalidStrategy
	}

	r.mu.Lock()
	replaced := false
	for i := range r.strategies {
		if r.strategies[i].Name == s.Name {
			r.strategies = append(r.strategies[:i], r.strategies[i+1:]...)
			replaced = true
			break
		}
	}
	r.strategies = append(r.strategies, s)
	sort.SliceStable(r.strategies, func(i, j int) bool {
		return r.strategies[i].Priority > r.strategies[j].Priority
	})
	r.mu.Unlock()

	if replaced {
		r.log().Warn(fmt.Sprintf("Strategy %q already registered, replacing it", s.Name), nil, faultline.Fields{
			"strategy": s.Name,
			"priority": s.Priority,
		})
	}
	return nil
}

// Unregister removes the named strategy and reports whether it existed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.strategies {
		if r.strategies[i].Name == name {
			r.strategies = append(r.strategies[:i], r.strategies[i+1:]...)
			return true
		}
	}
	return false
}

// Resolve returns the highest-priority strategy whose predicate accepts v.
// A predicate that panics is logged and skipped.
func (r *Registry) Resolve(v any) (Strategy, bool) {
	for _, s := range r.Strategies() {
		if r.matches(s, v) {
			return s, true
		}
	}
	return Strategy{}, false
}

func (r *Registry) matches(s Strategy, v any) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			ok = false
			strategyFailuresTotal.WithLabelValues(s.Name).Inc()
			r.log().Warn(fmt.Sprintf("Strategy %q predicate failed", s.Name), fmt.Errorf("panic: %v", p), faultline.Fields{
				"strategy": s.Name,
			})
		}
	}()
	return s.Predicate(v)
}

// Strategies returns a snapshot in resolution order.
func (r *Registry) Strategies() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Strategy, len(r.strategies))
	copy(out, r.strategies)
	return out
}

// Len returns the number of registered strategies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.strategies)
}

// Clear removes every strategy.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies = nil
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the process-wide registry, constructing it with
// the built-in strategies on first use.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		RegisterBuiltins(defaultRegistry)
	})
	return defaultRegistry
}
