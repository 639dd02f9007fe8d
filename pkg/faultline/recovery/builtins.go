// builtins.go defines the strategies registered on every default registry.

package recovery

import (
	"github.com/strongdm/faultline/pkg/faultline/fault"
)

// Built-in strategy names and priorities.
const (
	StrategyAPI        = "api"
	StrategyValidation = "validation"
	StrategyNetwork    = "network"
	StrategyError      = "error"
	StrategyString     = "string"

	PriorityAPI        = 100
	PriorityValidation = 90
	PriorityNetwork    = 85
	PriorityError      = 50
	PriorityString     = 10
)

// Builtins returns the five built-in strategies, most specific first. With a
// catalog, their handlers apply the default policy table with messages from
// it. With nil, they have no handler and the dispatcher applies the policy
// table with its own catalog.
func Builtins(catalog *Catalog) []Strategy {
	var handle func(v any) Decision
	if catalog != nil {
		handle = func(v any) Decision { return Decide(v, catalog) }
	}
	return []Strategy{
		{Name: StrategyAPI, Priority: PriorityAPI, Predicate: isAPIShaped, Handle: handle},
		{Name: StrategyValidation, Priority: PriorityValidation, Predicate: isValidationShaped, Handle: handle},
		{Name: StrategyNetwork, Priority: PriorityNetwork, Predicate: fault.IsNetworkError, Handle: handle},
		{Name: StrategyError, Priority: PriorityError, Predicate: isError, Handle: handle},
		{Name: StrategyString, Priority: PriorityString, Predicate: isString, Handle: handle},
	}
}

// RegisterBuiltins adds the built-in strategies to r. They defer to the
// resolving dispatcher's catalog for messages.
func RegisterBuiltins(r *Registry) {
	for _, s := range Builtins(nil) {
		_ = r.Register(s)
	}
}

func isAPIShaped(v any) bool {
	_, ok := fault.As[fault.StatusCoder](v)
	return ok
}

func isValidationShaped(v any) bool {
	_, ok := fault.As[fault.FieldErrorer](v)
	return ok
}

func isError(v any) bool {
	_, ok := fault.As[error](v)
	return ok
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}
