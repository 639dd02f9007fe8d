// Package recovery classifies faults and decides how the caller should
// respond to them.
//
// A Registry holds priority-ordered strategies; a Dispatcher consults it
// and falls back to the built-in policy table:
//
//	d := recovery.NewDispatcher()
//	decision := d.Resolve(err)
//	if decision.Action == recovery.ActionRetry {
//		time.Sleep(decision.RetryDelay())
//	}
package recovery

import "time"

// Action is the response a caller should take for a fault.
type Action string

const (
	ActionNone           Action = "none"
	ActionRetry          Action = "retry"
	ActionRedirect       Action = "redirect"
	ActionReload         Action = "reload"
	ActionContactSupport Action = "contact_support"
)

// Decision is produced fresh by every dispatch.
type Decision struct {
	Handled         bool           `json:"handled"`
	UserMessage     string         `json:"userMessage"`
	Action          Action         `json:"action,omitempty"`
	RetryDelayMs    int            `json:"retryDelayMs,omitempty"`
	RedirectToLogin bool           `json:"redirectToLogin,omitempty"`
	Context         map[string]any `json:"context,omitempty"`
}

// RetryDelay returns RetryDelayMs as a Duration.
func (d Decision) RetryDelay() time.Duration {
	return time.Duration(d.RetryDelayMs) * time.Millisecond
}

// criticalDecision answers a dispatch that failed internally.
func criticalDecision() Decision {
	return Decision{
		Handled:     false,
		UserMessage: "critical error, reload",
		Action:      ActionReload,
	}
}
