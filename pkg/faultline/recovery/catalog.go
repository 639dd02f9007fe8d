// catalog.go maps short error codes to user-facing messages.

package recovery

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v2"
)

// DefaultCode is the catalog key used for codes without an entry.
const DefaultCode = "DEFAULT"

var builtinMessages = map[string]string{
	"AUTH_001":       "Your session has expired. Please log in again.",
	"AUTH_002":       "Your session could not be refreshed. Please log in again.",
	"AUTH_003":       "You do not have permission to perform this action.",
	"AUTH_004":       "We could not verify your account. Please try again.",
	"AUTH_005":       "Registration could not be completed. Please try again.",
	"USER_001":       "The requested user was not found.",
	"USER_002":       "A user with this email address already exists.",
	"USER_003":       "The user could not be updated.",
	"USER_004":       "The user could not be deleted.",
	"ROLE_001":       "The requested role was not found.",
	"ROLE_002":       "A role with this name already exists.",
	"ROLE_003":       "This role is still assigned to users and cannot be deleted.",
	"NET_001":        "A network error occurred. Please check your connection and try again.",
	"NET_002":        "The request timed out. Please try again.",
	"RATE_001":       "Too many requests. Please wait a moment and try again.",
	"SERVER_001":     "The server encountered an error. Please try again later.",
	"RESOURCE_404":   "The requested resource was not found.",
	"VALIDATION_001": "Please correct the highlighted fields.",
	DefaultCode:      "An unexpected error occurred. Please try again.",
}

// Catalog is a code to message lookup table, safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	messages map[string]string
}

// NewCatalog returns a catalog holding the built-in messages.
func NewCatalog() *Catalog {
	c := &Catalog{messages: make(map[string]string, len(builtinMessages))}
	for code, msg := range builtinMessages {
		c.messages[code] = msg
	}
	return c
}

// Message returns the message for code, or the DEFAULT message.
func (c *Catalog) Message(code string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if msg, ok := c.messages[code]; ok {
		return msg
	}
	return c.messages[DefaultCode]
}

// Lookup returns the message for code and whether the code has an entry.
func (c *Catalog) Lookup(code string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	msg, ok := c.messages[code]
	return msg, ok
}

// Set adds or replaces one entry. Empty messages are ignored.
func (c *Catalog) Set(code, message string) {
	if code == "" || message == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[code] = message
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Codes returns every code with an entry, sorted.
func (c *Catalog) Codes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	codes := make([]string, 0, len(c.messages))
	for code := range c.messages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// LoadYAML merges a flat YAML mapping of code: message into the catalog.
func (c *Catalog) LoadYAML(data []byte) error {
	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	for code, msg := range overrides {
		c.Set(code, msg)
	}
	return nil
}

// LoadFile merges overrides from a YAML file. Environment variables in the
// file are expanded first.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	return c.LoadYAML([]byte(os.ExpandEnv(string(data))))
}
