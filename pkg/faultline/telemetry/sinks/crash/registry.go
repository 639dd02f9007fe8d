// registry.go tracks the crash-reporting client libraries linked into the process.

package crash

import (
	"sort"
	"sync"
)

// Constructor creates a new Client instance.
type Constructor func() Client

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register adds a client constructor under the given provider name. A
// crash-reporting integration calls it from an init function, which is how a
// backend becomes "present in the host environment".
func Register(name string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

// Unregister removes a provider. It reports whether one was registered.
func Unregister(name string) bool {
	registryMu.Lock()
	defer registryMu.Unlock()
	_, ok := registry[name]
	delete(registry, name)
	return ok
}

// Available reports whether a client is registered under name.
func Available(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// Providers returns the sorted names of all registered providers.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) (Constructor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ctor, ok := registry[name]
	return ctor, ok
}
