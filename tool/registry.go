package tool

import (
	"log/slog"
	"sync"

	"github.com/alphadose/haxmap"
)

// Registry maps tool names to definitions. It is built once at process start
// and passed explicitly to the dispatcher and orchestration loop; there is no
// global registry. Registration order is preserved so the tool roster
// advertised to the model is stable across runs.
type Registry struct {
	values *haxmap.Map[string, Definition]

	mu    sync.Mutex
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		values: haxmap.New[string, Definition](),
	}
}

// Add registers a definition under its name. Re-registering a name replaces
// the previous definition without changing its position.
func (r *Registry) Add(def Definition) {
	if _, exists := r.values.Get(def.Name); !exists {
		r.mu.Lock()
		r.order = append(r.order, def.Name)
		r.mu.Unlock()
	}
	r.values.Set(def.Name, def)
}

// Register builds each definition with its constructor and adds the ones that
// succeed. A constructor that fails (for example, a missing credential) is
// logged and skipped; tool construction failures are never fatal to the
// process.
func (r *Registry) Register(constructors ...func() (Definition, error)) {
	for _, construct := range constructors {
		def, err := construct()
		if err != nil {
			slog.Warn("tool excluded from registry", slog.String("error", err.Error()))
			continue
		}
		r.Add(def)
		slog.Debug("tool registered", slog.String("tool", def.Name))
	}
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (Definition, bool) {
	return r.values.Get(name)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Definitions returns all registered definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.Lock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	r.mu.Unlock()

	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		if def, ok := r.values.Get(name); ok {
			defs = append(defs, def)
		}
	}
	return defs
}
