package engine

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// ComponentFactory creates a component with its default field values.
type ComponentFactory func() Component

// ComponentRegistry maps serialized type names to component factories.
type ComponentRegistry struct {
	mu     sync.RWMutex
	byName map[string]ComponentFactory
	byType map[reflect.Type]string
}

func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		byName: make(map[string]ComponentFactory),
		byType: make(map[reflect.Type]string),
	}
}

var defaultRegistry = NewComponentRegistry()

// DefaultRegistry is the registry components add themselves to from init.
func DefaultRegistry() *ComponentRegistry {
	return defaultRegistry
}

// RegisterComponent registers a component type with the default registry.
func RegisterComponent(name string, factory ComponentFactory) {
	defaultRegistry.Register(name, factory)
}

// Register binds name to the type factory produces. It panics if the name
// or the type is already registered.
func (r *ComponentRegistry) Register(name string, factory ComponentFactory) {
	t := reflect.TypeOf(factory())

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		panic(fmt.Sprintf("component %q already registered", name))
	}
	if other, exists := r.byType[t]; exists {
		panic(fmt.Sprintf("component type %s already registered as %q", t, other))
	}
	r.byName[name] = factory
	r.byType[t] = name
}

// Create returns a new component of the named type, or nil.
func (r *ComponentRegistry) Create(name string) Component {
	r.mu.RLock()
	factory, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return factory()
}

// NameOf returns the registered name of c's type.
func (r *ComponentRegistry) NameOf(c Component) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.byType[reflect.TypeOf(c)]
	return name, ok
}

// Names returns all registered names, sorted.
func (r *ComponentRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
