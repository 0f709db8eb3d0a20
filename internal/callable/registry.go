// Package callable is the registration half of the callable registry:
// introspecting a typed Go function into a named, strategy-annotated
// invocation target. It generalizes the teacher's ServiceEngine
// (name -> invocable map under one mutex, Register/Get/List) from a
// registry of hand-written InvocableService implementations to a
// registry of plain Go functions whose shape is discovered by
// reflection rather than declared by an interface.
package callable

import (
	"context"
	"reflect"
	"sync"

	"github.com/entityflow/entityflow/internal/entity"
	"github.com/entityflow/entityflow/pkg/entityerr"
)

// OutputPattern classifies a registered function's return shape.
type OutputPattern string

const (
	OutputSingle OutputPattern = "single"
	OutputTuple  OutputPattern = "tuple"
	OutputList   OutputPattern = "list"
	OutputMap    OutputPattern = "map"
	OutputWrapper OutputPattern = "wrapper"
	OutputVoid   OutputPattern = "void"
)

// ConfigEntity is the marker interface a consumer's configuration
// entity type implements so the registrar can recognize a parameter
// as "a designated configuration entity" during registration, and so
// the execution engine can recognize a loose-primitive bundle target
// during strategy selection.
type ConfigEntity interface {
	entity.Entity
	IsConfigEntity()
}

// Metadata is everything the registrar records about a callable at
// registration time, consulted by the execution engine on every call.
type Metadata struct {
	Name                string
	Func                reflect.Value
	ParamTypes          []reflect.Type
	ReturnTypes         []reflect.Type
	ConfigType          reflect.Type
	UsesConfigEntity    bool
	IsAsync             bool
	OutputPattern       OutputPattern
	ExpectedOutputCount int
	SupportsUnpacking   bool
	ForceUnpack         bool
}

// RegisterOption customizes registration metadata that cannot be
// derived from the function's static type alone.
type RegisterOption func(*Metadata)

// ForceUnpack overrides the default unpacking rule for list/map
// outputs, forcing positional unpacking where the shape allows it.
func ForceUnpack() RegisterOption {
	return func(m *Metadata) { m.ForceUnpack = true }
}

// Async marks the callable as one whose caller is expected to invoke
// it from a goroutine against a cancellable context, rather than
// await it inline. Go has no distinct async function type to
// introspect, so this is a registration-time declaration, the same
// way the teacher's ServiceMethod.HasCallback is an explicit flag the
// registrant sets rather than something discovered by reflection.
func Async() RegisterOption {
	return func(m *Metadata) { m.IsAsync = true }
}

var errCtxType = reflect.TypeOf((*context.Context)(nil)).Elem()
var errType = reflect.TypeOf((*error)(nil)).Elem()
var entityType = reflect.TypeOf((*entity.Entity)(nil)).Elem()
var configEntityType = reflect.TypeOf((*ConfigEntity)(nil)).Elem()

// Registry holds every registered callable by name under one mutex,
// directly generalizing ServiceEngine.services.
type Registry struct {
	mu    sync.RWMutex
	items map[string]*Metadata
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{items: make(map[string]*Metadata)}
}

// Register introspects fn's signature and stores it under name. fn
// must have the shape func(context.Context, params...) (outputs...,
// error) — the leading context and trailing error are conventional in
// this codebase the same way they are in the teacher's Invoke
// signatures.
func (r *Registry) Register(name string, fn any, opts ...RegisterOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[name]; exists {
		return entityerr.AlreadyExists("callable", name)
	}

	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return entityerr.New(entityerr.CodeUnknownFunction, "registered value is not a function").WithDetails("name", name)
	}
	if t.NumIn() < 1 || t.In(0) != errCtxType {
		return entityerr.New(entityerr.CodeUnknownFunction, "callable must take context.Context as its first parameter").WithDetails("name", name)
	}
	if t.NumOut() < 1 || t.Out(t.NumOut()-1) != errType {
		return entityerr.New(entityerr.CodeUnknownFunction, "callable must return error as its last result").WithDetails("name", name)
	}

	m := &Metadata{Name: name, Func: v}
	for i := 1; i < t.NumIn(); i++ {
		pt := t.In(i)
		m.ParamTypes = append(m.ParamTypes, pt)
		if pt.Implements(configEntityType) {
			m.UsesConfigEntity = true
			m.ConfigType = pt
		}
	}
	for i := 0; i < t.NumOut()-1; i++ {
		m.ReturnTypes = append(m.ReturnTypes, t.Out(i))
	}

	classifyOutput(m)

	for _, opt := range opts {
		opt(m)
	}
	if m.ForceUnpack && (m.OutputPattern == OutputList || m.OutputPattern == OutputMap) {
		m.SupportsUnpacking = true
	}

	r.items[name] = m
	return nil
}

func classifyOutput(m *Metadata) {
	n := len(m.ReturnTypes)
	switch {
	case n == 0:
		m.OutputPattern = OutputVoid
		m.ExpectedOutputCount = 0
	case n == 1:
		classifySingleOutput(m)
	default:
		allEntities := true
		for _, rt := range m.ReturnTypes {
			if !rt.Implements(entityType) {
				allEntities = false
				break
			}
		}
		if allEntities {
			m.OutputPattern = OutputTuple
			m.ExpectedOutputCount = n
			m.SupportsUnpacking = true
		} else {
			m.OutputPattern = OutputWrapper
			m.ExpectedOutputCount = n
		}
	}
}

func classifySingleOutput(m *Metadata) {
	rt := m.ReturnTypes[0]
	switch {
	case rt.Implements(entityType):
		m.OutputPattern = OutputSingle
		m.ExpectedOutputCount = 1
	case rt.Kind() == reflect.Slice && rt.Elem().Implements(entityType):
		m.OutputPattern = OutputList
		m.ExpectedOutputCount = -1 // unbounded by declared type
		m.SupportsUnpacking = false
	case rt.Kind() == reflect.Map && rt.Elem().Implements(entityType):
		m.OutputPattern = OutputMap
		m.ExpectedOutputCount = -1
		m.SupportsUnpacking = false
	default:
		m.OutputPattern = OutputWrapper
		m.ExpectedOutputCount = 1
	}
}

// Metadata returns the stored metadata for name.
func (r *Registry) Metadata(name string) (*Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.items[name]
	return m, ok
}

// List returns every registered callable name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	return names
}

// Unregister removes a callable, primarily for test teardown and
// development-time hot reload.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, name)
}
