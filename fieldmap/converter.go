package fieldmap

import (
	"reflect"
	"strings"
	"sync"
)

// Converter converts values of one type to and from other representations.
type Converter interface {
	// CanConvertFrom reports whether ConvertFrom accepts values of type t.
	CanConvertFrom(t reflect.Type) bool
	ConvertFrom(s string) (any, error)
	ConvertTo(v any) (string, error)
}

// ConverterDeclarer is implemented by types that declare their Converter by name.
//
// The declared name is qualified by the package path of the declaring type:
//
//	func (Color) DeclaredConverter() string {
//		return "ColorConverter, example.com/paint"
//	}
type ConverterDeclarer interface {
	DeclaredConverter() string
}

var converterDeclarerType = reflect.TypeFor[ConverterDeclarer]()

// Module is the set of converters registered by a single package.
// Declared converter names are only ever resolved within the module of the declaring type.
type Module struct {
	path      string
	mu        sync.RWMutex
	factories map[string]func() Converter
}

// Path returns the package path identifying the module.
func (m *Module) Path() string {
	return m.path
}

// RegisterConverter registers a converter constructor under its bare name.
func (m *Module) RegisterConverter(name string, factory func() Converter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[name] = factory
}

func (m *Module) lookup(name string) (func() Converter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.factories[name]
	return f, ok
}

// Module returns the module for a package path, creating it on first use.
func (r *Registry) Module(pkgPath string) *Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[pkgPath]
	if !ok {
		m = &Module{path: pkgPath, factories: make(map[string]func() Converter)}
		r.modules[pkgPath] = m
	}
	return m
}

// RegisterConverter registers c as the global fallback converter for t.
func (r *Registry) RegisterConverter(t reflect.Type, c Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[t] = c
}

// ResolveConverter returns the converter for t or nil.
//
// A declared converter is looked up relative to the module of t itself: the declared
// name must be qualified with t's package path, and the bare name is resolved in that
// module only. If that fails the global converter table is consulted.
func (r *Registry) ResolveConverter(t reflect.Type) Converter {
	if c := r.declaredConverter(t); c != nil {
		return c
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.converters[t]
}

func (r *Registry) declaredConverter(t reflect.Type) Converter {
	decl, ok := declaredConverterName(t)
	if !ok {
		return nil
	}
	pkgPath := t.PkgPath()
	if pkgPath == "" || !strings.HasSuffix(decl, pkgPath) {
		return nil
	}
	i := strings.IndexByte(decl, ',')
	if i <= 0 {
		return nil
	}
	name := strings.TrimSpace(decl[:i])

	r.mu.RLock()
	m, ok := r.modules[pkgPath]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	factory, ok := m.lookup(name)
	if !ok || factory == nil {
		return nil
	}
	return factory()
}

func declaredConverterName(t reflect.Type) (string, bool) {
	if t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface {
		return "", false
	}
	var d ConverterDeclarer
	switch {
	case t.Implements(converterDeclarerType):
		d = reflect.Zero(t).Interface().(ConverterDeclarer)
	case reflect.PointerTo(t).Implements(converterDeclarerType):
		d = reflect.New(t).Interface().(ConverterDeclarer)
	default:
		return "", false
	}
	name := d.DeclaredConverter()
	if strings.TrimSpace(name) == "" {
		return "", false
	}
	return name, true
}
