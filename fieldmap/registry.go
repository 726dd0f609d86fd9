// Package fieldmap converts Go values to and from a FieldMap, a flat map of field
// names to strings suitable for transport and storage.
//
// Each field is encoded with exactly one Strategy chosen from its declared type, in order:
//
//	Direct       the string type passes through unchanged
//	ParsePair    primitive table types, RegisterParser, encoding.TextMarshaler/TextUnmarshaler
//	Converter    a Converter declared by the type (ConverterDeclarer) or registered globally
//	Enumeration  types registered with RegisterEnum
//	JSON         everything else, through the registry codec
//
// The strategy depends on the type only, never on the value, so a value decodes with the
// strategy it was encoded with.
//
// Registration (parsers, enums, converters) must happen before a type is first used;
// the strategy of a type is cached on first use.
package fieldmap

import (
	"reflect"
	"sync"

	"github.com/holmberd/go-objectbinder/encoder"
)

// Registry holds the type strategies and the codec used for the JSON fallback.
// It is safe for concurrent use.
type Registry struct {
	codec encoder.Codec

	mu         sync.RWMutex
	parsers    map[reflect.Type]*parser
	enums      map[reflect.Type]*enumCodec
	converters map[reflect.Type]Converter
	modules    map[string]*Module

	infos  sync.Map // reflect.Type -> *TypeInfo
	fields sync.Map // reflect.Type -> []field
}

// NewRegistry creates a registry with the primitive table types registered.
// A nil codec defaults to encoder.JSONCodec.
func NewRegistry(codec encoder.Codec) *Registry {
	if codec == nil {
		codec = encoder.JSONCodec{}
	}
	r := &Registry{
		codec:      codec,
		parsers:    make(map[reflect.Type]*parser),
		enums:      make(map[reflect.Type]*enumCodec),
		converters: make(map[reflect.Type]Converter),
		modules:    make(map[string]*Module),
	}
	r.registerBuiltinParsers()
	return r
}

var defaultRegistry = NewRegistry(nil)

// Default returns the package default registry.
func Default() *Registry {
	return defaultRegistry
}

// Codec returns the codec used by the JSON strategy.
func (r *Registry) Codec() encoder.Codec {
	return r.codec
}
