package fieldmap

import (
	"encoding"
	"fmt"
	"reflect"
)

// Strategy is the encoding discipline used for values of a type.
type Strategy int

const (
	_ Strategy = iota // zero value is invalid

	StrategyDirect      // string passes through unchanged
	StrategyParsePair   // parse/format pair, see RegisterParser
	StrategyConverter   // declared ad-hoc Converter
	StrategyEnumeration // registered enumeration, names matched case-insensitively
	StrategyJSON        // fallback to the registry codec
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "Direct"
	case StrategyParsePair:
		return "ParsePair"
	case StrategyConverter:
		return "Converter"
	case StrategyEnumeration:
		return "Enumeration"
	case StrategyJSON:
		return "JSON"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

var (
	stringType          = reflect.TypeFor[string]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// TypeInfo is the metadata gathered for a type. It is computed once per type
// and cached by the Registry.
type TypeInfo struct {
	Type      reflect.Type
	Strategy  Strategy
	parser    *parser
	converter Converter
	enum      *enumCodec
}

// Describe returns the cached TypeInfo for t. Pointer types are described by their element type.
func (r *Registry) Describe(t reflect.Type) *TypeInfo {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if info, ok := r.infos.Load(t); ok {
		return info.(*TypeInfo)
	}
	info, _ := r.infos.LoadOrStore(t, r.describe(t))
	return info.(*TypeInfo)
}

// StrategyFor returns the strategy selected for t.
// Named string types without a registration of their own are Direct, like string.
func (r *Registry) StrategyFor(t reflect.Type) Strategy {
	return r.Describe(t).Strategy
}

// describe selects the strategy for t, first match wins:
// string, parse pair, converter, enumeration, JSON.
func (r *Registry) describe(t reflect.Type) *TypeInfo {
	info := &TypeInfo{Type: t}
	if t == stringType {
		info.Strategy = StrategyDirect
		return info
	}
	if p := r.lookupParser(t); p != nil {
		info.parser = p
		info.Strategy = StrategyParsePair
		return info
	}
	if c := r.ResolveConverter(t); c != nil && c.CanConvertFrom(stringType) {
		info.converter = c
		info.Strategy = StrategyConverter
		return info
	}
	if e := r.lookupEnum(t); e != nil {
		info.enum = e
		info.Strategy = StrategyEnumeration
		return info
	}
	if t.Kind() == reflect.String {
		// Named string types without their own registration stay unquoted.
		info.Strategy = StrategyDirect
		return info
	}
	info.Strategy = StrategyJSON
	return info
}

func (r *Registry) lookupParser(t reflect.Type) *parser {
	r.mu.RLock()
	p, ok := r.parsers[t]
	r.mu.RUnlock()
	if ok {
		return p
	}
	if isTextType(t) {
		return textParser(t)
	}
	return nil
}

// isTextType reports whether t round trips through encoding.TextMarshaler and
// encoding.TextUnmarshaler, with either receiver.
func isTextType(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(textUnmarshalerType) &&
		(t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType))
}

func (r *Registry) lookupEnum(t reflect.Type) *enumCodec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enums[t]
}
