package fieldmap

import (
	"fmt"
	"reflect"
	"strings"
)

type enumCodec struct {
	byName  map[string]reflect.Value // Lower-cased member name.
	byValue map[any]string
}

// RegisterEnum registers T as an enumeration of members. Member names are taken
// from their string form, so types with a String method (e.g. generated by
// stringer) register their symbolic names.
//
// Decoding matches names case-insensitively. It returns an error if two members
// share a name ignoring case.
func RegisterEnum[T comparable](r *Registry, members ...T) error {
	t := reflect.TypeFor[T]()
	if len(members) == 0 {
		return fmt.Errorf("fieldmap: enum '%s' has no members", t)
	}
	e := &enumCodec{
		byName:  make(map[string]reflect.Value, len(members)),
		byValue: make(map[any]string, len(members)),
	}
	for _, m := range members {
		name := fmt.Sprint(m)
		key := strings.ToLower(name)
		if _, ok := e.byName[key]; ok {
			return fmt.Errorf("fieldmap: enum '%s' has duplicate member '%s'", t, name)
		}
		v := m
		e.byName[key] = reflect.ValueOf(&v).Elem()
		e.byValue[m] = name
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enums[t] = e
	return nil
}

func (e *enumCodec) parse(s string) (reflect.Value, bool) {
	v, ok := e.byName[strings.ToLower(strings.TrimSpace(s))]
	return v, ok
}

func (e *enumCodec) format(v reflect.Value) (string, bool) {
	name, ok := e.byValue[v.Interface()]
	return name, ok
}
