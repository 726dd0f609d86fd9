package fieldmap

import (
	"encoding"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// TagName is the struct tag used to rename ("name") or skip ("-") a field.
const TagName = "fieldmap"

// FieldMap is the flattened view of an object: field name to encoded value.
// A FieldMap produced by ToFieldMap is owned by the caller and is not retained.
type FieldMap map[string]string

// Keys returns the keys of m in sorted order.
func (m FieldMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

type field struct {
	name  string
	index []int
	typ   reflect.Type
}

// ToFieldMap encodes obj with the default registry.
func ToFieldMap(obj any) (FieldMap, error) {
	return defaultRegistry.ToFieldMap(obj)
}

// FromFieldMap decodes m into a new T with the default registry.
func FromFieldMap[T any](m FieldMap) (T, error) {
	return FromFieldMapWith[T](defaultRegistry, m)
}

// ToFieldMap encodes obj into a new FieldMap.
//
// A string keyed map is copied with each value in its plain string form; see
// naturalCodec. Maps whose value type has no such form fail with ErrUnsupportedType.
// A struct, or pointer to struct, is encoded field by field in declaration order;
// fields holding nil are omitted. A nil obj yields a nil map.
func (r *Registry) ToFieldMap(obj any) (FieldMap, error) {
	if obj == nil {
		return nil, nil
	}
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, newError(ErrUnsupportedType, v.Type(), "", fmt.Errorf("map key must be a string"))
		}
		return passThroughMap(v)
	case reflect.Struct:
	default:
		return nil, newError(ErrUnsupportedType, v.Type(), "", nil)
	}

	fields := r.structFields(v.Type())
	m := make(FieldMap, len(fields))
	for _, f := range fields {
		fv := v.FieldByIndex(f.index)
		if isAbsent(fv) {
			continue
		}
		s, err := r.encodeValue(fv, f.typ)
		if err != nil {
			return nil, withField(err, f.name)
		}
		m[f.name] = s
	}
	return m, nil
}

// FromFieldMapWith decodes m into a new T using r.
//
// T must be a struct, a pointer to a struct or a string keyed map, otherwise
// ErrNotConstructible is returned. A nil m yields the zero T. Keys without a
// matching field are ignored. Decoding stops at the first field that fails; fields
// assigned before it remain set on the returned value.
func FromFieldMapWith[T any](r *Registry, m FieldMap) (T, error) {
	var out T
	if m == nil {
		return out, nil
	}
	t := reflect.TypeFor[T]()
	target := reflect.ValueOf(&out).Elem()
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
		target.Set(reflect.New(t.Elem()))
		target = target.Elem()
	}
	switch target.Kind() {
	case reflect.Struct:
		if err := r.populateStruct(target, m); err != nil {
			return out, err
		}
	case reflect.Map:
		if target.Type().Key().Kind() != reflect.String {
			return out, newError(ErrNotConstructible, t, "", nil)
		}
		target.Set(reflect.MakeMapWithSize(target.Type(), len(m)))
		if err := populateMap(target, m); err != nil {
			return out, err
		}
	default:
		return out, newError(ErrNotConstructible, t, "", nil)
	}
	return out, nil
}

// Populate decodes m into the struct or map pointed to by ptr. Existing field
// values not named in m are left untouched.
func (r *Registry) Populate(m FieldMap, ptr any) error {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return newError(ErrNotConstructible, reflect.TypeOf(ptr), "", fmt.Errorf("target must be a non-nil pointer"))
	}
	v = v.Elem()
	switch v.Kind() {
	case reflect.Struct:
		return r.populateStruct(v, m)
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return newError(ErrNotConstructible, v.Type(), "", nil)
		}
		if v.IsNil() {
			v.Set(reflect.MakeMapWithSize(v.Type(), len(m)))
		}
		return populateMap(v, m)
	default:
		return newError(ErrNotConstructible, v.Type(), "", nil)
	}
}

func (r *Registry) populateStruct(v reflect.Value, m FieldMap) error {
	for _, f := range r.structFields(v.Type()) {
		s, ok := m[f.name]
		if !ok {
			continue
		}
		val, err := r.Decode(s, f.typ)
		if err != nil {
			return withField(err, f.name)
		}
		v.FieldByIndex(f.index).Set(val)
	}
	return nil
}

// populateMap decodes m into the map v with the pass-through codec of its value type.
func populateMap(v reflect.Value, m FieldMap) error {
	kt, vt := v.Type().Key(), v.Type().Elem()
	codec := naturalCodec(vt)
	if codec == nil {
		return newError(ErrUnsupportedType, v.Type(), "", errNoPlainForm)
	}
	for _, k := range m.Keys() {
		val, ok := codec.parse(m[k])
		if !ok {
			return withField(newError(ErrInvalidFormat, vt, m[k], nil), k)
		}
		v.SetMapIndex(reflect.ValueOf(k).Convert(kt), val)
	}
	return nil
}

// passThroughMap copies the string keyed map v. It is the inverse of populateMap.
func passThroughMap(v reflect.Value) (FieldMap, error) {
	codec := naturalCodec(v.Type().Elem())
	if codec == nil {
		return nil, newError(ErrUnsupportedType, v.Type(), "", errNoPlainForm)
	}
	m := make(FieldMap, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		val := iter.Value()
		if isAbsent(val) {
			continue
		}
		s, err := codec.format(val)
		if err != nil {
			return nil, withField(newError(ErrUnsupportedType, val.Type(), "", err), iter.Key().String())
		}
		m[iter.Key().String()] = s
	}
	return m, nil
}

// naturalString returns the plain string form of an interface held value.
func naturalString(v reflect.Value) (string, error) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", nil
		}
		v = v.Elem()
	}
	switch x := v.Interface().(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case encoding.TextMarshaler:
		b, err := x.MarshalText()
		return string(b), err
	default:
		if v.Kind() == reflect.String {
			return v.String(), nil
		}
		return fmt.Sprint(x), nil
	}
}

func isAbsent(v reflect.Value) bool {
	for v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return !v.IsValid()
	}
}

// structFields returns the encodable fields of struct type t, cached per type.
func (r *Registry) structFields(t reflect.Type) []field {
	if fs, ok := r.fields.Load(t); ok {
		return fs.([]field)
	}
	fs, _ := r.fields.LoadOrStore(t, collectFields(t))
	return fs.([]field)
}

func collectFields(t reflect.Type) []field {
	var fields []field
	seen := make(map[string]bool)
	for _, sf := range reflect.VisibleFields(t) {
		if sf.Anonymous && indirect(sf.Type).Kind() == reflect.Struct {
			continue // Promoted fields are visited on their own.
		}
		if !sf.IsExported() || viaPointer(t, sf.Index) {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup(TagName); ok {
			tag, _, _ = strings.Cut(tag, ",")
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		fields = append(fields, field{name: name, index: sf.Index, typ: sf.Type})
	}
	return fields
}

// viaPointer reports whether the field at index is reached through an embedded pointer.
func viaPointer(t reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		f := t.Field(i)
		if f.Type.Kind() == reflect.Pointer {
			return true
		}
		t = f.Type
	}
	return false
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
