package fieldmap

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

var (
	bytesType = reflect.TypeFor[[]byte]()

	errNoPlainForm = errors.New("map value type has no plain string form")
)

// naturalCodec returns the pass-through pair for map values of type t, or nil when
// values of t have no plain string form that parses back to the same value.
//
// Pass-through values never go through the registry strategies: strings and byte slices
// are copied, TextMarshaler types use their text form and booleans and numbers use
// strconv by kind. Interface values are formatted with fmt and decode as strings.
func naturalCodec(t reflect.Type) *parser {
	switch {
	case t.Kind() == reflect.Pointer:
		return pointerCodec(t)
	case t.Kind() == reflect.Interface:
		if !stringType.AssignableTo(t) {
			return nil
		}
		return &parser{
			parse: func(s string) (reflect.Value, bool) {
				return reflect.ValueOf(s), true
			},
			format: naturalString,
		}
	case t.Kind() == reflect.Slice && t.Elem() == bytesType.Elem():
		return &parser{
			parse: func(s string) (reflect.Value, bool) {
				return reflect.ValueOf([]byte(s)).Convert(t), true
			},
			format: func(v reflect.Value) (string, error) {
				return string(v.Bytes()), nil
			},
		}
	case isTextType(t):
		return textParser(t)
	}
	return kindCodec(t)
}

func pointerCodec(t reflect.Type) *parser {
	elem := naturalCodec(t.Elem())
	if elem == nil {
		return nil
	}
	return &parser{
		parse: func(s string) (reflect.Value, bool) {
			v, ok := elem.parse(s)
			if !ok {
				return reflect.Value{}, false
			}
			ptr := reflect.New(t.Elem())
			ptr.Elem().Set(v)
			return ptr, true
		},
		format: func(v reflect.Value) (string, error) {
			if v.IsNil() {
				return "", fmt.Errorf("nil pointer")
			}
			return elem.format(v.Elem())
		},
	}
}

// kindCodec formats by kind, so a String method on a named number is ignored.
func kindCodec(t reflect.Type) *parser {
	newValue := func() reflect.Value { return reflect.New(t).Elem() }
	switch t.Kind() {
	case reflect.String:
		return &parser{
			parse: func(s string) (reflect.Value, bool) {
				return reflect.ValueOf(s).Convert(t), true
			},
			format: func(v reflect.Value) (string, error) {
				return v.String(), nil
			},
		}
	case reflect.Bool:
		return &parser{
			parse: func(s string) (reflect.Value, bool) {
				b, err := strconv.ParseBool(s)
				v := newValue()
				v.SetBool(b)
				return v, err == nil
			},
			format: func(v reflect.Value) (string, error) {
				return strconv.FormatBool(v.Bool()), nil
			},
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &parser{
			parse: func(s string) (reflect.Value, bool) {
				n, err := strconv.ParseInt(s, 10, t.Bits())
				v := newValue()
				v.SetInt(n)
				return v, err == nil
			},
			format: func(v reflect.Value) (string, error) {
				return strconv.FormatInt(v.Int(), 10), nil
			},
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return &parser{
			parse: func(s string) (reflect.Value, bool) {
				n, err := strconv.ParseUint(s, 10, t.Bits())
				v := newValue()
				v.SetUint(n)
				return v, err == nil
			},
			format: func(v reflect.Value) (string, error) {
				return strconv.FormatUint(v.Uint(), 10), nil
			},
		}
	case reflect.Float32, reflect.Float64:
		return &parser{
			parse: func(s string) (reflect.Value, bool) {
				f, err := strconv.ParseFloat(s, t.Bits())
				v := newValue()
				v.SetFloat(f)
				return v, err == nil
			},
			format: func(v reflect.Value) (string, error) {
				return strconv.FormatFloat(v.Float(), 'g', -1, t.Bits()), nil
			},
		}
	default:
		return nil
	}
}

// Mappable reports whether values of t can be converted to a FieldMap and back:
// structs, pointers to structs and string keyed maps whose values have a plain
// string form.
func Mappable(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		return true
	case reflect.Map:
		return t.Key().Kind() == reflect.String && naturalCodec(t.Elem()) != nil
	default:
		return false
	}
}
