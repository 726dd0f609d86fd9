package fieldmap

import (
	"fmt"
	"reflect"
)

// Encode encodes a single value with the strategy of its type.
func (r *Registry) Encode(v any) (string, error) {
	if v == nil {
		return "", newError(ErrUnsupportedType, nil, "", fmt.Errorf("nil value"))
	}
	rv := reflect.ValueOf(v)
	return r.encodeValue(rv, rv.Type())
}

// Decode decodes s into a new value of type t.
func (r *Registry) Decode(s string, t reflect.Type) (reflect.Value, error) {
	if t.Kind() == reflect.Pointer {
		elem, err := r.Decode(s, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}

	info := r.Describe(t)
	switch info.Strategy {
	case StrategyDirect:
		return reflect.ValueOf(s).Convert(t), nil
	case StrategyParsePair:
		v, ok := info.parser.parse(s)
		if !ok {
			return reflect.Value{}, newError(ErrInvalidFormat, t, s, nil)
		}
		return v, nil
	case StrategyConverter:
		out, err := info.converter.ConvertFrom(s)
		if err != nil {
			return reflect.Value{}, newError(ErrConversionFailed, t, s, err)
		}
		if out == nil {
			return reflect.Zero(t), nil
		}
		v := reflect.ValueOf(out)
		if !v.Type().AssignableTo(t) {
			return reflect.Value{}, newError(ErrConversionFailed, t, s,
				fmt.Errorf("converter returned '%s'", v.Type()))
		}
		return v, nil
	case StrategyEnumeration:
		v, ok := info.enum.parse(s)
		if !ok {
			return reflect.Value{}, newError(ErrInvalidFormat, t, s, nil)
		}
		return v, nil
	default:
		ptr := reflect.New(t)
		if err := r.codec.Unmarshal([]byte(s), ptr.Interface()); err != nil {
			return reflect.Value{}, newError(ErrUnsupportedType, t, s, err)
		}
		return ptr.Elem(), nil
	}
}

// DecodeAs decodes s into a value of type T using r.
func DecodeAs[T any](r *Registry, s string) (T, error) {
	var zero T
	v, err := r.Decode(s, reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	out, _ := v.Interface().(T) // nil interface values yield the zero T
	return out, nil
}

// encodeValue encodes v using the strategy of its declared type t.
// v must not be a nil pointer.
func (r *Registry) encodeValue(v reflect.Value, t reflect.Type) (string, error) {
	for t.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", newError(ErrUnsupportedType, t, "", fmt.Errorf("nil pointer"))
		}
		t = t.Elem()
		v = v.Elem()
	}

	info := r.Describe(t)
	switch info.Strategy {
	case StrategyDirect:
		return v.String(), nil
	case StrategyParsePair:
		s, err := info.parser.format(v)
		if err != nil {
			return "", newError(ErrInvalidFormat, t, "", err)
		}
		return s, nil
	case StrategyConverter:
		s, err := info.converter.ConvertTo(v.Interface())
		if err != nil {
			return "", newError(ErrConversionFailed, t, "", err)
		}
		return s, nil
	case StrategyEnumeration:
		s, ok := info.enum.format(v)
		if !ok {
			return "", newError(ErrInvalidFormat, t, fmt.Sprint(v.Interface()),
				fmt.Errorf("not a member"))
		}
		return s, nil
	default:
		data, err := r.codec.Marshal(v.Interface())
		if err != nil {
			return "", newError(ErrUnsupportedType, t, "", err)
		}
		return string(data), nil
	}
}
