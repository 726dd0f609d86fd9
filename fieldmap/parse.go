package fieldmap

import (
	"encoding"
	"encoding/base64"
	"reflect"
	"strconv"
	"time"
)

// parser is a parse pair: parse reports success instead of returning an error,
// format is its inverse.
type parser struct {
	parse  func(s string) (reflect.Value, bool)
	format func(v reflect.Value) (string, error)
}

// RegisterParser registers a parse pair for T. It must be called before T is first encoded or decoded.
//
// Example:
//
//	fieldmap.RegisterParser(fieldmap.Default(), func(s string) (netip.Addr, bool) {
//		a, err := netip.ParseAddr(s)
//		return a, err == nil
//	}, netip.Addr.String)
func RegisterParser[T any](r *Registry, parse func(string) (T, bool), format func(T) string) {
	r.registerParser(reflect.TypeFor[T](), &parser{
		parse: func(s string) (reflect.Value, bool) {
			v, ok := parse(s)
			if !ok {
				return reflect.Value{}, false
			}
			return reflect.ValueOf(&v).Elem(), true
		},
		format: func(v reflect.Value) (string, error) {
			return format(v.Interface().(T)), nil
		},
	})
}

func (r *Registry) registerParser(t reflect.Type, p *parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[t] = p
}

// registerBuiltinParsers registers the primitive table types.
// Lookup is by exact type: named types such as `type Color int` are not matched.
func (r *Registry) registerBuiltinParsers() {
	RegisterParser(r, func(s string) (bool, bool) {
		v, err := strconv.ParseBool(s)
		return v, err == nil
	}, strconv.FormatBool)

	registerInt[int](r, strconv.IntSize)
	registerInt[int8](r, 8)
	registerInt[int16](r, 16)
	registerInt[int32](r, 32)
	registerInt[int64](r, 64)
	registerUint[uint](r, strconv.IntSize)
	registerUint[uint8](r, 8)
	registerUint[uint16](r, 16)
	registerUint[uint32](r, 32)
	registerUint[uint64](r, 64)
	registerFloat[float32](r, 32)
	registerFloat[float64](r, 64)

	RegisterParser(r, func(s string) (time.Duration, bool) {
		d, err := time.ParseDuration(s)
		return d, err == nil
	}, time.Duration.String)

	RegisterParser(r, func(s string) (time.Time, bool) {
		t, err := time.Parse(time.RFC3339Nano, s)
		return t, err == nil
	}, func(t time.Time) string {
		return t.Format(time.RFC3339Nano)
	})

	RegisterParser(r, func(s string) ([]byte, bool) {
		b, err := base64.StdEncoding.DecodeString(s)
		return b, err == nil
	}, base64.StdEncoding.EncodeToString)
}

func registerInt[T ~int | ~int8 | ~int16 | ~int32 | ~int64](r *Registry, bits int) {
	RegisterParser(r, func(s string) (T, bool) {
		v, err := strconv.ParseInt(s, 10, bits)
		return T(v), err == nil
	}, func(v T) string {
		return strconv.FormatInt(int64(v), 10)
	})
}

func registerUint[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](r *Registry, bits int) {
	RegisterParser(r, func(s string) (T, bool) {
		v, err := strconv.ParseUint(s, 10, bits)
		return T(v), err == nil
	}, func(v T) string {
		return strconv.FormatUint(uint64(v), 10)
	})
}

func registerFloat[T ~float32 | ~float64](r *Registry, bits int) {
	RegisterParser(r, func(s string) (T, bool) {
		v, err := strconv.ParseFloat(s, bits)
		return T(v), err == nil
	}, func(v T) string {
		return strconv.FormatFloat(float64(v), 'g', -1, bits)
	})
}

// textParser adapts a type implementing encoding.TextMarshaler and
// encoding.TextUnmarshaler into a parse pair.
func textParser(t reflect.Type) *parser {
	return &parser{
		parse: func(s string) (reflect.Value, bool) {
			ptr := reflect.New(t)
			if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
				return reflect.Value{}, false
			}
			return ptr.Elem(), true
		},
		format: func(v reflect.Value) (string, error) {
			m, ok := v.Interface().(encoding.TextMarshaler)
			if !ok {
				// Pointer receiver; marshal an addressable copy.
				ptr := reflect.New(t)
				ptr.Elem().Set(v)
				m = ptr.Interface().(encoding.TextMarshaler)
			}
			b, err := m.MarshalText()
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
	}
}
