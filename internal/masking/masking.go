// Package masking keeps sensitive values (API keys, card numbers, merchant
// secrets) out of logs and observability snapshots.
//
// Values travel to the connector unchanged; only the snapshot produced by
// Serialize replaces them with Marker.
package masking

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Marker replaces every sensitive value in a snapshot.
const Marker = "*** masked ***"

// Secret is a string that must never appear in logs. JSON, XML and form
// encoders see the real value; fmt and Serialize see Marker.
type Secret string

// Expose returns the underlying value. Call it only when building wire payloads.
func (s Secret) Expose() string { return string(s) }

func (s Secret) String() string { return Marker }

func (s Secret) GoString() string { return Marker }

// IsEmpty reports whether the secret carries no value.
func (s Secret) IsEmpty() bool { return s == "" }

// Maskable is a header value that may be flagged sensitive.
type Maskable struct {
	value     string
	sensitive bool
}

// Normal wraps a value that is safe to log.
func Normal(v string) Maskable { return Maskable{value: v} }

// Masked wraps a value that must be redacted in snapshots.
func Masked(v string) Maskable { return Maskable{value: v, sensitive: true} }

func (m Maskable) Expose() string { return m.value }

func (m Maskable) IsSensitive() bool { return m.sensitive }

func (m Maskable) String() string {
	if m.sensitive {
		return Marker
	}
	return m.value
}

// MaskedValue implements Masker.
func (m Maskable) MaskedValue() any { return m.String() }

// Masker lets a type provide its own redacted representation.
type Masker interface {
	MaskedValue() any
}

var (
	secretType    = reflect.TypeOf(Secret(""))
	maskerType    = reflect.TypeOf((*Masker)(nil)).Elem()
	marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textType      = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// Serialize converts v into a JSON-compatible tree (maps, slices, scalars)
// with sensitive values replaced by Marker. Field names follow json tags;
// a struct field tagged `mask:"true"` is redacted regardless of its type.
func Serialize(v any) (any, error) {
	return walk(reflect.ValueOf(v), 0)
}

// SerializeOr is Serialize with a fallback snapshot for values that cannot
// be redacted. It never fails.
func SerializeOr(v any, fallback any) any {
	out, err := Serialize(v)
	if err != nil {
		return fallback
	}
	return out
}

const maxDepth = 32

func walk(v reflect.Value, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("masking: value nested deeper than %d levels", maxDepth)
	}
	if !v.IsValid() {
		return nil, nil
	}
	t := v.Type()
	if t == secretType {
		return Marker, nil
	}
	if t.Implements(maskerType) {
		if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
			return nil, nil
		}
		return v.Interface().(Masker).MaskedValue(), nil
	}

	k := v.Kind()
	if k != reflect.Pointer && k != reflect.Interface && (t.Implements(marshalerType) || t.Implements(textType)) {
		// a named scalar that cannot marshal itself is shown as its raw value
		if out, err := viaJSON(v); err == nil || k == reflect.Struct {
			return out, err
		}
	}

	switch k {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return walk(v.Elem(), depth+1)
	case reflect.Struct:
		return walkStruct(v, depth)
	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			val, err := walk(iter.Value(), depth+1)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(iter.Key().Interface())] = val
		}
		return out, nil
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if e := t.Elem(); e.Kind() == reflect.Uint8 && !e.Implements(marshalerType) && !e.Implements(textType) {
			return base64.StdEncoding.EncodeToString(v.Bytes()), nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			val, err := walk(v.Index(i), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	default:
		return nil, fmt.Errorf("masking: unsupported kind %s", v.Kind())
	}
}

func walkStruct(v reflect.Value, depth int) (any, error) {
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, omitEmpty, skip := jsonName(f)
		if skip {
			continue
		}
		fv := v.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}
		if f.Anonymous && name == "" {
			inner, err := walk(fv, depth+1)
			if err != nil {
				return nil, err
			}
			if m, ok := inner.(map[string]any); ok {
				for k, val := range m {
					out[k] = val
				}
			}
			continue
		}
		if name == "" {
			name = f.Name
		}
		if f.Tag.Get("mask") == "true" {
			out[name] = Marker
			continue
		}
		val, err := walk(fv, depth+1)
		if err != nil {
			return nil, err
		}
		out[name] = val
	}
	return out, nil
}

func jsonName(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag, ok := f.Tag.Lookup("json")
	if !ok {
		if xmlTag, ok := f.Tag.Lookup("xml"); ok {
			tag = xmlTag
		}
	}
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return parts[0], omitEmpty, false
}

func viaJSON(v reflect.Value) (any, error) {
	b, err := json.Marshal(v.Interface())
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
