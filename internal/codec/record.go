package codec

import (
	"fmt"
	"math"
	"reflect"

	"github.com/JIMMY-KSU/modelstore/internal/ndarray"
)

// Kind identifies the type of a field value.
type Kind uint8

// Supported value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindStrings
	KindArray
	KindObject
)

// String returns the name used in payload headers.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindStrings:
		return "strings"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

func parseKind(s string) (Kind, bool) {
	for k := KindNull; k <= KindObject; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Value is a single typed attribute value. Exactly one payload member is meaningful,
// selected by Kind.
type Value struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Float  float64
	Str    string
	Strs   []string
	Array  *ndarray.Array
	Object *Record
}

// Field is a named value inside a Record.
type Field struct {
	Name  string
	Value Value
}

// Record is the reconstructible state of one object: a type tag, the schema version it
// was written with, and its attributes in schema order.
type Record struct {
	Type     string  // Type tag of the object
	Version  int     // Schema version of Type used to write the record
	Producer string  // Version of the software that wrote the record
	Upstream string  // Group name of the upstream producer, empty if none
	Fields   []Field // Attributes in schema order

	reg *Registry // Set on records produced or consumed by a Registry
}

// NewRecord creates an empty record for the given type and schema version.
func NewRecord(typeName string, version int) *Record {
	return &Record{Type: typeName, Version: version}
}

// Set stores a Go value under name, replacing any previous value.
//
// Accepted values: nil, bool, signed and unsigned integers that fit in int64, float32,
// float64, string, []string, *ndarray.Array, *Record, Value, and Persistable objects
// registered with the record's registry. Anything else fails with NotSerializableError.
func (r *Record) Set(name string, v any) error {
	val, err := r.toValue(name, v)
	if err != nil {
		return err
	}
	r.put(name, val)
	return nil
}

func (r *Record) put(name string, val Value) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = val
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: val})
}

//nolint:gocyclo,cyclop // one case per accepted Go type
func (r *Record) toValue(name string, v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Value{Kind: KindNull}, nil
	case Value:
		return x, nil
	case bool:
		return Value{Kind: KindBool, Bool: x}, nil
	case int:
		return Value{Kind: KindInt, Int: int64(x)}, nil
	case int8:
		return Value{Kind: KindInt, Int: int64(x)}, nil
	case int16:
		return Value{Kind: KindInt, Int: int64(x)}, nil
	case int32:
		return Value{Kind: KindInt, Int: int64(x)}, nil
	case int64:
		return Value{Kind: KindInt, Int: x}, nil
	case uint8:
		return Value{Kind: KindInt, Int: int64(x)}, nil
	case uint16:
		return Value{Kind: KindInt, Int: int64(x)}, nil
	case uint32:
		return Value{Kind: KindInt, Int: int64(x)}, nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return Value{}, r.notSerializable(name, v)
		}
		return Value{Kind: KindInt, Int: int64(x)}, nil //nolint:gosec // G115: range checked above
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, r.notSerializable(name, v)
		}
		return Value{Kind: KindInt, Int: int64(x)}, nil //nolint:gosec // G115: range checked above
	case float32:
		return Value{Kind: KindFloat, Float: float64(x)}, nil
	case float64:
		return Value{Kind: KindFloat, Float: x}, nil
	case string:
		return Value{Kind: KindString, Str: x}, nil
	case []string:
		if x == nil {
			return Value{Kind: KindNull}, nil
		}
		strs := make([]string, len(x))
		copy(strs, x)
		return Value{Kind: KindStrings, Strs: strs}, nil
	case *ndarray.Array:
		if x == nil {
			return Value{Kind: KindNull}, nil
		}
		return Value{Kind: KindArray, Array: x.Clone()}, nil
	case *Record:
		if x == nil {
			return Value{Kind: KindNull}, nil
		}
		return Value{Kind: KindObject, Object: x.Clone()}, nil
	case Persistable:
		if isNilPointer(x) {
			return Value{Kind: KindNull}, nil
		}
		if r.reg == nil {
			return Value{}, fmt.Errorf("%s.%s: nested object needs a registry-bound record", r.Type, name)
		}
		nested, err := r.reg.Serialize(x)
		if err != nil {
			return Value{}, fmt.Errorf("%s.%s: %w", r.Type, name, err)
		}
		return Value{Kind: KindObject, Object: nested}, nil
	default:
		return Value{}, r.notSerializable(name, v)
	}
}

func (r *Record) notSerializable(name string, v any) error {
	return &NotSerializableError{Type: r.Type, Attribute: name, GoType: fmt.Sprintf("%T", v)}
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// Get returns the value stored under name.
func (r *Record) Get(name string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether the record holds a field called name.
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Delete removes a field. It reports whether the field existed.
func (r *Record) Delete(name string) bool {
	for i, f := range r.Fields {
		if f.Name == name {
			r.Fields = append(r.Fields[:i], r.Fields[i+1:]...)
			return true
		}
	}
	return false
}

// Rename moves the value of field from to field to. It reports whether from existed.
func (r *Record) Rename(from, to string) bool {
	if !r.Has(from) {
		return false
	}
	if from != to {
		r.Delete(to)
	}
	for i := range r.Fields {
		if r.Fields[i].Name == from {
			r.Fields[i].Name = to
			break
		}
	}
	return true
}

func (r *Record) typed(name string, want Kind) (Value, error) {
	v, ok := r.Get(name)
	if !ok {
		return Value{}, &SchemaError{Type: r.Type, Field: name, Details: "missing field"}
	}
	if v.Kind != want {
		return Value{}, &SchemaError{Type: r.Type, Field: name,
			Details: fmt.Sprintf("expected %s, got %s", want, v.Kind)}
	}
	return v, nil
}

// IsNull reports whether name is absent or explicitly null.
func (r *Record) IsNull(name string) bool {
	v, ok := r.Get(name)
	return !ok || v.Kind == KindNull
}

// Bool returns a bool field.
func (r *Record) Bool(name string) (bool, error) {
	v, err := r.typed(name, KindBool)
	return v.Bool, err
}

// Int returns an integer field.
func (r *Record) Int(name string) (int64, error) {
	v, err := r.typed(name, KindInt)
	return v.Int, err
}

// Float returns a float field.
func (r *Record) Float(name string) (float64, error) {
	v, err := r.typed(name, KindFloat)
	return v.Float, err
}

// Str returns a string field.
func (r *Record) Str(name string) (string, error) {
	v, err := r.typed(name, KindString)
	return v.Str, err
}

// Strings returns a copy of a string list field. A null optional list yields nil.
func (r *Record) Strings(name string) ([]string, error) {
	if v, ok := r.Get(name); ok && v.Kind == KindNull {
		return nil, nil
	}
	v, err := r.typed(name, KindStrings)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(v.Strs))
	copy(out, v.Strs)
	return out, nil
}

// Array returns an array field. A null optional array yields nil without error.
func (r *Record) Array(name string) (*ndarray.Array, error) {
	if v, ok := r.Get(name); ok && v.Kind == KindNull {
		return nil, nil
	}
	v, err := r.typed(name, KindArray)
	if err != nil {
		return nil, err
	}
	return v.Array.Clone(), nil
}

// Object reconstructs a nested object field through the record's registry.
// A null optional object yields nil without error.
func (r *Record) Object(name string) (Persistable, error) {
	if v, ok := r.Get(name); ok && v.Kind == KindNull {
		return nil, nil
	}
	v, err := r.typed(name, KindObject)
	if err != nil {
		return nil, err
	}
	if r.reg == nil {
		return nil, fmt.Errorf("%s.%s: nested object needs a registry-bound record", r.Type, name)
	}
	obj, err := r.reg.Deserialize(v.Object)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", r.Type, name, err)
	}
	return obj, nil
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Fields = make([]Field, len(r.Fields))
	for i, f := range r.Fields {
		out.Fields[i] = Field{Name: f.Name, Value: f.Value.clone()}
	}
	return &out
}

func (v Value) clone() Value {
	out := v
	if v.Strs != nil {
		out.Strs = make([]string, len(v.Strs))
		copy(out.Strs, v.Strs)
	}
	if v.Array != nil {
		out.Array = v.Array.Clone()
	}
	if v.Object != nil {
		out.Object = v.Object.Clone()
	}
	return out
}

// Equal reports whether two records carry the same type, version, links and field values.
// Float fields compare by bit pattern so NaN values round-trip as equal.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.Type != other.Type || r.Version != other.Version ||
		r.Producer != other.Producer || r.Upstream != other.Upstream ||
		len(r.Fields) != len(other.Fields) {
		return false
	}
	for i := range r.Fields {
		if r.Fields[i].Name != other.Fields[i].Name || !r.Fields[i].Value.Equal(other.Fields[i].Value) {
			return false
		}
	}
	return true
}

// Equal reports whether two values are identical.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return math.Float64bits(v.Float) == math.Float64bits(o.Float)
	case KindString:
		return v.Str == o.Str
	case KindStrings:
		if len(v.Strs) != len(o.Strs) {
			return false
		}
		for i := range v.Strs {
			if v.Strs[i] != o.Strs[i] {
				return false
			}
		}
		return true
	case KindArray:
		return v.Array.Equal(o.Array)
	case KindObject:
		return v.Object.Equal(o.Object)
	default:
		return false
	}
}
