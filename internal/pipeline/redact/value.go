// internal/pipeline/redact/value.go
package redact

import "sort"

// Kind discriminates the Value variants.
type Kind int

const (
	KindNull Kind = iota
	KindObject
	KindArray
	KindString
	KindNumber
	KindBool
)

// Value is a tagged variant over the JSON data model. The validator walks
// this tree instead of bare interface{} values so each case is handled
// explicitly.
type Value struct {
	Kind   Kind
	Object map[string]*Value
	Array  []*Value
	Str    string
	Num    float64
	Bool   bool
}

// FromAny converts a decoded JSON value into the tagged form. Unknown Go
// types become null.
func FromAny(v interface{}) *Value {
	switch typed := v.(type) {
	case nil:
		return &Value{Kind: KindNull}
	case map[string]interface{}:
		obj := make(map[string]*Value, len(typed))
		for k, child := range typed {
			obj[k] = FromAny(child)
		}
		return &Value{Kind: KindObject, Object: obj}
	case []interface{}:
		arr := make([]*Value, len(typed))
		for i, child := range typed {
			arr[i] = FromAny(child)
		}
		return &Value{Kind: KindArray, Array: arr}
	case string:
		return &Value{Kind: KindString, Str: typed}
	case float64:
		return &Value{Kind: KindNumber, Num: typed}
	case int:
		return &Value{Kind: KindNumber, Num: float64(typed)}
	case bool:
		return &Value{Kind: KindBool, Bool: typed}
	default:
		return &Value{Kind: KindNull}
	}
}

// ToAny converts back to the interface{} form used for JSON encoding.
func (v *Value) ToAny() interface{} {
	switch v.Kind {
	case KindObject:
		obj := make(map[string]interface{}, len(v.Object))
		for k, child := range v.Object {
			obj[k] = child.ToAny()
		}
		return obj
	case KindArray:
		arr := make([]interface{}, len(v.Array))
		for i, child := range v.Array {
			arr[i] = child.ToAny()
		}
		return arr
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	default:
		return nil
	}
}

// sortedKeys gives a deterministic walk order over object fields.
func sortedKeys(obj map[string]*Value) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
