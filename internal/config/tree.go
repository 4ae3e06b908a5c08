package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrWrongType is wrapped by errors for values of an unexpected shape.
var ErrWrongType = errors.New("wrong value type")

// Table is a generic configuration tree. Values are string, int64, float64,
// bool, time.Time, []any or Table.
type Table map[string]any

func splitPath(key string) []string {
	return strings.Split(key, ".")
}

// Get looks up a dotted path such as "output.html.theme".
func (t Table) Get(key string) (any, bool) {
	var cur any = t
	for _, part := range splitPath(key) {
		tbl, ok := cur.(Table)
		if !ok {
			return nil, false
		}
		cur, ok = tbl[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Insert sets a dotted path, creating intermediate tables. A non-table
// value in the way is replaced.
func (t Table) Insert(key string, value any) {
	parts := splitPath(key)
	cur := t
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(Table)
		if !ok {
			next = Table{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = Normalize(value)
}

// Delete removes a dotted path and returns the removed value.
func (t Table) Delete(key string) (any, bool) {
	parts := splitPath(key)
	cur := t
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(Table)
		if !ok {
			return nil, false
		}
		cur = next
	}
	last := parts[len(parts)-1]
	v, ok := cur[last]
	if ok {
		delete(cur, last)
	}
	return v, ok
}

// String returns the string at key. The bool reports presence.
func (t Table) String(key string) (string, bool, error) {
	v, ok := t.Get(key)
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", true, typeError(key, "string", v)
	}
	return s, true, nil
}

// Bool returns the boolean at key. The second result reports presence.
func (t Table) Bool(key string) (bool, bool, error) {
	v, ok := t.Get(key)
	if !ok {
		return false, false, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, true, typeError(key, "boolean", v)
	}
	return b, true, nil
}

// StringSlice returns the array of strings at key.
func (t Table) StringSlice(key string) ([]string, bool, error) {
	v, ok := t.Get(key)
	if !ok {
		return nil, false, nil
	}
	arr, isArr := v.([]any)
	if !isArr {
		return nil, true, typeError(key, "array of strings", v)
	}
	out := make([]string, 0, len(arr))
	for i, elem := range arr {
		s, isString := elem.(string)
		if !isString {
			return nil, true, typeError(fmt.Sprintf("%s[%d]", key, i), "string", elem)
		}
		out = append(out, s)
	}
	return out, true, nil
}

// Table returns the sub-table at key.
func (t Table) Table(key string) (Table, bool, error) {
	v, ok := t.Get(key)
	if !ok {
		return nil, false, nil
	}
	tbl, isTable := v.(Table)
	if !isTable {
		return nil, true, typeError(key, "table", v)
	}
	return tbl, true, nil
}

// Clone returns a deep copy of the tree.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	return cloneValue(t).(Table)
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case Table:
		out := make(Table, len(x))
		for k, elem := range x {
			out[k] = cloneValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, elem := range x {
			out[i] = cloneValue(elem)
		}
		return out
	default:
		return v
	}
}

func typeError(key, want string, got any) error {
	return fmt.Errorf("%w: %q must be a %s, found %s", ErrWrongType, key, want, TypeName(got))
}

// TypeName names the configuration type of v for error messages.
func TypeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case int64:
		return "integer"
	case float64:
		return "float"
	case bool:
		return "boolean"
	case time.Time:
		return "datetime"
	case []any:
		return "array"
	case Table:
		return "table"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Normalize converts decoder output (TOML or JSON) into the canonical
// value types of a Table.
func Normalize(v any) any {
	switch x := v.(type) {
	case Table:
		out := make(Table, len(x))
		for k, elem := range x {
			out[k] = Normalize(elem)
		}
		return out
	case map[string]any:
		out := make(Table, len(x))
		for k, elem := range x {
			out[k] = Normalize(elem)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, elem := range x {
			out[i] = Normalize(elem)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, elem := range x {
			out[i] = Normalize(elem)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, elem := range x {
			out[i] = elem
		}
		return out
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
