// Package params aggregates raw JSON parameter cells into an ordered
// configuration set. Each cell holds a JSON object literal; top-level keys
// seen more than once are merged into ordered lists. The set drives column
// mapping and table building for a synchronization run.
package params

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reserved keys. Both are scalar-only and excluded from grouping.
const (
	KeyInputSheet = "Input Sheet"
	KeyHeaderRow  = "Table Header Row"
)

// ParseError reports a parameter cell that failed to parse as JSON.
// Row is 1-based within the parameter column.
type ParseError struct {
	Row int
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parameter row %d: invalid JSON: %v", e.Row, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigurationError reports a missing or malformed required parameter,
// or an input sheet that does not exist.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Reason
}

// Value is the merged value for one top-level key: a scalar until the key
// is seen a second time, a list from then on.
type Value struct {
	scalar any
	list   []any
	isList bool
}

// IsList reports whether the key occurred more than once.
func (v *Value) IsList() bool { return v.isList }

// Scalar returns the value as stored for a single-occurrence key.
// For list values it returns nil.
func (v *Value) Scalar() any {
	if v.isList {
		return nil
	}
	return v.scalar
}

// Norm normalizes the value to a list. A scalar that is itself a JSON array
// yields its elements; any other scalar is wrapped. Consumers that do not
// care about cardinality iterate this.
func (v *Value) Norm() []any {
	if v.isList {
		return v.list
	}
	if arr, ok := v.scalar.([]any); ok {
		return arr
	}
	return []any{v.scalar}
}

func (v *Value) append(item any) {
	if !v.isList {
		if arr, ok := v.scalar.([]any); ok {
			v.list = append([]any(nil), arr...)
		} else {
			v.list = []any{v.scalar}
		}
		v.scalar = nil
		v.isList = true
	}
	v.list = append(v.list, item)
}

// Set is the aggregated configuration. Key order is insertion order of the
// first occurrence, which downstream components rely on for deterministic
// group iteration.
type Set struct {
	order  []string
	values map[string]*Value
}

// Aggregate parses an ordered sequence of raw parameter cells into a Set.
//
// The first cell is probed once: if it does not parse as JSON it is treated
// as a column header and skipped. This is a one-shot classification, not a
// per-row rule; a run whose first real parameter row is malformed loses that
// row silently. Blank cells anywhere are skipped. Any other cell that fails
// to parse aborts the load with a *ParseError carrying the 1-based row.
func Aggregate(cells []string) (*Set, error) {
	set := &Set{values: make(map[string]*Value)}

	start := 0
	if len(cells) > 0 {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal([]byte(cells[0]), &probe); err != nil {
			start = 1 // header row
		}
	}

	for i := start; i < len(cells); i++ {
		cell := cells[i]
		if strings.TrimSpace(cell) == "" {
			continue
		}

		var obj map[string]any
		dec := json.NewDecoder(strings.NewReader(cell))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil {
			return nil, &ParseError{Row: i + 1, Err: err}
		}

		// json decoding randomizes map order; recover the document order of
		// the top-level keys so duplicate merging is deterministic.
		for _, key := range topLevelKeyOrder(cell) {
			val, ok := obj[key]
			if !ok {
				continue
			}
			set.add(key, val)
		}
	}

	return set, nil
}

func (s *Set) add(key string, val any) {
	if existing, ok := s.values[key]; ok {
		existing.append(val)
		return
	}
	s.order = append(s.order, key)
	s.values[key] = &Value{scalar: val}
}

// Get returns the merged value for key.
func (s *Set) Get(key string) (*Value, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Keys returns all keys in insertion order.
func (s *Set) Keys() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Groups returns the grouping keys (all keys except the reserved two) in
// insertion order.
func (s *Set) Groups() []string {
	var out []string
	for _, k := range s.order {
		if k == KeyInputSheet || k == KeyHeaderRow {
			continue
		}
		out = append(out, k)
	}
	return out
}

// InputSheet returns the configured input sheet name.
func (s *Set) InputSheet() (string, error) {
	v, ok := s.values[KeyInputSheet]
	if !ok {
		return "", &ConfigurationError{Reason: fmt.Sprintf("required parameter %q is missing", KeyInputSheet)}
	}
	name, ok := reservedName(v)
	if !ok {
		return "", &ConfigurationError{Reason: fmt.Sprintf("parameter %q must hold {Name: <sheet>}", KeyInputSheet)}
	}
	str, ok := name.(string)
	if !ok || str == "" {
		return "", &ConfigurationError{Reason: fmt.Sprintf("parameter %q has no sheet name", KeyInputSheet)}
	}
	return str, nil
}

// HeaderRow returns the configured 1-based header row number.
func (s *Set) HeaderRow() (int, error) {
	v, ok := s.values[KeyHeaderRow]
	if !ok {
		return 0, &ConfigurationError{Reason: fmt.Sprintf("required parameter %q is missing", KeyHeaderRow)}
	}
	name, ok := reservedName(v)
	if !ok {
		return 0, &ConfigurationError{Reason: fmt.Sprintf("parameter %q must hold {Name: <row>}", KeyHeaderRow)}
	}
	row, ok := toInt(name)
	if !ok || row < 1 {
		return 0, &ConfigurationError{Reason: fmt.Sprintf("parameter %q has no valid row number", KeyHeaderRow)}
	}
	return row, nil
}

// reservedName unwraps the {Name: ...} envelope of a reserved parameter.
// Reserved keys are scalar-only; a duplicated reserved key fails here.
func reservedName(v *Value) (any, bool) {
	if v.IsList() {
		return nil, false
	}
	obj, ok := v.Scalar().(map[string]any)
	if !ok {
		return nil, false
	}
	name, ok := obj["Name"]
	return name, ok
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// topLevelKeyOrder re-tokenizes a JSON object literal to recover the order
// of its top-level keys. A key repeated within the literal is reported once,
// at its first position; the decoded map already holds its last value.
func topLevelKeyOrder(raw string) []string {
	dec := json.NewDecoder(strings.NewReader(raw))

	var keys []string
	seen := make(map[string]bool)
	depth := 0
	expectKey := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{':
				depth++
				expectKey = depth == 1
			case '}':
				depth--
				expectKey = false
			case '[', ']':
				expectKey = false
			}
		case string:
			if depth == 1 && expectKey {
				if !seen[t] {
					seen[t] = true
					keys = append(keys, t)
				}
				// the next token is this key's value; skip it wholesale
				var discard json.RawMessage
				if err := dec.Decode(&discard); err != nil {
					return keys
				}
			}
		}
	}
	return keys
}
