// Package mapping resolves configured field-mapping groups against a header
// row, producing per-group ordered lists of (output field, column index)
// pairs for the table builder.
package mapping

import (
	"log/slog"
	"strings"

	"github.com/evanrobinson2/olisync/internal/params"
)

// Keys every mapping entry must carry. Entries missing either are skipped
// before the header scan.
const (
	labelKey = "object_label"
	fieldKey = "object_api_name"
)

// Column pairs a remote output field name with the header column index it
// was matched to.
type Column struct {
	Field string
	Index int
}

// Group is one grouping key's resolved mapping. Columns preserves the order
// the entries appeared in the configuration; it may be empty when no label
// matched the header.
type Group struct {
	Key     string
	Columns []Column
}

// Resolved holds all groups in configuration order.
type Resolved struct {
	groups []Group
}

// Groups returns the resolved groups in configuration order.
func (r *Resolved) Groups() []Group { return r.groups }

// Group returns the resolved group for key.
func (r *Resolved) Group(key string) (Group, bool) {
	for _, g := range r.groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{}, false
}

// Resolve matches every grouping key's entries against the header row.
//
// Labels are trimmed and compared case-sensitively against trimmed header
// cells, scanning left to right; the first match wins. An unmatched label is
// logged and dropped without failing the run, so one renamed spreadsheet
// column costs a single field, not the whole synchronization.
func Resolve(set *params.Set, header []string, logger *slog.Logger) *Resolved {
	if logger == nil {
		logger = slog.Default()
	}

	resolved := &Resolved{}
	for _, key := range set.Groups() {
		val, ok := set.Get(key)
		if !ok {
			continue
		}

		group := Group{Key: key}
		for _, entry := range val.Norm() {
			label, field, ok := mappingEntry(entry)
			if !ok {
				continue
			}

			idx := findColumn(header, label)
			if idx < 0 {
				logger.Warn("header label not found, mapping dropped",
					"group", key,
					"label", label,
					"field", field,
				)
				continue
			}
			group.Columns = append(group.Columns, Column{Field: field, Index: idx})
		}
		resolved.groups = append(resolved.groups, group)
	}
	return resolved
}

// mappingEntry extracts the label and output field from one configuration
// entry. Both must be non-empty strings.
func mappingEntry(entry any) (label, field string, ok bool) {
	obj, isObj := entry.(map[string]any)
	if !isObj {
		return "", "", false
	}
	label, _ = obj[labelKey].(string)
	field, _ = obj[fieldKey].(string)
	label = strings.TrimSpace(label)
	if label == "" || field == "" {
		return "", "", false
	}
	return label, field, true
}

// findColumn returns the index of the first header cell whose trimmed text
// equals label, or -1.
func findColumn(header []string, label string) int {
	for i, cell := range header {
		if strings.TrimSpace(cell) == label {
			return i
		}
	}
	return -1
}
