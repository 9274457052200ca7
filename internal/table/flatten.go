package table

// FlatRecord is a record with every nested group hoisted to the top level,
// the shape transmitted to the remote store.
type FlatRecord map[string]any

// Flatten hoists a Record into a single flat field map.
//
// Single-column groups contribute their field directly; nested groups
// contribute each inner field at the top level. Groups are processed in
// record (configuration) order, so on a field-name collision the last group
// wins. The transform is pure: the input record is not modified.
func Flatten(rec Record) FlatRecord {
	out := make(FlatRecord)
	for _, g := range rec.Groups {
		if !g.Nested() {
			out[g.Single.Name] = g.Single.Value
			continue
		}
		for _, f := range g.Fields {
			out[f.Name] = f.Value
		}
	}
	return out
}

// FlattenAll flattens every record in order.
func FlattenAll(recs []Record) []FlatRecord {
	out := make([]FlatRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Flatten(rec))
	}
	return out
}
