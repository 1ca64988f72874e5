package schema

import "sort"

func sortSubFieldKeys(keys []string, fields map[string]SubField) {
	sort.SliceStable(keys, func(i, j int) bool {
		left, right := fields[keys[i]], fields[keys[j]]
		if left.Order != right.Order {
			return left.Order < right.Order
		}
		return keys[i] < keys[j]
	})
}

// SortFields orders fields by their UI order hint, keeping declaration order
// for ties. The input slice is not modified.
func SortFields(fields []Field) []Field {
	out := append([]Field(nil), fields...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UI.Order < out[j].UI.Order
	})
	return out
}
