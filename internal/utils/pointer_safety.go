package utils

// Value dereferences v, returning the zero value for nil. Optional JSON fields decode to pointers.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}
