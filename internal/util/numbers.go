package util

// MinOr returns the smaller of the non-nil values, or defaultValue when both are nil.
func MinOr(a, b *int, defaultValue int) int {
	if a == nil && b == nil {
		return defaultValue
	}
	if a == nil {
		return *b
	}
	if b == nil {
		return *a
	}
	return min(*a, *b)
}
