package jotai

// extendSlice extends a slice by n elements, reallocating if necessary.
func extendSlice[T any](s []T, n int) []T {
	newLen := len(s) + n
	if cap(s) >= newLen {
		return s[:newLen]
	}
	newCap := max(2*cap(s), newLen)
	ns := make([]T, newLen, newCap)
	copy(ns, s)
	return ns
}

// fillSlice sets every element of s to x, doubling the filled prefix with
// copy so large fills run as bulk moves.
func fillSlice[T any](s []T, x T) {
	if len(s) == 0 {
		return
	}
	s[0] = x
	for filled := 1; filled < len(s); filled *= 2 {
		copy(s[filled:], s[:filled])
	}
}
