package pointer

// To returns a pointer to a copy of value.
func To[T any](value T) *T {
	return &value
}

// Uint64 returns a pointer to the provided uint64 value
func Uint64(value uint64) *uint64 {
	return &value
}
