package utils

import "fmt"

// SafeIntToUint safely converts int to uint with validation.
// Returns error if value is negative.
func SafeIntToUint(val int) (uint, error) {
	if val < 0 {
		return 0, fmt.Errorf("cannot convert negative int %d to uint", val)
	}
	return uint(val), nil
}

// MustIntToUint converts int to uint, panics on negative values.
// Only use in contexts where negative values are impossible.
func MustIntToUint(val int) uint {
	if val < 0 {
		panic(fmt.Sprintf("unexpected negative value %d in MustIntToUint", val))
	}
	return uint(val)
}
