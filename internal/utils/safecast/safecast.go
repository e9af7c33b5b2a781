// Package safecast implements overflow-checked integer conversions.
package safecast

import (
	"fmt"
	"math"

	"github.com/spf13/cast"
)

const errRangeExceeded = "value %d exceeds %s range"

// IntToUint8 converts an int to uint8, erroring on overflow or negatives.
func IntToUint8(value int) (uint8, error) {
	if value < 0 || value > math.MaxUint8 {
		return 0, fmt.Errorf(errRangeExceeded, value, "uint8")
	}

	return cast.ToUint8E(value)
}

// IntToUint32 converts an int to uint32, erroring on overflow or negatives.
func IntToUint32(value int) (uint32, error) {
	if value < 0 || value > math.MaxUint32 {
		return 0, fmt.Errorf(errRangeExceeded, value, "uint32")
	}

	return cast.ToUint32E(value)
}

// Uint64ToUint8 converts a uint64 to uint8, erroring on overflow.
func Uint64ToUint8(value uint64) (uint8, error) {
	if value > math.MaxUint8 {
		return 0, fmt.Errorf(errRangeExceeded, value, "uint8")
	}

	return cast.ToUint8E(value)
}

// Uint64ToUint32 converts a uint64 to uint32, erroring on overflow.
func Uint64ToUint32(value uint64) (uint32, error) {
	if value > math.MaxUint32 {
		return 0, fmt.Errorf(errRangeExceeded, value, "uint32")
	}

	return cast.ToUint32E(value)
}

// Uint64ToInt64 converts a uint64 to int64, erroring on overflow.
func Uint64ToInt64(value uint64) (int64, error) {
	if value > math.MaxInt64 {
		return 0, fmt.Errorf(errRangeExceeded, value, "int64")
	}

	return cast.ToInt64E(value)
}
