package helper

import "fmt"

// TypedValueOf asserts the result of a getter to the expected type T.
// Returns an error when the getter fails or the assertion does not hold.
func TypedValueOf[T any](getFn func() (any, error)) (T, error) {
	var zero T

	raw, err := getFn()
	if err != nil {
		return zero, fmt.Errorf("failed to get value: %w", err)
	}

	val, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected type: %T", raw)
	}

	return val, nil
}

// TypedValueOf2 is the comma-ok variant of TypedValueOf: a missing value and
// a mis-typed value both report false.
func TypedValueOf2[T any](getFn func() (any, bool)) (res T, ok bool) {
	var raw any
	if raw, ok = getFn(); ok {
		res, ok = raw.(T)
	}
	return
}

// MustTypedValue is the panic-on-failure variant of TypedValueOf.
// Use when failure should be fatal, e.g. when the value is guaranteed to exist.
func MustTypedValue[T any](getFn func() (any, error)) T {
	res, err := TypedValueOf[T](getFn)
	if err != nil {
		panic(err)
	}
	return res
}
