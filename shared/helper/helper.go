package helper

import (
	"errors"
	"fmt"
	"time"
)

// GetTypedValueOf safely asserts the result of a getter function to the expected type T.
// Returns an error if type assertion fails.
func GetTypedValueOf[T any](getFn func() (any, error)) (T, error) {
	var zero T

	res, err := getFn()
	if err != nil {
		return zero, fmt.Errorf("failed to get value: %w", err)
	}

	val, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T", ErrUnexpectedType, res)
	}

	return val, nil
}

// MustGetTypedValue is the panic-on-failure variant of GetTypedValueOf.
func MustGetTypedValue[T any](getFn func() (any, error)) T {
	res, err := GetTypedValueOf[T](getFn)
	if err != nil {
		panic(err)
	}
	return res
}

var ErrUnexpectedType = errors.New("unexpected type")

// Cast asserts v to T. A nil v yields the zero T.
func Cast[T any](v any) (T, error) {
	if v == nil {
		var zero T
		return zero, nil
	}
	return GetTypedValueOf[T](func() (any, error) { return v, nil })
}

// MustCast is the panic-on-failure variant of Cast.
func MustCast[T any](v any) T {
	res, err := Cast[T](v)
	if err != nil {
		var zero T
		panic(fmt.Errorf("%w: want %T", err, zero))
	}
	return res
}

var ErrMaxAttempts = errors.New("max attempts reached")

// Retry calls fn until it succeeds or maxAttempts calls have failed,
// sleeping interval between attempts.
func Retry(maxAttempts int, interval time.Duration, fn func() error) error {
	numAttempts := 0
	for {
		err := fn()
		if err == nil {
			return nil
		}
		numAttempts++
		if numAttempts >= maxAttempts {
			return fmt.Errorf("%w: %d, %w", ErrMaxAttempts, numAttempts, err)
		}
		time.Sleep(interval)
	}
}
