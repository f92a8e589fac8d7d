package model

import "fmt"

// RawData is the tree of upstream documents collected by scrapers for one
// package, keyed by scraper name. Only metric extractors look inside it.
type RawData map[string]any

// Fragment returns the fragment stored under key as a T.
// A missing fragment or one of another type is an extraction failure.
func Fragment[T any](raw RawData, key string) (T, error) {
	var zero T

	v, ok := raw[key]
	if !ok || v == nil {
		return zero, fmt.Errorf("%w: no %q data collected", ErrExtraction, key)
	}

	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q data has unexpected type %T", ErrExtraction, key, v)
	}

	return typed, nil
}
