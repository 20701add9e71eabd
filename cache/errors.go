package cache

import "errors"

var (
	// ErrInvalidCapacity is returned when Options.Capacity is below 1.
	ErrInvalidCapacity = errors.New("cache: capacity must be > 0")

	// ErrInvalidEvictionCount is returned when Options.EvictionCount is below 1.
	ErrInvalidEvictionCount = errors.New("cache: eviction count must be > 0")

	// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
	ErrNoLoader = errors.New("cache: no Loader provided")

	// ErrClosed is returned by GetOrLoad after Close.
	ErrClosed = errors.New("cache: closed")

	// ErrCorrupted marks a broken internal invariant. It is never returned;
	// the engine panics with an error wrapping it.
	ErrCorrupted = errors.New("cache: internal invariant violated")
)
