// Package state holds the lifecycle type every manager publishes to its readers.
package state

// Phase is the active variant of a DataState
type Phase int

const (
	PhaseIdle    Phase = iota // never requested
	PhaseLoading              // fetch in flight
	PhaseLoaded               // last fetch succeeded
	PhaseFailed               // last fetch failed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// DataState is an immutable snapshot of an asynchronous resource.
//
// Exactly one phase is active. Loading and Failed keep the payload of the last
// successful load (if any) so readers can keep rendering it; the phase still
// tells them the payload is not fresh.
type DataState[T any] struct {
	phase   Phase
	data    T
	hasData bool
	err     error
}

// Idle returns the state of a resource that has never been requested
func Idle[T any]() DataState[T] {
	return DataState[T]{phase: PhaseIdle}
}

// Loaded returns a successful state carrying v
func Loaded[T any](v T) DataState[T] {
	return DataState[T]{phase: PhaseLoaded, data: v, hasData: true}
}

// ToLoading moves to Loading, keeping the last good payload
func (s DataState[T]) ToLoading() DataState[T] {
	return DataState[T]{phase: PhaseLoading, data: s.data, hasData: s.hasData}
}

// ToFailed moves to Failed with err, keeping the last good payload
func (s DataState[T]) ToFailed(err error) DataState[T] {
	return DataState[T]{phase: PhaseFailed, data: s.data, hasData: s.hasData, err: err}
}

// WithData replaces the payload without changing the phase. States without a
// payload are returned unchanged.
func (s DataState[T]) WithData(v T) DataState[T] {
	if !s.hasData {
		return s
	}
	s.data = v
	return s
}

// Phase returns the active variant
func (s DataState[T]) Phase() Phase { return s.phase }

// Data returns the payload, or the zero value (empty collection) when there is none
func (s DataState[T]) Data() T { return s.data }

// HasData reports whether a payload from a successful load is present
func (s DataState[T]) HasData() bool { return s.hasData }

// IsLoading reports whether a fetch is in flight
func (s DataState[T]) IsLoading() bool { return s.phase == PhaseLoading }

// IsLoaded reports whether the last fetch succeeded
func (s DataState[T]) IsLoaded() bool { return s.phase == PhaseLoaded }

// Err returns the failure of the last fetch, nil unless the phase is Failed
func (s DataState[T]) Err() error { return s.err }
