// Package cache provides the TTL entry and the single-flight refresh cycle the
// managers build on.
package cache

import "time"

// Entry is a timestamped value with a time-to-live. Entries are never mutated:
// a refresh replaces the whole entry.
type Entry[T any] struct {
	Data       T
	CapturedAt time.Time
	TTL        time.Duration
}

// NewEntry captures data at capturedAt
func NewEntry[T any](data T, capturedAt time.Time, ttl time.Duration) *Entry[T] {
	return &Entry[T]{Data: data, CapturedAt: capturedAt, TTL: ttl}
}

// IsExpired reports whether more than TTL has elapsed since CapturedAt
func (e *Entry[T]) IsExpired(now time.Time) bool {
	return now.Sub(e.CapturedAt) > e.TTL
}

// WithData returns a new entry holding data with the same capture time and TTL
func (e *Entry[T]) WithData(data T) *Entry[T] {
	return &Entry[T]{Data: data, CapturedAt: e.CapturedAt, TTL: e.TTL}
}
