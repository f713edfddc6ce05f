// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the review logic; postgres and in-memory implementations live under
// internal/platform.
package store
