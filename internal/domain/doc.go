// Package domain contains the core review entities: items and their scheduling
// fields, ratings, the append-only review log, and the learner's scheduling
// context. It has no knowledge of storage or transport.
package domain
