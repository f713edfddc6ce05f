package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/scry-drill/internal/domain"
)

// Common errors
var (
	ErrNilItem = errors.New("item cannot be nil")

	// ErrSchedulingUnavailable means the engine could not produce a schedule.
	// Callers must not substitute a default interval.
	ErrSchedulingUnavailable = errors.New("scheduling engine unavailable")
)

// Engine computes the next scheduling state of an item after a review.
// Implementations are pure: they return a new item and never modify the input.
type Engine interface {
	Schedule(item *domain.Item, rating domain.Rating, now time.Time) (*domain.Item, error)
}

// sm2Engine is the two-valued SM-2 variant: Good and Easy count as "knew it",
// Again and Hard as "did not know".
type sm2Engine struct {
	params *Params
}

// NewDefaultEngine creates the SM-2 engine with default parameters
func NewDefaultEngine() Engine {
	return &sm2Engine{params: NewDefaultParams()}
}

// NewEngine creates the SM-2 engine with custom parameters
func NewEngine(params *Params) Engine {
	if params == nil {
		params = NewDefaultParams()
	}
	return &sm2Engine{params: params}
}

// Schedule implements Engine.
func (e *sm2Engine) Schedule(item *domain.Item, rating domain.Rating, now time.Time) (*domain.Item, error) {
	if item == nil {
		return nil, ErrNilItem
	}
	if !rating.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidRating, int(rating))
	}

	return calculateNextItem(item, rating, now, e.params), nil
}

// externalEngine adapts a pluggable memory model to the Engine contract.
type externalEngine struct {
	backend Engine
}

// NewExternalEngine wraps an alternative scheduling backend, for example a
// continuous stability/difficulty model served by another component. Any
// backend failure, and any result that breaks the item invariants, is
// reported as ErrSchedulingUnavailable. There is no fallback schedule.
func NewExternalEngine(backend Engine) Engine {
	return &externalEngine{backend: backend}
}

// Schedule implements Engine.
func (e *externalEngine) Schedule(item *domain.Item, rating domain.Rating, now time.Time) (*domain.Item, error) {
	if item == nil {
		return nil, ErrNilItem
	}
	if !rating.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidRating, int(rating))
	}
	if e.backend == nil {
		return nil, fmt.Errorf("%w: no backend configured", ErrSchedulingUnavailable)
	}

	next, err := e.backend.Schedule(item.Clone(), rating, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchedulingUnavailable, err)
	}
	if next == nil {
		return nil, fmt.Errorf("%w: backend returned no item", ErrSchedulingUnavailable)
	}
	if next.ID != item.ID || next.OwnerID != item.OwnerID {
		return nil, fmt.Errorf("%w: backend changed item identity", ErrSchedulingUnavailable)
	}
	if err := next.ValidateSchedule(); err != nil {
		return nil, fmt.Errorf("%w: invalid schedule: %v", ErrSchedulingUnavailable, err)
	}

	return next, nil
}

// Preview returns, for every rating, how long until the item would be due
// again if that rating were given now. Negative delays are reported as zero.
func Preview(engine Engine, item *domain.Item, now time.Time) (map[domain.Rating]time.Duration, error) {
	delays := make(map[domain.Rating]time.Duration, len(domain.Ratings))
	for _, r := range domain.Ratings {
		next, err := engine.Schedule(item, r, now)
		if err != nil {
			return nil, err
		}
		delays[r] = max(next.DueAt.Sub(now), 0)
	}
	return delays, nil
}
