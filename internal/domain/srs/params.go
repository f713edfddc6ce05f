package srs

import (
	"time"

	"github.com/phrazzld/scry-drill/internal/domain"
)

// Params defines all configurable parameters for the scheduling algorithm
type Params struct {
	// Core limits
	MinEaseFactor float64
	MaxEaseFactor float64

	// Ease adjustments. EaseBonus applies to recalled items from the third
	// repetition on; EasePenalty applies to every lapse.
	EaseBonus   float64
	EasePenalty float64

	// Fixed intervals for the first two successful repetitions
	FirstInterval  int
	SecondInterval int

	// RelearnDelay is how soon a lapsed item comes back, short enough to
	// reappear in the same session.
	RelearnDelay time.Duration
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	MinEaseFactor float64
	MaxEaseFactor float64

	EaseBonus   float64
	EasePenalty float64

	FirstInterval  int
	SecondInterval int

	RelearnDelay time.Duration
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor: domain.MinEaseFactor,
		MaxEaseFactor: domain.MaxEaseFactor,

		EaseBonus:   0.1,
		EasePenalty: 0.2,

		FirstInterval:  1,
		SecondInterval: 3,

		// Review again in 1 minute
		RelearnDelay: time.Minute,
	}
}

// NewParams creates a new Params instance with custom configuration.
// Zero-valued fields keep their defaults. Ease limits are clamped to the
// domain bounds so a misconfiguration cannot produce invalid items.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = max(config.MinEaseFactor, domain.MinEaseFactor)
	}
	if config.MaxEaseFactor > 0 {
		params.MaxEaseFactor = min(config.MaxEaseFactor, domain.MaxEaseFactor)
	}
	if params.MinEaseFactor > params.MaxEaseFactor {
		params.MinEaseFactor, params.MaxEaseFactor = domain.MinEaseFactor, domain.MaxEaseFactor
	}

	if config.EaseBonus > 0 {
		params.EaseBonus = config.EaseBonus
	}
	if config.EasePenalty > 0 {
		params.EasePenalty = config.EasePenalty
	}

	if config.FirstInterval > 0 {
		params.FirstInterval = config.FirstInterval
	}
	if config.SecondInterval > 0 {
		params.SecondInterval = config.SecondInterval
	}

	if config.RelearnDelay > 0 {
		params.RelearnDelay = config.RelearnDelay
	}

	return params
}
