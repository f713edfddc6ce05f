package grading

import (
	"time"

	"github.com/phrazzld/scry-drill/internal/domain"
)

// DefaultEasyLatency is the answer time under which an exact match counts as easy.
const DefaultEasyLatency = 5 * time.Second

// Inferrer derives a rating from a match classification and response latency.
// It is only used for typed answers; in reveal mode the learner rates directly.
type Inferrer struct {
	EasyLatency time.Duration
}

// NewInferrer creates an Inferrer. A non-positive latency uses DefaultEasyLatency.
func NewInferrer(easyLatency time.Duration) Inferrer {
	if easyLatency <= 0 {
		easyLatency = DefaultEasyLatency
	}
	return Inferrer{EasyLatency: easyLatency}
}

// Infer maps (match, latency) to a rating:
// quick exact → Easy, slow exact → Good, partial → Hard, wrong → Again.
func (in Inferrer) Infer(match Match, latency time.Duration) domain.Rating {
	threshold := in.EasyLatency
	if threshold <= 0 {
		threshold = DefaultEasyLatency
	}

	switch match {
	case MatchExact:
		if latency < threshold {
			return domain.RatingEasy
		}
		return domain.RatingGood
	case MatchPartial:
		return domain.RatingHard
	default:
		return domain.RatingAgain
	}
}

// Infer uses DefaultEasyLatency.
func Infer(match Match, latency time.Duration) domain.Rating {
	return Inferrer{EasyLatency: DefaultEasyLatency}.Infer(match, latency)
}
