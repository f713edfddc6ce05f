package srs

import (
	"math"
	"time"

	"github.com/phrazzld/scry-drill/internal/domain"
)

// calculateNewEaseFactor determines the new ease factor after a review.
//
// A lapse always costs EasePenalty. A successful review only earns EaseBonus
// once the item is past its two fixed learning steps, so early successes do
// not inflate the multiplier. The result is clamped to
// [params.MinEaseFactor, params.MaxEaseFactor].
func calculateNewEaseFactor(
	currentEF float64,
	recalled bool,
	repetitions int,
	params *Params,
) float64 {
	newEF := currentEF
	switch {
	case !recalled:
		newEF -= params.EasePenalty
	case repetitions > 2:
		newEF += params.EaseBonus
	}

	return clampEase(newEF, params)
}

// calculateNewInterval determines the next interval in days.
//
// Parameters:
//   - previousInterval: the interval before this review
//   - repetitions: the repetition count after this review
//   - easeFactor: the ease factor before this review's adjustment
//   - recalled: whether the learner knew the item
//
// Algorithm behavior:
//   - Lapse: interval resets to 0 (the item returns within minutes)
//   - First repetition: params.FirstInterval (1 day)
//   - Second repetition: params.SecondInterval (3 days)
//   - Later repetitions: previousInterval × easeFactor, rounded half to even
//
// A recalled item never gets a zero-day interval, even if its stored
// interval was inconsistent.
func calculateNewInterval(
	previousInterval int,
	repetitions int,
	easeFactor float64,
	recalled bool,
	params *Params,
) int {
	if !recalled {
		return 0
	}

	switch repetitions {
	case 1:
		return params.FirstInterval
	case 2:
		return params.SecondInterval
	}

	interval := int(math.RoundToEven(float64(previousInterval) * easeFactor))
	return max(interval, 1)
}

// calculateNextDue converts an interval into the next due instant.
// Lapsed items come back after params.RelearnDelay; everything else after
// the interval in whole calendar days.
func calculateNextDue(interval int, recalled bool, now time.Time, params *Params) time.Time {
	if !recalled {
		return now.Add(params.RelearnDelay)
	}
	return now.AddDate(0, 0, interval)
}

// calculateNextItem returns a copy of item rescheduled for the given rating.
// The input is never modified. now is cut to whole microseconds, the
// precision of a Postgres timestamptz, so the stored schedule matches the
// returned one.
func calculateNextItem(
	item *domain.Item,
	rating domain.Rating,
	now time.Time,
	params *Params,
) *domain.Item {
	now = now.UTC().Truncate(time.Microsecond)
	recalled := rating.Recalled()
	next := item.Clone()

	if recalled {
		next.Repetitions++
	} else {
		next.Repetitions = 0
	}

	next.IntervalDays = calculateNewInterval(
		item.IntervalDays,
		next.Repetitions,
		clampEase(item.EaseFactor, params),
		recalled,
		params,
	)
	next.EaseFactor = calculateNewEaseFactor(item.EaseFactor, recalled, next.Repetitions, params)
	next.DueAt = calculateNextDue(next.IntervalDays, recalled, now, params)
	next.IsLearned = domain.IsLearnedInterval(next.IntervalDays)
	next.LastReviewedAt = now
	next.UpdatedAt = now

	return next
}

func clampEase(ef float64, params *Params) float64 {
	// Round away float noise such as 2.3000000000000003 so stored values
	// survive a storage round-trip unchanged.
	ef = math.Round(ef*1e6) / 1e6
	if ef < params.MinEaseFactor {
		return params.MinEaseFactor
	}
	if ef > params.MaxEaseFactor {
		return params.MaxEaseFactor
	}
	return ef
}
