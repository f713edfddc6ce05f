// Package srs implements spaced-repetition scheduling. The Engine interface
// maps (item, rating, now) to the item's next scheduling state; NewEngine
// provides the two-valued SM-2 variant and NewExternalEngine adapts an
// alternative memory model behind the same contract.
package srs
