// Package review drives per-learner review sessions.
//
// A Session is the pure state machine for one batch of due items. The
// Registry owns every live session and evicts idle ones. Service ties them
// to the stores: it selects due items, presents them, grades typed answers,
// and records each rating through Recorder so that the rescheduled item, its
// log entry, and the learner's daily counter are committed together.
package review
