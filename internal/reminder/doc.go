// Package reminder nudges learners to review at their configured local
// times.
//
// Scheduler decides who is eligible at a given instant, Job starts a review
// session for each eligible learner and hands the first item to a Notifier,
// and Ticker runs the job and the idle session sweep on cron schedules.
package reminder
