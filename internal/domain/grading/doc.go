// Package grading classifies typed answers and infers review ratings from them.
package grading
