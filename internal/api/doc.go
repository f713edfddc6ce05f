// Package api exposes review sessions over HTTP. It translates requests into
// review.Service calls and maps service errors to status codes without
// leaking internal detail.
package api
