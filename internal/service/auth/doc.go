// Package auth issues and validates the HMAC-signed bearer tokens that
// identify a learner to the HTTP API.
package auth
