// Package api implements the REST client for the backend collaborators:
// room listing, message history, room provisioning, and identity lookup.
//
// GETs retry with exponential backoff and jitter on retryable status codes.
// The provisioning POST is never retried; its failures surface to the caller.
package api
