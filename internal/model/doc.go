// Package model defines the shared domain types for the chat session core.
//
// Types here are plain data carriers with no behavior beyond formatting.
// Timestamps are integer microseconds since the Unix epoch throughout.
package model
