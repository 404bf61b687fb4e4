// Package transport implements the raw WebSocket channel to the messaging endpoint.
//
// The client:
//   - Dials with the session identity attached as headers
//   - Serializes writes and enforces write deadlines
//   - Delivers all inbound frames (events + command responses) on one channel
//   - Detects stale connections via ping/pong heartbeats
//
// Reconnection is owned by the session layer, not by this package.
package transport
