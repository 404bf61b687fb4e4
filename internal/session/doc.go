// Package session owns the realtime chat channel for one signed-in user.
//
// A Session multiplexes everything over a single websocket connection: at
// most one live room subscription, optimistic sends reconciled against
// server-confirmed events, fire-and-forget read receipts, and automatic
// reconnection with exponential backoff. Commands (subscribe, unsubscribe,
// publish) are correlated to their responses by id; data events are routed
// by their type field and filtered to the active room.
//
// The session is injected, not global: the owning component constructs it,
// calls Connect once, and Disconnect on teardown. Both calls are idempotent,
// so double-mounting a view never produces a duplicate channel.
package session
