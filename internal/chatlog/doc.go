// Package chatlog implements the per-room message reconciliation log.
//
// The log merges optimistic local sends with server-confirmed events using
// the client-generated tempId as the correlation key. Invariant: every entry
// is reachable by exactly one of {tempId, id} at any point in its life.
package chatlog
