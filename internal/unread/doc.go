// Package unread derives the total unread badge from the room list.
//
// There is no dedicated unread endpoint; the badge is the sum of per-room
// unread counts from the same listing call the inbox renders. The Aggregator
// polls that listing on a visibility-gated timer and collapses concurrent
// refresh triggers (timer, focus, read broadcasts) into one request.
package unread
