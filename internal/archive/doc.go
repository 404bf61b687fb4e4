// Package archive keeps an optional local transcript of confirmed messages.
//
// Confirmed messages from the session are queued and batch-inserted into
// PostgreSQL with COPY, flushing on batch size or interval, whichever comes
// first. The archive is best-effort: a full buffer drops rather than blocks,
// and write failures never surface into the chat path.
package archive
