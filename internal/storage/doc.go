// Package storage persists small JSON values under string keys.
//
// A Store keeps an in-memory mirror of every value it has seen so readers
// observe their own writes immediately; the durable write to the Backend is
// queued on a single writer goroutine and is not awaited by callers. Backends
// that can observe changes made by another app instance (another process
// sharing the same database or directory) implement Notifier, and the Store
// fans those changes out to per-key subscribers.
//
// Failures against the backend never reach callers: reads fall back to the
// caller's default and failed writes are logged as warnings.
package storage
