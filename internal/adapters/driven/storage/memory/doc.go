// Package memory provides in-memory implementations of the storage ports.
// They are used by tests and by ephemeral sessions that should leave
// nothing on disk.
package memory
