// Package queue persists conversion tasks in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, and the status transitions pending -> processing -> completed or
// failed. Writers update individual columns so concurrent goroutines never
// overwrite fields they do not own, and progress updates are monotonic.
//
// The database is treated as transient storage for in-flight jobs rather
// than a long-term archive. Schema changes bump the version in schema.go;
// users clear the database to adopt the new schema.
package queue
