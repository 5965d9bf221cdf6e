// Package logging wraps log/slog with the handlers and helpers the rest of
// the application builds on: a human-oriented console handler, a JSON handler
// for log files, component loggers, and context-derived attributes carrying
// task and stage identifiers.
package logging
