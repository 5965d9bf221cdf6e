// Package llm provides an OpenRouter-compatible chat client used by the
// script generation stage.
//
// The client sends the article text with a structured dialogue prompt and
// returns the plain-text two-host script. NewClient constructs a client
// from Config; Client.GenerateScript is the main entry point and
// Client.HealthCheck verifies the API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default).
// Retry-After headers are honored. Context cancellation aborts retries
// immediately.
package llm
