// Package textutil provides small text helpers shared across the pipeline:
// filename sanitation for artifact names and whitespace normalization for
// scraped article content.
package textutil
