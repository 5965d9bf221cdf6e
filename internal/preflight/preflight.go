// Package preflight validates the runtime environment before the daemon
// starts accepting conversions.
package preflight

import (
	"context"
	"fmt"
	"strings"

	"blogcast/internal/config"
	"blogcast/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable preflight check for the configuration.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Media directory", cfg.MediaDir),
		CheckDirectoryAccess("Log directory", cfg.LogDir),
		CheckDiskSpace("Media disk space", cfg.MediaDir, minFreeBytes),
	}

	for _, status := range deps.Check(cfg) {
		result := Result{Name: status.Name, Passed: status.Available}
		if status.Available {
			result.Detail = status.Command
		} else {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}

	results = append(results, CheckLLMKey(cfg))
	return results
}

// CheckLLMKey verifies that a script generator API key is configured. It
// deliberately does not call the API; reachability is probed lazily on the
// first conversion.
func CheckLLMKey(cfg *config.Config) Result {
	const name = "LLM API key"
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return Result{Name: name, Detail: "missing (set llm.api_key or BLOGCAST_LLM_API_KEY)"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// Failures filters results down to the failed checks.
func Failures(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// Summarize renders results as a short human-readable report.
func Summarize(results []Result) string {
	var b strings.Builder
	for _, result := range results {
		mark := "ok"
		if !result.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(&b, "%-4s %s", mark, result.Name)
		if result.Detail != "" {
			fmt.Fprintf(&b, ": %s", result.Detail)
		}
		b.WriteString("\n")
	}
	return b.String()
}
