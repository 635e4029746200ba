// Package pipeline orchestrates file discovery, per-file planning and
// execution, and batch summary reporting.
//
//   - Discover: expand file and directory inputs, pruning extras (discover.go)
//   - Run: probe, plan, log directives, then render or execute with retry
//     (runner.go)
//   - output naming with duplicate suffixes (output.go)
//   - RunStats (stats.go)
package pipeline
