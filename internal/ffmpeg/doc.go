// Package ffmpeg renders a planner.ChangeSet as one ffmpeg command and runs
// it, with retry classification for recoverable muxer failures.
//
//   - Build: ChangeSet to argument list (builder.go)
//   - Execute: run with captured (optionally tee'd) stderr (executor.go)
//   - RetryState.Advance: one fix per attempt, mux queue then timestamps
//     (retry.go, errors.go)
package ffmpeg
