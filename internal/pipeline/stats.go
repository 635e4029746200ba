package pipeline

// RunStats tracks aggregate counters and byte totals across a batch run.
type RunStats struct {
	Total            int
	Current          int
	Planned          int // Rendered (dry run) or written.
	Skipped          int // Nothing to change, or nothing to map.
	Failed           int
	PartialFiles     int // Planned with at least one failed analysis stage.
	TotalInputBytes  int64
	TotalOutputBytes int64
}

// SpaceSaved returns the aggregate byte difference between inputs and outputs.
// Positive means outputs are smaller; negative means they grew.
func (s *RunStats) SpaceSaved() int64 {
	return s.TotalInputBytes - s.TotalOutputBytes
}

// ExitCode is 1 when any file failed, else 0.
func (s *RunStats) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}
