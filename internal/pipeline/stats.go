package pipeline

// RunStats tracks aggregate counters and byte totals across a batch run.
type RunStats struct {
	Total     int
	Current   int
	Converted int
	Skipped   int
	Failed    int
	// Unverified counts conversions that succeeded but whose output did
	// not pass (or could not complete) verification.
	Unverified       int
	TotalInputBytes  int64
	TotalOutputBytes int64
}

// OK reports whether every discovered file was converted or skipped.
func (s *RunStats) OK() bool {
	return s.Failed == 0
}
