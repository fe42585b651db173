package ports

import "time"

// Recorder receives run statistics. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveBacktest(strategy string, trades int, elapsed time.Duration, err error)
	ObserveCombinations(outcome string, n int)
	ObserveFold(status string)
	ObserveSimulations(n int)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) ObserveBacktest(string, int, time.Duration, error) {}
func (NopRecorder) ObserveCombinations(string, int)                   {}
func (NopRecorder) ObserveFold(string)                                {}
func (NopRecorder) ObserveSimulations(int)                            {}
