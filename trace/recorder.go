package trace

import "github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/timing/pipeline"

// Recorder keeps every cycle log entry in memory.
type Recorder struct {
	entries []pipeline.CycleLogEntry
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends entry.
func (r *Recorder) Record(entry pipeline.CycleLogEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

// Entries returns the recorded entries in cycle order.
func (r *Recorder) Entries() []pipeline.CycleLogEntry {
	return r.entries
}

// Len returns the number of recorded entries.
func (r *Recorder) Len() int {
	return len(r.entries)
}

// StallCycles returns the cycle numbers on which the pipeline stalled.
func (r *Recorder) StallCycles() []uint64 {
	var cycles []uint64
	for _, e := range r.entries {
		if e.Stalled {
			cycles = append(cycles, e.Cycle)
		}
	}
	return cycles
}

// Reset drops all entries.
func (r *Recorder) Reset() {
	r.entries = nil
}
