// Package trace writes per-cycle pipeline logs.
//
// A Writer receives every cycle log entry produced by a pipeline through
// the pipeline.Tracer interface and renders it either as the plain text
// cycle log or as JSON lines. Close appends a run summary.
package trace

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/xid"

	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/timing/core"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/timing/pipeline"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrUnknownFormat is returned by NewWriter.
var ErrUnknownFormat = errors.New("unknown log format")

// Header identifies one simulation run.
type Header struct {
	RunID       xid.ID `json:"run_id"`
	Program     string `json:"program"`
	StallPolicy string `json:"stall_policy"`
	Cycles      uint64 `json:"cycles"`
}

// NewHeader creates a header with a fresh run identifier.
func NewHeader(program string, policy pipeline.StallPolicy, cycles uint64) Header {
	return Header{
		RunID:       xid.New(),
		Program:     program,
		StallPolicy: policy.String(),
		Cycles:      cycles,
	}
}

// Summary holds the results of one simulation run.
type Summary struct {
	RunID         xid.ID  `json:"run_id"`
	Program       string  `json:"program"`
	Cycles        uint64  `json:"cycles"`
	Retired       uint64  `json:"retired"`
	Stalls        uint64  `json:"stalls"`
	Forwards      uint64  `json:"forwards"`
	CPI           float64 `json:"cpi"`
	SimulatedTime float64 `json:"simulated_time_s"`
}

// NewSummary builds the summary of the run described by h.
func NewSummary(h Header, stats core.Stats) Summary {
	return Summary{
		RunID:         h.RunID,
		Program:       h.Program,
		Cycles:        stats.Cycles,
		Retired:       stats.Instructions,
		Stalls:        stats.Stalls,
		Forwards:      stats.Forwards,
		CPI:           stats.CPI,
		SimulatedTime: stats.SimulatedTime,
	}
}

// Writer is a cycle logger that finishes with a run summary.
type Writer interface {
	pipeline.Tracer

	// Close writes the summary and flushes buffered output. It does not
	// close the underlying io.Writer.
	Close(s Summary) error
}

// NewWriter creates a Writer for the named format.
func NewWriter(format string, w io.Writer, h Header) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewTextWriter(w, h), nil
	case FormatJSON:
		return NewJSONWriter(w, h), nil
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
	}
}

// Tee returns a tracer that forwards each entry to all tracers in order and
// stops at the first error.
func Tee(tracers ...pipeline.Tracer) pipeline.Tracer {
	return tee(tracers)
}

type tee []pipeline.Tracer

func (t tee) Record(entry pipeline.CycleLogEntry) error {
	for _, tracer := range t {
		if err := tracer.Record(entry); err != nil {
			return err
		}
	}
	return nil
}
