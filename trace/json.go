package trace

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/timing/pipeline"
)

// Record kinds in a JSON log.
const (
	KindHeader  = "header"
	KindCycle   = "cycle"
	KindSummary = "summary"
)

// JSONRecord is one line of a JSON log. Exactly one of Header, Entry and
// Summary is set, as named by Kind.
type JSONRecord struct {
	Kind    string                  `json:"kind"`
	Header  *Header                 `json:"header,omitempty"`
	Entry   *pipeline.CycleLogEntry `json:"entry,omitempty"`
	Summary *Summary                `json:"summary,omitempty"`
}

// JSONWriter writes one JSON object per line: a header, one record per
// cycle and a closing summary.
type JSONWriter struct {
	w      *bufio.Writer
	enc    *json.Encoder
	header Header
	wrote  bool
}

// NewJSONWriter creates a JSONWriter on w.
func NewJSONWriter(w io.Writer, h Header) *JSONWriter {
	bw := bufio.NewWriter(w)
	return &JSONWriter{w: bw, enc: json.NewEncoder(bw), header: h}
}

func (j *JSONWriter) writeHeader() error {
	if j.wrote {
		return nil
	}
	j.wrote = true
	return j.enc.Encode(JSONRecord{Kind: KindHeader, Header: &j.header})
}

// Record writes one cycle record.
func (j *JSONWriter) Record(entry pipeline.CycleLogEntry) error {
	if err := j.writeHeader(); err != nil {
		return errors.Wrap(err, "encode header")
	}
	if err := j.enc.Encode(JSONRecord{Kind: KindCycle, Entry: &entry}); err != nil {
		return errors.Wrapf(err, "encode cycle %d", entry.Cycle)
	}
	return nil
}

// Close writes the summary record and flushes the log.
func (j *JSONWriter) Close(s Summary) error {
	if err := j.writeHeader(); err != nil {
		return errors.Wrap(err, "encode header")
	}
	if err := j.enc.Encode(JSONRecord{Kind: KindSummary, Summary: &s}); err != nil {
		return errors.Wrap(err, "encode summary")
	}
	return j.w.Flush()
}

// ReadJSON decodes a JSON log written by JSONWriter.
func ReadJSON(r io.Reader) ([]JSONRecord, error) {
	var records []JSONRecord

	dec := json.NewDecoder(r)
	for dec.More() {
		var rec JSONRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, errors.Wrapf(err, "decode record %d", len(records)+1)
		}
		records = append(records, rec)
	}

	return records, nil
}
