package jobs

import (
	"encoding/json"
	"time"
)

// Status enumerates job lifecycle states reported to pollers.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
	StatusNotFound   = "not_found"
)

// Block content kinds produced by generation tasks.
const (
	BlockText = "text"
	BlockSVG  = "svg"
)

// ContentBlock is one element of a job's result payload.
type ContentBlock struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Record is the status snapshot persisted for a job. The result payload is
// keyed by kind ("mockups", "diagrams") and serialized inline at the top
// level of the JSON object, so the stored file and the poll response share
// one shape.
type Record struct {
	Status         string
	Progress       int
	Message        string
	Completed      bool
	StartTime      time.Time
	CompletionTime time.Time
	ErrorTime      time.Time
	Results        map[string][]ContentBlock
}

// Terminal reports whether no further writes will happen to this record.
func (r Record) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusError
}

// Processing builds an in-progress snapshot.
func Processing(progress int, message string) Record {
	return Record{
		Status:   StatusProcessing,
		Progress: progress,
		Message:  message,
	}
}

// Completed builds the terminal success record carrying the result payload
// under the given kind.
func Completed(kind, message string, blocks []ContentBlock) Record {
	return Record{
		Status:         StatusCompleted,
		Progress:       100,
		Message:        message,
		Completed:      true,
		CompletionTime: time.Now(),
		Results:        map[string][]ContentBlock{kind: blocks},
	}
}

// Failed builds the terminal error record.
func Failed(message string) Record {
	return Record{
		Status:    StatusError,
		Message:   message,
		Completed: true,
		ErrorTime: time.Now(),
	}
}

func notFound() Record {
	return Record{
		Status:  StatusNotFound,
		Message: "No status found for this job",
	}
}

func readError(message string) Record {
	return Record{
		Status:    StatusError,
		Message:   message,
		Completed: true,
	}
}

// reserved top-level keys; everything else is treated as a result payload.
var recordKeys = map[string]bool{
	"status":          true,
	"progress":        true,
	"message":         true,
	"completed":       true,
	"start_time":      true,
	"completion_time": true,
	"error_time":      true,
}

// MarshalJSON flattens Results into the top-level object.
func (r Record) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"status":    r.Status,
		"progress":  r.Progress,
		"message":   r.Message,
		"completed": r.Completed,
	}
	if !r.StartTime.IsZero() {
		out["start_time"] = r.StartTime.Format(time.RFC3339Nano)
	}
	if !r.CompletionTime.IsZero() {
		out["completion_time"] = r.CompletionTime.Format(time.RFC3339Nano)
	}
	if !r.ErrorTime.IsZero() {
		out["error_time"] = r.ErrorTime.Format(time.RFC3339Nano)
	}
	for kind, blocks := range r.Results {
		if recordKeys[kind] {
			continue
		}
		out[kind] = blocks
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a record written by MarshalJSON, collecting unknown
// top-level arrays back into Results.
func (r *Record) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record{}
	if v, ok := raw["status"]; ok {
		if err := json.Unmarshal(v, &r.Status); err != nil {
			return err
		}
	}
	if v, ok := raw["progress"]; ok {
		if err := json.Unmarshal(v, &r.Progress); err != nil {
			return err
		}
	}
	if v, ok := raw["message"]; ok {
		if err := json.Unmarshal(v, &r.Message); err != nil {
			return err
		}
	}
	if v, ok := raw["completed"]; ok {
		if err := json.Unmarshal(v, &r.Completed); err != nil {
			return err
		}
	}
	for key, field := range map[string]*time.Time{
		"start_time":      &r.StartTime,
		"completion_time": &r.CompletionTime,
		"error_time":      &r.ErrorTime,
	} {
		v, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		*field = t
	}
	for key, v := range raw {
		if recordKeys[key] {
			continue
		}
		var blocks []ContentBlock
		if err := json.Unmarshal(v, &blocks); err != nil {
			// Unknown non-payload field, ignore.
			continue
		}
		if r.Results == nil {
			r.Results = map[string][]ContentBlock{}
		}
		r.Results[key] = blocks
	}
	return nil
}
