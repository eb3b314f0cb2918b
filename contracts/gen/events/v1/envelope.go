package v1

import (
	"encoding/json"
	"errors"
	"time"
)

// CurrentSchemaVersion is the envelope version producers stamp today.
const CurrentSchemaVersion = 1

var ErrInvalidEnvelope = errors.New("invalid event envelope")

// Envelope is the versioned event shape marketplace producers write to the
// outbox and every bus carries. Fields are only ever added.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id,omitempty"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// Validate rejects envelopes a consumer could not dedupe or order.
func (e Envelope) Validate() error {
	switch {
	case e.EventID == "":
		return errors.Join(ErrInvalidEnvelope, errors.New("event_id is required"))
	case e.EventType == "":
		return errors.Join(ErrInvalidEnvelope, errors.New("event_type is required"))
	case e.PartitionKey == "":
		return errors.Join(ErrInvalidEnvelope, errors.New("partition_key is required"))
	case e.SchemaVersion < 1 || e.SchemaVersion > CurrentSchemaVersion:
		return errors.Join(ErrInvalidEnvelope, errors.New("unsupported schema_version"))
	case len(e.Data) > 0 && !json.Valid(e.Data):
		return errors.Join(ErrInvalidEnvelope, errors.New("data must be valid JSON"))
	}
	return nil
}
