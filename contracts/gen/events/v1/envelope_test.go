package v1

import (
	"encoding/json"
	"errors"
	"testing"
)

func validEnvelope() Envelope {
	return Envelope{
		EventID:          "evt-1",
		EventType:        "marketplace.listing_created",
		SchemaVersion:    CurrentSchemaVersion,
		PartitionKeyPath: "listing_key",
		PartitionKey:     "0xc1/0",
		Data:             json.RawMessage(`{"price":"10"}`),
	}
}

func TestEnvelopeValidate(t *testing.T) {
	if err := validEnvelope().Validate(); err != nil {
		t.Fatalf("expected valid envelope, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Envelope)
	}{
		{name: "missing id", mutate: func(e *Envelope) { e.EventID = "" }},
		{name: "missing type", mutate: func(e *Envelope) { e.EventType = "" }},
		{name: "missing partition", mutate: func(e *Envelope) { e.PartitionKey = "" }},
		{name: "future version", mutate: func(e *Envelope) { e.SchemaVersion = CurrentSchemaVersion + 1 }},
		{name: "broken data", mutate: func(e *Envelope) { e.Data = json.RawMessage(`{"price":`) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope := validEnvelope()
			tt.mutate(&envelope)
			if err := envelope.Validate(); !errors.Is(err, ErrInvalidEnvelope) {
				t.Fatalf("expected ErrInvalidEnvelope, got %v", err)
			}
		})
	}
}
