package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const envelopeSchemaURL = "tasksync://realtime/envelope.json"

const envelopeSchema = `{
  "type": "object",
  "required": ["type", "data"],
  "properties": {
    "id": {"type": "string"},
    "type": {
      "type": "string",
      "pattern": "^(task|category|tag|reminder|recurring_task|collaboration_task)_[a-z]+$"
    },
    "data": {"type": "object"},
    "userId": {"type": ["integer", "null"]},
    "timestamp": {"type": "string", "minLength": 10}
  }
}`

var envelope = mustCompileEnvelope()

func mustCompileEnvelope() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(envelopeSchemaURL, strings.NewReader(envelopeSchema)); err != nil {
		panic(fmt.Sprintf("realtime: add envelope schema: %v", err))
	}
	return compiler.MustCompile(envelopeSchemaURL)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// DecodeEvent validates raw against the envelope schema and decodes it.
// Collaboration updates come back typed as TaskUpdate.
func DecodeEvent(raw []byte) (Event, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := envelope.Validate(doc); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	var wire struct {
		ID        string          `json:"id"`
		Type      EventType       `json:"type"`
		Data      json.RawMessage `json:"data"`
		UserID    *int64          `json:"userId"`
		Timestamp string          `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	ev := Event{ID: wire.ID, Type: wire.Type, Data: wire.Data}
	if ev.Type == CollaborationTaskUpdate {
		ev.Type = TaskUpdate
	}
	if wire.UserID != nil {
		ev.UserID = *wire.UserID
	}
	if wire.Timestamp != "" {
		ts, err := parseTimestamp(wire.Timestamp)
		if err != nil {
			return Event{}, err
		}
		ev.Timestamp = ts
	}
	return ev, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrInvalidEvent, s)
}
