package events

import (
	"encoding/json"
	"time"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "QUESTION_ACCEPTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	TypeQuestionAccepted  = "QUESTION_ACCEPTED"
	TypeQuestionExhausted = "QUESTION_EXHAUSTED"
	TypeRetrievalDegraded = "RETRIEVAL_DEGRADED"
	TypeSessionReset      = "SESSION_RESET"
)

// NewQuestionAccepted is published after the orchestrator accepts a
// question so the history consumer can register it for novelty checks.
func NewQuestionAccepted(questionID, scopeKey, text string, confidence float64, usedChunks []string) Event {
	return BaseEvent{
		Type: TypeQuestionAccepted,
		Data: map[string]interface{}{
			"question_id": questionID,
			"scope_key":   scopeKey,
			"text":        text,
			"confidence":  confidence,
			"used_chunks": usedChunks,
		},
		OccurredAt: time.Now(),
	}
}

// NewSessionReset marks an explicit session reset for a scope.
func NewSessionReset(scopeKey string) Event {
	return BaseEvent{
		Type:       TypeSessionReset,
		Data:       map[string]interface{}{"scope_key": scopeKey},
		OccurredAt: time.Now(),
	}
}

type envelope struct {
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Marshal serializes an event for the bus.
func Marshal(e Event) ([]byte, error) {
	data, err := json.Marshal(e.Payload())
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Type:       e.EventType(),
		Data:       data,
		OccurredAt: e.Timestamp(),
	})
}

// Decode splits a bus payload into its event type and raw data. Consumers
// switch on the type and unmarshal the data into the matching struct.
func Decode(payload []byte) (string, json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", nil, err
	}
	return env.Type, env.Data, nil
}

// QuestionAcceptedData is the decoded payload of a TypeQuestionAccepted
// event.
type QuestionAcceptedData struct {
	QuestionID string   `json:"question_id"`
	ScopeKey   string   `json:"scope_key"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	UsedChunks []string `json:"used_chunks"`
}
