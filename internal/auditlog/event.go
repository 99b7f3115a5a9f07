// Package auditlog implements the append-only, hash-chained event
// ledger. Each event's hash covers its predecessor's hash, so any
// after-the-fact edit is detectable by walking the chain.
package auditlog

import "time"

// EventType enumerates the permitted audit event kinds.
type EventType string

const (
	EventTrainingStarted   EventType = "training_started"
	EventTrainingCompleted EventType = "training_completed"
	EventSafetyEvalRun     EventType = "safety_eval_run"
	EventSafetyEvalPassed  EventType = "safety_eval_passed"
	EventSafetyEvalFailed  EventType = "safety_eval_failed"
	EventModelDeployed     EventType = "model_deployed"
	EventIncidentReported  EventType = "incident_reported"
)

var validEventTypes = map[EventType]bool{
	EventTrainingStarted:   true,
	EventTrainingCompleted: true,
	EventSafetyEvalRun:     true,
	EventSafetyEvalPassed:  true,
	EventSafetyEvalFailed:  true,
	EventModelDeployed:     true,
	EventIncidentReported:  true,
}

// IsValidEventType reports whether t is one of the enumerated event types.
func IsValidEventType(t string) bool {
	return validEventTypes[EventType(t)]
}

// Event is a single audit-log entry.
type Event struct {
	ID           int                    `json:"id"`
	EventType    string                 `json:"event_type"`
	Description  string                 `json:"description"`
	Metadata     map[string]interface{} `json:"metadata"`
	Timestamp    string                 `json:"timestamp"`
	PreviousHash string                 `json:"previous_hash"`
	Hash         string                 `json:"hash"`
}

// hashPayload is exactly the set of fields the event hash covers:
// {id,event_type,description,metadata,timestamp,previous_hash}.
type hashPayload struct {
	ID           int                    `json:"id"`
	EventType    string                 `json:"event_type"`
	Description  string                 `json:"description"`
	Metadata     map[string]interface{} `json:"metadata"`
	Timestamp    string                 `json:"timestamp"`
	PreviousHash string                 `json:"previous_hash"`
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
}
