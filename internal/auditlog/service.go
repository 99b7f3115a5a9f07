package auditlog

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"afr/internal/ledgercrypto"
	"afr/pkg/apperr"
	"afr/pkg/store"
)

const documentFileName = "audit_log.json"

// document is the on-disk shape persisted via pkg/store.
type document struct {
	Events []Event `json:"events"`
}

// Service is the append-only hash-chained audit log. All mutating
// operations are serialized under mu; reads take the read lock so
// concurrent reads proceed freely.
type Service struct {
	mu     sync.RWMutex
	events []Event
	path   string
	now    func() time.Time
}

// NewService constructs a Service persisting to <dir>/audit_log.json,
// loading any existing document from disk.
func NewService(dir string) (*Service, error) {
	s := &Service{
		path: filepath.Join(dir, documentFileName),
		now:  time.Now,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) load() error {
	var doc document
	found, err := store.LoadJSON(s.path, &doc)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "failed to load audit log")
	}
	if found {
		s.events = doc.Events
	}
	return nil
}

func (s *Service) persistLocked() error {
	doc := document{Events: s.events}
	if err := store.SaveJSON(s.path, doc); err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "failed to persist audit log")
	}
	return nil
}

// VerifyResult is the outcome of VerifyChain.
type VerifyResult struct {
	Valid          bool   `json:"valid"`
	FirstInvalidID *int   `json:"first_invalid_id,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// Append assigns the next sequential id, chains previous_hash to the
// current tail, computes the self hash, persists, and returns the new
// event. On a persistence failure the in-memory state is rolled back
// to pre-append.
func (s *Service) Append(eventType, description string, metadata map[string]interface{}) (Event, error) {
	if !IsValidEventType(eventType) {
		return Event{}, apperr.New(apperr.KindValidation, fmt.Sprintf("unknown event_type %q", eventType))
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := len(s.events)
	prevHash := ledgercrypto.ZeroHash
	if id > 0 {
		prevHash = s.events[id-1].Hash
	}
	ts := formatTimestamp(s.now())

	payload := hashPayload{
		ID:           id,
		EventType:    eventType,
		Description:  description,
		Metadata:     metadata,
		Timestamp:    ts,
		PreviousHash: prevHash,
	}
	hash, err := ledgercrypto.CanonicalHash(payload)
	if err != nil {
		return Event{}, apperr.Wrap(apperr.KindInternal, err, "failed to hash event")
	}

	event := Event{
		ID:           id,
		EventType:    eventType,
		Description:  description,
		Metadata:     metadata,
		Timestamp:    ts,
		PreviousHash: prevHash,
		Hash:         hash,
	}

	s.events = append(s.events, event)
	if err := s.persistLocked(); err != nil {
		s.events = s.events[:id] // rollback
		return Event{}, err
	}

	return event, nil
}

// List returns events optionally filtered by event type, in ascending
// id order, truncated to the head limit when limit > 0.
func (s *Service) List(eventType string, limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		if eventType != "" && e.EventType != eventType {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Get returns the event with the given id, or a not_found error.
func (s *Service) Get(id int) (Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id < 0 || id >= len(s.events) {
		return Event{}, apperr.New(apperr.KindNotFound, fmt.Sprintf("event %d not found", id))
	}
	return s.events[id], nil
}

// Count returns the number of events currently in the log.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// LastHash returns the hash of the most recently appended event, or
// the zero hash when the log is empty.
func (s *Service) LastHash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) == 0 {
		return ledgercrypto.ZeroHash
	}
	return s.events[len(s.events)-1].Hash
}

// Hashes returns the ordered list of event hashes, used as Merkle leaves.
func (s *Service) Hashes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Hash
	}
	return out
}

// VerifyChain recomputes each event's hash and previous-hash linkage,
// returning the first id that fails either check.
func (s *Service) VerifyChain() VerifyResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prevHash := ledgercrypto.ZeroHash
	for _, e := range s.events {
		if e.PreviousHash != prevHash {
			id := e.ID
			return VerifyResult{Valid: false, FirstInvalidID: &id, Reason: "previous_hash does not match predecessor"}
		}

		payload := hashPayload{
			ID:           e.ID,
			EventType:    e.EventType,
			Description:  e.Description,
			Metadata:     e.Metadata,
			Timestamp:    e.Timestamp,
			PreviousHash: e.PreviousHash,
		}
		recomputed, err := ledgercrypto.CanonicalHash(payload)
		if err != nil || recomputed != e.Hash {
			id := e.ID
			return VerifyResult{Valid: false, FirstInvalidID: &id, Reason: "hash mismatch"}
		}

		prevHash = e.Hash
	}

	return VerifyResult{Valid: true}
}

// Reset empties the log. Demo-only.
func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = nil
	return s.persistLocked()
}

// Tamper mutates a stored field without recomputing hash, to
// demonstrate chain-verification detection. Demo-only.
func (s *Service) Tamper(id int, field string, newValue interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id < 0 || id >= len(s.events) {
		return apperr.New(apperr.KindNotFound, fmt.Sprintf("event %d not found", id))
	}

	e := &s.events[id]
	switch field {
	case "description":
		str, ok := newValue.(string)
		if !ok {
			return apperr.New(apperr.KindValidation, "description must be a string")
		}
		e.Description = str
	case "event_type":
		str, ok := newValue.(string)
		if !ok {
			return apperr.New(apperr.KindValidation, "event_type must be a string")
		}
		e.EventType = str
	case "metadata":
		m, ok := newValue.(map[string]interface{})
		if !ok {
			return apperr.New(apperr.KindValidation, "metadata must be an object")
		}
		e.Metadata = m
	case "previous_hash":
		str, ok := newValue.(string)
		if !ok {
			return apperr.New(apperr.KindValidation, "previous_hash must be a string")
		}
		e.PreviousHash = str
	case "hash":
		str, ok := newValue.(string)
		if !ok {
			return apperr.New(apperr.KindValidation, "hash must be a string")
		}
		e.Hash = str
	default:
		return apperr.New(apperr.KindValidation, fmt.Sprintf("unknown field %q", field))
	}

	return s.persistLocked()
}
