package transparency

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"afr/internal/auditlog"
	"afr/pkg/apperr"
	"afr/pkg/store"
)

type document struct {
	Concerns    map[string]*Concern              `json:"concerns"`
	Responses   map[string][]Response            `json:"responses"`
	Resolutions map[string]*Resolution           `json:"resolutions"`
	Submissions map[string]*ComplianceSubmission `json:"submissions"`
}

// Service owns the concern/submission state machines and the
// deployment gate. Every mutating operation also appends a matching
// audit event through audit; if that append fails, the primary
// mutation is rolled back so the two stores never disagree.
type Service struct {
	mu          sync.RWMutex
	concerns    map[string]*Concern
	responses   map[string][]Response
	resolutions map[string]*Resolution
	submissions map[string]*ComplianceSubmission
	path        string
	audit       *auditlog.Service
	now         func() time.Time
	nextSeq     int
}

func NewService(dir string, audit *auditlog.Service) (*Service, error) {
	s := &Service{
		concerns:    make(map[string]*Concern),
		responses:   make(map[string][]Response),
		resolutions: make(map[string]*Resolution),
		submissions: make(map[string]*ComplianceSubmission),
		path:        dir + "/transparency.json",
		audit:       audit,
		now:         time.Now,
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
		return apperr.Wrap(apperr.KindPersistence, err, "load transparency store")
	}
	if !found {
		return nil
	}
	if doc.Concerns != nil {
		s.concerns = doc.Concerns
	}
	if doc.Responses != nil {
		s.responses = doc.Responses
	}
	if doc.Resolutions != nil {
		s.resolutions = doc.Resolutions
	}
	if doc.Submissions != nil {
		s.submissions = doc.Submissions
	}
	s.reseqSubmissionsLocked()
	return nil
}

// reseqSubmissionsLocked restores the in-process seq ordering used to
// break ties between submissions sharing a second-resolution
// submitted_at timestamp. Reload ordering falls back to submitted_at
// then id, since seq itself is not persisted.
func (s *Service) reseqSubmissionsLocked() {
	ordered := make([]*ComplianceSubmission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		ordered = append(ordered, sub)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].SubmittedAt != ordered[j].SubmittedAt {
			return ordered[i].SubmittedAt < ordered[j].SubmittedAt
		}
		return ordered[i].ID < ordered[j].ID
	})
	for i, sub := range ordered {
		sub.seq = i + 1
	}
	s.nextSeq = len(ordered)
}

func (s *Service) persistLocked() error {
	doc := document{
		Concerns:    s.concerns,
		Responses:   s.responses,
		Resolutions: s.resolutions,
		Submissions: s.submissions,
	}
	if err := store.SaveJSON(s.path, doc); err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "persist transparency store")
	}
	return nil
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format("2006-01-02T15:04:05Z")
}

// eventForConcern maps every concern-lifecycle operation onto the
// closest fixed audit event type; the operation itself is preserved
// in the event description.
func eventForConcern(op, concernID string) (string, string) {
	return string(auditlog.EventIncidentReported), fmt.Sprintf("concern %s: %s", op, concernID)
}

func eventForSubmission(t TemplateType, verb string) (string, string) {
	if t == TemplateTrainingData {
		if verb == "submitted" {
			return string(auditlog.EventTrainingStarted), "training data submission " + verb
		}
		return string(auditlog.EventTrainingCompleted), "training data submission " + verb
	}
	switch verb {
	case "submitted":
		return string(auditlog.EventSafetyEvalRun), "compliance submission (" + string(t) + ") " + verb
	case "verified":
		return string(auditlog.EventSafetyEvalPassed), "compliance submission (" + string(t) + ") " + verb
	case "rejected":
		return string(auditlog.EventSafetyEvalFailed), "compliance submission (" + string(t) + ") " + verb
	default:
		return string(auditlog.EventSafetyEvalRun), "compliance submission (" + string(t) + ") " + verb
	}
}

func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.concerns = make(map[string]*Concern)
	s.responses = make(map[string][]Response)
	s.resolutions = make(map[string]*Resolution)
	s.submissions = make(map[string]*ComplianceSubmission)
	return s.persistLocked()
}

func newID() string {
	return uuid.New().String()
}
