package transparency

import (
	"afr/pkg/apperr"
)

// RaiseConcern records a new concern from an anonymized identity.
func (s *Service) RaiseConcern(anonID, title, description, target string) (Concern, error) {
	if anonID == "" || title == "" || target == "" {
		return Concern{}, apperr.New(apperr.KindValidation, "anon_id, title, and target are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := &Concern{
		ID:          newID(),
		AnonID:      anonID,
		Title:       title,
		Description: description,
		Target:      target,
		Status:      ConcernOpen,
		CreatedAt:   s.timestamp(),
	}

	s.concerns[c.ID] = c
	if err := s.persistLocked(); err != nil {
		delete(s.concerns, c.ID)
		return Concern{}, err
	}

	evtType, desc := eventForConcern("raised", c.ID)
	if _, err := s.audit.Append(evtType, desc, map[string]interface{}{"concern_id": c.ID, "target": target}); err != nil {
		delete(s.concerns, c.ID)
		_ = s.persistLocked()
		return Concern{}, apperr.Wrap(apperr.KindPersistence, err, "append audit event for raised concern")
	}

	out := *c
	return out, nil
}

// Respond attaches a lab or auditor reply and moves an open concern to
// responded. A disputed concern keeps its status.
func (s *Service) Respond(concernID string, role, content string) (Response, error) {
	if !validResponderRole(role) {
		return Response{}, apperr.New(apperr.KindValidation, "responder_role must be lab or auditor")
	}
	if content == "" {
		return Response{}, apperr.New(apperr.KindValidation, "content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.concerns[concernID]
	if !ok {
		return Response{}, apperr.ErrNotFound
	}
	if c.Status == ConcernResolved {
		return Response{}, apperr.New(apperr.KindState, "cannot respond to a resolved concern")
	}

	resp := Response{
		ID:            newID(),
		ConcernID:     concernID,
		ResponderRole: ResponderRole(role),
		Content:       content,
		CreatedAt:     s.timestamp(),
	}

	prevStatus := c.Status
	if c.Status == ConcernOpen {
		c.Status = ConcernResponded
	}
	s.responses[concernID] = append(s.responses[concernID], resp)

	if err := s.persistLocked(); err != nil {
		c.Status = prevStatus
		s.responses[concernID] = s.responses[concernID][:len(s.responses[concernID])-1]
		return Response{}, err
	}

	evtType, desc := eventForConcern("responded", concernID)
	if _, err := s.audit.Append(evtType, desc, map[string]interface{}{"concern_id": concernID, "response_id": resp.ID}); err != nil {
		c.Status = prevStatus
		s.responses[concernID] = s.responses[concernID][:len(s.responses[concernID])-1]
		_ = s.persistLocked()
		return Response{}, apperr.Wrap(apperr.KindPersistence, err, "append audit event for response")
	}

	return resp, nil
}

func validResponderRole(r string) bool {
	return ResponderRole(r) == ResponderLab || ResponderRole(r) == ResponderAuditor
}

// Dispute marks an open or responded concern as disputed, flagging it
// for auditor attention.
func (s *Service) Dispute(concernID string) (Concern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.concerns[concernID]
	if !ok {
		return Concern{}, apperr.ErrNotFound
	}
	if c.Status != ConcernOpen && c.Status != ConcernResponded {
		return Concern{}, apperr.New(apperr.KindState, "only an open or responded concern can be disputed")
	}

	prevStatus := c.Status
	c.Status = ConcernDisputed
	if err := s.persistLocked(); err != nil {
		c.Status = prevStatus
		return Concern{}, err
	}

	evtType, desc := eventForConcern("disputed", concernID)
	if _, err := s.audit.Append(evtType, desc, map[string]interface{}{"concern_id": concernID}); err != nil {
		c.Status = prevStatus
		_ = s.persistLocked()
		return Concern{}, apperr.Wrap(apperr.KindPersistence, err, "append audit event for dispute")
	}

	return *c, nil
}

// Resolve records an auditor's final disposition. Any non-resolved
// concern (open, responded, or disputed) can be resolved directly.
func (s *Service) Resolve(concernID, auditorID, outcome, notes string) (Resolution, error) {
	if !validOutcome(outcome) {
		return Resolution{}, apperr.New(apperr.KindValidation, "outcome must be accepted, rejected, or needs_more_info")
	}
	if auditorID == "" {
		return Resolution{}, apperr.New(apperr.KindValidation, "auditor_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.concerns[concernID]
	if !ok {
		return Resolution{}, apperr.ErrNotFound
	}
	if c.Status == ConcernResolved {
		return Resolution{}, apperr.New(apperr.KindState, "concern is already resolved")
	}

	now := s.timestamp()
	res := &Resolution{
		ID:        newID(),
		ConcernID: concernID,
		AuditorID: auditorID,
		Outcome:   ResolutionOutcome(outcome),
		Notes:     notes,
		CreatedAt: now,
	}

	prevStatus := c.Status
	prevResolution := c.Resolution
	s.resolutions[res.ID] = res
	c.Status = ConcernResolved
	c.Resolution = &ResolutionSummary{
		AuditorID: auditorID,
		Outcome:   outcome,
		Notes:     notes,
		CreatedAt: now,
	}

	if err := s.persistLocked(); err != nil {
		delete(s.resolutions, res.ID)
		c.Status = prevStatus
		c.Resolution = prevResolution
		return Resolution{}, err
	}

	evtType, desc := eventForConcern("resolved", concernID)
	if _, err := s.audit.Append(evtType, desc, map[string]interface{}{"concern_id": concernID, "resolution_id": res.ID, "outcome": outcome}); err != nil {
		delete(s.resolutions, res.ID)
		c.Status = prevStatus
		c.Resolution = prevResolution
		_ = s.persistLocked()
		return Resolution{}, apperr.Wrap(apperr.KindPersistence, err, "append audit event for resolution")
	}

	return *res, nil
}

func (s *Service) GetConcern(id string) (Concern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.concerns[id]
	if !ok {
		return Concern{}, apperr.ErrNotFound
	}
	return *c, nil
}

func (s *Service) ListConcerns(status string) []Concern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Concern, 0, len(s.concerns))
	for _, c := range s.concerns {
		if status != "" && string(c.Status) != status {
			continue
		}
		out = append(out, *c)
	}
	return out
}

func (s *Service) ListResponses(concernID string) []Response {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Response(nil), s.responses[concernID]...)
}
