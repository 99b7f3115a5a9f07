package transparency

import (
	"fmt"
	"sort"

	"afr/pkg/apperr"
)

// SubmitCompliance files a new submission against a template for a
// deployment/model pair.
func (s *Service) SubmitCompliance(labID, deploymentID, modelID, templateType, title, evidenceHash string) (ComplianceSubmission, error) {
	if !validTemplateType(templateType) {
		return ComplianceSubmission{}, apperr.New(apperr.KindValidation, "unknown template_type")
	}
	if labID == "" || deploymentID == "" || modelID == "" || title == "" {
		return ComplianceSubmission{}, apperr.New(apperr.KindValidation, "lab_id, deployment_id, model_id, and title are required")
	}
	if !isHex64(evidenceHash) {
		return ComplianceSubmission{}, apperr.New(apperr.KindValidation, "evidence_hash must be a 64-character lowercase hex digest")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &ComplianceSubmission{
		ID:           newID(),
		LabID:        labID,
		DeploymentID: deploymentID,
		ModelID:      modelID,
		TemplateType: TemplateType(templateType),
		Title:        title,
		EvidenceHash: evidenceHash,
		Status:       SubmissionSubmitted,
		SubmittedAt:  s.timestamp(),
	}
	s.nextSeq++
	sub.seq = s.nextSeq

	s.submissions[sub.ID] = sub
	if err := s.persistLocked(); err != nil {
		delete(s.submissions, sub.ID)
		return ComplianceSubmission{}, err
	}

	evtType, desc := eventForSubmission(sub.TemplateType, "submitted")
	if _, err := s.audit.Append(evtType, desc, map[string]interface{}{"submission_id": sub.ID, "deployment_id": deploymentID, "model_id": modelID}); err != nil {
		delete(s.submissions, sub.ID)
		_ = s.persistLocked()
		return ComplianceSubmission{}, apperr.Wrap(apperr.KindPersistence, err, "append audit event for submission")
	}

	return *sub, nil
}

// Review transitions a non-terminal submission to verified or
// rejected. The decision verb is "verify" or "reject".
func (s *Service) Review(submissionID, decision, notes string) (ComplianceSubmission, error) {
	var target SubmissionStatus
	switch decision {
	case "verify":
		target = SubmissionVerified
	case "reject":
		target = SubmissionRejected
	default:
		return ComplianceSubmission{}, apperr.New(apperr.KindValidation, "decision must be verify or reject")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[submissionID]
	if !ok {
		return ComplianceSubmission{}, apperr.ErrNotFound
	}
	if sub.Status == SubmissionVerified || sub.Status == SubmissionRejected {
		return ComplianceSubmission{}, apperr.New(apperr.KindState, "submission has already been reviewed")
	}

	prevStatus := sub.Status
	prevReviewedAt := sub.ReviewedAt
	prevNotes := sub.ReviewerNotes

	sub.Status = target
	sub.ReviewedAt = s.timestamp()
	sub.ReviewerNotes = notes

	if err := s.persistLocked(); err != nil {
		sub.Status = prevStatus
		sub.ReviewedAt = prevReviewedAt
		sub.ReviewerNotes = prevNotes
		return ComplianceSubmission{}, err
	}

	evtType, desc := eventForSubmission(sub.TemplateType, string(target))
	if _, err := s.audit.Append(evtType, desc, map[string]interface{}{"submission_id": submissionID, "decision": decision}); err != nil {
		sub.Status = prevStatus
		sub.ReviewedAt = prevReviewedAt
		sub.ReviewerNotes = prevNotes
		_ = s.persistLocked()
		return ComplianceSubmission{}, apperr.Wrap(apperr.KindPersistence, err, "append audit event for review")
	}

	return *sub, nil
}

func (s *Service) GetSubmission(id string) (ComplianceSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return ComplianceSubmission{}, apperr.ErrNotFound
	}
	return *sub, nil
}

// ListSubmissions filters by status, template type, and deployment;
// empty filter values match everything.
func (s *Service) ListSubmissions(status, templateType, deploymentID string) []ComplianceSubmission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ComplianceSubmission, 0)
	for _, sub := range s.submissions {
		if status != "" && string(sub.Status) != status {
			continue
		}
		if templateType != "" && string(sub.TemplateType) != templateType {
			continue
		}
		if deploymentID != "" && sub.DeploymentID != deploymentID {
			continue
		}
		out = append(out, *sub)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt != out[j].SubmittedAt {
			return out[i].SubmittedAt < out[j].SubmittedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Templates returns every known template type with its description,
// backing GET /compliance/templates.
func (s *Service) Templates() map[TemplateType]string {
	out := make(map[TemplateType]string, len(TemplateDescriptions))
	for k, v := range TemplateDescriptions {
		out[k] = v
	}
	return out
}

// DeploymentStatus evaluates the deployment gate: a deployment is
// cleared iff every required template has a latest non-rejected
// submission that is verified, and no concern in open/responded/disputed
// targets the deployment or any of its submissions. Rejected
// submissions remain in the record but are ignored when determining
// the "latest" submission for a template.
func (s *Service) DeploymentStatus(deploymentID, modelID string) DeploymentComplianceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := DeploymentComplianceStatus{
		DeploymentID:       deploymentID,
		ModelID:            modelID,
		RequiredTemplates:  defaultRequiredTemplates,
		SatisfiedTemplates: make(map[string]bool),
	}

	relevantSubmissionIDs := make(map[string]bool)
	for _, sub := range s.submissions {
		if sub.DeploymentID != deploymentID {
			continue
		}
		relevantSubmissionIDs[sub.ID] = true
	}

	for _, tmpl := range defaultRequiredTemplates {
		latest := latestNonRejected(s.submissions, deploymentID, modelID, tmpl)
		satisfied := latest != nil && latest.Status == SubmissionVerified
		result.SatisfiedTemplates[string(tmpl)] = satisfied
		if !satisfied {
			if latest == nil {
				result.Blocking = append(result.Blocking, "missing submission for "+string(tmpl))
			} else {
				result.Blocking = append(result.Blocking, string(tmpl)+" is "+string(latest.Status))
			}
		}
	}

	for _, c := range s.concerns {
		if c.Status == ConcernResolved {
			continue
		}
		if c.Target == deploymentID || relevantSubmissionIDs[c.Target] {
			result.OpenConcernIDs = append(result.OpenConcernIDs, c.ID)
		}
	}
	sort.Strings(result.OpenConcernIDs)
	switch n := len(result.OpenConcernIDs); {
	case n == 1:
		result.Blocking = append(result.Blocking, "1 unresolved concern")
	case n > 1:
		result.Blocking = append(result.Blocking, fmt.Sprintf("%d unresolved concerns", n))
	}

	result.Cleared = len(result.Blocking) == 0
	return result
}

func isHex64(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func latestNonRejected(submissions map[string]*ComplianceSubmission, deploymentID, modelID string, tmpl TemplateType) *ComplianceSubmission {
	var latest *ComplianceSubmission
	for _, sub := range submissions {
		if sub.DeploymentID != deploymentID || sub.ModelID != modelID || sub.TemplateType != tmpl {
			continue
		}
		if sub.Status == SubmissionRejected {
			continue
		}
		if latest == nil || sub.seq > latest.seq {
			latest = sub
		}
	}
	return latest
}
