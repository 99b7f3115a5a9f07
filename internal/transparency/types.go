// Package transparency implements the concern and submission state
// machines and the deployment gate that sits on top of them.
package transparency

// TemplateType enumerates the compliance submission templates.
type TemplateType string

const (
	TemplateSafetyEvaluation     TemplateType = "safety_evaluation"
	TemplateTrainingData         TemplateType = "training_data"
	TemplateCapabilityAssessment TemplateType = "capability_assessment"
	TemplateRedTeamReport        TemplateType = "red_team_report"
	TemplateHumanOversight       TemplateType = "human_oversight"
	TemplateIncidentReport       TemplateType = "incident_report"
)

// TemplateDescriptions backs GET /compliance/templates.
var TemplateDescriptions = map[TemplateType]string{
	TemplateSafetyEvaluation:     "Results of a pre-deployment safety evaluation",
	TemplateTrainingData:         "Description and provenance of training data",
	TemplateCapabilityAssessment: "Assessment of model capabilities and risks",
	TemplateRedTeamReport:        "Findings from adversarial red-team testing",
	TemplateHumanOversight:       "Human oversight and intervention mechanisms",
	TemplateIncidentReport:       "Report of a safety or compliance incident",
}

func validTemplateType(t string) bool {
	_, ok := TemplateDescriptions[TemplateType(t)]
	return ok
}

// SubmissionStatus is a ComplianceSubmission's lifecycle state.
type SubmissionStatus string

const (
	SubmissionSubmitted   SubmissionStatus = "submitted"
	SubmissionUnderReview SubmissionStatus = "under_review"
	SubmissionVerified    SubmissionStatus = "verified"
	SubmissionRejected    SubmissionStatus = "rejected"
)

// ComplianceSubmission is a lab's filing against a required template.
type ComplianceSubmission struct {
	ID             string           `json:"id"`
	LabID          string           `json:"lab_id"`
	DeploymentID   string           `json:"deployment_id"`
	ModelID        string           `json:"model_id"`
	TemplateType   TemplateType     `json:"template_type"`
	Title          string           `json:"title"`
	EvidenceHash   string           `json:"evidence_hash"`
	Status        SubmissionStatus `json:"status"`
	SubmittedAt   string           `json:"submitted_at"`
	ReviewedAt    string           `json:"reviewed_at,omitempty"`
	ReviewerNotes string           `json:"reviewer_notes,omitempty"`
	seq           int
}

// ConcernStatus is a Concern's lifecycle state.
type ConcernStatus string

const (
	ConcernOpen      ConcernStatus = "open"
	ConcernResponded ConcernStatus = "responded"
	ConcernDisputed  ConcernStatus = "disputed"
	ConcernResolved  ConcernStatus = "resolved"
)

// ResolutionSummary is the brief resolution outcome recorded on the
// Concern itself once resolved.
type ResolutionSummary struct {
	AuditorID string `json:"auditor_id"`
	Outcome   string `json:"outcome"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"created_at"`
}

// Concern is raised by anyone, identified only by an anonymous id.
type Concern struct {
	ID          string             `json:"id"`
	AnonID      string             `json:"anon_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Target      string             `json:"target"`
	Status      ConcernStatus      `json:"status"`
	CreatedAt   string             `json:"created_at"`
	Resolution  *ResolutionSummary `json:"resolution,omitempty"`
}

// ResponderRole identifies who authored a Response.
type ResponderRole string

const (
	ResponderLab     ResponderRole = "lab"
	ResponderAuditor ResponderRole = "auditor"
)

// Response is a reply to a Concern.
type Response struct {
	ID            string        `json:"id"`
	ConcernID     string        `json:"concern_id"`
	ResponderRole ResponderRole `json:"responder_role"`
	Content       string        `json:"content"`
	CreatedAt     string        `json:"created_at"`
}

// ResolutionOutcome enumerates how an auditor disposed of a concern.
type ResolutionOutcome string

const (
	OutcomeAccepted      ResolutionOutcome = "accepted"
	OutcomeRejected      ResolutionOutcome = "rejected"
	OutcomeNeedsMoreInfo ResolutionOutcome = "needs_more_info"
)

func validOutcome(o string) bool {
	switch ResolutionOutcome(o) {
	case OutcomeAccepted, OutcomeRejected, OutcomeNeedsMoreInfo:
		return true
	}
	return false
}

// Resolution is the auditor's final disposition of a Concern.
type Resolution struct {
	ID        string            `json:"id"`
	ConcernID string            `json:"concern_id"`
	AuditorID string            `json:"auditor_id"`
	Outcome   ResolutionOutcome `json:"outcome"`
	Notes     string            `json:"notes"`
	CreatedAt string            `json:"created_at"`
}

// DeploymentComplianceStatus is the deployment gate's verdict.
type DeploymentComplianceStatus struct {
	DeploymentID       string          `json:"deployment_id"`
	ModelID            string          `json:"model_id"`
	RequiredTemplates  []TemplateType  `json:"required_templates"`
	SatisfiedTemplates map[string]bool `json:"satisfied_templates"`
	OpenConcernIDs     []string        `json:"open_concern_ids"`
	Cleared            bool            `json:"cleared"`
	Blocking           []string        `json:"blocking,omitempty"`
}

var defaultRequiredTemplates = []TemplateType{
	TemplateSafetyEvaluation,
	TemplateCapabilityAssessment,
	TemplateRedTeamReport,
}
