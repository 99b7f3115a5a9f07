package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"afr/internal/transparency"
	"afr/pkg/apperr"
	"afr/pkg/logger"
)

// ComplianceHandler serves compliance submission, review, and the
// deployment gate.
type ComplianceHandler struct {
	svc    *transparency.Service
	logger logger.Logger
}

func NewComplianceHandler(svc *transparency.Service, log logger.Logger) *ComplianceHandler {
	return &ComplianceHandler{svc: svc, logger: log}
}

type submitComplianceRequest struct {
	LabID        string `json:"lab_id" validate:"required"`
	DeploymentID string `json:"deployment_id" validate:"required"`
	ModelID      string `json:"model_id" validate:"required"`
	TemplateType string `json:"template_type" validate:"required"`
	Title        string `json:"title" validate:"required"`
	EvidenceHash string `json:"evidence_hash" validate:"required,hex64"`
}

func (h *ComplianceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitComplianceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}

	sub, err := h.svc.SubmitCompliance(req.LabID, req.DeploymentID, req.ModelID, req.TemplateType, req.Title, req.EvidenceHash)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, sub)
}

func (h *ComplianceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	submissions := h.svc.ListSubmissions(q.Get("status"), q.Get("template_type"), q.Get("deployment_id"))
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{"submissions": submissions})
}

func (h *ComplianceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sub, err := h.svc.GetSubmission(id)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, sub)
}

type reviewSubmissionRequest struct {
	SubmissionID string `json:"submission_id" validate:"required"`
	Decision     string `json:"decision" validate:"required"`
	Notes        string `json:"notes"`
}

func (h *ComplianceHandler) Review(w http.ResponseWriter, r *http.Request) {
	var req reviewSubmissionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}

	sub, err := h.svc.Review(req.SubmissionID, req.Decision, req.Notes)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, sub)
}

func (h *ComplianceHandler) DeploymentStatus(w http.ResponseWriter, r *http.Request) {
	deploymentID := mux.Vars(r)["deployment_id"]
	modelID := r.URL.Query().Get("model_id")
	if deploymentID == "" {
		respondErr(w, h.logger, apperr.New(apperr.KindValidation, "deployment_id is required"))
		return
	}

	respondJSON(w, h.logger, http.StatusOK, h.svc.DeploymentStatus(deploymentID, modelID))
}

func (h *ComplianceHandler) Templates(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"templates": h.svc.Templates(),
	})
}

// DemoPopulate seeds a small compliance scenario for manual/demo use:
// one lab submission per required template against a fixed deployment.
func (h *ComplianceHandler) DemoPopulate(w http.ResponseWriter, r *http.Request) {
	const deploymentID = "gpt-safe-v2.1-prod"
	const modelID = "gpt-safe-v2.1"
	const evidenceHash = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	templates := []string{
		string(transparency.TemplateSafetyEvaluation),
		string(transparency.TemplateCapabilityAssessment),
		string(transparency.TemplateRedTeamReport),
	}

	submissions := make([]transparency.ComplianceSubmission, 0, len(templates))
	for _, tmpl := range templates {
		sub, err := h.svc.SubmitCompliance("demo-lab", deploymentID, modelID, tmpl, "demo submission for "+tmpl, evidenceHash)
		if err != nil {
			respondErr(w, h.logger, err)
			return
		}
		submissions = append(submissions, sub)
	}

	respondJSON(w, h.logger, http.StatusCreated, map[string]interface{}{
		"deployment_id": deploymentID,
		"model_id":      modelID,
		"submissions":   submissions,
	})
}
