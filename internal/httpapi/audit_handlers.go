package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"afr/internal/auditlog"
	"afr/internal/merkle"
	"afr/pkg/apperr"
	"afr/pkg/logger"
)

// AuditHandler serves the public audit-log and Merkle endpoints.
type AuditHandler struct {
	audit     *auditlog.Service
	logger    logger.Logger
	startedAt time.Time
}

func NewAuditHandler(audit *auditlog.Service, log logger.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: log, startedAt: time.Now()}
}

func (h *AuditHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

type appendEventRequest struct {
	EventType   string                 `json:"event_type" validate:"required"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata"`
}

func (h *AuditHandler) AppendEvent(w http.ResponseWriter, r *http.Request) {
	var req appendEventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}

	event, err := h.audit.Append(req.EventType, req.Description, req.Metadata)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, event)
}

func (h *AuditHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	eventType := r.URL.Query().Get("event_type")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"events": h.audit.List(eventType, limit),
	})
}

func (h *AuditHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		respondErr(w, h.logger, apperr.New(apperr.KindValidation, "id must be an integer"))
		return
	}

	event, err := h.audit.Get(id)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, event)
}

func (h *AuditHandler) Status(w http.ResponseWriter, r *http.Request) {
	tree := merkle.Build(h.audit.Hashes())
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"event_count":    h.audit.Count(),
		"last_hash":      h.audit.LastHash(),
		"merkle_root":    tree.Root(),
		"uptime_seconds": time.Since(h.startedAt).Seconds(),
	})
}

func (h *AuditHandler) Verify(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.audit.VerifyChain())
}

func (h *AuditHandler) Proof(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		respondErr(w, h.logger, apperr.New(apperr.KindValidation, "id must be an integer"))
		return
	}

	event, err := h.audit.Get(id)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}

	tree := merkle.Build(h.audit.Hashes())
	proof, err := tree.Prove(id)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"leaf_hash": event.Hash,
		"proof":     proof,
		"root":      tree.Root(),
	})
}

type verifyProofRequest struct {
	LeafHash string             `json:"leaf_hash" validate:"required,hex64"`
	Proof    []merkle.ProofStep `json:"proof"`
	Root     string             `json:"root" validate:"required,hex64"`
}

func (h *AuditHandler) VerifyProof(w http.ResponseWriter, r *http.Request) {
	var req verifyProofRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}

	valid := merkle.Verify(req.LeafHash, req.Proof, req.Root)
	respondJSON(w, h.logger, http.StatusOK, map[string]bool{"valid": valid})
}

func (h *AuditHandler) DemoReset(w http.ResponseWriter, r *http.Request) {
	if err := h.audit.Reset(); err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "reset"})
}

// demoEventSeeds backs /demo/populate: eight events spanning every
// enumerated event_type at least once.
var demoEventSeeds = []struct {
	eventType   string
	description string
}{
	{"training_started", "began training run for gpt-safe-v2.1"},
	{"training_completed", "completed training run for gpt-safe-v2.1"},
	{"safety_eval_run", "ran pre-deployment safety evaluation suite"},
	{"safety_eval_passed", "safety evaluation suite passed all checks"},
	{"safety_eval_run", "ran red-team adversarial evaluation"},
	{"safety_eval_failed", "red-team evaluation flagged a jailbreak"},
	{"model_deployed", "deployed gpt-safe-v2.1 to production"},
	{"incident_reported", "user reported unexpected model behavior"},
}

func (h *AuditHandler) DemoPopulate(w http.ResponseWriter, r *http.Request) {
	events := make([]interface{}, 0, len(demoEventSeeds))
	for _, seed := range demoEventSeeds {
		event, err := h.audit.Append(seed.eventType, seed.description, nil)
		if err != nil {
			respondErr(w, h.logger, err)
			return
		}
		events = append(events, event)
	}
	respondJSON(w, h.logger, http.StatusCreated, map[string]interface{}{"events": events})
}

type demoTamperRequest struct {
	EventID  int         `json:"event_id"`
	Field    string      `json:"field" validate:"required"`
	NewValue interface{} `json:"new_value"`
}

func (h *AuditHandler) DemoTamper(w http.ResponseWriter, r *http.Request) {
	var req demoTamperRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}

	if err := h.audit.Tamper(req.EventID, req.Field, req.NewValue); err != nil {
		respondErr(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "tampered"})
}
