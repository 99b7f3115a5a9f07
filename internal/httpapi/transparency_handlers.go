package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"afr/internal/ledgercrypto"
	"afr/internal/transparency"
	"afr/pkg/config"
	"afr/pkg/logger"
)

// TransparencyHandler serves concern/response/resolution endpoints.
type TransparencyHandler struct {
	svc    *transparency.Service
	anon   config.AnonConfig
	logger logger.Logger
}

func NewTransparencyHandler(svc *transparency.Service, anon config.AnonConfig, log logger.Logger) *TransparencyHandler {
	return &TransparencyHandler{svc: svc, anon: anon, logger: log}
}

type anonymousIDRequest struct {
	Identity string `json:"identity" validate:"required"`
	Salt     string `json:"salt"`
}

// AnonymousID is deprecated: clients should derive the id locally with
// ledgercrypto.AnonymousID so identity and salt never leave the
// client. Kept for older tooling.
func (h *TransparencyHandler) AnonymousID(w http.ResponseWriter, r *http.Request) {
	var req anonymousIDRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}
	salt := req.Salt
	if salt == "" {
		salt = h.anon.Salt
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]string{
		"anon_id": ledgercrypto.AnonymousID(req.Identity, salt),
	})
}

type raiseConcernRequest struct {
	AnonID      string `json:"anon_id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Target      string `json:"target" validate:"required"`
}

func (h *TransparencyHandler) RaiseConcern(w http.ResponseWriter, r *http.Request) {
	var req raiseConcernRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}

	concern, err := h.svc.RaiseConcern(req.AnonID, req.Title, req.Description, req.Target)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, concern)
}

func (h *TransparencyHandler) ListConcerns(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"concerns": h.svc.ListConcerns(status),
	})
}

func (h *TransparencyHandler) GetConcern(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	concern, err := h.svc.GetConcern(id)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, concern)
}

type respondToConcernRequest struct {
	ConcernID     string `json:"concern_id" validate:"required"`
	ResponderRole string `json:"responder_role" validate:"required"`
	Content       string `json:"content" validate:"required"`
}

func (h *TransparencyHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var req respondToConcernRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}

	resp, err := h.svc.Respond(req.ConcernID, req.ResponderRole, req.Content)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, resp)
}

func (h *TransparencyHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	concern, err := h.svc.Dispute(id)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, concern)
}

type resolveConcernRequest struct {
	ConcernID string `json:"concern_id" validate:"required"`
	AuditorID string `json:"auditor_id" validate:"required"`
	Outcome   string `json:"outcome" validate:"required"`
	Notes     string `json:"notes"`
}

func (h *TransparencyHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveConcernRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}

	resolution, err := h.svc.Resolve(req.ConcernID, req.AuditorID, req.Outcome, req.Notes)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, resolution)
}

// Stats aggregates concerns by status for GET /transparency/stats.
func (h *TransparencyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	concerns := h.svc.ListConcerns("")
	counts := make(map[string]int)
	for _, st := range []transparency.ConcernStatus{
		transparency.ConcernOpen,
		transparency.ConcernResponded,
		transparency.ConcernDisputed,
		transparency.ConcernResolved,
	} {
		counts[string(st)] = 0
	}
	for _, c := range concerns {
		counts[string(c.Status)]++
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"total_concerns": len(concerns),
		"by_status":      counts,
	})
}
