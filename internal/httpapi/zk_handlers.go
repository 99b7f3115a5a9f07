package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"afr/internal/zkproof"
	"afr/pkg/logger"
)

// ZKHandler serves the commitment/prove/verify endpoints.
type ZKHandler struct {
	svc    *zkproof.Service
	logger logger.Logger
}

func NewZKHandler(svc *zkproof.Service, log logger.Logger) *ZKHandler {
	return &ZKHandler{svc: svc, logger: log}
}

type commitRequest struct {
	Count    int                    `json:"count"`
	Blinding string                 `json:"blinding"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (h *ZKHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}

	commitment, blinding, err := h.svc.Commit(req.Count, req.Blinding, req.Metadata)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, map[string]interface{}{
		"commitment": commitment,
		"blinding":   blinding,
	})
}

func (h *ZKHandler) GetCommitment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	commitment, err := h.svc.Get(id)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, commitment)
}

type proveRequest struct {
	CommitmentID string `json:"commitment_id" validate:"required"`
	Threshold    int    `json:"threshold"`
}

func (h *ZKHandler) Prove(w http.ResponseWriter, r *http.Request) {
	var req proveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}

	proof, err := h.svc.Prove(req.CommitmentID, req.Threshold)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, proof)
}

type verifyProofValueRequest struct {
	CommitmentID string `json:"commitment_id" validate:"required"`
	Threshold    int    `json:"threshold"`
	ProofValue   string `json:"proof_value" validate:"required,hex64"`
}

func (h *ZKHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyProofValueRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}

	valid, err := h.svc.Verify(req.CommitmentID, req.Threshold, req.ProofValue)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]bool{"valid": valid})
}
