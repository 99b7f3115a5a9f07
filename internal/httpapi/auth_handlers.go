package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"afr/internal/auth"
	"afr/internal/middleware"
	"afr/internal/ratelimit"
	"afr/pkg/logger"
)

// AuthHandler serves registration, rotation, and party management.
type AuthHandler struct {
	svc     *auth.Service
	limiter ratelimit.Limiter
	logger  logger.Logger
}

func NewAuthHandler(svc *auth.Service, limiter ratelimit.Limiter, log logger.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, limiter: limiter, logger: log}
}

type registerRequest struct {
	Name string `json:"name" validate:"required"`
	Role string `json:"role" validate:"required"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}

	party, rawKey, err := h.svc.Register(req.Name, req.Role)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, map[string]interface{}{
		"party":   party,
		"api_key": rawKey,
	})
}

func (h *AuthHandler) ListParties(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"parties": h.svc.List(),
	})
}

func (h *AuthHandler) RevokeParty(w http.ResponseWriter, r *http.Request) {
	partyID := mux.Vars(r)["party_id"]
	if err := h.svc.Revoke(partyID); err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "revoked"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	party, ok := middleware.PartyFromContext(r.Context())
	if !ok {
		respondErrorMessage(w, h.logger, http.StatusUnauthorized, "authentication required")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, party)
}

func (h *AuthHandler) RotateKey(w http.ResponseWriter, r *http.Request) {
	party, ok := middleware.PartyFromContext(r.Context())
	if !ok {
		respondErrorMessage(w, h.logger, http.StatusUnauthorized, "authentication required")
		return
	}

	newKey, err := h.svc.Rotate(party.PartyID)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]string{"api_key": newKey})
}

func (h *AuthHandler) DemoReset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(); err != nil {
		respondErr(w, h.logger, err)
		return
	}
	if resettable, ok := h.limiter.(ratelimit.Resettable); ok {
		resettable.Reset()
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "reset"})
}
