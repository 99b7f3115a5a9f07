package httpapi

import (
	"net/http"

	"afr/internal/mirror"
	"afr/pkg/logger"
)

// MirrorHandler serves the replication-simulator demo endpoints.
type MirrorHandler struct {
	svc    *mirror.Service
	logger logger.Logger
}

func NewMirrorHandler(svc *mirror.Service, log logger.Logger) *MirrorHandler {
	return &MirrorHandler{svc: svc, logger: log}
}

func (h *MirrorHandler) Sync(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.svc.SyncAll()
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{"snapshots": snapshots})
}

func (h *MirrorHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{"status": h.svc.Status()})
}

func (h *MirrorHandler) Compare(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.svc.Compare())
}

type mirrorTamperRequest struct {
	Party      string      `json:"party" validate:"required"`
	RecordType string      `json:"record_type" validate:"required"`
	RecordID   string      `json:"record_id" validate:"required"`
	Field      string      `json:"field" validate:"required"`
	NewValue   interface{} `json:"new_value"`
}

func (h *MirrorHandler) Tamper(w http.ResponseWriter, r *http.Request) {
	var req mirrorTamperRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}

	if err := h.svc.Tamper(mirror.Party(req.Party), mirror.RecordType(req.RecordType), req.RecordID, req.Field, req.NewValue); err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "tampered"})
}

func (h *MirrorHandler) Detect(w http.ResponseWriter, r *http.Request) {
	reports, err := h.svc.Detect()
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{"divergent": reports})
}

func (h *MirrorHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(); err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "reset"})
}
