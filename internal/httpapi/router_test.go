package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afr/internal/auditlog"
	"afr/internal/auth"
	"afr/internal/mirror"
	"afr/internal/ratelimit"
	"afr/internal/transparency"
	"afr/internal/zkproof"
	"afr/pkg/config"
	"afr/pkg/logger"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()

	auditSvc, err := auditlog.NewService(dir)
	require.NoError(t, err)
	transparencySvc, err := transparency.NewService(dir, auditSvc)
	require.NoError(t, err)
	zkSvc, err := zkproof.NewService(dir)
	require.NoError(t, err)
	authSvc, err := auth.NewService(dir)
	require.NoError(t, err)
	mirrorSvc, err := mirror.NewService(dir, transparencySvc)
	require.NoError(t, err)

	return NewRouter(Dependencies{
		Audit:           auditSvc,
		Transparency:    transparencySvc,
		ZK:              zkSvc,
		Auth:            authSvc,
		Mirror:          mirrorSvc,
		RegisterLimiter: ratelimit.NewMemoryLimiter(5, time.Minute),
		Anon:            config.AnonConfig{Salt: "test-salt"},
		Logger:          logger.NewNop(),
	})
}

func doJSON(t *testing.T, h http.Handler, method, path, apiKey string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func registerParty(t *testing.T, h http.Handler, name, role string) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/auth/register", "", map[string]string{"name": name, "role": role})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		APIKey string `json:"api_key"`
	}
	decodeBody(t, rec, &resp)
	require.True(t, strings.HasPrefix(resp.APIKey, "afr_"))
	return resp.APIKey
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEvents_AppendVerifyTamperDetect(t *testing.T) {
	h := newTestRouter(t)

	for _, et := range []string{"safety_eval_run", "safety_eval_passed", "model_deployed"} {
		rec := doJSON(t, h, http.MethodPost, "/events", "", map[string]interface{}{
			"event_type":  et,
			"description": "scenario event",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doJSON(t, h, http.MethodGet, "/verify", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var verify struct {
		Valid bool `json:"valid"`
	}
	decodeBody(t, rec, &verify)
	assert.True(t, verify.Valid)

	rec = doJSON(t, h, http.MethodPost, "/demo/tamper", "", map[string]interface{}{
		"event_id":  1,
		"field":     "description",
		"new_value": "ok",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/verify", "", nil)
	var broken struct {
		Valid          bool `json:"valid"`
		FirstInvalidID *int `json:"first_invalid_id"`
	}
	decodeBody(t, rec, &broken)
	assert.False(t, broken.Valid)
	require.NotNil(t, broken.FirstInvalidID)
	assert.Equal(t, 1, *broken.FirstInvalidID)
}

func TestProof_RoundTripsThroughVerifyEndpoint(t *testing.T) {
	h := newTestRouter(t)
	rec := doJSON(t, h, http.MethodPost, "/demo/populate", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/proof/3", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var proofResp map[string]interface{}
	decodeBody(t, rec, &proofResp)

	rec = doJSON(t, h, http.MethodPost, "/proof/verify", "", map[string]interface{}{
		"leaf_hash": proofResp["leaf_hash"],
		"proof":     proofResp["proof"],
		"root":      proofResp["root"],
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var verdict struct {
		Valid bool `json:"valid"`
	}
	decodeBody(t, rec, &verdict)
	assert.True(t, verdict.Valid)
}

func TestRegister_SixthRequestRateLimited(t *testing.T) {
	h := newTestRouter(t)
	for i := 0; i < 5; i++ {
		rec := doJSON(t, h, http.MethodPost, "/auth/register", "", map[string]string{
			"name": fmt.Sprintf("party-%d", i),
			"role": "lab",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doJSON(t, h, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "party-6",
		"role": "lab",
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRotateKey_OldKeyInvalidNewKeyWorks(t *testing.T) {
	h := newTestRouter(t)
	oldKey := registerParty(t, h, "Acme Labs", "lab")

	rec := doJSON(t, h, http.MethodPost, "/auth/rotate-key", oldKey, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rotated struct {
		APIKey string `json:"api_key"`
	}
	decodeBody(t, rec, &rotated)

	rec = doJSON(t, h, http.MethodGet, "/auth/me", oldKey, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/auth/me", rotated.APIKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCompliance_RoleGatingAndDeploymentGate(t *testing.T) {
	h := newTestRouter(t)
	labKey := registerParty(t, h, "Acme Labs", "lab")
	auditorKey := registerParty(t, h, "Audit Co", "auditor")

	evidence := strings.Repeat("ab", 32)
	submit := func(template string) string {
		rec := doJSON(t, h, http.MethodPost, "/compliance/submissions", labKey, map[string]string{
			"lab_id":        "acme",
			"deployment_id": "gpt-safe-v2.1-prod",
			"model_id":      "gpt-safe-v2.1",
			"template_type": template,
			"title":         "evidence for " + template,
			"evidence_hash": evidence,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var sub struct {
			ID string `json:"id"`
		}
		decodeBody(t, rec, &sub)
		return sub.ID
	}

	// Submitting without a lab key is rejected before the handler runs.
	rec := doJSON(t, h, http.MethodPost, "/compliance/submissions", "", map[string]string{"lab_id": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = doJSON(t, h, http.MethodPost, "/compliance/submissions", auditorKey, map[string]string{"lab_id": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	templates := []string{"safety_evaluation", "capability_assessment", "red_team_report"}
	for _, tmpl := range templates {
		id := submit(tmpl)
		rec := doJSON(t, h, http.MethodPost, "/compliance/review", auditorKey, map[string]string{
			"submission_id": id,
			"decision":      "verify",
			"notes":         "checked",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/compliance/status/gpt-safe-v2.1-prod?model_id=gpt-safe-v2.1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Cleared  bool     `json:"cleared"`
		Blocking []string `json:"blocking"`
	}
	decodeBody(t, rec, &status)
	assert.True(t, status.Cleared, "blocking: %v", status.Blocking)
}

func TestDeploymentGate_BlockedByConcernUntilResolved(t *testing.T) {
	h := newTestRouter(t)
	labKey := registerParty(t, h, "Acme Labs", "lab")
	auditorKey := registerParty(t, h, "Audit Co", "auditor")

	evidence := strings.Repeat("cd", 32)
	for _, tmpl := range []string{"safety_evaluation", "capability_assessment", "red_team_report"} {
		rec := doJSON(t, h, http.MethodPost, "/compliance/submissions", labKey, map[string]string{
			"lab_id":        "acme",
			"deployment_id": "dep-1",
			"model_id":      "model-1",
			"template_type": tmpl,
			"title":         tmpl,
			"evidence_hash": evidence,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		var sub struct {
			ID string `json:"id"`
		}
		decodeBody(t, rec, &sub)
		rec = doJSON(t, h, http.MethodPost, "/compliance/review", auditorKey, map[string]string{
			"submission_id": sub.ID,
			"decision":      "verify",
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, h, http.MethodPost, "/transparency/concerns", "", map[string]string{
		"anon_id": "anon_abcdef123456",
		"title":   "possible eval gap",
		"target":  "dep-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var concern struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &concern)

	rec = doJSON(t, h, http.MethodGet, "/compliance/status/dep-1?model_id=model-1", "", nil)
	var blocked struct {
		Cleared  bool     `json:"cleared"`
		Blocking []string `json:"blocking"`
	}
	decodeBody(t, rec, &blocked)
	assert.False(t, blocked.Cleared)
	assert.Contains(t, blocked.Blocking, "1 unresolved concern")

	rec = doJSON(t, h, http.MethodPost, "/transparency/resolutions", auditorKey, map[string]string{
		"concern_id": concern.ID,
		"auditor_id": "audit-co",
		"outcome":    "accepted",
		"notes":      "mitigated",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/compliance/status/dep-1?model_id=model-1", "", nil)
	var cleared struct {
		Cleared bool `json:"cleared"`
	}
	decodeBody(t, rec, &cleared)
	assert.True(t, cleared.Cleared)
}

func TestZK_CommitProveVerifyEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/zk/commitment", "", map[string]interface{}{"count": 7})
	require.Equal(t, http.StatusCreated, rec.Code)
	var committed struct {
		Commitment struct {
			ID string `json:"id"`
		} `json:"commitment"`
		Blinding string `json:"blinding"`
	}
	decodeBody(t, rec, &committed)
	assert.NotEmpty(t, committed.Blinding)

	rec = doJSON(t, h, http.MethodPost, "/zk/prove", "", map[string]interface{}{
		"commitment_id": committed.Commitment.ID,
		"threshold":     5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var proof struct {
		ProofValue string `json:"proof_value"`
	}
	decodeBody(t, rec, &proof)

	rec = doJSON(t, h, http.MethodPost, "/zk/verify", "", map[string]interface{}{
		"commitment_id": committed.Commitment.ID,
		"threshold":     5,
		"proof_value":   proof.ProofValue,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var verdict struct {
		Valid bool `json:"valid"`
	}
	decodeBody(t, rec, &verdict)
	assert.True(t, verdict.Valid)

	// Below-threshold commitments cannot be proven.
	rec = doJSON(t, h, http.MethodPost, "/zk/commitment", "", map[string]interface{}{"count": 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	decodeBody(t, rec, &committed)
	rec = doJSON(t, h, http.MethodPost, "/zk/prove", "", map[string]interface{}{
		"commitment_id": committed.Commitment.ID,
		"threshold":     5,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMirror_SyncCompareTamperDetect(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/transparency/concerns", "", map[string]string{
		"anon_id": "anon_abcdef123456",
		"title":   "original title",
		"target":  "dep-9",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var concern struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &concern)

	rec = doJSON(t, h, http.MethodPost, "/demo/mirror/sync", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/demo/mirror/compare", "", nil)
	var cmp struct {
		Consistent bool `json:"consistent"`
	}
	decodeBody(t, rec, &cmp)
	assert.True(t, cmp.Consistent)

	rec = doJSON(t, h, http.MethodPost, "/demo/mirror/tamper", "", map[string]interface{}{
		"party":       "lab",
		"record_type": "concern",
		"record_id":   concern.ID,
		"field":       "title",
		"new_value":   "nothing",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/demo/mirror/detect", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detect struct {
		Divergent []struct {
			Party              string   `json:"party"`
			DivergentRecordIDs []string `json:"divergent_record_ids"`
		} `json:"divergent"`
	}
	decodeBody(t, rec, &detect)
	require.Len(t, detect.Divergent, 1)
	assert.Equal(t, "lab", detect.Divergent[0].Party)
	assert.Contains(t, detect.Divergent[0].DivergentRecordIDs, concern.ID)
}

func TestAnonymousID_DerivedDeterministically(t *testing.T) {
	h := newTestRouter(t)
	body := map[string]string{"identity": "whistleblower-7", "salt": "pepper"}

	rec1 := doJSON(t, h, http.MethodPost, "/transparency/anonymous-id", "", body)
	rec2 := doJSON(t, h, http.MethodPost, "/transparency/anonymous-id", "", body)
	require.Equal(t, http.StatusOK, rec1.Code)

	var r1, r2 struct {
		AnonID string `json:"anon_id"`
	}
	decodeBody(t, rec1, &r1)
	decodeBody(t, rec2, &r2)
	assert.Equal(t, r1.AnonID, r2.AnonID)
	assert.Regexp(t, `^anon_[0-9a-f]{12}$`, r1.AnonID)
}
