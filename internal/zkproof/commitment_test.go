package zkproof

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afr/pkg/apperr"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(t.TempDir())
	require.NoError(t, err)
	return svc
}

func TestCommitProveVerify_CountMeetsThreshold(t *testing.T) {
	svc := newTestService(t)

	c, blinding, err := svc.Commit(7, "", nil)
	require.NoError(t, err)
	assert.Len(t, c.Commitment, 64)
	assert.NotEmpty(t, blinding)

	proof, err := svc.Prove(c.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, "count >= threshold", proof.Claim)

	ok, err := svc.Verify(c.ID, 5, proof.ProofValue)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProve_FailsPreconditionWhenBelowThreshold(t *testing.T) {
	svc := newTestService(t)
	c, _, err := svc.Commit(3, "", nil)
	require.NoError(t, err)

	_, err = svc.Prove(c.ID, 5)
	require.Error(t, err)
	assert.Equal(t, apperr.KindPrecondition, apperr.KindOf(err))
}

func TestVerify_FailsForWrongProofValue(t *testing.T) {
	svc := newTestService(t)
	c, _, err := svc.Commit(10, "", nil)
	require.NoError(t, err)

	ok, err := svc.Verify(c.ID, 5, "not-a-real-proof")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommit_DeterministicWithExplicitBlinding(t *testing.T) {
	svc := newTestService(t)
	c1, _, err := svc.Commit(4, "cafebabe", nil)
	require.NoError(t, err)

	svc2 := newTestService(t)
	c2, _, err := svc2.Commit(4, "cafebabe", nil)
	require.NoError(t, err)

	assert.Equal(t, c1.Commitment, c2.Commitment)
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get("nonexistent")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
