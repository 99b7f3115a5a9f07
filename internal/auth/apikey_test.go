package auth

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

func TestRegister_ReturnsRawKeyOnceAndAuthenticates(t *testing.T) {
	svc := newTestService(t)

	party, rawKey, err := svc.Register("Acme Labs", string(RoleLab))
	require.NoError(t, err)
	assert.NotEmpty(t, rawKey)
	assert.Equal(t, RoleLab, party.Role)

	authed, err := svc.Authenticate(rawKey)
	require.NoError(t, err)
	assert.Equal(t, party.PartyID, authed.PartyID)
}

func TestRegister_RejectsUnknownRole(t *testing.T) {
	svc := newTestService(t)
	_, _, err := svc.Register("X", "overlord")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestAuthenticate_UnknownKeyFails(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Authenticate("afr_not_a_real_key")
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
}

func TestRotate_InvalidatesOldKeyImmediately(t *testing.T) {
	svc := newTestService(t)
	party, oldKey, err := svc.Register("Auditor Co", string(RoleAuditor))
	require.NoError(t, err)

	newKey, err := svc.Rotate(party.PartyID)
	require.NoError(t, err)
	assert.NotEqual(t, oldKey, newKey)

	_, err = svc.Authenticate(oldKey)
	require.Error(t, err)

	authed, err := svc.Authenticate(newKey)
	require.NoError(t, err)
	assert.Equal(t, party.PartyID, authed.PartyID)
}

func TestRevoke_DeletesPartyAndInvalidatesKey(t *testing.T) {
	svc := newTestService(t)
	party, rawKey, err := svc.Register("Gov Office", string(RoleGovernment))
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(party.PartyID))

	_, err = svc.Authenticate(rawKey)
	require.Error(t, err)
}

func TestReset_ClearsAllParties(t *testing.T) {
	svc := newTestService(t)
	_, _, err := svc.Register("X", string(RoleLab))
	require.NoError(t, err)

	require.NoError(t, svc.Reset())
	assert.Empty(t, svc.List())
}
