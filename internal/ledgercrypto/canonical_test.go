package ledgercrypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSON_SortsKeysAtEveryDepth(t *testing.T) {
	a := map[string]interface{}{
		"b": 1,
		"a": map[string]interface{}{
			"z": 1,
			"y": 2,
		},
	}
	out, err := CanonicalJSON(a)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"y":2,"z":1},"b":1}`, string(out))
}

func TestCanonicalHash_Deterministic(t *testing.T) {
	v := map[string]interface{}{"id": 1, "event_type": "training_started"}
	h1, err := CanonicalHash(v)
	require.NoError(t, err)
	h2, err := CanonicalHash(v)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestChainHash_DiffersByPrevHash(t *testing.T) {
	data := map[string]interface{}{"id": 1}
	h1, err := ChainHash(data, ZeroHash)
	require.NoError(t, err)
	h2, err := ChainHash(data, "deadbeef")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestNodeHash_OrderMatters(t *testing.T) {
	left, right := "aaaa", "bbbb"
	assert.NotEqual(t, NodeHash(left, right), NodeHash(right, left))
}

func TestAnonymousID_FormatAndDeterminism(t *testing.T) {
	id1 := AnonymousID("whistleblower-7", "pepper")
	id2 := AnonymousID("whistleblower-7", "pepper")
	assert.Equal(t, id1, id2)
	assert.Regexp(t, `^anon_[0-9a-f]{12}$`, id1)

	id3 := AnonymousID("whistleblower-8", "pepper")
	assert.NotEqual(t, id1, id3)
}
