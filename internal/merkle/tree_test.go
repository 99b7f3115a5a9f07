package merkle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_EmptyTree(t *testing.T) {
	tr := Build(nil)
	assert.Equal(t, "", tr.Root())
}

func TestBuild_SingleLeaf_RootEqualsLeafAndEmptyProof(t *testing.T) {
	tr := Build([]string{"h0"})
	assert.Equal(t, "h0", tr.Root())

	proof, err := tr.Prove(0)
	require.NoError(t, err)
	assert.Empty(t, proof)
	assert.True(t, Verify("h0", proof, tr.Root()))
}

func TestBuild_ThreeLeaves_OddLevelDuplicatesLast(t *testing.T) {
	h0, h1, h2 := "h0", "h1", "h2"
	tr := Build([]string{h0, h1, h2})

	expectedRoot := nodeHash(nodeHash(h0, h1), nodeHash(h2, h2))
	assert.Equal(t, expectedRoot, tr.Root())
}

func TestProve_VerifiesForEveryLeaf(t *testing.T) {
	leaves := []string{"h0", "h1", "h2", "h3", "h4"}
	tr := Build(leaves)
	root := tr.Root()

	for i, leaf := range leaves {
		proof, err := tr.Prove(i)
		require.NoError(t, err)
		assert.True(t, Verify(leaf, proof, root), "leaf %d should verify", i)
	}
}

func TestVerify_FailsForWrongLeaf(t *testing.T) {
	leaves := []string{"h0", "h1", "h2", "h3"}
	tr := Build(leaves)
	proof, err := tr.Prove(0)
	require.NoError(t, err)
	assert.False(t, Verify("not-the-leaf", proof, tr.Root()))
}

func TestProve_OutOfRange(t *testing.T) {
	tr := Build([]string{"h0"})
	_, err := tr.Prove(5)
	require.Error(t, err)
}
