package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-notes-mcp/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestS256Challenge(t *testing.T) {
	// RFC 7636 appendix B
	require.Equal(t,
		"E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		utils.S256Challenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))
}

func TestRandomString(t *testing.T) {
	a, err := utils.RandomString(32)
	require.NoError(t, err)
	b, err := utils.RandomString(32)
	require.NoError(t, err)

	require.Len(t, a, 43)
	require.NotEqual(t, a, b)
	require.NotContains(t, a, "=")
}

func TestHashSecret(t *testing.T) {
	require.Equal(t, utils.HashSecret("abc"), utils.HashSecret("abc"))
	require.NotEqual(t, utils.HashSecret("abc"), utils.HashSecret("abd"))
	require.True(t, utils.ConstantTimeEqual("abc", "abc"))
	require.False(t, utils.ConstantTimeEqual("abc", "ab"))
}

func TestPtrValue(t *testing.T) {
	require.Equal(t, 0, utils.Value[int](nil))
	require.Equal(t, "x", utils.Value(utils.Ptr("x")))
}
