package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskEmail(t *testing.T) {
	require.Equal(t, "a…@e….com", MaskEmail(" Alice@Example.com "))
	require.Equal(t, "b@h….host", MaskEmail("b@holo.host"))
	require.Equal(t, "***", MaskEmail("abc"))
	require.Equal(t, "", MaskEmail(""))
}
