package migrations

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrdered(t *testing.T) {
	stmts, err := Ordered()
	require.NoError(t, err)
	require.NotEmpty(t, stmts)
	require.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS holoauth_settings")
}
