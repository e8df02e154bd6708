package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	query := "SELECT a FROM t WHERE b = ? AND c = ?"
	require.Equal(t, query, Rebind("sqlite", query))
	require.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", Rebind("postgres", query))
}
