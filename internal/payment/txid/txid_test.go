package txid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "alumnireg/pkg/domain"
)

func TestGeneratorIssuesParseableIncreasingIDs(t *testing.T) {
	g, err := New(7)
	require.NoError(t, err)

	seen := make(map[id.TransactionID]bool)
	var prev int
	for range 100 {
		next := g.Next()
		_, err := id.ParseTransactionID(next.String())
		require.NoError(t, err)
		assert.False(t, seen[next], "duplicate id %s", next)
		seen[next] = true
		assert.GreaterOrEqual(t, len(next.String()), prev)
		prev = len(next.String())
	}
}

func TestNewRejectsOutOfRangeNode(t *testing.T) {
	_, err := New(4096)
	assert.Error(t, err)
}
