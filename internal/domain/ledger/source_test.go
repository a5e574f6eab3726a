package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistoricalBatchHasNext(t *testing.T) {
	require.False(t, HistoricalBatch{}.HasNext())
	require.False(t, HistoricalBatch{NextBlock: " "}.HasNext())
	require.False(t, HistoricalBatch{NextBlock: "0"}.HasNext())
	require.True(t, HistoricalBatch{NextBlock: "41230"}.HasNext())
}
