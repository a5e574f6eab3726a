package market

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func heightOrder(hash string, tradeHeight, deposit uint64) Order {
	return Order{Hash: hash, SendsFromChain: "nrg", ReceivesToChain: "usdt", TradeHeight: tradeHeight, Deposit: deposit}
}

func TestSelectTradableBoundaryIsExclusive(t *testing.T) {
	orders := []Order{
		heightOrder("expired", 90, 10),
		heightOrder("live", 91, 10),
		heightOrder("old", 10, 5),
	}

	got := slices.Collect(SelectTradable(slices.Values(orders), 100))
	require.Len(t, got, 1)
	require.Equal(t, "live", got[0].Hash)
}

func TestSelectTradablePreservesOrderAndRestarts(t *testing.T) {
	orders := []Order{
		heightOrder("a", 100, 50),
		heightOrder("b", 1, 1),
		heightOrder("c", 120, 1),
		heightOrder("d", 200, 0),
	}
	seq := SelectTradable(slices.Values(orders), 110)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	require.Equal(t, first, second)
	require.Equal(t, []string{"a", "c", "d"}, hashes(first))
	require.Equal(t, "b", orders[1].Hash)
}

func TestSelectTradableProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		latest := rapid.Uint64Range(0, 1_000).Draw(t, "latest")
		n := rapid.IntRange(0, 20).Draw(t, "n")
		orders := make([]Order, n)
		for i := range orders {
			orders[i] = heightOrder("", rapid.Uint64Range(0, 1_000).Draw(t, "trade"), rapid.Uint64Range(0, 100).Draw(t, "deposit"))
		}
		kept := 0
		for o := range SelectTradable(slices.Values(orders), latest) {
			require.Greater(t, o.TradeHeight+o.Deposit, latest)
			kept++
		}
		expected := 0
		for _, o := range orders {
			if o.TradeHeight+o.Deposit > latest {
				expected++
			}
		}
		require.Equal(t, expected, kept)
	})
}

func TestSelectByPairIsSymmetric(t *testing.T) {
	orders := []Order{
		{Hash: "sell", SendsFromChain: "nrg", ReceivesToChain: "usdt"},
		{Hash: "other", SendsFromChain: "btc", ReceivesToChain: "usdt"},
		{Hash: "buy", SendsFromChain: "USDT", ReceivesToChain: "NRG"},
		{Hash: "self", SendsFromChain: "nrg", ReceivesToChain: "nrg"},
		{Hash: "eth", SendsFromChain: "nrg", ReceivesToChain: "eth"},
	}

	got := slices.Collect(SelectByPair(slices.Values(orders), DefaultPair))
	require.Equal(t, []string{"sell", "buy"}, hashes(got))

	flipped := Pair{Base: "usdt", Quote: "nrg"}
	got = slices.Collect(SelectByPair(slices.Values(orders), flipped))
	require.Equal(t, []string{"sell", "buy"}, hashes(got))
}

func TestSelectByPairStopsEarly(t *testing.T) {
	orders := []Order{
		{Hash: "1", SendsFromChain: "nrg", ReceivesToChain: "usdt"},
		{Hash: "2", SendsFromChain: "nrg", ReceivesToChain: "usdt"},
	}
	var seen []string
	for o := range SelectByPair(slices.Values(orders), DefaultPair) {
		seen = append(seen, o.Hash)
		break
	}
	require.Equal(t, []string{"1"}, seen)
}

func TestNewPair(t *testing.T) {
	p, err := NewPair(" NRG ", "usdt")
	require.NoError(t, err)
	require.Equal(t, DefaultPair, p)
	require.Equal(t, "NRG/USDT", p.String())

	_, err = NewPair("nrg", "NRG")
	require.Error(t, err)
	_, err = NewPair("", "usdt")
	require.Error(t, err)
}

func hashes(orders []Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.Hash)
	}
	return out
}
