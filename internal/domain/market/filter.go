package market

import "iter"

// SelectTradable yields the orders whose deposit window is still open at latestHeight.
// An order with tradeHeight+deposit == latestHeight has expired.
func SelectTradable(orders iter.Seq[Order], latestHeight uint64) iter.Seq[Order] {
	return func(yield func(Order) bool) {
		for o := range orders {
			if !o.TradableAt(latestHeight) {
				continue
			}
			if !yield(o) {
				return
			}
		}
	}
}

// SelectByPair yields the orders trading between the two chains of pair.
func SelectByPair(orders iter.Seq[Order], pair Pair) iter.Seq[Order] {
	return func(yield func(Order) bool) {
		for o := range orders {
			if !pair.Matches(o) {
				continue
			}
			if !yield(o) {
				return
			}
		}
	}
}
