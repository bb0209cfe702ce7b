package fanout

import (
	"hash/fnv"

	"marketsync/internal/domain/model"
)

// BySymbol spreads quotes from in across n output channels. Quotes for the
// same symbol always land on the same channel, so per-symbol order is kept.
// The outputs are closed once in is closed and drained.
func BySymbol(in <-chan model.Quote, n int, buffer int) []chan model.Quote {
	if n <= 0 {
		n = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	outs := make([]chan model.Quote, n)
	for i := 0; i < n; i++ {
		outs[i] = make(chan model.Quote, buffer)
	}

	go func() {
		defer func() {
			for _, ch := range outs {
				close(ch)
			}
		}()
		for q := range in {
			outs[Shard(q.Symbol, n)] <- q
		}
	}()

	return outs
}

// Shard maps a symbol onto [0, n).
func Shard(symbol string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return int(h.Sum32() % uint32(n))
}
