package fanin

import (
	"sync"

	"marketsync/internal/domain/model"
)

// Merge combines several quote channels into one. The result is closed once
// every input is closed.
func Merge(channels ...<-chan model.Quote) <-chan model.Quote {
	out := make(chan model.Quote)
	var wg sync.WaitGroup
	wg.Add(len(channels))

	for _, ch := range channels {
		go func(c <-chan model.Quote) {
			defer wg.Done()
			for v := range c {
				out <- v
			}
		}(ch)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
