package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks how much of a trace has been simulated.
type ProgressBar struct {
	sync.Mutex
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// Progress returns the finished amount and the total.
func (b *ProgressBar) Progress() (finished, total uint64) {
	b.Lock()
	defer b.Unlock()

	return b.Finished, b.Total
}
