package util

import (
	"sync"
)

// Counter is a thread safe monotonic counter
type Counter struct {
	counter int
	mtx     *sync.Mutex
}

// NewCounter returns a counter starting at zero
func NewCounter() *Counter {
	return &Counter{
		counter: 0,
		mtx:     new(sync.Mutex),
	}
}

// Next returns the current value and increments the counter
func (id *Counter) Next() int {
	id.mtx.Lock()
	defer id.mtx.Unlock()

	cur := id.counter
	id.counter = id.counter + 1

	return cur
}

func (id *Counter) Reset() {
	id.mtx.Lock()
	defer id.mtx.Unlock()

	id.counter = 0
}
