package types

import (
	"sync"

	"github.com/Nooom01/automl-agent-system/log"
)

// ProgressStatus is the lifecycle state a progress event reports
type ProgressStatus string

const (
	ProgressPending   ProgressStatus = "pending"
	ProgressRunning   ProgressStatus = "running"
	ProgressCompleted ProgressStatus = "completed"
	ProgressFailed    ProgressStatus = "failed"
)

func (s ProgressStatus) String() string {
	return string(s)
}

// Progress describes one phase's status for one strategy. Events are
// transient; consumers must key them by strategy id since phases of
// different strategies interleave arbitrarily
type Progress struct {
	StrategyID string         `json:"strategy_id"`
	Phase      Phase          `json:"phase"`
	Percent    int            `json:"progress"`
	Status     ProgressStatus `json:"status"`
	Message    string         `json:"message,omitempty"`
	// Metrics carries phase readings when the emitter has them
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Timestamp int64              `json:"timestamp"`
}

func (p *Progress) Clone() *Progress {
	var metrics map[string]float64
	if p.Metrics != nil {
		metrics = make(map[string]float64, len(p.Metrics))
		for k, v := range p.Metrics {
			metrics[k] = v
		}
	}
	return &Progress{
		StrategyID: p.StrategyID,
		Phase:      p.Phase,
		Percent:    p.Percent,
		Status:     p.Status,
		Message:    p.Message,
		Metrics:    metrics,
		Timestamp:  p.Timestamp,
	}
}

// Terminal indicates the event closes out its phase
func (p *Progress) Terminal() bool {
	return p.Status == ProgressCompleted || p.Status == ProgressFailed
}

// ProgressQueue fans progress events out to subscribers in FIFO order.
// Every subscriber receives its own clone of every event
type ProgressQueue struct {
	events      []*Progress
	subscribers map[string]chan *Progress
	lock        *sync.Mutex
	size        int
	signal      chan struct{}
	*BaseService
}

// NewProgressQueue returns an empty ProgressQueue
func NewProgressQueue(logger *log.Logger) *ProgressQueue {
	return &ProgressQueue{
		events:      make([]*Progress, 0),
		size:        0,
		subscribers: make(map[string]chan *Progress),
		lock:        new(sync.Mutex),
		signal:      make(chan struct{}, 1),
		BaseService: NewBaseService("ProgressQueue", logger),
	}
}

// Start implements Service
func (q *ProgressQueue) Start() error {
	q.StartRunning()
	go q.dispatchloop()
	return nil
}

func (q *ProgressQueue) dispatchloop() {
	for {
		select {
		case <-q.signal:
		case <-q.QuitCh():
			return
		}

		for {
			q.lock.Lock()
			if q.size == 0 {
				q.lock.Unlock()
				break
			}
			event := q.events[0]
			q.events = q.events[1:]
			q.size = q.size - 1
			subscribers := make([]chan *Progress, 0, len(q.subscribers))
			for _, s := range q.subscribers {
				subscribers = append(subscribers, s)
			}
			q.lock.Unlock()

			// Sends stay in this goroutine so each subscriber observes
			// events in publish order
			for _, s := range subscribers {
				select {
				case s <- event.Clone():
				case <-q.QuitCh():
					return
				}
			}
		}
	}
}

// Stop implements Service
func (q *ProgressQueue) Stop() error {
	q.StopRunning()
	return nil
}

// Add appends an event to the queue
func (q *ProgressQueue) Add(p *Progress) {
	q.lock.Lock()
	q.events = append(q.events, p)
	q.size = q.size + 1
	q.lock.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Size returns the number of undispatched events
func (q *ProgressQueue) Size() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.size
}

// Flush clears the queue of all events
func (q *ProgressQueue) Flush() {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.events = make([]*Progress, 0)
	q.size = 0
}

// Restart implements Service
func (q *ProgressQueue) Restart() error {
	q.Flush()
	return nil
}

// Subscribe registers a labeled consumer channel. Labels must be unique
func (q *ProgressQueue) Subscribe(label string) (chan *Progress, error) {
	q.lock.Lock()
	defer q.lock.Unlock()
	_, ok := q.subscribers[label]
	if ok {
		return nil, ErrDuplicateSubs
	}
	newChan := make(chan *Progress, 10)
	q.subscribers[label] = newChan
	return newChan, nil
}
