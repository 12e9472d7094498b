package types

import (
	"sync"
	"time"
)

// RunStatus is the lifecycle state of one submitted task
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// maxTrailEvents bounds the progress trail kept per run
const maxTrailEvents = 200

// RunRecord tracks one submitted task from parsing through comparison.
// Concurrent paths mutate it through its methods only
type RunRecord struct {
	ID          string
	Seq         int
	Description string
	Task        *Task
	Plans       []*OptimizationPlan
	Status      RunStatus
	Results     []*ExecutionResult
	Comparison  *StrategyComparison
	// Suggestions maps failed strategy ids to troubleshooting advice
	Suggestions map[string][]string
	Error       string
	CreatedAt   time.Time
	CompletedAt time.Time

	trail []*Progress
	lock  *sync.Mutex
}

func NewRunRecord(id string, seq int, description string) *RunRecord {
	return &RunRecord{
		ID:          id,
		Seq:         seq,
		Description: description,
		Status:      RunQueued,
		Suggestions: make(map[string][]string),
		CreatedAt:   time.Now(),
		trail:       make([]*Progress, 0),
		lock:        new(sync.Mutex),
	}
}

// Begin marks the run as executing once planning produced its strategies
func (r *RunRecord) Begin(task *Task, plans []*OptimizationPlan) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.Task = task
	r.Plans = plans
	r.Status = RunRunning
}

// Complete records the final results and comparison
func (r *RunRecord) Complete(results []*ExecutionResult, comparison *StrategyComparison) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.Results = results
	r.Comparison = comparison
	r.Status = RunCompleted
	r.CompletedAt = time.Now()
}

// Fail records a run that produced no usable outcome. Results may still be
// present when every strategy failed
func (r *RunRecord) Fail(results []*ExecutionResult, err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.Results = results
	if err != nil {
		r.Error = err.Error()
	}
	r.Status = RunFailed
	r.CompletedAt = time.Now()
}

// AddSuggestions attaches knowledge base advice for one failed strategy
func (r *RunRecord) AddSuggestions(strategyID string, advice []string) {
	if len(advice) == 0 {
		return
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.Suggestions[strategyID] = append(r.Suggestions[strategyID], advice...)
}

// AppendProgress adds an event to the bounded trail, dropping the oldest
// once full
func (r *RunRecord) AppendProgress(p *Progress) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.trail = append(r.trail, p)
	if len(r.trail) > maxTrailEvents {
		r.trail = r.trail[len(r.trail)-maxTrailEvents:]
	}
}

// Trail returns a copy of the recorded progress events
func (r *RunRecord) Trail() []*Progress {
	r.lock.Lock()
	defer r.lock.Unlock()
	trail := make([]*Progress, len(r.trail))
	copy(trail, r.trail)
	return trail
}

// RunView is a point in time copy of a run, safe to serialize while the run
// is still executing
type RunView struct {
	ID          string              `json:"run_id"`
	Seq         int                 `json:"seq"`
	Description string              `json:"description"`
	Task        *Task               `json:"task,omitempty"`
	Plans       []*OptimizationPlan `json:"plans,omitempty"`
	Status      RunStatus           `json:"status"`
	Results     []*ExecutionResult  `json:"results,omitempty"`
	Comparison  *StrategyComparison `json:"comparison,omitempty"`
	Suggestions map[string][]string `json:"suggestions,omitempty"`
	Error       string              `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

func (r *RunRecord) Snapshot() *RunView {
	r.lock.Lock()
	defer r.lock.Unlock()

	view := &RunView{
		ID:          r.ID,
		Seq:         r.Seq,
		Description: r.Description,
		Task:        r.Task,
		Status:      r.Status,
		Comparison:  r.Comparison,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
	}
	if len(r.Plans) > 0 {
		view.Plans = make([]*OptimizationPlan, len(r.Plans))
		copy(view.Plans, r.Plans)
	}
	if len(r.Results) > 0 {
		view.Results = make([]*ExecutionResult, len(r.Results))
		copy(view.Results, r.Results)
	}
	if len(r.Suggestions) > 0 {
		view.Suggestions = make(map[string][]string, len(r.Suggestions))
		for k, v := range r.Suggestions {
			view.Suggestions[k] = v
		}
	}
	if !r.CompletedAt.IsZero() {
		completed := r.CompletedAt
		view.CompletedAt = &completed
	}
	return view
}

// RunStore is a thread safe map of runs keyed by run id
type RunStore struct {
	runs map[string]*RunRecord
	lock *sync.Mutex
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*RunRecord),
		lock: new(sync.Mutex),
	}
}

func (s *RunStore) Add(r *RunRecord) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.runs[r.ID] = r
}

func (s *RunStore) Get(id string) (r *RunRecord, ok bool) {
	s.lock.Lock()
	r, ok = s.runs[id]
	s.lock.Unlock()
	return
}

func (s *RunStore) Count() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.runs)
}

func (s *RunStore) Iter() []*RunRecord {
	s.lock.Lock()
	defer s.lock.Unlock()
	runs := make([]*RunRecord, len(s.runs))
	i := 0
	for _, r := range s.runs {
		runs[i] = r
		i++
	}
	return runs
}

func (s *RunStore) RemoveAll() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.runs = make(map[string]*RunRecord)
}
