package orchestrator

import (
	goctx "context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Nooom01/automl-agent-system/agents"
	"github.com/Nooom01/automl-agent-system/compare"
	"github.com/Nooom01/automl-agent-system/context"
	"github.com/Nooom01/automl-agent-system/executor"
	"github.com/Nooom01/automl-agent-system/knowledge"
	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/taskspec"
	"github.com/Nooom01/automl-agent-system/types"
)

// Sink receives finished runs for archival. A nil sink skips archival
type Sink interface {
	SaveRun(ctx goctx.Context, view *types.RunView) error
}

// Request describes one optimization run
type Request struct {
	// Description free text task description, used when Spec is unset
	Description string
	// Spec optional structured run description
	Spec *taskspec.Spec
	// Dataset optional prepared dataset handed to the data phase
	Dataset types.Dataset
	// Options override the configured execution bounds for this run
	Options *executor.Options
}

// Orchestrator drives submitted tasks end to end through parsing, planning,
// execution and comparison, and keeps the run records current
type Orchestrator struct {
	ctx       *context.RootContext
	parser    *agents.TaskParser
	planner   *agents.StrategyPlanner
	executor  *executor.Executor
	knowledge *knowledge.Base
	sink      Sink

	progressCh   chan *types.Progress
	strategyRuns map[string]*types.RunRecord
	lock         *sync.Mutex
	*types.BaseService
}

// New wires an orchestrator into the root context's progress queue and run
// store
func New(rctx *context.RootContext, delegates executor.Delegates, sink Sink) (*Orchestrator, error) {
	progressCh, err := rctx.Progress.Subscribe("orchestrator")
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		ctx:          rctx,
		parser:       agents.NewTaskParser(rctx.Logger),
		planner:      agents.NewStrategyPlanner(rctx.Logger),
		executor:     executor.NewExecutor(delegates, rctx.Progress, rctx.Logger),
		knowledge:    knowledge.NewBase(),
		sink:         sink,
		progressCh:   progressCh,
		strategyRuns: make(map[string]*types.RunRecord),
		lock:         new(sync.Mutex),
		BaseService:  types.NewBaseService("Orchestrator", rctx.Logger),
	}, nil
}

// Start implements Service
func (o *Orchestrator) Start() error {
	o.StartRunning()
	go o.trailLoop()
	return nil
}

// Stop implements Service
func (o *Orchestrator) Stop() error {
	o.StopRunning()
	return nil
}

// trailLoop copies progress events onto the trail of the run owning the
// emitting strategy
func (o *Orchestrator) trailLoop() {
	for {
		select {
		case event := <-o.progressCh:
			o.lock.Lock()
			run, ok := o.strategyRuns[event.StrategyID]
			o.lock.Unlock()
			if ok {
				run.AppendProgress(event)
			}
		case <-o.QuitCh():
			return
		}
	}
}

// Execute runs the request to completion. The returned record is always
// stored, also when the run fails
func (o *Orchestrator) Execute(ctx goctx.Context, req Request) (*types.RunRecord, error) {
	run := o.newRun(req)
	err := o.drive(ctx, run, req)
	return run, err
}

// Submit queues the request and returns its run id immediately
func (o *Orchestrator) Submit(req Request) string {
	run := o.newRun(req)
	go func() {
		if err := o.drive(goctx.Background(), run, req); err != nil {
			o.Logger.With(log.LogParams{
				"run": run.ID,
				"err": err.Error(),
			}).Error("Run failed")
		}
	}()
	return run.ID
}

func (o *Orchestrator) newRun(req Request) *types.RunRecord {
	description := req.Description
	if req.Spec != nil {
		description = req.Spec.Description
	}
	run := types.NewRunRecord(uuid.NewString(), o.ctx.Counter.Next(), description)
	o.ctx.Runs.Add(run)
	return run
}

func (o *Orchestrator) drive(ctx goctx.Context, run *types.RunRecord, req Request) error {
	logger := o.Logger.With(log.LogParams{"run": run.ID})

	task, err := o.resolveTask(req)
	if err != nil {
		run.Fail(nil, err)
		return err
	}

	plans := o.planner.Plan(task)
	run.Begin(task, plans)
	o.trackStrategies(run, plans)
	defer o.untrackStrategies(plans)

	dataset := req.Dataset
	if dataset == nil {
		dataset = datasetFromTask(task)
	}

	results := o.executor.ExecuteStrategies(ctx, plans, dataset, o.options(req))
	o.suggest(run, results)

	comparison, err := compare.Strategies(results)
	if err != nil {
		run.Fail(results, err)
		o.archive(ctx, run, logger)
		return err
	}

	run.Complete(results, comparison)
	o.archive(ctx, run, logger)
	logger.With(log.LogParams{
		"best":     comparison.Best.Name,
		"accuracy": comparison.Best.Metrics.Accuracy,
	}).Info("Run completed")
	return nil
}

// resolveTask prefers the structured spec and falls back to parsing the free
// text description
func (o *Orchestrator) resolveTask(req Request) (*types.Task, error) {
	if req.Spec != nil {
		task := req.Spec.Task()
		if len(task.Categories) == 0 {
			parsed, err := o.parser.Parse(task.Description)
			if err != nil {
				return nil, err
			}
			task.Categories = parsed.Categories
		}
		return task, nil
	}
	return o.parser.Parse(req.Description)
}

// options layers the run's execution bounds: configuration, then spec, then
// per request overrides
func (o *Orchestrator) options(req Request) executor.Options {
	conf := o.ctx.Config.Execution
	opts := executor.Options{
		MaxConcurrent:      conf.MaxConcurrent,
		StrategyTimeout:    conf.StrategyTimeout,
		EarlyStopOnSuccess: conf.EarlyStopOnSuccess,
	}
	if req.Spec != nil {
		if req.Spec.Execution.MaxConcurrent > 0 {
			opts.MaxConcurrent = req.Spec.Execution.MaxConcurrent
		}
		if t := req.Spec.Timeout(); t > 0 {
			opts.StrategyTimeout = t
		}
		if req.Spec.Execution.EarlyStop {
			opts.EarlyStopOnSuccess = true
		}
	}
	if req.Options != nil {
		if req.Options.MaxConcurrent > 0 {
			opts.MaxConcurrent = req.Options.MaxConcurrent
		}
		if req.Options.StrategyTimeout > 0 {
			opts.StrategyTimeout = req.Options.StrategyTimeout
		}
		if req.Options.EarlyStopOnSuccess {
			opts.EarlyStopOnSuccess = true
		}
	}
	return opts
}

// suggest attaches knowledge base advice to every failed strategy
func (o *Orchestrator) suggest(run *types.RunRecord, results []*types.ExecutionResult) {
	for _, result := range results {
		if result == nil || result.Success {
			continue
		}
		if advice := o.knowledge.Search(result.Error, 0); len(advice) > 0 {
			run.AddSuggestions(result.StrategyID, advice)
		}
	}
}

func (o *Orchestrator) archive(ctx goctx.Context, run *types.RunRecord, logger *log.Logger) {
	if o.sink == nil {
		return
	}
	if err := o.sink.SaveRun(ctx, run.Snapshot()); err != nil {
		logger.With(log.LogParams{"err": err.Error()}).Error("Failed to archive run")
	}
}

func (o *Orchestrator) trackStrategies(run *types.RunRecord, plans []*types.OptimizationPlan) {
	o.lock.Lock()
	defer o.lock.Unlock()
	for _, plan := range plans {
		o.strategyRuns[plan.StrategyID] = run
	}
}

func (o *Orchestrator) untrackStrategies(plans []*types.OptimizationPlan) {
	o.lock.Lock()
	defer o.lock.Unlock()
	for _, plan := range plans {
		delete(o.strategyRuns, plan.StrategyID)
	}
}

// datasetFromTask synthesizes a capture profile when the request brings no
// dataset of its own
func datasetFromTask(task *types.Task) types.Dataset {
	samples := task.SamplesPerClass
	if samples <= 0 {
		samples = 50
	}
	perClass := make(map[string]int, len(task.Categories))
	for _, category := range task.Categories {
		perClass[category] = samples
	}
	return &types.DatasetProfile{
		Name:            strings.Join(task.Categories, "-"),
		Categories:      task.Categories,
		SamplesPerClass: perClass,
	}
}
