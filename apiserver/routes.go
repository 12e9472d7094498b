package apiserver

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nooom01/automl-agent-system/executor"
	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/orchestrator"
	"github.com/Nooom01/automl-agent-system/types"
)

type taskRequest struct {
	Description   string `json:"description"`
	MaxConcurrent int    `json:"max_concurrent"`
	Timeout       string `json:"timeout"`
	EarlyStop     bool   `json:"early_stop"`
}

// HandleTaskPost accepts a task description and queues its run
func (srv *APIServer) HandleTaskPost(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		srv.Logger.Info("Bad task request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
		return
	}
	if req.Description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description is required"})
		return
	}

	opts := &executor.Options{
		MaxConcurrent:      req.MaxConcurrent,
		EarlyStopOnSuccess: req.EarlyStop,
	}
	if req.Timeout != "" {
		timeout, err := time.ParseDuration(req.Timeout)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeout"})
			return
		}
		opts.StrategyTimeout = timeout
	}

	runID := srv.runner.Submit(orchestrator.Request{
		Description: req.Description,
		Options:     opts,
	})
	srv.Logger.With(log.LogParams{
		"run": runID,
	}).Info("Accepted task")
	c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
}

func (srv *APIServer) handleRuns(c *gin.Context) {
	runs := srv.ctx.Runs.Iter()
	views := make([]*types.RunView, len(runs))
	for i, run := range runs {
		views[i] = run.Snapshot()
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	c.JSON(http.StatusOK, gin.H{"runs": views})
}

func (srv *APIServer) handleRunGet(c *gin.Context) {
	run, ok := srv.lookupRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, run.Snapshot())
}

func (srv *APIServer) handleRunProgress(c *gin.Context) {
	run, ok := srv.lookupRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run":      run.ID,
		"progress": run.Trail(),
	})
}

func (srv *APIServer) handleRunResults(c *gin.Context) {
	run, ok := srv.lookupRun(c)
	if !ok {
		return
	}
	view := run.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"run":         view.ID,
		"status":      view.Status,
		"results":     view.Results,
		"comparison":  view.Comparison,
		"suggestions": view.Suggestions,
	})
}

func (srv *APIServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "runs": srv.ctx.Runs.Count()})
}

func (srv *APIServer) lookupRun(c *gin.Context) (*types.RunRecord, bool) {
	id, ok := c.Params.Get("run")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing run param"})
		return nil, false
	}
	run, ok := srv.ctx.Runs.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run id does not exist"})
		return nil, false
	}
	return run, true
}
