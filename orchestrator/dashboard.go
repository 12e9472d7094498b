package orchestrator

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/Nooom01/automl-agent-system/types"
)

// SetupRouter for setting up the dashboard routes implements DashboardRouter
func (o *Orchestrator) SetupRouter(router *gin.RouterGroup) {
	router.GET("/summary", o.handleSummary)
	router.GET("/strategies/:run", o.handleStrategies)
}

// Name implements DashboardRouter
func (o *Orchestrator) Name() string {
	return "AutoML"
}

func (o *Orchestrator) handleSummary(c *gin.Context) {
	runs := o.ctx.Runs.Iter()
	completed := 0
	failed := 0
	for _, run := range runs {
		switch run.Snapshot().Status {
		case types.RunCompleted:
			completed++
		case types.RunFailed:
			failed++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"runs":      len(runs),
		"completed": completed,
		"failed":    failed,
	})
}

type strategySummary struct {
	StrategyID string  `json:"strategy_id"`
	Name       string  `json:"name"`
	Success    bool    `json:"success"`
	Accuracy   float64 `json:"accuracy"`
	Error      string  `json:"error,omitempty"`
}

func (o *Orchestrator) handleStrategies(c *gin.Context) {
	id, ok := c.Params.Get("run")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing param `run`"})
		return
	}
	run, ok := o.ctx.Runs.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such run"})
		return
	}

	view := run.Snapshot()
	summaries := make([]*strategySummary, 0, len(view.Results))
	for _, result := range view.Results {
		if result == nil {
			continue
		}
		summaries = append(summaries, &strategySummary{
			StrategyID: result.StrategyID,
			Name:       result.Name,
			Success:    result.Success,
			Accuracy:   result.Metrics.Accuracy,
			Error:      result.Error,
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Accuracy > summaries[j].Accuracy
	})
	c.JSON(http.StatusOK, gin.H{"run": view.ID, "strategies": summaries})
}
