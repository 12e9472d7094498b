package context

import (
	"github.com/Nooom01/automl-agent-system/config"
	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/types"
	"github.com/Nooom01/automl-agent-system/util"
)

// RootContext stores the shared state of the tool
type RootContext struct {
	// Config an instance of the configuration object
	Config *config.Config
	// Progress is the queue progress events are published on
	Progress *types.ProgressQueue
	// Runs holds every run submitted in this process
	Runs *types.RunStore
	// Counter is a thread safe monotonic integer counter
	Counter *util.Counter
	// Logger for logging purposes
	Logger *log.Logger
}

// NewRootContext creates an instance of the RootContext from the configuration
func NewRootContext(config *config.Config, logger *log.Logger) *RootContext {
	return &RootContext{
		Config:   config,
		Progress: types.NewProgressQueue(logger),
		Runs:     types.NewRunStore(),
		Counter:  util.NewCounter(),
		Logger:   logger,
	}
}

// Start implements Service and initializes the queues
func (c *RootContext) Start() {
	c.Progress.Start()
}

// Stop implements Service and terminates the queues
func (c *RootContext) Stop() {
	c.Progress.Stop()
}

func (c *RootContext) Reset() {
	c.Progress.Flush()
	c.Runs.RemoveAll()
	c.Counter.Reset()
}
