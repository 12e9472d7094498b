package serve

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nooom01/automl-agent-system/agents"
	"github.com/Nooom01/automl-agent-system/apiserver"
	"github.com/Nooom01/automl-agent-system/archive"
	"github.com/Nooom01/automl-agent-system/config"
	"github.com/Nooom01/automl-agent-system/context"
	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/orchestrator"
	redistransport "github.com/Nooom01/automl-agent-system/transports/redis"
	"github.com/Nooom01/automl-agent-system/util"
)

// ServeCmd runs the task API until the process is signalled. The archive and
// the progress relay are attached when their config sections enable them
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Serve the task API and dashboard",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			termCh := util.Term()

			conf, err := config.ParseConfig(config.ConfigPath)
			if err != nil {
				return fmt.Errorf("failed to parse config: %s", err)
			}
			log.Init(conf.Log)
			if config.Verbose {
				log.SetLevel("debug")
			}
			defer log.Destroy()

			rctx := context.NewRootContext(conf, log.DefaultLogger)

			var sink orchestrator.Sink
			if conf.Archive.Enabled {
				arch, err := archive.Open(conf.Archive, log.DefaultLogger)
				if err != nil {
					return fmt.Errorf("failed to open archive: %s", err)
				}
				defer arch.Close()
				sink = arch
			}

			seed := conf.Execution.Seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			delegates := agents.NewSimulatedDelegates(seed, conf.Execution.StepDelay, log.DefaultLogger)
			orch, err := orchestrator.New(rctx, delegates, sink)
			if err != nil {
				return fmt.Errorf("failed to initialize orchestrator: %s", err)
			}

			var relay *redistransport.Relay
			if conf.Relay.Enabled {
				relay, err = redistransport.NewRelay(conf.Relay, rctx.Progress, log.DefaultLogger)
				if err != nil {
					return fmt.Errorf("failed to connect progress relay: %s", err)
				}
			}

			server := apiserver.NewAPIServer(rctx, orch, orch)

			rctx.Start()
			orch.Start()
			if relay != nil {
				relay.Start()
			}
			server.Start()

			<-termCh
			server.Stop()
			if relay != nil {
				relay.Stop()
			}
			orch.Stop()
			rctx.Stop()
			return nil
		},
	}
}
