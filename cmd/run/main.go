package run

import (
	goctx "context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nooom01/automl-agent-system/agents"
	"github.com/Nooom01/automl-agent-system/config"
	"github.com/Nooom01/automl-agent-system/context"
	"github.com/Nooom01/automl-agent-system/executor"
	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/orchestrator"
	"github.com/Nooom01/automl-agent-system/taskspec"
	"github.com/Nooom01/automl-agent-system/types"
	"github.com/Nooom01/automl-agent-system/util"
)

var (
	describe      string
	specPath      string
	maxConcurrent int
	timeout       time.Duration
	earlyStop     bool
	seed          int64
	quiet         bool
)

// RunCmd executes one optimization task to completion and prints the
// strategy comparison. The process exits non zero when no strategy succeeds
func RunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Run one optimization task and print the strategy comparison",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if describe == "" && specPath == "" {
				return fmt.Errorf("either --describe or --spec is required")
			}

			conf, err := config.ParseConfig(config.ConfigPath)
			if err != nil {
				return fmt.Errorf("failed to parse config: %s", err)
			}
			log.Init(conf.Log)
			if config.Verbose {
				log.SetLevel("debug")
			}
			defer log.Destroy()

			req := orchestrator.Request{
				Description: describe,
				Options: &executor.Options{
					MaxConcurrent:      maxConcurrent,
					StrategyTimeout:    timeout,
					EarlyStopOnSuccess: earlyStop,
				},
			}
			if specPath != "" {
				spec, err := taskspec.ParseFile(specPath)
				if err != nil {
					return fmt.Errorf("failed to parse task spec: %s", err)
				}
				req.Spec = spec
			}

			rctx := context.NewRootContext(conf, log.DefaultLogger)
			rctx.Start()
			defer rctx.Stop()

			if seed != 0 {
				conf.Execution.Seed = seed
			}
			delegates := agents.NewSimulatedDelegates(resolveSeed(conf.Execution.Seed), conf.Execution.StepDelay, log.DefaultLogger)
			orch, err := orchestrator.New(rctx, delegates, nil)
			if err != nil {
				return fmt.Errorf("failed to initialize orchestrator: %s", err)
			}
			orch.Start()
			defer orch.Stop()

			done := make(chan struct{})
			if !quiet {
				events, err := rctx.Progress.Subscribe("cli")
				if err != nil {
					return err
				}
				go printProgress(os.Stdout, events, done)
			}

			ctx, cancel := goctx.WithCancel(goctx.Background())
			defer cancel()
			go func() {
				<-util.Term()
				cancel()
			}()

			run, err := orch.Execute(ctx, req)
			close(done)
			view := run.Snapshot()
			printReport(os.Stdout, view)
			if conf.ReportPath != "" {
				if werr := writeReport(conf.ReportPath, view); werr != nil {
					return fmt.Errorf("failed to write report: %s", werr)
				}
				fmt.Printf("\nReport written to %s\n", conf.ReportPath)
			}
			if err != nil {
				return fmt.Errorf("run failed: %s", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&describe, "describe", "d", "", "Free text description of the task")
	cmd.Flags().StringVarP(&specPath, "spec", "f", "", "Path to a YAML task spec")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "Strategies raced concurrently per batch, 0 uses the config")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Wall clock budget per strategy, 0 uses the config")
	cmd.Flags().BoolVar(&earlyStop, "early-stop", false, "Stop remaining batches once a strategy reaches the accuracy target")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for the simulated pipeline, 0 picks a time based seed")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress the live progress feed")
	return cmd
}

func writeReport(path string, view *types.RunView) error {
	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func resolveSeed(seed int64) int64 {
	if seed == 0 {
		return time.Now().UnixNano()
	}
	return seed
}

func printProgress(w io.Writer, events chan *types.Progress, done chan struct{}) {
	for {
		select {
		case event := <-events:
			line := fmt.Sprintf("  [%s] %-10s %3d%% %s", shortID(event.StrategyID), event.Phase, event.Percent, event.Status)
			if event.Message != "" {
				line = line + ": " + event.Message
			}
			fmt.Fprintln(w, line)
		case <-done:
			return
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printReport(w io.Writer, view *types.RunView) {
	fmt.Fprintf(w, "\nRun %s %s", view.ID, view.Status)
	if view.CompletedAt != nil {
		fmt.Fprintf(w, " in %s", view.CompletedAt.Sub(view.CreatedAt).Round(time.Millisecond))
	}
	fmt.Fprintln(w)
	if view.Task != nil {
		fmt.Fprintf(w, "Task: %s, target accuracy %.2f\n", strings.Join(view.Task.Categories, " vs "), view.Task.TargetAccuracy)
	}
	if view.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", view.Error)
	}

	ranked := view.Results
	if view.Comparison != nil && len(view.Comparison.Ranking) > 0 {
		ranked = view.Comparison.Ranking
	}
	if len(ranked) == 0 {
		return
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, " \tSTRATEGY\tACCURACY\tTIME\tSIZE\tOUTCOME")
	for _, result := range ranked {
		marker := " "
		if view.Comparison != nil && view.Comparison.Best != nil && result.StrategyID == view.Comparison.Best.StrategyID {
			marker = "*"
		}
		if !result.Success {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\tfailed: %s\n", marker, result.Name, result.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%s\t%.1fMB\tok\n",
			marker, result.Name, result.Metrics.Accuracy,
			result.Metrics.TrainingTime.Round(time.Millisecond), result.Metrics.SizeMB)
	}
	tw.Flush()

	if view.Comparison != nil && len(view.Comparison.Recommendations) > 0 {
		fmt.Fprintln(w)
		for _, rec := range view.Comparison.Recommendations {
			fmt.Fprintf(w, "  %s\n", rec)
		}
	}
	if len(view.Suggestions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Suggestions for failed strategies:")
		for id, tips := range view.Suggestions {
			for _, tip := range tips {
				fmt.Fprintf(w, "  [%s] %s\n", shortID(id), tip)
			}
		}
	}
}
