package cmd

import (
	"github.com/Nooom01/automl-agent-system/cmd/run"
	"github.com/Nooom01/automl-agent-system/cmd/serve"
	"github.com/Nooom01/automl-agent-system/config"
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "automl",
		Short: "AutoML tool to plan, race and compare model optimization strategies",
	}
	cmd.PersistentFlags().StringVarP(&config.ConfigPath, "config", "c", "", "Config file path")
	cmd.PersistentFlags().BoolVarP(&config.Verbose, "verbose", "v", false, "Display verbose output")
	cmd.AddCommand(run.RunCmd())
	cmd.AddCommand(serve.ServeCmd())
	return cmd
}
