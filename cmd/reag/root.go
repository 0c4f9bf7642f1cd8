package main

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/reag/internal/config"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	env        string
	configPath string
}

// loadConfig reads the explicit --config file, or config/<env>.yaml.
func (g *globalFlags) loadConfig() (config.Config, error) {
	if g.configPath != "" {
		return config.LoadFile(g.configPath)
	}
	return config.Load(g.env)
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "reag",
		Short: "Reasoning-augmented question answering over explicit document sets",
		Long: `reag asks a question over a small, explicitly supplied set of documents.
Documents can be narrowed with metadata filters before a reasoning engine
judges each one and extracts the passage that answers the question.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.env, "env", config.GetEnv(), "environment name (selects config/<env>.yaml)")
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "explicit config file path")

	root.AddCommand(newServeCmd(g), newQueryCmd(g), newVersionCmd())
	return root
}
