// Package cmd provides the command-line interface of pagesim.
package cmd

import (
	"github.com/spf13/cobra"
)

const defaultData = "this is a big block"

// newRootCmd creates the base command. Flag values end up in cfg once a
// subcommand starts running.
func newRootCmd(cfg *config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pagesim",
		Short: "pagesim simulates a paged virtual memory.",
		Long: `pagesim splits data into blocks, places them at logical ` +
			`addresses, and stores them into physical memory through a ` +
			`page table. The logical addresses can then be translated ` +
			`back to their blocks.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return cfg.load(cmd)
		},
	}

	cfg.registerFlags(rootCmd)

	rootCmd.AddCommand(newRunCmd(cfg))
	rootCmd.AddCommand(newServeCmd(cfg))

	return rootCmd
}

// Execute runs the command line.
func Execute() error {
	return newRootCmd(&config{}).Execute()
}
