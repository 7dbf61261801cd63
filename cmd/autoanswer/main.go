// Package main provides the autoanswer command: it answers course questions
// in a browser window, learning answers from the platform's own feedback
// and remembering them in a local cache.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0" // Version of the autoanswer CLI

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "autoanswer",
		Short:         "Answer course questions from cache, platform feedback or placeholders",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "Config file (.yaml, .yml or .json; default ~/.autoanswer/config.yaml)")
	pf.String("log-level", "", "Log level (debug, info, warn, error); overrides the config file")

	root.AddCommand(answerCmd(), cacheCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "autoanswer v%s\n", version)
		},
	}
}
