package main

import (
	"github.com/spf13/cobra"

	"github.com/yaktalk/yaktalk/internal/api"
	"github.com/yaktalk/yaktalk/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "yaktalk",
	Short: "Legal document Q&A with statute-grounded answers",
	Long: `Yaktalk answers questions about uploaded legal documents (contracts,
leases, and the like) with answers grounded in the document itself and
in Korean statutory law.

A conversation session holds one uploaded PDF. Each question is routed
to the evidence sources it needs, answered with numbered citations, and
cited document passages come back with page coordinates for
highlighting.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ~/.yaktalk/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "yaktalk home directory (default: ~/.yaktalk)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml, json, or text",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
