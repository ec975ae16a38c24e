package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dialog",
	Short: "dialog is a configuration-driven dialogue orchestrator",
	Long: `dialog turns free-text user messages into classified intents, extracted
slots and generated replies, tracking conversational state across turns.
Domains (intents, slot schemas, skill bindings) are declared in YAML.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("domain", "", "Path to the YAML domain configuration")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}
