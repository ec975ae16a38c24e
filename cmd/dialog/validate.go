package main

import (
	"fmt"

	"github.com/spf13/cobra"

	orchestrator "github.com/borosabel/orchestrator"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config.yaml]",
	Short: "Validate a domain configuration without loading it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch := orchestrator.New()
		registerBuiltins(orch)

		res, err := orch.ValidateDomainFile(args[0])
		if err != nil {
			return err
		}

		for _, w := range res.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
		for _, e := range res.Errors {
			fmt.Printf("error: %s\n", e)
		}
		if !res.Valid {
			return fmt.Errorf("config is invalid (%d errors)", len(res.Errors))
		}
		fmt.Println("config is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
