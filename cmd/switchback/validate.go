package main

import (
	"fmt"
	"os"

	"github.com/aretw0/switchback"
	"github.com/aretw0/switchback/internal/cli"
	"github.com/aretw0/switchback/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [source]",
	Short: "Check the state tree for consistency",
	Long: `Loads the tree and reports structural problems: unknown parents,
URL placeholders without declared parameters, and resolve declarations
depending on tokens nothing provides.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Tree is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	loader, err := cli.OpenLoader(sourceArg(cmd, args))
	if err != nil {
		return err
	}

	// Loading catches parse and schema errors with positions attached.
	defs, err := loader.Load(cmd.Context())
	if err != nil {
		return err
	}

	if issues := validator.Lint(defs); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Printf("  - %s\n", issue)
		}
		return fmt.Errorf("%d issue(s) found", len(issues))
	}

	// Constructing the router catches what linting cannot, like URL
	// patterns that do not compose into a matchable route table.
	if _, err := switchback.New(switchback.WithStates(defs...)); err != nil {
		return err
	}
	return nil
}
