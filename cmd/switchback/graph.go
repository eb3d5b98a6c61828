package main

import (
	"fmt"
	"os"

	"github.com/aretw0/switchback/internal/cli"
	"github.com/aretw0/switchback/internal/logging"
	"github.com/aretw0/switchback/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [source]",
	Short: "Export the state tree visualization",
	Long:  `Loads the tree and outputs a Mermaid diagram (graph TD) of the state hierarchy.`,
	Run: func(cmd *cobra.Command, args []string) {
		router, err := cli.BuildRouter(cli.RunOptions{Source: sourceArg(cmd, args)}, logging.NewNop())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(graph.GenerateMermaid(router.States(), nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
