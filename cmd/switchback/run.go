package main

import (
	"fmt"
	"os"

	"github.com/aretw0/switchback/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [source]",
	Short: "Navigate the state tree interactively",
	Long: `Starts an interactive navigation loop over the tree: each input line
is a target state name, optionally followed by key=value parameters.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := cli.RunOptions{Source: sourceArg(cmd, args)}
		opts.Headless, _ = cmd.Flags().GetBool("headless")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.SessionID, _ = cmd.Flags().GetString("session")
		opts.Fresh, _ = cmd.Flags().GetBool("fresh")
		opts.ViewsPath, _ = cmd.Flags().GetString("views")
		opts.UnsafeInline, _ = cmd.Flags().GetBool("unsafe-inline")

		if err := cli.Execute(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("headless", false, "Run without banner, prompts or markdown rendering")
	runCmd.Flags().BoolP("watch", "w", false, "Reload the tree when the source changes")
	runCmd.Flags().String("session", "", "Session ID: persist the position and resume it next run")
	runCmd.Flags().Bool("fresh", false, "Discard the persisted session before starting")
	runCmd.Flags().String("views", "", "Views config file (default views.yaml next to the source)")
	runCmd.Flags().Bool("unsafe-inline", false, "Allow exec- commands declared inline in the tree data")

	// Running is what the binary is for; make it the default command.
	rootCmd.Run = runCmd.Run
}
