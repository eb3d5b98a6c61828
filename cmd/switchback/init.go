package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// starterTree is written by the init command: a small state hierarchy
// in the directory format (one file per state, frontmatter + doc).
var starterTree = map[string]string{
	"app.md": `---
url: /
---
# Welcome

This is the root state. Type a state name to navigate, ` + "`exit`" + ` to leave.
`,
	"app.home.md": `---
url: /home
---
# Home

Edit this file while running with --watch and see the tree reload.
`,
	"app.about.md": `---
url: /about
---
# About

States are plain files: frontmatter declares the URL fragment, params
and resolves; the body becomes the state's doc.
`,
	"app.users.md": `---
url: /users
resolve:
  - token: roster
    value: ["ada", "grace", "linus"]
---
# Users

The roster resolve is fetched before this state activates.
`,
	"app.users.detail.md": `---
url: /:id
params:
  - name: id
---
# User detail

Navigate here with a parameter: ` + "`app.users.detail id=42`" + `.
`,
	"views.yaml": `# Views bind states to commands run when they enter and exit:
#
# views:
#   - state: app.users
#     enter:
#       command: sh
#       args: ["-c", "echo entered users"]
`,
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Scaffold a starter state tree",
	Long:  `Creates a small navigable tree in the target directory, one state per file.`,
	Run: func(cmd *cobra.Command, args []string) {
		targetDir := "."
		if len(args) > 0 {
			targetDir = args[0]
		}

		if _, err := os.Stat(filepath.Join(targetDir, "app.md")); err == nil {
			fmt.Printf("Error: %s already contains a tree (app.md exists)\n", targetDir)
			os.Exit(1)
		}

		if err := os.MkdirAll(targetDir, 0755); err != nil {
			fmt.Printf("Error creating directory: %v\n", err)
			os.Exit(1)
		}

		for name, content := range starterTree {
			path := filepath.Join(targetDir, name)
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				fmt.Printf("Error writing %s: %v\n", path, err)
				os.Exit(1)
			}
		}

		fmt.Printf("Created a starter tree in %s\n\n", targetDir)
		fmt.Printf("Try it:\n  switchback run %s\n  switchback run %s --watch\n  switchback graph %s\n", targetDir, targetDir, targetDir)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
