package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "switchback",
	Short: "Switchback is a hierarchical state-based navigation engine",
	Long: `Switchback routes an application through a tree of named states,
running a deterministic hook pipeline around every transition.

A tree source is either a single YAML/JSON document or a directory of
state files (markdown with frontmatter).`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("source", "s", ".", "Tree source: a YAML/JSON file or a directory of state files")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Config file (default .switchback.yaml)")
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".switchback")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("SWITCHBACK")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

// sourceArg resolves the tree source from the --source flag or the
// first positional argument.
func sourceArg(cmd *cobra.Command, args []string) string {
	source, _ := cmd.Flags().GetString("source")
	if !cmd.Flags().Changed("source") && len(args) > 0 {
		source = args[0]
	}
	return source
}
