// SceneWeaver plays Lua-scripted interactive narratives in the terminal.
// Usage: sceneweaver play [--plain] [--script <file>] [--trace] <game_directory>
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "sceneweaver",
		Short:        "Interactive narrative interpreter",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("sceneweaver {{.Version}} (commit " + commit + ", built " + date + ")\n")
	root.PersistentFlags().String("config", "", "path to a YAML config file")
	root.PersistentFlags().String("env-file", "", "load environment variables from this file first")
	root.AddCommand(playCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(slotsCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
