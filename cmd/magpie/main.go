package main

import (
	"os"

	"github.com/simonhull/magpie/internal/commands"
)

func main() {
	rootCmd := commands.RootCmd()

	rootCmd.AddCommand(commands.CollectCmd())
	rootCmd.AddCommand(commands.SkeletonCmd())
	rootCmd.AddCommand(commands.InitCmd())
	rootCmd.AddCommand(commands.VersionCmd())

	if err := rootCmd.Execute(); err != nil {
		commands.ReportError(err)
		os.Exit(1)
	}
}
