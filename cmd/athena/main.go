// Athena: Personal Assistant Brain MCP Server
//
// An MCP server that gives any AI assistant persistent memory,
// mistake-to-rule evolution, and user personalization.
//
// Usage:
//
//	athena serve    # Start MCP server (stdio transport)
//	athena init     # Write a default config file
//	athena update   # Update to the latest version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "athena",
		Short:         "Personal assistant brain: persistent memory, evolution, personalization",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		serveCmd(),
		initCmd(),
		storeCmd(),
		searchCmd(),
		trackMistakeCmd(),
		rulesCmd(),
		statsCmd(),
		updateCmd(),
		versionCmd(),
	)
	return root
}
