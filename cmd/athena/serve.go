package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/mkm-lab/athena/internal/config"
	"github.com/mkm-lab/athena/internal/logging"
	athenaserver "github.com/mkm-lab/athena/internal/server"
	"github.com/mkm-lab/athena/internal/updater"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr and the log file — stdout belongs to the MCP
	// stdio transport.
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}

	s, cleanup, err := athenaserver.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check — prints to stderr so it doesn't
	// interfere with MCP's stdio transport on stdout.
	go checkForUpdates()

	// Graceful shutdown on interrupt.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cleanup()
		os.Exit(0)
	}()

	return server.ServeStdio(s)
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. Best-effort — network failures
// are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(athenaserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  Update available: v%s → v%s\n"+
				"  Run: athena update\n"+
				"  Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

func updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update athena to the latest release",
		RunE: func(cmd *cobra.Command, args []string) error {
			result := updater.CheckVersion(athenaserver.Version)
			if !result.UpdateAvailable {
				fmt.Fprintf(os.Stderr, "Already at the latest version (v%s)\n", result.CurrentVersion)
				return nil
			}

			fmt.Fprintf(os.Stderr, "New version available: v%s → v%s\nDownloading...\n",
				result.CurrentVersion, result.LatestVersion)

			if err := updater.SelfUpdate(athenaserver.Version); err != nil {
				return fmt.Errorf("update failed (download manually from %s): %w", result.ReleaseURL, err)
			}

			fmt.Fprintf(os.Stderr, "Updated to v%s. Restart athena to use the new version.\n", result.LatestVersion)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the athena version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("athena v%s\n", athenaserver.Version)
		},
	}
}
