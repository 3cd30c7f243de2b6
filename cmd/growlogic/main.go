// Gray Logic Grow - timed actuation for grow controllers
//
// growlogic schedules pump, light and fan commands against an embedded
// controller on a serial link and records every dispatched command in a
// per-entity action log.
//
// Usage:
//
//	growlogic run [--date 2026-03-01]   plan one day and dispatch it
//	growlogic daemon                    plan daily and keep running
//	growlogic plan [--date ...]         print the resolved entries
//	growlogic send COMMAND              dispatch one command now
//	growlogic log [--entity ID]         show recent action log rows
//	growlogic entities ...              manage the entity registry
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/nerrad567/gray-logic-grow/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on Ctrl+C and SIGTERM so every command shuts down cleanly.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Built per call so tests get fresh
// flag state.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "growlogic",
		Short: "Gray Logic Grow - timed actuation for grow controllers",
		Long: `growlogic turns a schedule of pump, light and fan windows into timed
commands on a serial-attached controller, and writes one action log row
per entity for every command it sends.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "",
		"config file path (default $GROWLOGIC_CONFIG or "+defaultConfigPath+")")

	cfgPath := func() string { return resolveConfigPath(configPath) }

	root.AddCommand(
		newRunCmd(cfgPath),
		newDaemonCmd(cfgPath),
		newPlanCmd(cfgPath),
		newSendCmd(cfgPath),
		newLogCmd(cfgPath),
		newEntitiesCmd(cfgPath),
	)
	return root
}

// resolveConfigPath prefers the flag, then GROWLOGIC_CONFIG, then the default.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv("GROWLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
