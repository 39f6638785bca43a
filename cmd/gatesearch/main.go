// cmd/gatesearch/main.go
//
// Entry point for the gatesearch CLI. Subcommands:
//
//	ring     repeated classification search on the ring dataset
//	gate     sweep every label of a boolean truth table
//	inspect  list the arrays of a search archive
//	init     write a starter config

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/gatesearch/internal/config"
	"github.com/kingrea/gatesearch/internal/logging"
)

var (
	configPath string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "gatesearch",
	Short: "Search dopant-network processor configurations for gates and ring classifiers",
	Long: `gatesearch drives an external optimizer over a processor (simulated or
hardware) and aggregates the results.

The optimizer itself runs behind a backend: either a bridge command speaking
JSON on stdin/stdout or a Go script interpreted at runtime. See "gatesearch init"
for a starter configuration.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == initCmd.Name() || cmd.Name() == inspectCmd.Name() {
			return nil
		}
		loaded, err := config.LoadOrDefault(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFileName, "Experiment config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(ringCmd)
	rootCmd.AddCommand(gateCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newLogger(fileOnly bool) (*zap.Logger, error) {
	if fileOnly {
		return logging.NewFileOnly(cfg.ResultsBaseDir, verbose)
	}
	return logging.New(cfg.ResultsBaseDir, verbose)
}
