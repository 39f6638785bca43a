package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kingrea/gatesearch/internal/config"
)

var (
	initAlgorithm string
	initBackend   string
	initScript    string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config (existing files are left alone)",
	Long: `Writes a starter config unless one exists. --algorithm, --backend and
--script are then applied to the config at --config and saved.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initAlgorithm, "algorithm", "", "Set algorithm")
	initCmd.Flags().StringVar(&initBackend, "backend", "", "Set processor.backend (command or script)")
	initCmd.Flags().StringVar(&initScript, "script", "", "Set processor.script")
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(configPath); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("algorithm") || flags.Changed("backend") || flags.Changed("script") {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if flags.Changed("algorithm") {
			loaded.Algorithm = initAlgorithm
		}
		if flags.Changed("backend") {
			loaded.Processor.Backend = initBackend
		}
		if flags.Changed("script") {
			loaded.Processor.Script = ""
			if initScript != "" {
				script, err := filepath.Abs(initScript)
				if err != nil {
					return err
				}
				loaded.Processor.Script = script
			}
		}
		if err := loaded.Save(); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "config: %s\n", configPath)
	return nil
}
