// Command worklistd serves a DICOM Modality Worklist and checks scheduled procedures
// against an archive.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/caio-sobreiro/dicommwl/config"
	"github.com/caio-sobreiro/dicommwl/store"
)

var rootCmd = &cobra.Command{
	Use:           "worklistd",
	Short:         "DICOM Modality Worklist service",
	Long:          `worklistd answers Modality Worklist queries from imaging devices, keeps the scheduled procedures in a SQL store and periodically looks them up in the archive.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		level, err := config.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return err
		}
		logger, closeLog = config.SetupLogger(cfg.Logging.File, level)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if closeLog != nil {
			return closeLog()
		}
		return nil
	},
}

var (
	configPath string

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("WORKLIST_CONFIG"), "YAML configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(echoCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(checkCmd)
}

// openStore opens the configured record store.
func openStore(ctx context.Context) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN,
		store.WithUIDRoot(cfg.Worklist.UIDRoot),
		store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	return st, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
