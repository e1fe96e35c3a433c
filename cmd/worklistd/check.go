package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one archive check now",
	Long:  `check looks up every worklist record with a patient ID and accession number in the archive once, even when the periodic check is disabled.`,
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	cfg.PACS.Check = true
	scheduler, closeSink := newScheduler(st)
	defer closeSink()

	outcome, err := scheduler.Tick(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "archive check: %s\n", outcome)
	return err
}
