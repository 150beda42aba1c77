package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emilythestrangee/demandboard/backend/internal/leaderboard"
)

var reconcileJSON bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recount every problem and solution aggregate from its signal records",
	Long: "Recount upvote, pay-signal, alternative and solution counters, recompute " +
		"composite scores and solved state, and overwrite whatever drifted.",
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileJSON, "json", false, "Output the report as JSON")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := leaderboard.NewReconciler(db, log).Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if reconcileJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(out, "Problems:   %d checked, %d repaired\n", report.Problems, report.ProblemsDrifted)
	fmt.Fprintf(out, "Solutions:  %d checked, %d repaired\n", report.Solutions, report.SolutionsDrifted)
	return nil
}
