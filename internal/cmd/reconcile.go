package cmd

import (
	"strconv"

	"github.com/qaforum/engagement/internal/models"
	"github.com/qaforum/engagement/internal/output"
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <question|answer|comment>",
	Short: "Audit incrementally accumulated scores against a full recompute",
	Long: `reconcile replays the event log through the live score accumulator,
recomputes every score of the given type in one pass over the log and
lists the targets whose two values disagree.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationQuiet: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := a.warm(cmd.Context()); err != nil {
			return err
		}
		reports, err := a.reconcile(cmd.Context(), models.TargetType(args[0]))
		if err != nil {
			return err
		}
		report := reports[0]

		w := cmd.OutOrStdout()
		if format == output.FormatJSON {
			return output.JSON(w, report)
		}
		if len(report.Drifted) == 0 {
			output.Success(w, "%d %s targets checked, no drift", report.Checked, report.TargetType)
			return nil
		}
		output.Warning(w, "%d of %d %s targets drifted", len(report.Drifted), report.Checked, report.TargetType)
		rows := make([][]string, len(report.Drifted))
		for i, d := range report.Drifted {
			rows[i] = []string{
				d.Target.String(),
				strconv.FormatFloat(d.Accumulated, 'f', 6, 64),
				strconv.FormatFloat(d.Recomputed, 'f', 6, 64),
			}
		}
		return output.Table(w, []string{"TARGET", "ACCUMULATED", "RECOMPUTED"}, rows)
	},
}
