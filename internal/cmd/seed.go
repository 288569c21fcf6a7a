package cmd

import (
	"github.com/qaforum/engagement/internal/output"
	"github.com/qaforum/engagement/internal/seed"
	"github.com/spf13/cobra"
)

var seedOpts = seed.DefaultOptions()

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with development data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.IsProduction() {
			output.Warning(cmd.ErrOrStderr(), "Refusing to seed a production database")
			return nil
		}

		a, err := newApp(cfg, appOptions{migrate: true})
		if err != nil {
			return err
		}
		defer a.close()

		res, err := seed.NewSeeder(a.content, a.recorder, nil).SeedDev(cmd.Context(), seedOpts)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if format == output.FormatJSON {
			return output.JSON(w, res)
		}
		output.Success(w, "Seeded %d questions, %d answers, %d comments and %d events",
			res.Questions, res.Answers, res.Comments, res.Events)
		return nil
	},
}

func init() {
	f := seedCmd.Flags()
	f.IntVar(&seedOpts.Users, "users", seedOpts.Users, "Number of distinct actors")
	f.IntVar(&seedOpts.Questions, "questions", seedOpts.Questions, "Number of questions")
	f.IntVar(&seedOpts.MaxAnswers, "max-answers", seedOpts.MaxAnswers, "Maximum answers per question")
	f.IntVar(&seedOpts.MaxComments, "max-comments", seedOpts.MaxComments, "Maximum comments per question or answer")
	f.IntVar(&seedOpts.EventsPerUser, "events-per-user", seedOpts.EventsPerUser, "Reactions emitted by each actor")
	f.IntVar(&seedOpts.Days, "days", seedOpts.Days, "Spread content over this many days")
	f.Int64Var(&seedOpts.Seed, "seed", 0, "Random seed for a reproducible dataset")
}
