package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qaforum/engagement/internal/models"
	"github.com/qaforum/engagement/internal/output"
	"github.com/qaforum/engagement/internal/trending"
	"github.com/spf13/cobra"
)

var (
	trendingOpts    = trending.DefaultOptions()
	trendingFilters []string
)

var trendingCmd = &cobra.Command{
	Use:         "trending <question|answer|comment>",
	Short:       "Print the trending targets of one type",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationQuiet: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := trendingOpts
		filters, err := parseFilters(trendingFilters)
		if err != nil {
			return err
		}
		opts.Filters = filters

		a, err := newApp(cfg, appOptions{useRedis: true})
		if err != nil {
			return err
		}
		defer a.close()

		out, err := a.trending.GetTrending(cmd.Context(), models.TargetType(args[0]), opts)
		if err != nil {
			return err
		}

		return output.Print(cmd.OutOrStdout(), format, out, []string{"RANK", "ID", "SCORE"}, func() [][]string {
			rows := make([][]string, len(out))
			for i, t := range out {
				rows[i] = []string{strconv.Itoa(i + 1), strconv.FormatInt(t.TargetID, 10), strconv.FormatFloat(t.Score, 'f', 4, 64)}
			}
			return rows
		})
	},
}

// parseFilters turns column=value flags into repository filters
func parseFilters(raw []string) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	filters := make(map[string]interface{}, len(raw))
	for _, kv := range raw {
		col, v, ok := strings.Cut(kv, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid filter %q (want column=value)", kv)
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			filters[col] = n
		} else {
			filters[col] = v
		}
	}
	return filters, nil
}

func init() {
	f := trendingCmd.Flags()
	f.IntVarP(&trendingOpts.TopN, "top", "n", trendingOpts.TopN, "Number of targets to return")
	f.IntVar(&trendingOpts.LastDays, "days", trendingOpts.LastDays, "Only consider content created within this many days")
	f.Float64Var(&trendingOpts.DecayHours, "decay-hours", trendingOpts.DecayHours, "Score half-life in hours")
	f.StringSliceVar(&trendingFilters, "filter", nil, "Content filter as column=value, repeatable")
}
