package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/prospector/internal/report"
	"github.com/FranksOps/prospector/internal/storage"
	"github.com/FranksOps/prospector/internal/storage/csvbackend"
)

type sourceFlags struct {
	from   string
	runID  string
	domain string
	since  time.Duration
	limit  int
	offset int
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&s.from, "from", "", "read an export file instead of the history store")
	f.StringVar(&s.runID, "run", "", "only prospects from this run ID")
	f.StringVar(&s.domain, "domain", "", "only prospects for this domain")
	f.DurationVar(&s.since, "since", 0, "only prospects created within this window")
	f.IntVar(&s.limit, "limit", 0, "maximum rows (0 = all)")
	f.IntVar(&s.offset, "offset", 0, "rows to skip")
}

func (s *sourceFlags) filter() storage.Filter {
	f := storage.Filter{
		RunID:  s.runID,
		Domain: s.domain,
		Limit:  s.limit,
		Offset: s.offset,
	}
	if s.since > 0 {
		since := time.Now().Add(-s.since).UTC()
		f.Since = &since
	}
	return f
}

// load queries the selected source with the flag filter.
func (s *sourceFlags) load(cmd *cobra.Command, a *app) ([]*storage.Prospect, error) {
	ctx := cmd.Context()
	b, err := openSource(ctx, a.cfg, s.from)
	if err != nil {
		return nil, err
	}
	defer b.Close() //nolint:errcheck

	ps, err := b.Query(ctx, s.filter())
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return ps, nil
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		src    sourceFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored prospects",
		Long:  "Lists prospects saved by earlier runs, as CSV in export column order or as JSON lines.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ps, err := src.load(cmd, a)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "csv":
				return csvbackend.WriteAll(out, ps)
			case "json":
				enc := json.NewEncoder(out)
				for _, p := range ps {
					if err := enc.Encode(p); err != nil {
						return fmt.Errorf("encode prospect: %w", err)
					}
				}
				return nil
			default:
				return fmt.Errorf("unknown format %q (want csv or json)", format)
			}
		},
	}
	src.register(cmd)
	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv or json")
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	var (
		src    sourceFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize stored prospects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ps, err := src.load(cmd, a)
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), format, report.Summarize(ps))
		},
	}
	src.register(cmd)
	cmd.Flags().StringVar(&format, "format", "text", "summary format: text, json or html")
	return cmd
}
