package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FranksOps/prospector/internal/config"
	"github.com/FranksOps/prospector/internal/query"
)

func newQueriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "queries [niche]",
		Short: "Print the search queries for a niche",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			niche := a.cfg.Niche
			if len(args) == 1 {
				niche = args[0]
			}
			if strings.TrimSpace(niche) == "" {
				return config.ErrEmptyNiche
			}
			for _, q := range query.Build(niche) {
				fmt.Fprintln(cmd.OutOrStdout(), q)
			}
			return nil
		},
	}
}
