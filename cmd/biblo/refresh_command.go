package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fill missing details of stale books from Open Library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				run, err := svc.refresh.Run(cmd.Context())
				if err != nil {
					return fmt.Errorf("refresh: %w", err)
				}
				return printRecord(cmd, ctx.outputMode(cmd), run, [][]string{
					{"Run", run.ID},
					{"Status", run.Status},
					{"Scanned", strconv.Itoa(run.BooksScanned)},
					{"Fetched", strconv.Itoa(run.BooksFetched)},
					{"Updated", strconv.Itoa(run.BooksUpdated)},
					{"Failed", strconv.Itoa(run.BooksFailed)},
				})
			})
		},
	}
}
