package main

import (
	"fmt"

	"biblomnemon/internal/library"

	"github.com/spf13/cobra"
)

func newLookupCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Search the remote catalogs",
	}

	var limit, offset int
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across the configured sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				books, err := svc.lookup.Search(cmd.Context(), args[0], limit, offset)
				if err != nil {
					return fmt.Errorf("search: %w", err)
				}
				return printBooks(cmd, ctx.outputMode(cmd), books)
			})
		},
	}
	search.Flags().IntVar(&limit, "limit", 10, "Maximum number of results")
	search.Flags().IntVar(&offset, "offset", 0, "Number of results to skip")

	isbn := &cobra.Command{
		Use:   "isbn <isbn>",
		Short: "Find one book by ISBN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				b, err := svc.lookup.GetByISBN(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("lookup isbn: %w", err)
				}
				return printBooks(cmd, ctx.outputMode(cmd), []library.Book{b})
			})
		},
	}

	byID := &cobra.Command{
		Use:   "id <SOURCE:id>",
		Short: "Fetch one book by remote id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				b, err := svc.lookup.GetByID(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("lookup id: %w", err)
				}
				return printBooks(cmd, ctx.outputMode(cmd), []library.Book{b})
			})
		},
	}

	cmd.AddCommand(search, isbn, byID)
	return cmd
}
