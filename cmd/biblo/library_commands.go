package main

import (
	"fmt"
	"strings"

	"biblomnemon/internal/library"

	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var query, source string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := library.Query{Q: query, Limit: limit, Offset: offset}
			if source != "" {
				src, err := library.ParseSource(source)
				if err != nil {
					return err
				}
				q.Source = src
			}
			return ctx.withServices(cmd, func(svc *services) error {
				books, total, err := svc.books.List(cmd.Context(), q)
				if err != nil {
					return fmt.Errorf("list books: %w", err)
				}
				mode := ctx.outputMode(cmd)
				if err := printBooks(cmd, mode, books); err != nil {
					return err
				}
				if mode == outputTable {
					fmt.Fprintf(cmd.OutOrStdout(), "%d of %d books\n", len(books), total)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by title, author or ISBN")
	cmd.Flags().StringVar(&source, "source", "", "Filter by source (MANUAL, GOOGLE, OPEN_LIBRARY)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of books")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of books to skip")
	return cmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var remoteID string

	cmd := &cobra.Command{
		Use:   "import [isbn]",
		Short: "Save a book found by ISBN or remote id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := library.ImportRequest{RemoteID: strings.TrimSpace(remoteID)}
			if len(args) == 1 {
				req.ISBN = args[0]
			}
			if (req.ISBN == "") == (req.RemoteID == "") {
				return fmt.Errorf("give either an ISBN argument or --id")
			}
			return ctx.withServices(cmd, func(svc *services) error {
				b, created, err := svc.books.Import(cmd.Context(), req)
				if err != nil {
					return fmt.Errorf("import: %w", err)
				}
				mode := ctx.outputMode(cmd)
				if mode == outputJSON {
					return writeJSON(cmd, map[string]any{"book": b, "created": created})
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "Imported %q\n", b.Title)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Already in the library: %q\n", b.Title)
				}
				return printBooks(cmd, mode, []library.Book{b})
			})
		},
	}

	cmd.Flags().StringVar(&remoteID, "id", "", "Remote id in SOURCE:id form")
	return cmd
}
