package main

import (
	"fmt"
	"sort"
	"strconv"

	"biblomnemon/internal/cloud/export"

	"github.com/spf13/cobra"
)

func storageFor(svc *services, target string) (export.Storage, error) {
	s, ok := svc.storages[target]
	if !ok || s == nil {
		names := make([]string, 0, len(svc.storages))
		for name := range svc.storages {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown export target %q (configured: %v)", target, names)
	}
	return s, nil
}

func printReport(cmd *cobra.Command, mode outputMode, r export.Report) error {
	return printRecord(cmd, mode, r, [][]string{
		{"Target", r.Target},
		{"Location", r.Location},
		{"Books", strconv.Itoa(r.Books)},
		{"Categories", strconv.Itoa(r.Categories)},
		{"Relations", strconv.Itoa(r.Relations)},
		{"Activities", strconv.Itoa(r.Activities)},
	})
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <sheets|s3>",
		Short: "Upload the library to a cloud target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				storage, err := storageFor(svc, args[0])
				if err != nil {
					return err
				}
				report, err := storage.Upload(cmd.Context())
				if err != nil {
					return fmt.Errorf("export to %s: %w", args[0], err)
				}
				return printReport(cmd, ctx.outputMode(cmd), report)
			})
		},
	}
}

func newRestoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <s3>",
		Short: "Restore the library from a cloud snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				storage, err := storageFor(svc, args[0])
				if err != nil {
					return err
				}
				report, err := storage.Download(cmd.Context())
				if err != nil {
					return fmt.Errorf("restore from %s: %w", args[0], err)
				}
				return printReport(cmd, ctx.outputMode(cmd), report)
			})
		},
	}
}

func newAuthCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the cloud account",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				user, err := svc.cloud.User(cmd.Context())
				if err != nil {
					return err
				}
				authorized, err := svc.cloud.IsAuthorized(cmd.Context())
				if err != nil {
					return err
				}
				out := map[string]any{
					"signed_in":  user != nil,
					"authorized": authorized,
					"user":       user,
				}
				pairs := [][]string{
					{"Signed in", yesNo(user != nil)},
					{"Authorized", yesNo(authorized)},
				}
				if user != nil {
					pairs = append(pairs, []string{"Name", user.Name}, []string{"Email", user.Email})
				}
				return printRecord(cmd, ctx.outputMode(cmd), out, pairs)
			})
		},
	}

	consentURL := &cobra.Command{
		Use:   "url <scope>...",
		Short: "Print the consent URL for the given scopes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				u, err := svc.cloud.AuthorizationURL(args)
				if err != nil {
					return err
				}
				if ctx.outputMode(cmd) == outputJSON {
					return writeJSON(cmd, map[string]string{"url": u})
				}
				fmt.Fprintln(cmd.OutOrStdout(), u)
				return nil
			})
		},
	}

	var code, state string
	complete := &cobra.Command{
		Use:   "complete",
		Short: "Finish authorization with the code and state from the redirect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				if err := svc.cloud.CompleteAuthorization(cmd.Context(), code, state); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "Authorized")
				return nil
			})
		},
	}
	complete.Flags().StringVar(&code, "code", "", "Authorization code")
	complete.Flags().StringVar(&state, "state", "", "State returned with the code")
	_ = complete.MarkFlagRequired("code")
	_ = complete.MarkFlagRequired("state")

	signOut := &cobra.Command{
		Use:   "signout",
		Short: "Forget the account and its tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				if err := svc.cloud.SignOut(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "Signed out")
				return nil
			})
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke the stored authorization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				if err := svc.cloud.Revoke(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "Authorization revoked")
				return nil
			})
		},
	}

	cmd.AddCommand(status, consentURL, complete, signOut, revoke)
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
