package main

import (
	"context"
	"fmt"
	"os"

	"biblomnemon/internal/app"
	"biblomnemon/internal/cloud/export"
	"biblomnemon/internal/config"
	"biblomnemon/internal/library"
	"biblomnemon/internal/logging"
	"biblomnemon/internal/refresh"
	"biblomnemon/internal/settings"

	"github.com/spf13/cobra"
)

type bookService interface {
	List(ctx context.Context, q library.Query) ([]library.Book, int, error)
	Import(ctx context.Context, req library.ImportRequest) (library.Book, bool, error)
}

type lookupService interface {
	Search(ctx context.Context, query string, limit, offset int) ([]library.Book, error)
	GetByISBN(ctx context.Context, isbn string) (library.Book, error)
	GetByID(ctx context.Context, id string) (library.Book, error)
}

type cloudService interface {
	User(ctx context.Context) (*settings.CloudUser, error)
	IsAuthorized(ctx context.Context) (bool, error)
	AuthorizationURL(scopes []string) (string, error)
	CompleteAuthorization(ctx context.Context, code, state string) error
	SignOut(ctx context.Context) error
	Revoke(ctx context.Context) error
}

type refreshService interface {
	Run(ctx context.Context) (refresh.Run, error)
}

type services struct {
	books    bookService
	lookup   lookupService
	cloud    cloudService
	storages map[string]export.Storage
	refresh  refreshService
}

// openFunc builds the services for one command. The returned func releases
// them.
type openFunc func(ctx context.Context, configPath string) (*services, func() error, error)

func openApp(ctx context.Context, configPath string) (*services, func() error, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return &services{
		books:    a.Books,
		lookup:   a.Lookup,
		cloud:    a.Cloud,
		storages: a.Storages,
		refresh:  a.Refresh,
	}, a.Close, nil
}

type commandContext struct {
	configFlag *string
	outputFlag *string
	open       openFunc
}

func newCommandContext(configFlag, outputFlag *string, open openFunc) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		outputFlag: outputFlag,
		open:       open,
	}
}

func (c *commandContext) withServices(cmd *cobra.Command, fn func(*services) error) error {
	svc, closeFn, err := c.open(cmd.Context(), *c.configFlag)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeFn(); closeErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "close: %v\n", closeErr)
		}
	}()
	return fn(svc)
}

func (c *commandContext) outputMode(cmd *cobra.Command) outputMode {
	mode, _ := parseOutputMode(*c.outputFlag)
	if mode == outputAuto {
		if isTerminal(cmd.OutOrStdout()) {
			return outputTable
		}
		return outputJSON
	}
	return mode
}
