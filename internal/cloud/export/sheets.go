package export

import (
	"context"
	"errors"
	"fmt"

	"biblomnemon/internal/cloud/auth"
	"biblomnemon/internal/logging"

	"golang.org/x/oauth2"
)

// Account is the signed-in Google account export writes as.
type Account interface {
	IsSignedIn(ctx context.Context) (bool, error)
	IsAuthorized(ctx context.Context) (bool, error)
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// SpreadsheetSettings remembers which spreadsheet belongs to the library.
type SpreadsheetSettings interface {
	SpreadsheetID(ctx context.Context) (string, error)
	SetSpreadsheetID(ctx context.Context, id string) error
	ClearSpreadsheetID(ctx context.Context) error
}

// WriterFactory opens a SheetWriter that authenticates with ts.
type WriterFactory func(ctx context.Context, ts oauth2.TokenSource) (SheetWriter, error)

type tab struct {
	title   string
	headers []string
	rows    [][]interface{}
}

// SheetsStorage mirrors the library into one spreadsheet with a tab per
// table. It is write only.
type SheetsStorage struct {
	account   Account
	settings  SpreadsheetSettings
	data      Dataset
	newWriter WriterFactory
	title     string
	log       logging.Logger
}

func NewSheetsStorage(account Account, settings SpreadsheetSettings, data Dataset, newWriter WriterFactory, title string, log logging.Logger) *SheetsStorage {
	return &SheetsStorage{
		account:   account,
		settings:  settings,
		data:      data,
		newWriter: newWriter,
		title:     title,
		log:       log.With("component", "sheets_export"),
	}
}

func (s *SheetsStorage) Upload(ctx context.Context) (Report, error) {
	signedIn, err := s.account.IsSignedIn(ctx)
	if err != nil {
		return Report{}, err
	}
	if !signedIn {
		return Report{}, auth.ErrNotSignedIn
	}
	authorized, err := s.account.IsAuthorized(ctx)
	if err != nil {
		return Report{}, err
	}
	if !authorized {
		return Report{}, auth.ErrNotAuthorized
	}

	books, err := s.data.Books(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load books: %w", err)
	}
	cats, err := s.data.Categories(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load categories: %w", err)
	}
	rels, err := s.data.Relations(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load relations: %w", err)
	}
	tabs := []tab{
		{BooksTab, BookHeaders, rows(books, BookRow)},
		{CategoriesTab, CategoryHeaders, rows(cats, CategoryRow)},
		{RelationsTab, RelationHeaders, rows(rels, RelationRow)},
	}

	ts, err := s.account.TokenSource(ctx)
	if err != nil {
		return Report{}, err
	}
	w, err := s.newWriter(ctx, ts)
	if err != nil {
		return Report{}, fmt.Errorf("open sheets: %w", err)
	}

	id, err := s.spreadsheet(ctx, w)
	if err != nil {
		return Report{}, err
	}
	err = s.write(ctx, w, id, tabs)
	if errors.Is(err, ErrSpreadsheetNotFound) {
		s.log.Warn(ctx, "stored spreadsheet is gone, creating a new one", "spreadsheet_id", id)
		if err := s.settings.ClearSpreadsheetID(ctx); err != nil {
			return Report{}, err
		}
		if id, err = s.spreadsheet(ctx, w); err != nil {
			return Report{}, err
		}
		err = s.write(ctx, w, id, tabs)
	}
	if err != nil {
		return Report{}, err
	}

	return Report{
		Target:     TargetSheets,
		Location:   id,
		Books:      len(books),
		Categories: len(cats),
		Relations:  len(rels),
	}, nil
}

func (s *SheetsStorage) Download(context.Context) (Report, error) {
	return Report{}, ErrUnsupported
}

// spreadsheet returns the stored spreadsheet id, creating one when none is
// stored yet.
func (s *SheetsStorage) spreadsheet(ctx context.Context, w SheetWriter) (string, error) {
	id, err := s.settings.SpreadsheetID(ctx)
	if err != nil {
		return "", err
	}
	if id != "" {
		s.log.Debug(ctx, "using existing spreadsheet", "spreadsheet_id", id)
		return id, nil
	}

	id, err = w.Create(ctx, s.title)
	if err != nil {
		return "", fmt.Errorf("create spreadsheet: %w", err)
	}
	if id == "" {
		return "", errors.New("create spreadsheet: empty id")
	}
	if err := s.settings.SetSpreadsheetID(ctx, id); err != nil {
		return "", err
	}
	s.log.Info(ctx, "created spreadsheet", "spreadsheet_id", id)
	return id, nil
}

func (s *SheetsStorage) write(ctx context.Context, w SheetWriter, id string, tabs []tab) error {
	for _, t := range tabs {
		if err := w.Update(ctx, id, t.title, t.headers, t.rows); err != nil {
			return fmt.Errorf("write %s: %w", t.title, err)
		}
		s.log.Debug(ctx, "tab exported", "tab", t.title, "rows", len(t.rows))
	}
	return nil
}
