package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var ErrSpreadsheetNotFound = errors.New("spreadsheet not found")

// SheetWriter is the part of the Sheets API export needs.
type SheetWriter interface {
	Create(ctx context.Context, title string) (string, error)
	// Update makes sure the tab exists, clears it and writes headers and
	// rows from A1.
	Update(ctx context.Context, spreadsheetID, tab string, headers []string, rows [][]interface{}) error
}

type GoogleSheetWriter struct {
	svc *sheets.Service
}

func NewGoogleSheetWriter(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*GoogleSheetWriter, error) {
	opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleSheetWriter{svc: svc}, nil
}

// GoogleWriterFactory adapts NewGoogleSheetWriter to a WriterFactory.
func GoogleWriterFactory(opts ...option.ClientOption) WriterFactory {
	return func(ctx context.Context, ts oauth2.TokenSource) (SheetWriter, error) {
		return NewGoogleSheetWriter(ctx, ts, opts...)
	}
}

func (w *GoogleSheetWriter) Create(ctx context.Context, title string) (string, error) {
	ss, err := w.svc.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: title},
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return ss.SpreadsheetId, nil
}

func (w *GoogleSheetWriter) Update(ctx context.Context, spreadsheetID, tab string, headers []string, rows [][]interface{}) error {
	if err := w.ensureTab(ctx, spreadsheetID, tab); err != nil {
		return mapError(err)
	}

	_, err := w.svc.Spreadsheets.Values.Clear(spreadsheetID, tab+"!A:Z", &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return mapError(err)
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, header)
	values = append(values, rows...)

	_, err = w.svc.Spreadsheets.Values.Update(spreadsheetID, tab+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	return mapError(err)
}

func (w *GoogleSheetWriter) ensureTab(ctx context.Context, spreadsheetID, tab string) error {
	ss, err := w.svc.Spreadsheets.Get(spreadsheetID).
		IncludeGridData(false).
		Context(ctx).Do()
	if err != nil {
		return err
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			return nil
		}
	}

	_, err = w.svc.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: tab}},
		}},
	}).Context(ctx).Do()
	return err
}

func mapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrSpreadsheetNotFound, err)
	}
	return err
}
