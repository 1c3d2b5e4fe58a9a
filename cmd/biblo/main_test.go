package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"biblomnemon/internal/cloud/export"
	"biblomnemon/internal/library"
	"biblomnemon/internal/platform/crypto"
	"biblomnemon/internal/refresh"
	"biblomnemon/internal/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeBooks struct{ mock.Mock }

func (f *fakeBooks) List(ctx context.Context, q library.Query) ([]library.Book, int, error) {
	args := f.Called(ctx, q)
	books, _ := args.Get(0).([]library.Book)
	return books, args.Int(1), args.Error(2)
}

func (f *fakeBooks) Import(ctx context.Context, req library.ImportRequest) (library.Book, bool, error) {
	args := f.Called(ctx, req)
	return args.Get(0).(library.Book), args.Bool(1), args.Error(2)
}

type fakeLookup struct{ mock.Mock }

func (f *fakeLookup) Search(ctx context.Context, query string, limit, offset int) ([]library.Book, error) {
	args := f.Called(ctx, query, limit, offset)
	books, _ := args.Get(0).([]library.Book)
	return books, args.Error(1)
}

func (f *fakeLookup) GetByISBN(ctx context.Context, isbn string) (library.Book, error) {
	args := f.Called(ctx, isbn)
	return args.Get(0).(library.Book), args.Error(1)
}

func (f *fakeLookup) GetByID(ctx context.Context, id string) (library.Book, error) {
	args := f.Called(ctx, id)
	return args.Get(0).(library.Book), args.Error(1)
}

type fakeCloud struct{ mock.Mock }

func (f *fakeCloud) User(ctx context.Context) (*settings.CloudUser, error) {
	args := f.Called(ctx)
	u, _ := args.Get(0).(*settings.CloudUser)
	return u, args.Error(1)
}

func (f *fakeCloud) IsAuthorized(ctx context.Context) (bool, error) {
	args := f.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (f *fakeCloud) AuthorizationURL(scopes []string) (string, error) {
	args := f.Called(scopes)
	return args.String(0), args.Error(1)
}

func (f *fakeCloud) CompleteAuthorization(ctx context.Context, code, state string) error {
	return f.Called(ctx, code, state).Error(0)
}

func (f *fakeCloud) SignOut(ctx context.Context) error { return f.Called(ctx).Error(0) }

func (f *fakeCloud) Revoke(ctx context.Context) error { return f.Called(ctx).Error(0) }

type fakeStorage struct{ mock.Mock }

func (f *fakeStorage) Upload(ctx context.Context) (export.Report, error) {
	args := f.Called(ctx)
	return args.Get(0).(export.Report), args.Error(1)
}

func (f *fakeStorage) Download(ctx context.Context) (export.Report, error) {
	args := f.Called(ctx)
	return args.Get(0).(export.Report), args.Error(1)
}

type fakeRefresh struct{ mock.Mock }

func (f *fakeRefresh) Run(ctx context.Context) (refresh.Run, error) {
	args := f.Called(ctx)
	return args.Get(0).(refresh.Run), args.Error(1)
}

type cliEnv struct {
	books   *fakeBooks
	lookup  *fakeLookup
	cloud   *fakeCloud
	sheets  *fakeStorage
	refresh *fakeRefresh
	closed  int
}

func newCLIEnv() *cliEnv {
	return &cliEnv{
		books:   &fakeBooks{},
		lookup:  &fakeLookup{},
		cloud:   &fakeCloud{},
		sheets:  &fakeStorage{},
		refresh: &fakeRefresh{},
	}
}

func (e *cliEnv) open(context.Context, string) (*services, func() error, error) {
	return &services{
		books:    e.books,
		lookup:   e.lookup,
		cloud:    e.cloud,
		storages: map[string]export.Storage{export.TargetSheets: e.sheets},
		refresh:  e.refresh,
	}, func() error { e.closed++; return nil }, nil
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(e.open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func intPtr(v int) *int { return &v }

var dune = library.Book{
	ID:          "b1",
	Source:      library.SourceManual,
	Title:       "Dune",
	Authors:     []library.Author{{Name: "Frank Herbert"}},
	ISBN:        "9780441172719",
	PublishYear: intPtr(1965),
}

func TestListCommand_JSON(t *testing.T) {
	env := newCLIEnv()
	env.books.On("List", mock.Anything, library.Query{Q: "dune", Source: library.SourceManual, Limit: 5}).
		Return([]library.Book{dune}, 1, nil)

	out, err := env.run(t, "list", "-q", "dune", "--source", "manual", "--limit", "5", "-o", "json")
	require.NoError(t, err)

	var got []library.Book
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Dune", got[0].Title)
	assert.Equal(t, 1, env.closed)
	env.books.AssertExpectations(t)
}

func TestListCommand_Table(t *testing.T) {
	env := newCLIEnv()
	env.books.On("List", mock.Anything, mock.Anything).Return([]library.Book{dune}, 3, nil)

	out, err := env.run(t, "list", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, "Frank Herbert")
	assert.Contains(t, out, "1965")
	assert.Contains(t, out, "1 of 3 books")
}

func TestListCommand_NonTerminalDefaultsToJSON(t *testing.T) {
	env := newCLIEnv()
	env.books.On("List", mock.Anything, mock.Anything).Return(nil, 0, nil)

	out, err := env.run(t, "list")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestListCommand_RejectsUnknownSource(t *testing.T) {
	env := newCLIEnv()

	_, err := env.run(t, "list", "--source", "kindle")
	assert.ErrorIs(t, err, library.ErrUnknownSource)
	assert.Zero(t, env.closed)
}

func TestImportCommand(t *testing.T) {
	t.Run("by isbn", func(t *testing.T) {
		env := newCLIEnv()
		env.books.On("Import", mock.Anything, library.ImportRequest{ISBN: "9780441172719"}).Return(dune, true, nil)

		out, err := env.run(t, "import", "9780441172719", "-o", "table")
		require.NoError(t, err)
		assert.Contains(t, out, `Imported "Dune"`)
	})

	t.Run("already saved", func(t *testing.T) {
		env := newCLIEnv()
		env.books.On("Import", mock.Anything, library.ImportRequest{RemoteID: "GOOGLE:abc"}).Return(dune, false, nil)

		out, err := env.run(t, "import", "--id", "GOOGLE:abc", "-o", "json")
		require.NoError(t, err)
		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, false, got["created"])
	})

	t.Run("needs exactly one key", func(t *testing.T) {
		env := newCLIEnv()
		_, err := env.run(t, "import")
		assert.Error(t, err)
		_, err = env.run(t, "import", "9780441172719", "--id", "GOOGLE:abc")
		assert.Error(t, err)
	})

	t.Run("not found", func(t *testing.T) {
		env := newCLIEnv()
		env.books.On("Import", mock.Anything, mock.Anything).Return(library.Book{}, false, library.ErrRemoteNotFound)

		_, err := env.run(t, "import", "9780441172719")
		assert.ErrorIs(t, err, library.ErrRemoteNotFound)
	})
}

func TestLookupCommands(t *testing.T) {
	env := newCLIEnv()
	env.lookup.On("Search", mock.Anything, "dune", 3, 0).Return([]library.Book{dune}, nil)
	env.lookup.On("GetByID", mock.Anything, "OPEN_LIBRARY:OL1W").Return(dune, nil)

	out, err := env.run(t, "lookup", "search", "dune", "--limit", "3", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Dune"`)

	out, err = env.run(t, "lookup", "id", "OPEN_LIBRARY:OL1W", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "Dune")

	env.lookup.AssertExpectations(t)
}

func TestLookupCommand_PropagatesCancellation(t *testing.T) {
	env := newCLIEnv()
	env.lookup.On("GetByISBN", mock.Anything, "9780441172719").Return(library.Book{}, context.Canceled)

	_, err := env.run(t, "lookup", "isbn", "9780441172719")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportCommand(t *testing.T) {
	env := newCLIEnv()
	env.sheets.On("Upload", mock.Anything).Return(export.Report{Target: "sheets", Location: "sheet-1", Books: 4}, nil)

	out, err := env.run(t, "export", "sheets", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "sheet-1")
	assert.Contains(t, out, "Books")

	_, err = env.run(t, "export", "dropbox")
	assert.ErrorContains(t, err, `unknown export target "dropbox"`)
}

func TestRestoreCommand_Unsupported(t *testing.T) {
	env := newCLIEnv()
	env.sheets.On("Download", mock.Anything).Return(export.Report{}, export.ErrUnsupported)

	_, err := env.run(t, "restore", "sheets")
	assert.ErrorIs(t, err, export.ErrUnsupported)
}

func TestAuthCommands(t *testing.T) {
	t.Run("status signed out", func(t *testing.T) {
		env := newCLIEnv()
		env.cloud.On("User", mock.Anything).Return(nil, nil)
		env.cloud.On("IsAuthorized", mock.Anything).Return(false, nil)

		out, err := env.run(t, "auth", "status", "-o", "json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"signed_in":false,"authorized":false,"user":null}`, out)
	})

	t.Run("status signed in", func(t *testing.T) {
		env := newCLIEnv()
		env.cloud.On("User", mock.Anything).Return(&settings.CloudUser{Name: "Reader", Email: "reader@example.com"}, nil)
		env.cloud.On("IsAuthorized", mock.Anything).Return(true, nil)

		out, err := env.run(t, "auth", "status", "-o", "table")
		require.NoError(t, err)
		assert.Contains(t, out, "reader@example.com")
		assert.Contains(t, out, "yes")
	})

	t.Run("url and complete", func(t *testing.T) {
		env := newCLIEnv()
		scopes := []string{"https://www.googleapis.com/auth/spreadsheets"}
		env.cloud.On("AuthorizationURL", scopes).Return("https://accounts.example/consent", nil)
		env.cloud.On("CompleteAuthorization", mock.Anything, "c1", "s1").Return(nil)

		out, err := env.run(t, "auth", "url", scopes[0], "-o", "table")
		require.NoError(t, err)
		assert.Equal(t, "https://accounts.example/consent\n", out)

		_, err = env.run(t, "auth", "complete", "--code", "c1", "--state", "s1")
		require.NoError(t, err)

		_, err = env.run(t, "auth", "complete", "--code", "c1")
		assert.Error(t, err)
		env.cloud.AssertExpectations(t)
	})

	t.Run("revoke failure", func(t *testing.T) {
		env := newCLIEnv()
		boom := errors.New("token revocation failed: 400")
		env.cloud.On("Revoke", mock.Anything).Return(boom)

		_, err := env.run(t, "auth", "revoke")
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, env.closed)
	})
}

func TestRefreshCommand(t *testing.T) {
	env := newCLIEnv()
	env.refresh.On("Run", mock.Anything).Return(refresh.Run{ID: "run-1", Status: "completed", BooksScanned: 2, BooksUpdated: 1}, nil)

	out, err := env.run(t, "refresh", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "completed")
}

func TestOutputFlagValidation(t *testing.T) {
	env := newCLIEnv()
	_, err := env.run(t, "list", "-o", "yaml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestOpenFailure(t *testing.T) {
	boom := errors.New("config invalid")
	cmd := newRootCommand(func(context.Context, string) (*services, func() error, error) {
		return nil, nil, boom
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"list"})
	assert.ErrorIs(t, cmd.ExecuteContext(context.Background()), boom)
}

func TestParseOutputMode(t *testing.T) {
	for in, want := range map[string]outputMode{"": outputAuto, "AUTO": outputAuto, " table ": outputTable, "json": outputJSON} {
		got, err := parseOutputMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestTokenCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("API_SECRET", "cli-secret")
	env := newCLIEnv()

	out, err := env.run(t, "token", "--subject", "me", "-o", "table")
	require.NoError(t, err)

	claims, err := crypto.ParseToken("cli-secret", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "me", claims.Sub)
	assert.Equal(t, "owner", claims.Role)
	assert.Zero(t, env.closed)

	t.Setenv("API_SECRET", "")
	_, err = env.run(t, "token")
	assert.ErrorContains(t, err, "no API secret configured")
}
