package wallet

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/edenwallet/pkg/csv"
	"github.com/yurifrl/edenwallet/pkg/failure"
	"github.com/yurifrl/edenwallet/pkg/wallet/wallettest"
	"github.com/yurifrl/edenwallet/pkg/wire"
)

var creds = Credentials{Username: wallettest.Username, Password: wallettest.Password}

const batch = csv.Header + "\n" +
	"2024-03-15T13:59:00.000000Z,Coffee,0,-3\n" +
	"2024-03-15T14:22:00.000000Z,Salary,50,0\n" +
	"2024-03-16T09:05:00.000000Z,Lunch,0,-20\n"

var allRoutes = []string{
	wallettest.RouteLogin,
	wallettest.RouteUser,
	wallettest.RouteImports,
	wallettest.RouteUpload,
	wallettest.RouteConfigure,
}

func newClient(srv *wallettest.Server) *Client {
	return New(log.Default(), Options{
		APIURL:      srv.URL,
		DocsURL:     srv.URL,
		ImportEmail: wallettest.ImportEmail,
		Location:    time.UTC,
	})
}

func writeBatch(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "2024-03-16T10-00.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestUploadFileOnlyNewRows(t *testing.T) {
	srv := wallettest.NewServer()
	defer srv.Close()
	srv.Files = []wire.ImportFile{{ID: "old-2", FileName: "2024-03-15T14-22.csv"}, {ID: "old-1", FileName: "2024-03-01T08-00.csv"}}
	path := writeBatch(t, batch)

	res, err := newClient(srv).UploadFile(context.Background(), creds, path, true)
	require.NoError(t, err)

	want := csv.Header + "\n" +
		"2024-03-15T14:22:00.000000Z,Salary,50,0\n" +
		"2024-03-16T09:05:00.000000Z,Lunch,0,-20\n"

	assert.Equal(t, Imported, res.Status)
	assert.Equal(t, "file successfully imported", res.Message)
	assert.Equal(t, "batch-1", res.BatchID)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 1, res.Skipped)

	require.Len(t, srv.Uploads, 1)
	assert.Equal(t, want, srv.Uploads[0].Body)
	assert.Equal(t, "2024-03-16T10-00.csv", srv.Uploads[0].Filename)
	assert.Equal(t, wallettest.UserID, srv.Uploads[0].UserID)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, string(onDisk))

	require.Contains(t, srv.Configured, "batch-1")
	assert.Equal(t, wire.DefaultImportSettings(), srv.Configured["batch-1"])
	assert.Len(t, srv.Configured, 1)
	assert.Equal(t, 2, srv.Calls(wallettest.RouteImports))
}

func TestUploadFileWithoutPriorBatch(t *testing.T) {
	srv := wallettest.NewServer()
	defer srv.Close()
	path := writeBatch(t, batch)

	res, err := newClient(srv).UploadFile(context.Background(), creds, path, true)
	require.NoError(t, err)

	assert.Equal(t, Imported, res.Status)
	assert.Equal(t, 3, res.Rows)
	require.Len(t, srv.Uploads, 1)
	assert.Equal(t, batch, srv.Uploads[0].Body)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, batch, string(onDisk))
}

func TestUploadFileDedupDisabled(t *testing.T) {
	srv := wallettest.NewServer()
	defer srv.Close()
	srv.Files = []wire.ImportFile{{ID: "old-1", FileName: "2024-03-16T00-00.csv"}}
	path := writeBatch(t, batch)

	_, err := newClient(srv).UploadFile(context.Background(), creds, path, false)
	require.NoError(t, err)
	require.Len(t, srv.Uploads, 1)
	assert.Equal(t, batch, srv.Uploads[0].Body)
}

func TestUploadFileUnreadableBatchNameFailsOpen(t *testing.T) {
	srv := wallettest.NewServer()
	defer srv.Close()
	srv.Files = []wire.ImportFile{{ID: "old-1", FileName: "statement.csv"}}
	path := writeBatch(t, batch)

	res, err := newClient(srv).UploadFile(context.Background(), creds, path, true)
	require.NoError(t, err)
	assert.Equal(t, Imported, res.Status)
	require.Len(t, srv.Uploads, 1)
	assert.Equal(t, batch, srv.Uploads[0].Body)
}

func TestUploadFileNothingNew(t *testing.T) {
	srv := wallettest.NewServer()
	defer srv.Close()
	srv.Files = []wire.ImportFile{{ID: "old-1", FileName: "2024-03-17T00-00.csv"}}
	path := writeBatch(t, batch)

	res, err := newClient(srv).UploadFile(context.Background(), creds, path, true)
	require.NoError(t, err)

	assert.Equal(t, UpToDate, res.Status)
	assert.Equal(t, "transactions up to date, file not imported", res.Message)
	assert.Equal(t, 3, res.Skipped)
	assert.Zero(t, srv.Calls(wallettest.RouteUpload))
	assert.Zero(t, srv.Calls(wallettest.RouteConfigure))
	assert.Equal(t, 1, srv.Calls(wallettest.RouteImports))

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, batch, string(onDisk))
}

func TestUploadFileStepFailures(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*wallettest.Server)
		creds  Credentials
		reason string
		kind   failure.Kind
		after  []string
	}{
		{
			name:   "login rejected",
			setup:  func(s *wallettest.Server) { s.Fail[wallettest.RouteLogin] = wallettest.Failure{Status: http.StatusUnauthorized} },
			reason: ReasonLogin,
			kind:   failure.Authentication,
			after:  []string{wallettest.RouteUser, wallettest.RouteImports, wallettest.RouteUpload, wallettest.RouteConfigure},
		},
		{
			name:   "wrong password",
			creds:  Credentials{Username: wallettest.Username, Password: "nope"},
			reason: ReasonLogin,
			kind:   failure.Authentication,
			after:  []string{wallettest.RouteUser},
		},
		{
			name:   "user lookup fails",
			setup:  func(s *wallettest.Server) { s.Fail[wallettest.RouteUser] = wallettest.Failure{Status: http.StatusInternalServerError} },
			reason: ReasonUser,
			kind:   failure.Lookup,
			after:  []string{wallettest.RouteImports, wallettest.RouteUpload, wallettest.RouteConfigure},
		},
		{
			name:   "user message undecodable",
			setup:  func(s *wallettest.Server) { s.Garbage[wallettest.RouteUser] = true },
			reason: ReasonUser,
			kind:   failure.Lookup,
			after:  []string{wallettest.RouteImports},
		},
		{
			name:   "import list fails",
			setup:  func(s *wallettest.Server) { s.Fail[wallettest.RouteImports] = wallettest.Failure{Status: http.StatusBadGateway} },
			reason: ReasonImports,
			kind:   failure.List,
			after:  []string{wallettest.RouteUpload, wallettest.RouteConfigure},
		},
		{
			name:   "upload fails",
			setup:  func(s *wallettest.Server) { s.Fail[wallettest.RouteUpload] = wallettest.Failure{Status: http.StatusInternalServerError} },
			reason: ReasonUpload,
			kind:   failure.Upload,
			after:  []string{wallettest.RouteConfigure},
		},
		{
			name: "second import list fails",
			setup: func(s *wallettest.Server) {
				s.Fail[wallettest.RouteImports] = wallettest.Failure{Status: http.StatusInternalServerError, Call: 2}
			},
			reason: ReasonUploaded,
			kind:   failure.List,
			after:  []string{wallettest.RouteConfigure},
		},
		{
			name:   "configure fails",
			setup:  func(s *wallettest.Server) { s.Fail[wallettest.RouteConfigure] = wallettest.Failure{Status: http.StatusInternalServerError} },
			reason: ReasonConfigure,
			kind:   failure.Configuration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := wallettest.NewServer()
			defer srv.Close()
			if tt.setup != nil {
				tt.setup(srv)
			}
			c := creds
			if tt.creds != (Credentials{}) {
				c = tt.creds
			}

			res, err := newClient(srv).UploadFile(context.Background(), c, writeBatch(t, batch), true)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.reason, failure.Reason(err))
			assert.True(t, failure.Is(err, tt.kind), "kind %v", tt.kind)
			for _, route := range tt.after {
				assert.Zero(t, srv.Calls(route), "route %s must not be called", route)
			}
		})
	}
}

func TestUploadFileStepTimeout(t *testing.T) {
	srv := wallettest.NewServer()
	defer srv.Close()
	srv.Delay[wallettest.RouteUser] = 2 * time.Second

	c := New(log.Default(), Options{
		APIURL:      srv.URL,
		DocsURL:     srv.URL,
		ImportEmail: wallettest.ImportEmail,
		StepTimeout: 50 * time.Millisecond,
	})
	_, err := c.UploadFile(context.Background(), creds, writeBatch(t, batch), true)
	assert.Equal(t, ReasonUser, failure.Reason(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUploadFileValidation(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	noHeader := filepath.Join(dir, "no-header.csv")
	require.NoError(t, os.WriteFile(noHeader, []byte("2024-03-15T14:22:00Z,Salary,50,0\n"), 0o644))

	tests := []struct {
		name        string
		creds       Credentials
		importEmail string
		path        string
		reason      string
	}{
		{name: "missing credentials", creds: Credentials{Username: wallettest.Username}, importEmail: wallettest.ImportEmail, path: noHeader, reason: ReasonCredentials},
		{name: "missing import address", creds: creds, path: noHeader, reason: ReasonImportAddress},
		{name: "no path", creds: creds, importEmail: wallettest.ImportEmail, reason: ReasonFileNotFound},
		{name: "missing file", creds: creds, importEmail: wallettest.ImportEmail, path: filepath.Join(dir, "nope.csv"), reason: ReasonFileNotFound},
		{name: "empty file", creds: creds, importEmail: wallettest.ImportEmail, path: empty, reason: ReasonFileUnreadable},
		{name: "no header", creds: creds, importEmail: wallettest.ImportEmail, path: noHeader, reason: ReasonFileFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := wallettest.NewServer()
			defer srv.Close()

			c := New(log.Default(), Options{APIURL: srv.URL, DocsURL: srv.URL, ImportEmail: tt.importEmail})
			_, err := c.UploadFile(context.Background(), tt.creds, tt.path, true)
			assert.Equal(t, tt.reason, failure.Reason(err))
			assert.True(t, failure.Is(err, failure.Validation))
			for _, route := range allRoutes {
				assert.Zero(t, srv.Calls(route), "route %s must not be called", route)
			}
		})
	}
}

func TestCountRows(t *testing.T) {
	assert.Equal(t, 3, countRows([]byte(batch)))
	assert.Equal(t, 0, countRows([]byte(csv.Header)))
	assert.Equal(t, 1, countRows([]byte(csv.Header+"\r\nrow\r\n\r\n")))
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{Imported, "imported"},
		{UpToDate, "up_to_date"},
		{Status(0), "unknown"},
		{Status(42), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
	var res Result
	assert.Equal(t, Unknown, res.Status)
}
