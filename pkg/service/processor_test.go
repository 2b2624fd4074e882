package service

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/edenwallet/pkg/config"
	"github.com/yurifrl/edenwallet/pkg/csv"
	"github.com/yurifrl/edenwallet/pkg/edenred"
	"github.com/yurifrl/edenwallet/pkg/edenred/edenredtest"
	"github.com/yurifrl/edenwallet/pkg/failure"
	"github.com/yurifrl/edenwallet/pkg/wallet"
	"github.com/yurifrl/edenwallet/pkg/wallet/wallettest"
	"github.com/yurifrl/edenwallet/pkg/wire"
)

var now = time.Date(2024, 3, 16, 10, 30, 0, 0, time.UTC)

type fixture struct {
	source    *edenredtest.Server
	sink      *wallettest.Server
	cfg       *config.Config
	processor *Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{source: edenredtest.NewServer(), sink: wallettest.NewServer()}
	t.Cleanup(f.source.Close)
	t.Cleanup(f.sink.Close)

	f.source.Movements = []map[string]any{
		{"transactionDate": "2024-03-15T14:22:10.000000Z", "transactionName": "Salary", "amount": 50},
		{"transactionDate": "2024-03-16T09:05:00.000000Z", "transactionName": "Lunch", "amount": -20},
	}

	cfg := config.Default()
	cfg.Edenred = config.EdenredConfig{Host: f.source.URL, User: edenredtest.Username, Password: edenredtest.Password}
	cfg.Wallet = config.WalletConfig{
		User:        wallettest.Username,
		Password:    wallettest.Password,
		ImportEmail: wallettest.ImportEmail,
		APIURL:      f.sink.URL,
		DocsURL:     f.sink.URL,
	}
	cfg.OutputDir = filepath.Join(t.TempDir(), "transactions")
	cfg.Timezone = "UTC"
	f.cfg = cfg

	opts, err := cfg.WalletOptions()
	require.NoError(t, err)
	logger := log.Default()
	f.processor = NewProcessor(cfg, logger,
		edenred.New(logger, cfg.Edenred.Host, cfg.EdenredOptions()),
		wallet.New(logger, opts))
	f.processor.now = func() time.Time { return now }
	return f
}

func TestRunImportsEverythingWithoutPriorBatch(t *testing.T) {
	f := newFixture(t)

	res, err := f.processor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wallet.Imported, res.Status)
	assert.Equal(t, 2, res.Rows)

	want := csv.Header + "\n" +
		"2024-03-15T14:22:10.000000Z,Salary,50,0\n" +
		"2024-03-16T09:05:00.000000Z,Lunch,0,-20\n"

	path := filepath.Join(f.cfg.OutputDir, "2024-03-16T10-30.csv")
	assert.Equal(t, path, res.File)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, string(content))

	require.Len(t, f.sink.Uploads, 1)
	assert.Equal(t, want, f.sink.Uploads[0].Body)
	assert.Equal(t, "2024-03-16T10-30.csv", f.sink.Uploads[0].Filename)
	assert.Contains(t, f.sink.Configured, res.BatchID)
}

func TestRunSendsOnlyRowsSinceLastBatch(t *testing.T) {
	f := newFixture(t)
	f.sink.Files = []wire.ImportFile{{ID: "old-1", FileName: "2024-03-15T18-00.csv"}}

	res, err := f.processor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)

	require.Len(t, f.sink.Uploads, 1)
	assert.Equal(t, csv.Header+"\n2024-03-16T09:05:00.000000Z,Lunch,0,-20\n", f.sink.Uploads[0].Body)
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)

	_, err := f.processor.Run(context.Background())
	require.NoError(t, err)

	f.processor.now = func() time.Time { return now.Add(time.Hour) }
	res, err := f.processor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, wallet.UpToDate, res.Status)
	assert.Len(t, f.sink.Uploads, 1)
}

func TestRunSourceFailure(t *testing.T) {
	f := newFixture(t)
	f.source.Fail[edenredtest.RouteMovements] = http.StatusInternalServerError

	_, err := f.processor.Run(context.Background())
	assert.Equal(t, edenred.ReasonMovements, failure.Reason(err))
	assert.Zero(t, f.sink.Calls(wallettest.RouteLogin))

	_, statErr := os.Stat(f.cfg.OutputDir)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRunSinkFailure(t *testing.T) {
	f := newFixture(t)
	f.sink.Fail[wallettest.RouteUpload] = wallettest.Failure{Status: http.StatusInternalServerError}

	_, err := f.processor.Run(context.Background())
	assert.Equal(t, wallet.ReasonUpload, failure.Reason(err))
}

func TestExport(t *testing.T) {
	f := newFixture(t)

	path, err := f.processor.Export(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Zero(t, f.sink.Calls(wallettest.RouteLogin))
}

func TestFetchWritesNothing(t *testing.T) {
	f := newFixture(t)

	records, err := f.processor.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Lunch", records[1].Note)
	assert.NoDirExists(t, f.cfg.OutputDir)
}

func TestTransactions(t *testing.T) {
	got := Transactions([]edenred.Movement{{TransactionDate: "d", TransactionName: "n"}})
	require.Len(t, got, 1)
	assert.Equal(t, "d", got[0].Date)
	assert.Equal(t, "n", got[0].Note)
	assert.Empty(t, Transactions(nil))
}
