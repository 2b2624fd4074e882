package wallet

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/yurifrl/edenwallet/pkg/csv"
	"github.com/yurifrl/edenwallet/pkg/failure"
	"github.com/yurifrl/edenwallet/pkg/reconcile"
	"github.com/yurifrl/edenwallet/pkg/wire"
)

// Step reasons, one per network call, so a failed run says where it stopped.
const (
	ReasonCredentials    = "credentials required"
	ReasonImportAddress  = "import address required"
	ReasonFileNotFound   = "file not specified or not found"
	ReasonFileUnreadable = "can't read file"
	ReasonFileFormat     = "file data may have wrong format"
	ReasonLogin          = "login failed"
	ReasonUser           = "retrieving user information failed"
	ReasonImports        = "retrieving imported files failed"
	ReasonRewrite        = "rewriting file failed"
	ReasonUpload         = "uploading file failed"
	ReasonUploaded       = "retrieving uploaded file failed"
	ReasonConfigure      = "importing file failed"
)

var errBatchMissing = errors.New("import list is empty after upload")

type Status int

const (
	// Unknown is the zero value: no import finished.
	Unknown Status = iota
	Imported
	// UpToDate means every row was already imported; nothing was uploaded.
	UpToDate
)

func (s Status) String() string {
	switch s {
	case Imported:
		return "imported"
	case UpToDate:
		return "up_to_date"
	default:
		return "unknown"
	}
}

type Result struct {
	Status  Status
	Message string
	File    string
	BatchID string
	// Rows is the number of data rows sent, Skipped the rows left out
	// because an earlier batch already carried them.
	Rows    int
	Skipped int
}

// UploadFile runs the whole import of one batch file:
//
//  1. log in
//  2. resolve the account id
//  3. list the imported batches
//  4. with onlyNew, drop the rows older than the latest batch
//  5. upload the file
//  6. list the batches again to get the id Wallet gave the upload
//  7. post the format settings for that id
//
// Every step depends on the previous one and the first failure ends the run
// with that step's reason. Local validation happens before any request.
func (c *Client) UploadFile(ctx context.Context, creds Credentials, path string, onlyNew bool) (*Result, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, failure.New(failure.Validation, ReasonCredentials, nil)
	}
	if c.importEmail == "" {
		return nil, failure.New(failure.Validation, ReasonImportAddress, nil)
	}
	content, err := ReadBatchFile(path)
	if err != nil {
		return nil, err
	}
	filename := filepath.Base(path)

	s, err := c.Login(ctx, creds)
	if err != nil {
		return nil, failure.New(failure.Authentication, ReasonLogin, err)
	}

	user, err := c.User(ctx, s)
	if err != nil {
		return nil, failure.New(failure.Lookup, ReasonUser, err)
	}
	c.logger.Debug("resolved wallet user", "user_id", user.ID)

	imports, err := c.Imports(ctx, s)
	if err != nil {
		return nil, failure.New(failure.List, ReasonImports, err)
	}

	res := &Result{File: path, Rows: countRows(content)}
	if last := imports.Latest(); onlyNew && last != nil {
		cutoff, err := reconcile.Cutoff(last.FileName, c.location)
		if err != nil {
			c.logger.Warn("couldn't read last uploaded date, uploading whole file", "batch", last.FileName, "error", err)
		} else {
			report := reconcile.Build(content, cutoff, c.location)
			c.logger.Info("compared with last batch", "batch", last.FileName, "cutoff", cutoff, "new", report.MissingCount(), "imported", report.InSyncCount(), "invalid", report.InvalidCount())

			if report.MissingCount() == 0 {
				res.Status = UpToDate
				res.Message = "transactions up to date, file not imported"
				res.Rows = 0
				res.Skipped = len(report.Items)
				return res, nil
			}

			content = report.Bytes()
			if err := os.WriteFile(path, content, 0o644); err != nil {
				return nil, failure.New(failure.Filesystem, ReasonRewrite, err)
			}
			res.Rows = report.MissingCount()
			res.Skipped = len(report.Items) - report.MissingCount()
		}
	}

	if err := c.Upload(ctx, s, user.ID, filename, content); err != nil {
		return nil, failure.New(failure.Upload, ReasonUpload, err)
	}
	c.logger.Info("uploaded batch", "file", filename, "rows", res.Rows)

	imports, err = c.Imports(ctx, s)
	if err != nil {
		return nil, failure.New(failure.List, ReasonUploaded, err)
	}
	uploaded := imports.Latest()
	if uploaded == nil {
		return nil, failure.New(failure.List, ReasonUploaded, errBatchMissing)
	}

	if err := c.Configure(ctx, s, uploaded.ID, wire.DefaultImportSettings()); err != nil {
		return nil, failure.New(failure.Configuration, ReasonConfigure, err)
	}
	c.logger.Info("configured batch", "batch_id", uploaded.ID)

	res.Status = Imported
	res.Message = "file successfully imported"
	res.BatchID = uploaded.ID
	return res, nil
}

// ReadBatchFile loads a batch file and checks it starts with the csv header.
func ReadBatchFile(path string) ([]byte, error) {
	if path == "" {
		return nil, failure.New(failure.Validation, ReasonFileNotFound, nil)
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, failure.New(failure.Validation, ReasonFileNotFound, err)
	}
	if err != nil || len(content) == 0 {
		return nil, failure.New(failure.Validation, ReasonFileUnreadable, err)
	}
	if !bytes.HasPrefix(content, []byte(csv.Header)) {
		return nil, failure.New(failure.Validation, ReasonFileFormat, nil)
	}
	return content, nil
}

func countRows(content []byte) int {
	n := 0
	for i, line := range bytes.Split(content, []byte("\n")) {
		if i == 0 || len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		n++
	}
	return n
}
