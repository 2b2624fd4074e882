// Package wallet talks to the BudgetBakers Wallet import API: a cookie
// session, protobuf responses and a raw CSV upload.
package wallet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/edenwallet/pkg/session"
	"github.com/yurifrl/edenwallet/pkg/wire"
)

const (
	DefaultAPIURL     = "https://api.budgetbakers.com"
	DefaultDocsURL    = "https://docs.budgetbakers.com"
	DefaultWebVersion = "4.9.0"
)

const (
	loginPath     = "/auth/authenticate/userpass"
	userPath      = "/ribeez/user/abc"
	importsPath   = "/ribeez/import/v1/all"
	uploadPath    = "/upload/import-web/"
	configurePath = "/ribeez/import/v1/item/%s/records"
)

var errNoUserID = errors.New("user message has no id")

type Credentials struct {
	Username string
	Password string
}

type Options struct {
	APIURL      string
	DocsURL     string
	ImportEmail string
	WebVersion  string
	HTTPClient  *http.Client
	StepTimeout time.Duration
	// Location batch filenames and row dates are read in.
	Location *time.Location
}

type Client struct {
	apiURL      string
	docsURL     string
	importEmail string
	webVersion  string
	http        *http.Client
	timeout     time.Duration
	location    *time.Location
	logger      *log.Logger
}

func New(logger *log.Logger, opts Options) *Client {
	c := &Client{
		apiURL:      strings.TrimSuffix(opts.APIURL, "/"),
		docsURL:     strings.TrimSuffix(opts.DocsURL, "/"),
		importEmail: opts.ImportEmail,
		webVersion:  opts.WebVersion,
		http:        opts.HTTPClient,
		timeout:     opts.StepTimeout,
		location:    opts.Location,
		logger:      logger,
	}
	if c.apiURL == "" {
		c.apiURL = DefaultAPIURL
	}
	if c.docsURL == "" {
		c.docsURL = DefaultDocsURL
	}
	if c.webVersion == "" {
		c.webVersion = DefaultWebVersion
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.location == nil {
		c.location = time.Local
	}
	return c
}

// Location returns the time zone used to compare batch dates.
func (c *Client) Location() *time.Location {
	return c.location
}

// Login exchanges the credentials for the session cookie.
func (c *Client) Login(ctx context.Context, creds Credentials) (session.Session, error) {
	ctx, cancel := session.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{"username": {creds.Username}, "password": {creds.Password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return session.Session{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return session.Session{}, err
	}
	defer resp.Body.Close()
	if err := session.Check(resp); err != nil {
		return session.Session{}, err
	}

	s := session.FromResponse(resp)
	if s.Cookie == "" {
		return session.Session{}, session.ErrNoCookie
	}
	return s, nil
}

// User returns the account identity.
func (c *Client) User(ctx context.Context, s session.Session) (*wire.User, error) {
	var u wire.User
	if err := c.getMessage(ctx, s, userPath, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, errNoUserID
	}
	return &u, nil
}

// Imports lists the batches uploaded so far, most recent first.
func (c *Client) Imports(ctx context.Context, s session.Session) (*wire.Imports, error) {
	var imports wire.Imports
	if err := c.getMessage(ctx, s, importsPath, &imports); err != nil {
		return nil, err
	}
	return &imports, nil
}

// Upload posts the raw batch file. Wallet creates a new import entry for it.
func (c *Client) Upload(ctx context.Context, s session.Session, userID, filename string, data []byte) error {
	ctx, cancel := session.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL(), bytes.NewReader(data))
	if err != nil {
		return err
	}
	s.Attach(req)
	c.setClientHeaders(req)
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("X-Filename", filename)
	req.Header.Set("X-Userid", userID)

	return c.send(req)
}

// Configure posts the format settings for an uploaded batch, which makes
// Wallet parse it into records.
func (c *Client) Configure(ctx context.Context, s session.Session, batchID string, settings *wire.ImportSettings) error {
	body, err := wire.Marshal(settings)
	if err != nil {
		return err
	}

	ctx, cancel := session.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.apiURL + fmt.Sprintf(configurePath, url.PathEscape(batchID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	s.Attach(req)
	c.setClientHeaders(req)
	req.Header.Set("Content-Type", "application/x-protobuf")

	return c.send(req)
}

func (c *Client) getMessage(ctx context.Context, s session.Session, path string, m wire.Message) error {
	ctx, cancel := session.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return err
	}
	s.Attach(req)
	c.setClientHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := session.Check(resp); err != nil {
		return err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return wire.Unmarshal(data, m)
}

func (c *Client) send(req *http.Request) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := session.Check(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// setClientHeaders identifies the requests as coming from the web client.
func (c *Client) setClientHeaders(req *http.Request) {
	req.Header.Set("Flavor", "0")
	req.Header.Set("Platform", "web")
	req.Header.Set("Web-Version-Code", c.webVersion)
}

func (c *Client) uploadURL() string {
	return c.docsURL + uploadPath + url.PathEscape(c.importEmail)
}
