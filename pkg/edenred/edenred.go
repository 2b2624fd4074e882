// Package edenred reads card movements from the Edenred customer portal API.
package edenred

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/edenwallet/pkg/failure"
	"github.com/yurifrl/edenwallet/pkg/session"
)

const (
	apiPath = "/edenred-customer/api"
	// every portal call carries the same client identification
	clientQuery = "appVersion=1.0&appType=PORTAL&channel=WEB"
)

const (
	ReasonCredentials = "host and credentials required"
	ReasonLogin       = "login failed"
	ReasonCardID      = "failed to retrieve ID"
	ReasonMovements   = "failed to retrieve transactions"
)

var errNoCard = errors.New("no card on account")

type Credentials struct {
	Username string
	Password string
}

// Movement is a card movement as the portal returns it.
type Movement struct {
	TransactionDate string          `json:"transactionDate"`
	TransactionName string          `json:"transactionName"`
	Amount          decimal.Decimal `json:"amount"`
}

type response[T any] struct {
	Data T `json:"data"`
}

type loginRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

type loginData struct {
	Token string `json:"token"`
}

type card struct {
	ID cardID `json:"id"`
}

// cardID accepts both numeric and string ids.
type cardID string

func (id *cardID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = cardID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("card id: %w", err)
	}
	*id = cardID(n.String())
	return nil
}

type movementData struct {
	MovementList []Movement `json:"movementList"`
}

type Options struct {
	HTTPClient  *http.Client
	StepTimeout time.Duration
}

type Client struct {
	host    string
	http    *http.Client
	timeout time.Duration
	logger  *log.Logger
}

func New(logger *log.Logger, host string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		host:    strings.TrimSuffix(host, "/"),
		http:    hc,
		timeout: opts.StepTimeout,
		logger:  logger,
	}
}

// Movements logs in, picks the first card of the account and returns its
// movement list untouched. Other cards are ignored.
func (c *Client) Movements(ctx context.Context, creds Credentials) ([]Movement, error) {
	if c.host == "" || creds.Username == "" || creds.Password == "" {
		return nil, failure.New(failure.Validation, ReasonCredentials, nil)
	}

	s, err := c.Login(ctx, creds)
	if err != nil {
		return nil, failure.New(failure.Authentication, ReasonLogin, err)
	}
	c.logger.Debug("logged in to edenred", "user", creds.Username)

	id, err := c.CardID(ctx, s)
	if err != nil {
		return nil, failure.New(failure.Lookup, ReasonCardID, err)
	}
	c.logger.Debug("resolved card", "card_id", id)

	movements, err := c.AccountMovements(ctx, s, id)
	if err != nil {
		return nil, failure.New(failure.List, ReasonMovements, err)
	}
	c.logger.Info("fetched movements", "card_id", id, "count", len(movements))
	return movements, nil
}

// Login returns a session holding the portal cookie and token.
func (c *Client) Login(ctx context.Context, creds Credentials) (session.Session, error) {
	ctx, cancel := session.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(loginRequest{UserID: creds.Username, Password: creds.Password})
	if err != nil {
		return session.Session{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/authenticate/default"), bytes.NewReader(body))
	if err != nil {
		return session.Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return session.Session{}, err
	}
	defer resp.Body.Close()
	if err := session.Check(resp); err != nil {
		return session.Session{}, err
	}

	var out response[loginData]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return session.Session{}, fmt.Errorf("decode login response: %w", err)
	}
	if out.Data.Token == "" {
		return session.Session{}, session.ErrNoToken
	}

	s := session.FromResponse(resp)
	s.Token = out.Data.Token
	return s, nil
}

// CardID returns the id of the first card on the account.
func (c *Client) CardID(ctx context.Context, s session.Session) (string, error) {
	var out response[[]card]
	if err := c.get(ctx, s, "/protected/card/list", &out); err != nil {
		return "", err
	}
	if len(out.Data) == 0 || out.Data[0].ID == "" {
		return "", errNoCard
	}
	return string(out.Data[0].ID), nil
}

func (c *Client) AccountMovements(ctx context.Context, s session.Session, cardID string) ([]Movement, error) {
	var out response[movementData]
	path := "/protected/card/" + url.PathEscape(cardID) + "/accountmovement"
	if err := c.get(ctx, s, path, &out); err != nil {
		return nil, err
	}
	return out.Data.MovementList, nil
}

func (c *Client) get(ctx context.Context, s session.Session, path string, out any) error {
	ctx, cancel := session.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return err
	}
	s.Attach(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := session.Check(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) url(path string) string {
	return c.host + apiPath + path + "?" + clientQuery
}
