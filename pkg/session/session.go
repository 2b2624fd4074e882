// Package session carries the authentication state of one pipeline run.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNoCookie = errors.New("session: no cookie in authentication response")
	ErrNoToken  = errors.New("session: no token in authentication response")
)

// Session is built once per run from an authentication response and attached
// verbatim to every following request of that run. It is never persisted.
type Session struct {
	Cookie string
	Token  string
}

// FromResponse collects the cookies set by resp into a Cookie header value.
func FromResponse(resp *http.Response) Session {
	cookies := resp.Cookies()
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return Session{Cookie: strings.Join(pairs, "; ")}
}

// Attach sets the session headers on req. The token is sent as is, the
// Edenred API does not expect a "Bearer" scheme.
func (s Session) Attach(req *http.Request) {
	if s.Cookie != "" {
		req.Header.Set("Cookie", s.Cookie)
	}
	if s.Token != "" {
		req.Header.Set("Authorization", s.Token)
	}
}

// StatusError is returned by Check for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

const maxErrorBody = 512

// Check returns a *StatusError when resp is not a 2xx response. The body is
// drained up to a small limit to give the error some context.
func Check(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	se := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	if resp.Request != nil {
		se.Method = resp.Request.Method
		se.URL = resp.Request.URL.Redacted()
	}
	return se
}

// WithTimeout bounds a single step. A zero timeout leaves ctx untouched.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
