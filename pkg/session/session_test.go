package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromResponse(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Add("Set-Cookie", "sid=abc; Path=/; HttpOnly")
	resp.Header.Add("Set-Cookie", "lang=en; Path=/")

	s := FromResponse(resp)
	assert.Equal(t, "sid=abc; lang=en", s.Cookie)
	assert.Empty(t, s.Token)
}

func TestAttach(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/card/list", nil)
	Session{Cookie: "sid=abc", Token: "tok"}.Attach(req)

	assert.Equal(t, "sid=abc", req.Header.Get("Cookie"))
	assert.Equal(t, "tok", req.Header.Get("Authorization"))

	empty := httptest.NewRequest(http.MethodGet, "/card/list", nil)
	Session{}.Attach(empty)
	assert.Empty(t, empty.Header.Get("Cookie"))
	assert.Empty(t, empty.Header.Get("Authorization"))
}

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ok")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NoError(t, Check(resp))

	resp, err = http.Get(srv.URL + "/login")
	require.NoError(t, err)
	defer resp.Body.Close()

	err = Check(resp)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, "bad credentials", se.Body)
	assert.Equal(t, http.MethodGet, se.Method)
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), 0)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)

	ctx, cancel = WithTimeout(context.Background(), time.Minute)
	defer cancel()
	_, ok = ctx.Deadline()
	assert.True(t, ok)
}
