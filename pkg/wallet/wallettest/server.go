// Package wallettest provides an in-process fake of the Wallet import API.
// It serves both the API and the upload host.
package wallettest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/yurifrl/edenwallet/pkg/wire"
)

const (
	RouteLogin     = "/auth/authenticate/userpass"
	RouteUser      = "/ribeez/user/abc"
	RouteImports   = "/ribeez/import/v1/all"
	RouteUpload    = "/upload/import-web/" + ImportEmail
	RouteConfigure = "/ribeez/import/v1/item/{id}/records"

	configureBase = "/ribeez/import/v1/item/"
)

const (
	Username    = "me@example.com"
	Password    = "secret"
	UserID      = "user-42"
	ImportEmail = "abc123@imports.budgetbakers.com"
	Cookie      = "session=wallet"
)

// Failure makes a route answer with Status. Call selects the nth request
// (1-based) to fail; zero fails every request.
type Failure struct {
	Status int
	Call   int
}

// Upload is a batch file received by the fake.
type Upload struct {
	Filename string
	UserID   string
	Body     string
}

type Server struct {
	*httptest.Server

	// Files is the import list, most recent first. Uploads are prepended.
	Files      []wire.ImportFile
	Uploads    []Upload
	Configured map[string]*wire.ImportSettings

	Fail    map[string]Failure
	Garbage map[string]bool
	Delay   map[string]time.Duration

	mu    sync.Mutex
	calls map[string]int
}

func NewServer() *Server {
	s := &Server{
		Configured: map[string]*wire.ImportSettings{},
		Fail:       map[string]Failure{},
		Garbage:    map[string]bool{},
		Delay:      map[string]time.Duration{},
		calls:      map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Calls returns how many requests hit route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	route := r.URL.Path
	if strings.HasPrefix(route, configureBase) && strings.HasSuffix(route, "/records") {
		route = RouteConfigure
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[route]++

	if d := s.Delay[route]; d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}
	if f, ok := s.Fail[route]; ok && (f.Call == 0 || f.Call == s.calls[route]) {
		http.Error(w, "forced failure", f.Status)
		return
	}

	if route == RouteLogin {
		s.login(w, r)
		return
	}
	if r.Header.Get("Cookie") != Cookie || r.Header.Get("Platform") != "web" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if s.Garbage[route] {
		_, _ = w.Write([]byte{0x0a, 0x7f, 0x01})
		return
	}

	switch route {
	case RouteUser:
		s.writeMessage(w, &wire.User{ID: UserID, Email: Username})
	case RouteImports:
		s.writeMessage(w, &wire.Imports{Files: s.Files})
	case RouteUpload:
		s.upload(w, r)
	case RouteConfigure:
		s.configure(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("username") != Username || r.PostForm.Get("password") != Password {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	name, value, _ := strings.Cut(Cookie, "=")
	http.SetCookie(w, &http.Cookie{Name: name, Value: value, Path: "/"})
	w.WriteHeader(http.StatusOK)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "text/csv" || r.Header.Get("X-Userid") != UserID || r.Header.Get("X-Filename") == "" {
		http.Error(w, "bad upload headers", http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	u := Upload{Filename: r.Header.Get("X-Filename"), UserID: r.Header.Get("X-Userid"), Body: string(body)}
	s.Uploads = append(s.Uploads, u)

	file := wire.ImportFile{ID: fmt.Sprintf("batch-%d", len(s.Uploads)), FileName: u.Filename}
	s.Files = append([]wire.ImportFile{file}, s.Files...)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) configure(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/x-protobuf" {
		http.Error(w, "bad content type", http.StatusUnsupportedMediaType)
		return
	}
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, configureBase), "/records")
	known := false
	for _, f := range s.Files {
		known = known || f.ID == id
	}
	if !known {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	var settings wire.ImportSettings
	if err := wire.Unmarshal(body, &settings); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.Configured[id] = &settings
	w.WriteHeader(http.StatusOK)
}

func (s *Server) writeMessage(w http.ResponseWriter, m wire.Message) {
	data, err := wire.Marshal(m)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	_, _ = w.Write(data)
}
