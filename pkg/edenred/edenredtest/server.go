// Package edenredtest provides an in-process fake of the Edenred portal API.
package edenredtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

const (
	RouteLogin     = "/edenred-customer/api/authenticate/default"
	RouteCards     = "/edenred-customer/api/protected/card/list"
	routeCardsBase = "/edenred-customer/api/protected/card/"
	// RouteMovements is the movement route for any card id.
	RouteMovements = routeCardsBase + "{id}/accountmovement"
)

const (
	Username = "user@example.com"
	Password = "secret"
	Token    = "token-123"
	Cookie   = "SESSION=edenred"
)

// Server answers the three portal routes the pipeline uses. Set Fail to make
// a route answer with the given status.
type Server struct {
	*httptest.Server

	Cards     []any
	Movements []map[string]any
	Fail      map[string]int

	mu    sync.Mutex
	calls map[string]int
}

func NewServer() *Server {
	s := &Server{
		Cards: []any{map[string]any{"id": 4711}},
		Fail:  map[string]int{},
		calls: map[string]int{},
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
	if strings.HasPrefix(route, routeCardsBase) && strings.HasSuffix(route, "/accountmovement") {
		route = RouteMovements
	}

	s.mu.Lock()
	s.calls[route]++
	s.mu.Unlock()

	if r.URL.Query().Get("channel") != "WEB" {
		http.Error(w, "missing client query", http.StatusBadRequest)
		return
	}
	if code, ok := s.Fail[route]; ok {
		http.Error(w, "forced failure", code)
		return
	}

	switch route {
	case RouteLogin:
		s.login(w, r)
	case RouteCards:
		if !authorized(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{"data": s.Cards})
	case RouteMovements:
		if !authorized(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		movements := s.Movements
		if movements == nil {
			movements = []map[string]any{}
		}
		writeJSON(w, map[string]any{"data": map[string]any{"movementList": movements}})
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		UserID   string `json:"userId"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	if body.UserID != Username || body.Password != Password {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	name, value, _ := strings.Cut(Cookie, "=")
	http.SetCookie(w, &http.Cookie{Name: name, Value: value, Path: "/"})
	writeJSON(w, map[string]any{"data": map[string]any{"token": Token}})
}

func authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == Token && r.Header.Get("Cookie") == Cookie
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
