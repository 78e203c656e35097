// Package truenastest provides an in-memory TrueNAS API server for tests.
package truenastest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// Server fakes the collection endpoints of the TrueNAS v2.0 API. Records are
// kept per collection in insertion order; PUT replaces a record wholesale.
type Server struct {
	*httptest.Server

	User     string
	Password string

	mu          sync.Mutex
	collections map[string][]map[string]any
	nextID      int
	calls       []string
	failures    []failure
}

type failure struct {
	status int
	body   string
}

// NewServer starts a server that accepts the given Basic credentials.
func NewServer(user, password string) *Server {
	s := &Server{
		User:        user,
		Password:    password,
		collections: make(map[string][]map[string]any),
		nextID:      1,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Seed appends records to a collection. Records without an id get one.
func (s *Server) Seed(collection string, records ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		cp := copyRecord(rec)
		if _, ok := cp["id"]; !ok {
			cp["id"] = s.nextID
			s.nextID++
		}
		s.collections[collection] = append(s.collections[collection], cp)
	}
}

// Records returns a copy of a collection.
func (s *Server) Records(collection string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.collections[collection]))
	for _, rec := range s.collections[collection] {
		out = append(out, copyRecord(rec))
	}
	return out
}

// Calls returns every request seen as "METHOD /path".
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Count returns the number of requests made with method.
func (s *Server) Count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if strings.HasPrefix(c, method+" ") {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls.
func (s *Server) Reset() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

// FailNext makes the next request answer with status and body.
func (s *Server) FailNext(status int, body string) {
	s.mu.Lock()
	s.failures = append(s.failures, failure{status: status, body: body})
	s.mu.Unlock()
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, r.Method+" "+r.URL.Path)

	if len(s.failures) > 0 {
		f := s.failures[0]
		s.failures = s.failures[1:]
		w.WriteHeader(f.status)
		fmt.Fprint(w, f.body)
		return
	}

	user, password, ok := r.BasicAuth()
	if !ok || user != s.User || password != s.Password {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "Unauthorized")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v2.0/")
	if path == r.URL.Path || !strings.HasSuffix(path, "/") {
		http.NotFound(w, r)
		return
	}
	parts := strings.Split(strings.TrimSuffix(path, "/"), "/")

	switch {
	case len(parts) == 1:
		s.handleCollection(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "id":
		s.handleItem(w, r, parts[0], parts[2])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request, collection string) {
	switch r.Method {
	case http.MethodGet:
		items := s.collections[collection]
		if items == nil {
			items = []map[string]any{}
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		rec, err := readRecord(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		rec["id"] = s.nextID
		s.nextID++
		s.collections[collection] = append(s.collections[collection], rec)
		writeJSON(w, http.StatusOK, rec)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request, collection, id string) {
	idx := -1
	for i, rec := range s.collections[collection] {
		if ID(rec) == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		http.Error(w, fmt.Sprintf("%s %s does not exist", collection, id), http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPut:
		rec, err := readRecord(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		rec["id"] = s.collections[collection][idx]["id"]
		s.collections[collection][idx] = rec
		writeJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		items := s.collections[collection]
		s.collections[collection] = append(items[:idx:idx], items[idx+1:]...)
		writeJSON(w, http.StatusOK, true)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func readRecord(r *http.Request) (map[string]any, error) {
	var rec map[string]any
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		return nil, err
	}
	if _, ok := rec["id"]; ok {
		return nil, fmt.Errorf("id is read-only")
	}
	return rec, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func copyRecord(rec map[string]any) map[string]any {
	cp := make(map[string]any, len(rec))
	for k, v := range rec {
		cp[k] = v
	}
	return cp
}

// ID formats a record id the way the client renders it.
func ID(rec map[string]any) string {
	switch id := rec["id"].(type) {
	case int:
		return strconv.Itoa(id)
	default:
		return fmt.Sprint(id)
	}
}
