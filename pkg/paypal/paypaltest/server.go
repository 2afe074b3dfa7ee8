// Package paypaltest provides an in-process fake of the PayPal Orders API.
package paypaltest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

const (
	ClientID     = "test-client"
	ClientSecret = "test-secret"
	AccessToken  = "A21-test-token"
)

// Server records calls and answers token, create, capture and order lookup requests.
// A second capture of a completed order is refused the way PayPal does it.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	nextID        int
	orders        map[string]map[string]any
	captured      map[string]bool
	TokenStatus   int
	CreateStatus  int
	CaptureStatus string
	OmitApprove   bool
	UsePayerLink  bool

	TokenCalls   int
	CreateCalls  int
	CaptureCalls int
	LookupCalls  int
}

// NewServer starts the fake. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		orders:        map[string]map[string]any{},
		captured:      map[string]bool{},
		TokenStatus:   http.StatusOK,
		CreateStatus:  http.StatusCreated,
		CaptureStatus: "COMPLETED",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", s.handleToken)
	mux.HandleFunc("/v2/checkout/orders", s.handleCreate)
	mux.HandleFunc("/v2/checkout/orders/", s.handleOrder)
	s.Server = httptest.NewServer(mux)
	return s
}

// Order returns the last create payload stored for id.
func (s *Server) Order(id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

// Calls returns the total number of outbound requests observed.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.TokenCalls + s.CreateCalls + s.CaptureCalls + s.LookupCalls
}

// MarkCaptured records id as captured, as if an earlier capture had succeeded.
func (s *Server) MarkCaptured(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captured[id] = true
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.TokenCalls++
	status := s.TokenStatus
	s.mu.Unlock()

	user, pass, ok := r.BasicAuth()
	if !ok || user != ClientID || pass != ClientSecret {
		status = http.StatusUnauthorized
	}
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		writeJSON(w, status, map[string]any{"error": "invalid_client"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": AccessToken,
		"token_type":   "Bearer",
		"expires_in":   32400,
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"name": "AUTHENTICATION_FAILURE"})
		return
	}
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"name": "INVALID_REQUEST"})
		return
	}

	s.mu.Lock()
	s.CreateCalls++
	s.nextID++
	id := fmt.Sprintf("PAYPAL-%d", s.nextID)
	s.orders[id] = body
	status := s.CreateStatus
	omit := s.OmitApprove
	payer := s.UsePayerLink
	s.mu.Unlock()

	if status >= 300 {
		writeJSON(w, status, map[string]any{"name": "UNPROCESSABLE_ENTITY"})
		return
	}

	links := []map[string]any{
		{"href": s.URL + "/v2/checkout/orders/" + id, "rel": "self", "method": "GET"},
	}
	if !omit {
		rel := "approve"
		if payer {
			rel = "payer-action"
		}
		links = append(links, map[string]any{
			"href":   "https://www.sandbox.paypal.com/checkoutnow?token=" + id,
			"rel":    rel,
			"method": "GET",
		})
	}
	writeJSON(w, status, map[string]any{"id": id, "status": "CREATED", "links": links})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"name": "AUTHENTICATION_FAILURE"})
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v2/checkout/orders/")
	id, capture := strings.CutSuffix(rest, "/capture")

	s.mu.Lock()
	defer s.mu.Unlock()

	if !capture {
		s.LookupCalls++
		if s.captured[id] {
			writeJSON(w, http.StatusOK, orderBody(id, "COMPLETED", "COMPLETED"))
			return
		}
		writeJSON(w, http.StatusOK, orderBody(id, "APPROVED", ""))
		return
	}

	s.CaptureCalls++
	if s.captured[id] {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"name":    "UNPROCESSABLE_ENTITY",
			"details": []map[string]any{{"issue": "ORDER_ALREADY_CAPTURED"}},
		})
		return
	}
	if s.CaptureStatus == "COMPLETED" {
		s.captured[id] = true
	}
	writeJSON(w, http.StatusCreated, orderBody(id, s.CaptureStatus, s.CaptureStatus))
}

func orderBody(id, status, captureStatus string) map[string]any {
	unit := map[string]any{}
	if captureStatus != "" {
		unit["payments"] = map[string]any{
			"captures": []map[string]any{{"id": "CAP-" + id, "status": captureStatus}},
		}
	}
	return map[string]any{
		"id":             id,
		"status":         status,
		"purchase_units": []map[string]any{unit},
	}
}

func authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+AccessToken
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
