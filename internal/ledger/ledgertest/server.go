// Package ledgertest runs an in-process ledger service for tests.
package ledgertest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"rhystmorgan/fxTerm/internal/models"
)

const (
	RouteWallets        = "wallets"
	RouteRate           = "rate"
	RouteLookup         = "lookup"
	RouteTransfer       = "transfer"
	RouteCryptoTransfer = "crypto_transfer"
	RouteLogin          = "login"
	RouteUser           = "user"
)

// Failure is a canned error response for a route.
type Failure struct {
	Status int
	Detail string
}

type Server struct {
	*httptest.Server

	mu         sync.Mutex
	token      string
	user       models.RecipientProfile
	password   string
	wallets    map[int64][]models.Wallet
	rates      map[string]decimal.Decimal
	directory  map[string]models.RecipientProfile
	failures   map[string]Failure
	gates      map[string]chan struct{}
	counts     map[string]int
	transfers  []models.TransferRequest
	cryptos    []models.CryptoTransferRequest
	nextTxID   int
	rawWallets map[int64]string
}

func NewServer() *Server {
	s := &Server{
		wallets:    make(map[int64][]models.Wallet),
		rates:      make(map[string]decimal.Decimal),
		directory:  make(map[string]models.RecipientProfile),
		failures:   make(map[string]Failure),
		gates:      make(map[string]chan struct{}),
		counts:     make(map[string]int),
		rawWallets: make(map[int64]string),
		nextTxID:   1000,
	}

	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the platform!"})
	})
	r.Post("/user/login/", s.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/user/user/", s.handleUser)
		r.Get("/wallet/lookup/{handle}/", s.handleLookup)
		r.Get("/wallet/{userID}", s.handleWallets)
		r.Get("/currency/rate/{from}/{to}/", s.handleRate)
		r.Post("/transaction/", s.handleTransfer)
		r.Post("/transaction/crypto/", s.handleCryptoTransfer)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// RequireToken makes every protected route demand this bearer token.
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// SetUser registers the account that can log in and be fetched from /user/user/.
func (s *Server) SetUser(id int64, username, password, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = models.RecipientProfile{ID: id, Username: username}
	s.password = password
	s.token = token
}

func (s *Server) SetWallets(userID int64, wallets ...models.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[userID] = wallets
}

// SetRawWallets serves body verbatim for the user's wallet route.
func (s *Server) SetRawWallets(userID int64, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawWallets[userID] = body
}

func (s *Server) SetRate(from, to string, rate string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[from+"/"+to] = decimal.RequireFromString(rate)
}

func (s *Server) AddRecipient(handle string, profile models.RecipientProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.directory[handle] = profile
}

func (s *Server) Fail(route string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = Failure{Status: status, Detail: detail}
}

func (s *Server) ClearFailure(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// Hold blocks requests on route until the returned release func is called.
func (s *Server) Hold(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[route] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, route)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Server) Count(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[route]
}

func (s *Server) Transfers() []models.TransferRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TransferRequest(nil), s.transfers...)
}

func (s *Server) CryptoTransfers() []models.CryptoTransferRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CryptoTransferRequest(nil), s.cryptos...)
}

// enter counts the request, waits on any gate and reports a programmed failure.
func (s *Server) enter(w http.ResponseWriter, route string) bool {
	s.mu.Lock()
	s.counts[route]++
	gate := s.gates[route]
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	failure, failing := s.failures[route]
	s.mu.Unlock()

	if failing {
		if failure.Detail == "" {
			w.WriteHeader(failure.Status)
			return false
		}
		writeJSON(w, failure.Status, map[string]string{"detail": failure.Detail})
		return false
	}
	return true
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		token := s.token
		s.mu.Unlock()

		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, RouteLogin) {
		return
	}

	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if body.Username != s.user.Username || body.Password != s.password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": s.token, "token_type": "bearer"})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, RouteUser) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":             s.user.ID,
		"username":       s.user.Username,
		"wallet_address": "0x" + strings.Repeat("ab", 20),
	})
}

func (s *Server) handleWallets(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, RouteWallets) {
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid user id"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if raw, ok := s.rawWallets[userID]; ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(raw))
		return
	}
	wallets, ok := s.wallets[userID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Wallet not found"})
		return
	}
	writeJSON(w, http.StatusOK, wallets)
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, RouteRate) {
		return
	}

	pair := chi.URLParam(r, "from") + "/" + chi.URLParam(r, "to")

	s.mu.Lock()
	rate, ok := s.rates[pair]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Rate not available for " + pair})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"rate": %s}`, rate.String())
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, RouteLookup) {
		return
	}

	handle := chi.URLParam(r, "handle")

	s.mu.Lock()
	profile, ok := s.directory[handle]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Recipient not found"})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, RouteTransfer) {
		return
	}

	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}

	s.mu.Lock()
	s.transfers = append(s.transfers, req)
	s.nextTxID++
	id := s.nextTxID
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"transaction_id": id, "status": "completed"})
}

func (s *Server) handleCryptoTransfer(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, RouteCryptoTransfer) {
		return
	}

	var req models.CryptoTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}

	s.mu.Lock()
	s.cryptos = append(s.cryptos, req)
	s.nextTxID++
	id := fmt.Sprintf("ctx-%d", s.nextTxID)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"transaction_id": id, "status": "pending"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
