package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rhystmorgan/fxTerm/internal/ledger"
	"rhystmorgan/fxTerm/internal/storage"
)

const DefaultExpiringWindow = 2 * time.Minute

var ErrNoActiveSession = errors.New("no active session")

// Credential is what gets sealed to disk after a successful login.
type Credential struct {
	AccessToken   string `json:"access_token"`
	TokenType     string `json:"token_type"`
	UserID        int64  `json:"user_id"`
	Username      string `json:"username"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

// Session is an unlocked credential. ExpiresAt is zero when the token
// carries no exp claim.
type Session struct {
	Credential
	StartedAt time.Time
	ExpiresAt time.Time
}

type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "active"
	SessionStatusExpiring SessionStatus = "expiring"
	SessionStatusExpired  SessionStatus = "expired"
	SessionStatusInactive SessionStatus = "inactive"
)

// Authenticator is the part of the ledger client that login needs.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*ledger.Token, error)
	CurrentUser(ctx context.Context) (*ledger.User, error)
	SetToken(token string)
}

type SessionManager struct {
	mu      sync.RWMutex
	storage *storage.Storage
	window  time.Duration
	now     func() time.Time
	current *Session
}

func NewSessionManager(store *storage.Storage, expiringWindow time.Duration) *SessionManager {
	if expiringWindow <= 0 {
		expiringWindow = DefaultExpiringWindow
	}

	return &SessionManager{
		storage: store,
		window:  expiringWindow,
		now:     time.Now,
	}
}

// Authenticate exchanges username and password for a credential and
// resolves the user it belongs to.
func Authenticate(ctx context.Context, auth Authenticator, username, password string) (Credential, error) {
	token, err := auth.Login(ctx, username, password)
	if err != nil {
		return Credential{}, err
	}

	auth.SetToken(token.AccessToken)
	user, err := auth.CurrentUser(ctx)
	if err != nil {
		auth.SetToken("")
		return Credential{}, fmt.Errorf("failed to load current user: %w", err)
	}

	return Credential{
		AccessToken:   token.AccessToken,
		TokenType:     token.TokenType,
		UserID:        user.ID,
		Username:      user.Username,
		WalletAddress: user.WalletAddress,
	}, nil
}

// Start activates cred. The user id falls back to the token's sub claim.
func (sm *SessionManager) Start(cred Credential) (*Session, error) {
	if cred.AccessToken == "" {
		return nil, errors.New("credential has no access token")
	}

	expiresAt, subject := inspectToken(cred.AccessToken)
	if cred.UserID <= 0 {
		if id, err := strconv.ParseInt(subject, 10, 64); err == nil && id > 0 {
			cred.UserID = id
		}
	}
	if cred.UserID <= 0 {
		return nil, errors.New("credential has no user id")
	}

	session := &Session{
		Credential: cred,
		StartedAt:  sm.now(),
		ExpiresAt:  expiresAt,
	}

	sm.mu.Lock()
	sm.current = session
	sm.mu.Unlock()

	return session, nil
}

func (sm *SessionManager) Save(passphrase string) error {
	sm.mu.RLock()
	session := sm.current
	sm.mu.RUnlock()

	if session == nil {
		return ErrNoActiveSession
	}

	data, err := json.Marshal(session.Credential)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	return sm.storage.SaveSession(data, passphrase)
}

// Unlock opens the saved session with passphrase and activates it.
func (sm *SessionManager) Unlock(passphrase string) (*Session, error) {
	data, err := sm.storage.LoadSession(passphrase)
	if err != nil {
		return nil, err
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return sm.Start(cred)
}

func (sm *SessionManager) HasSaved() bool {
	return sm.storage.HasSession()
}

// Close forgets the active session but keeps the saved one.
func (sm *SessionManager) Close() {
	sm.mu.Lock()
	if sm.current != nil {
		sm.current.AccessToken = ""
	}
	sm.current = nil
	sm.mu.Unlock()
}

func (sm *SessionManager) Logout() error {
	sm.Close()
	return sm.storage.DeleteSession()
}

func (sm *SessionManager) Current() (Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.current == nil {
		return Session{}, false
	}
	return *sm.current, true
}

// CurrentUserID reports the signed-in user while the session is usable.
func (sm *SessionManager) CurrentUserID() (int64, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.current == nil || sm.expiredLocked() {
		return 0, false
	}
	return sm.current.UserID, true
}

func (sm *SessionManager) Token() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.current == nil || sm.expiredLocked() {
		return ""
	}
	return sm.current.AccessToken
}

func (sm *SessionManager) Status() SessionStatus {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.current == nil {
		return SessionStatusInactive
	}
	if sm.current.ExpiresAt.IsZero() {
		return SessionStatusActive
	}
	if sm.expiredLocked() {
		return SessionStatusExpired
	}
	if sm.current.ExpiresAt.Sub(sm.now()) < sm.window {
		return SessionStatusExpiring
	}
	return SessionStatusActive
}

// TimeRemaining is zero for inactive, expired and non-expiring sessions.
func (sm *SessionManager) TimeRemaining() time.Duration {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.current == nil || sm.current.ExpiresAt.IsZero() {
		return 0
	}

	remaining := sm.current.ExpiresAt.Sub(sm.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (sm *SessionManager) expiredLocked() bool {
	exp := sm.current.ExpiresAt
	return !exp.IsZero() && !sm.now().Before(exp)
}

// inspectToken reads exp and sub without verifying the signature. The
// ledger service verifies; this only drives local expiry display.
func inspectToken(raw string) (time.Time, string) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, ""
	}

	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return exp, claims.Subject
}
