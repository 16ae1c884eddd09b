package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
)

const (
	sessionKey    = "session"
	refreshMargin = time.Minute
)

// User identifies the signed-in account
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a signed-in user's credentials
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is due for a refresh at now
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.Add(refreshMargin).After(s.ExpiresAt)
}

// SessionStore persists the session between runs
type SessionStore interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *User  `json:"user"`
}

// Auth is the session side of the data service
type Auth struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Now     func() time.Time

	store SessionStore
	log   log.FieldLogger

	mu        sync.Mutex
	session   *Session
	listeners map[int]func(*Session)
	nextID    int
}

// NewAuth creates a session client. store may be nil.
func NewAuth(baseURL, apiKey string, store SessionStore, logger log.FieldLogger) *Auth {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Auth{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		APIKey:    apiKey,
		HTTP:      &http.Client{},
		Now:       time.Now,
		store:     store,
		log:       logger,
		listeners: make(map[int]func(*Session)),
	}
}

// Restore loads a persisted session, if any
func (a *Auth) Restore() error {
	if a.store == nil {
		return nil
	}
	raw, err := a.store.GetSetting(sessionKey)
	if err != nil || raw == "" {
		return err
	}
	var s Session
	if err := sonic.UnmarshalString(raw, &s); err != nil {
		return err
	}
	a.mu.Lock()
	a.session = &s
	a.mu.Unlock()
	return nil
}

// GetSession returns the current session, refreshing it when close to expiry.
// A nil session with a nil error means nobody is signed in.
func (a *Auth) GetSession(ctx context.Context) (*Session, error) {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()
	if s == nil {
		return nil, nil
	}
	if !s.Expired(a.Now()) {
		c := *s
		return &c, nil
	}
	if s.RefreshToken == "" {
		a.setSession(nil)
		return nil, nil
	}
	refreshed, err := a.tokenGrant(ctx, "refresh_token", map[string]string{"refresh_token": s.RefreshToken})
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			a.setSession(nil)
			return nil, nil
		}
		return nil, err
	}
	a.setSession(refreshed)
	c := *refreshed
	return &c, nil
}

// AccessToken implements TokenSource
func (a *Auth) AccessToken(ctx context.Context) (string, error) {
	s, err := a.GetSession(ctx)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", ErrNoSession
	}
	return s.AccessToken, nil
}

// OnSessionChange registers cb for sign in, refresh and sign out.
// The returned func unregisters it.
func (a *Auth) OnSessionChange(cb func(*Session)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = cb
	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

// SignInWithPassword exchanges credentials for a session
func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	s, err := a.tokenGrant(ctx, "password", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	a.setSession(s)
	return s, nil
}

// SignUp registers an account. The session is nil when the service
// requires email confirmation first.
func (a *Auth) SignUp(ctx context.Context, email, password string) (*Session, error) {
	var resp tokenResponse
	err := send(ctx, a.HTTP, request{
		method:  http.MethodPost,
		url:     a.BaseURL + "/auth/v1/signup",
		span:    "auth.signup",
		headers: map[string]string{"apikey": a.APIKey},
		body:    map[string]string{"email": email, "password": password},
		out:     &resp,
	})
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, nil
	}
	s, err := a.sessionFrom(resp)
	if err != nil {
		return nil, err
	}
	a.setSession(s)
	return s, nil
}

// SignOut ends the session locally, and remotely when possible
func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()
	if s == nil {
		return nil
	}
	err := send(ctx, a.HTTP, request{
		method:  http.MethodPost,
		url:     a.BaseURL + "/auth/v1/logout",
		span:    "auth.logout",
		headers: map[string]string{"apikey": a.APIKey, "Authorization": "Bearer " + s.AccessToken},
	})
	a.setSession(nil)
	if err != nil && !errors.Is(err, ErrUnauthorized) {
		a.log.WithError(err).Warn("auth.signout.remote_failed")
		return err
	}
	return nil
}

// SignInWithOAuth returns the URL the user opens to sign in with provider
func (a *Auth) SignInWithOAuth(provider string) (string, error) {
	if provider == "" {
		return "", errors.New("oauth provider is required")
	}
	q := url.Values{"provider": {provider}}
	return a.BaseURL + "/auth/v1/authorize?" + q.Encode(), nil
}

func (a *Auth) tokenGrant(ctx context.Context, grant string, body map[string]string) (*Session, error) {
	var resp tokenResponse
	err := send(ctx, a.HTTP, request{
		method:  http.MethodPost,
		url:     a.BaseURL + "/auth/v1/token?grant_type=" + url.QueryEscape(grant),
		span:    "auth.token",
		headers: map[string]string{"apikey": a.APIKey},
		body:    body,
		out:     &resp,
	})
	if err != nil {
		return nil, err
	}
	return a.sessionFrom(resp)
}

// sessionFrom fills gaps in a token response from the access token's claims
func (a *Auth) sessionFrom(resp tokenResponse) (*Session, error) {
	if resp.AccessToken == "" {
		return nil, errors.New("auth: empty access token")
	}
	s := &Session{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if resp.User != nil {
		s.User = *resp.User
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(resp.AccessToken, claims); err != nil {
		return nil, err
	}
	if s.User.ID == "" {
		s.User.ID, _ = claims["sub"].(string)
	}
	if s.User.Email == "" {
		s.User.Email, _ = claims["email"].(string)
	}
	switch {
	case resp.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(resp.ExpiresAt, 0)
	case resp.ExpiresIn > 0:
		s.ExpiresAt = a.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	default:
		if exp, ok := claims["exp"].(float64); ok {
			s.ExpiresAt = time.Unix(int64(exp), 0)
		}
	}
	if s.User.ID == "" {
		return nil, errors.New("auth: token has no subject")
	}
	return s, nil
}

func (a *Auth) setSession(s *Session) {
	a.mu.Lock()
	a.session = s
	listeners := make([]func(*Session), 0, len(a.listeners))
	for _, cb := range a.listeners {
		listeners = append(listeners, cb)
	}
	a.mu.Unlock()

	if a.store != nil {
		raw := ""
		if s != nil {
			if encoded, err := sonic.MarshalString(s); err == nil {
				raw = encoded
			}
		}
		if err := a.store.SetSetting(sessionKey, raw); err != nil {
			a.log.WithError(err).Warn("auth.session.persist_failed")
		}
	}

	for _, cb := range listeners {
		var c *Session
		if s != nil {
			copied := *s
			c = &copied
		}
		cb(c)
	}
}
