package devserver

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/tgienger/pulse/internal/db"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
	errRevoked              = errors.New("session revoked")
	errRefreshToken         = errors.New("refresh token used as access token")
)

type credentials struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
}

type userBody struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenBody struct {
	AccessToken  string   `json:"access_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	RefreshToken string   `json:"refresh_token"`
	User         userBody `json:"user"`
}

// claims is what the service reads back from a token it issued
type claims struct {
	UserID    string
	Email     string
	SessionID string
}

func (s *Server) signup(c echo.Context) error {
	var in credentials
	if err := decode(c, &in); err != nil {
		return fail(c, http.StatusBadRequest, "bad_json", "invalid body")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return fail(c, http.StatusBadRequest, "validation_failed", "Unable to validate email address: invalid format")
	}
	if len(in.Password) < minPassLen {
		return fail(c, http.StatusUnprocessableEntity, "weak_password", "Password should be at least 6 characters.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u, err := s.db.CreateUser(c.Request().Context(), uuid.NewString(), email, string(hash))
	if err != nil {
		if db.IsConstraint(err) {
			return fail(c, http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
		}
		return err
	}
	s.log.WithField("user_id", u.ID).Info("auth.signup")
	return s.issue(c, u.ID, u.Email, uuid.NewString())
}

func (s *Server) token(c echo.Context) error {
	var in credentials
	if err := decode(c, &in); err != nil {
		return fail(c, http.StatusBadRequest, "bad_json", "invalid body")
	}
	ctx := c.Request().Context()

	switch c.QueryParam("grant_type") {
	case "password":
		u, err := s.db.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
		if errors.Is(err, db.ErrUserNotFound) {
			return fail(c, http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
		}
		if err != nil {
			return err
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
			return fail(c, http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
		}
		return s.issue(c, u.ID, u.Email, uuid.NewString())

	case "refresh_token":
		cl, err := s.verify(in.RefreshToken, "refresh")
		if err != nil {
			return fail(c, http.StatusUnauthorized, "refresh_token_not_found", "Invalid Refresh Token: "+err.Error())
		}
		u, err := s.db.GetUser(ctx, cl.UserID)
		if errors.Is(err, db.ErrUserNotFound) {
			return fail(c, http.StatusUnauthorized, "user_not_found", "User not found")
		}
		if err != nil {
			return err
		}
		return s.issue(c, u.ID, u.Email, cl.SessionID)
	}
	return fail(c, http.StatusBadRequest, "unsupported_grant_type", "unsupported grant_type")
}

func (s *Server) logout(c echo.Context) error {
	cl, err := s.authenticate(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "bad_jwt", err.Error())
	}
	s.mu.Lock()
	s.revoked[cl.SessionID] = struct{}{}
	s.mu.Unlock()
	s.log.WithField("user_id", cl.UserID).Info("auth.logout")
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) user(c echo.Context) error {
	cl, err := s.authenticate(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "bad_jwt", err.Error())
	}
	return c.JSON(http.StatusOK, userBody{ID: cl.UserID, Email: cl.Email})
}

// authorize would start an OAuth flow; the development service has no providers
func (s *Server) authorize(c echo.Context) error {
	return fail(c, http.StatusBadRequest, "provider_disabled", "Unsupported provider: provider is not enabled")
}

func (s *Server) issue(c echo.Context, userID, email, sessionID string) error {
	now := s.now()
	exp := now.Add(s.ttl)
	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        userID,
		"email":      email,
		"role":       "authenticated",
		"aud":        "authenticated",
		"session_id": sessionID,
		"iat":        now.Unix(),
		"exp":        exp.Unix(),
	})
	accessToken, err := access.SignedString(s.secret)
	if err != nil {
		return err
	}
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        userID,
		"session_id": sessionID,
		"typ":        "refresh",
		"jti":        uuid.NewString(),
		"iat":        now.Unix(),
		"exp":        now.Add(refreshTTL).Unix(),
	})
	refreshToken, err := refresh.SignedString(s.secret)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenBody{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.ttl / time.Second),
		ExpiresAt:    exp.Unix(),
		RefreshToken: refreshToken,
		User:         userBody{ID: userID, Email: email},
	})
}

// authenticate returns the claims of the request's bearer access token
func (s *Server) authenticate(c echo.Context) (claims, error) {
	h := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	if h == "" {
		return claims{}, errMissingAuthorization
	}
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.Count(token, ".") != 2 {
		return claims{}, errBadAuthorization
	}
	return s.verify(token, "")
}

// verify checks signature, expiry, token type and revocation
func (s *Server) verify(raw, typ string) (claims, error) {
	parsed, err := s.parser.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return claims{}, err
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return claims{}, errors.New("invalid claims")
	}
	if !mc.VerifyExpiresAt(s.now().Unix(), true) {
		return claims{}, errors.New("token expired")
	}
	gotTyp, _ := mc["typ"].(string)
	if gotTyp != typ {
		if typ == "" {
			return claims{}, errRefreshToken
		}
		return claims{}, errors.New("wrong token type")
	}

	var cl claims
	cl.UserID, _ = mc["sub"].(string)
	cl.Email, _ = mc["email"].(string)
	cl.SessionID, _ = mc["session_id"].(string)
	if cl.UserID == "" {
		return claims{}, errors.New("missing sub")
	}

	s.mu.Lock()
	_, revoked := s.revoked[cl.SessionID]
	s.mu.Unlock()
	if revoked {
		return claims{}, errRevoked
	}
	return cl, nil
}
