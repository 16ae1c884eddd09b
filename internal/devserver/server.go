// Package devserver is a small development data service speaking the
// collection and session API the client consumes.
package devserver

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/tgienger/pulse/internal/db"
)

const (
	refreshTTL = 30 * 24 * time.Hour
	minPassLen = 6
)

// Server serves /rest/v1 and /auth/v1
type Server struct {
	db     *db.DB
	secret []byte
	ttl    time.Duration
	log    *log.Logger
	now    func() time.Time
	parser *jwt.Parser

	mu      sync.Mutex
	revoked map[string]struct{}
}

// New creates a server signing tokens with secret
func New(database *db.DB, secret string, ttl time.Duration, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Server{
		db:      database,
		secret:  []byte(secret),
		ttl:     ttl,
		log:     logger,
		now:     time.Now,
		parser:  jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		revoked: make(map[string]struct{}),
	}
}

// Register wires up all routes on the provided Echo instance
func (s *Server) Register(e *echo.Echo) {
	e.JSONSerializer = sonicSerializer{}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := s.log.WithFields(log.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request")
				return nil
			}
			entry.Debug("request")
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "apikey", "Prefer"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	a := e.Group("/auth/v1")
	a.POST("/signup", s.signup)
	a.POST("/token", s.token)
	a.POST("/logout", s.logout)
	a.GET("/user", s.user)
	a.GET("/authorize", s.authorize)

	r := e.Group("/rest/v1")
	r.GET("/:collection", s.selectRows)
	r.POST("/:collection", s.insertRows)
	r.PATCH("/:collection", s.updateRows)
	r.DELETE("/:collection", s.deleteRows)
}

// Handler returns an http.Handler with all routes registered
func (s *Server) Handler() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	s.Register(e)
	return e
}

// apiError mirrors the error body the client decodes
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

func fail(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, apiError{Code: code, Message: msg})
}

const maxBody = 1 << 20

// decode reads a JSON request body into v
func decode(c echo.Context, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBody))
	return dec.Decode(v)
}

type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i any, indent string) error {
	api := sonic.ConfigStd
	var (
		data []byte
		err  error
	)
	if indent != "" {
		data, err = api.MarshalIndent(i, "", indent)
	} else {
		data, err = api.Marshal(i)
	}
	if err != nil {
		return err
	}
	_, err = c.Response().Write(data)
	return err
}

func (sonicSerializer) Deserialize(c echo.Context, i any) error {
	return decode(c, i)
}
