// Package httpapi exposes the dispatch service over the wire format
// described in spec §6: one echo.Echo instance, JSON by default, XML when
// the caller sends `Accept: application/xml`.
package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/batchelor-project/batchelor/auth"
	"github.com/batchelor-project/batchelor/dispatch"
)

type Server struct {
	echo     *echo.Echo
	service  *dispatch.Service
	verifier *auth.Verifier
}

// New builds the server; a non-nil metricsHandler is mounted at GET /metrics
// unguarded by authenticate (scrapers don't carry a dispatch role grant).
func New(service *dispatch.Service, verifier *auth.Verifier, metricsHandler http.Handler) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	s := &Server{echo: e, service: service, verifier: verifier}
	e.HTTPErrorHandler = s.httpErrorHandler
	s.routes()
	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.echo }

// Start serves plaintext HTTP with h2c (HTTP/2 without TLS) so workers and
// controllers on a trusted network can use HTTP/2 without a certificate.
func (s *Server) Start(addr string) error {
	s.echo.Server.Handler = h2c.NewHandler(s.echo, &http2.Server{})
	return s.echo.Start(addr)
}

// StartTLS serves HTTPS (with HTTP/2 negotiated via ALPN) using the
// configured certificate and key, for the optional TLS-cert CLI setting
// (spec §6).
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	return s.echo.StartTLS(addr, certFile, keyFile)
}

func (s *Server) routes() {
	s.echo.GET("/alive", s.handleAlive)
	s.echo.POST("/fetch-task/:ns", s.handleFetchTask, s.authenticate())
	s.echo.POST("/task/:ns", s.handleRunTask, s.authenticate())
	s.echo.POST("/signal/:ns/:taskId/:signal", s.handleSendSignal, s.authenticate())
	s.echo.GET("/task/:ns/:taskId", s.handleGetTask, s.authenticate())
	s.echo.GET("/tasks/:ns", s.handleGetTasks, s.authenticate())
	s.echo.GET("/event-types/:ns", s.handleGetEventTypes, s.authenticate())
}
