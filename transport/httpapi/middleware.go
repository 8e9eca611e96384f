package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	batchelorauth "github.com/batchelor-project/batchelor/auth"
	"github.com/batchelor-project/batchelor/dispatch"
)

const grantsContextKey = "grants"

// authenticate parses the Authorization header into role grants and stores
// them on the echo context; the dispatch service itself enforces which
// roles each operation requires (spec §7: 400 on a malformed header, 401
// with WWW-Authenticate on invalid credentials).
func (s *Server) authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			grants, err := s.verifier.Authenticate(c.Request().Header.Get("Authorization"))
			switch {
			case err == nil:
				c.Set(grantsContextKey, grants)
				return next(c)
			case errors.Is(err, batchelorauth.ErrMalformedHeader):
				return echo.NewHTTPError(http.StatusBadRequest, "malformed Authorization header")
			default:
				c.Response().Header().Set("WWW-Authenticate", `Basic realm="`+s.verifier.Realm()+`"`)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
			}
		}
	}
}

func grantsFrom(c echo.Context) []dispatch.RoleGrant {
	grants, _ := c.Get(grantsContextKey).([]dispatch.RoleGrant)
	return grants
}

// respond honors Accept: application/xml, defaulting to JSON otherwise.
func respond(c echo.Context, status int, body any) error {
	if body == nil {
		return c.NoContent(status)
	}
	if accept := c.Request().Header.Get("Accept"); accept == "application/xml" {
		return c.XML(status, body)
	}
	return c.JSON(status, body)
}

func statusForError(err error) int {
	if errors.Is(err, dispatch.ErrForbidden) {
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

const unauthorizedHTML = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>401 Unauthorized</title>
  </head>
  <body>
401 Unauthorized
  </body>
</html>
`

// httpErrorHandler replaces echo's default JSON error body with the
// login-style HTML page spec §6 requires for 401 responses; the
// WWW-Authenticate header set by authenticate() is left untouched. Every
// other status falls back to echo's default handling.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		s.echo.DefaultHTTPErrorHandler(err, c)
		return
	}
	if c.Response().Committed {
		return
	}
	if werr := c.HTML(http.StatusUnauthorized, unauthorizedHTML); werr != nil {
		s.echo.Logger.Error(werr)
	}
}
