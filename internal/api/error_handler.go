package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/fra_portal/internal/client"
	"github.com/rryowa/fra_portal/internal/controller"
	"github.com/rryowa/fra_portal/internal/models"
	"github.com/rryowa/fra_portal/internal/service"
	"github.com/rryowa/fra_portal/internal/util"
)

const sessionExpiredReason = "session expired, log in again"

// ErrorHandler answers JSON under /api and HTML everywhere else. A missing
// or unrecoverable session sends HTML users to the login page.
func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if isUnauthorizedSessionError(err) {
			if isAPIRequest(c) {
				writeJSON(log, c, http.StatusUnauthorized, sessionExpiredReason)
				return
			}
			if err := c.Redirect(http.StatusSeeOther, controller.LoginRoute); err != nil {
				log.Errorw("failed to redirect to login", "error", err)
			}
			return
		}

		code, msg := http.StatusInternalServerError, "internal server error"
		var he *echo.HTTPError
		var re util.MyResponseError
		switch {
		case errors.As(err, &he):
			code, msg = he.Code, fmt.Sprint(he.Message)
		case errors.As(err, &re):
			code, msg = re.Status, re.Msg
		}
		if code >= http.StatusInternalServerError {
			log.Errorw("HTTP error", "error", err, "uri", c.Request().RequestURI)
		}

		if isAPIRequest(c) {
			writeJSON(log, c, code, msg)
			return
		}
		p := &controller.Page{Title: http.StatusText(code), Error: msg}
		if err := c.Render(code, "error", p); err != nil {
			log.Errorw("failed to render error page", "error", err)
			_ = c.String(code, msg)
		}
	}
}

func writeJSON(log *zap.SugaredLogger, c echo.Context, code int, reason string) {
	if err := c.JSON(code, models.ErrorResponse{Error: reason}); err != nil {
		log.Errorw("failed to write json response", "error", err)
	}
}

func isUnauthorizedSessionError(err error) bool {
	return errors.Is(err, service.ErrNotAuthenticated) || client.IsUnauthorized(err)
}

func isAPIRequest(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}
