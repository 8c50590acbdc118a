package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/fra_portal/internal/client"
	"github.com/rryowa/fra_portal/internal/models"
	"github.com/rryowa/fra_portal/internal/service"
	"github.com/rryowa/fra_portal/internal/util"
)

type Controller struct {
	zapLogger *zap.SugaredLogger
	auth      *service.AuthService
	portal    *service.PortalService
	dss       *service.DSSService
	maps      *service.MapService
}

func NewController(
	logger *zap.SugaredLogger,
	auth *service.AuthService,
	portal *service.PortalService,
	dss *service.DSSService,
	maps *service.MapService,
) *Controller {
	return &Controller{
		zapLogger: logger,
		auth:      auth,
		portal:    portal,
		dss:       dss,
		maps:      maps,
	}
}

func (c *Controller) Auth() *service.AuthService {
	return c.auth
}

// InternalError writes err as a JSON error response. Backend errors keep
// their status; everything else not already mapped is a 502.
func InternalError(ctx echo.Context, err error) error {
	var customErr util.MyResponseError
	if errors.As(err, &customErr) {
		return ctx.JSON(customErr.Status, models.ErrorResponse{Error: customErr.Msg})
	}

	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		reason := httpErr.Reason
		if reason == "" {
			reason = http.StatusText(httpErr.StatusCode)
		}
		return ctx.JSON(httpErr.StatusCode, models.ErrorResponse{Error: reason})
	}

	return ctx.JSON(http.StatusBadGateway, models.ErrorResponse{Error: err.Error()})
}
