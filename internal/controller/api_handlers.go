package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rryowa/fra_portal/internal/client"
	"github.com/rryowa/fra_portal/internal/models"
	"github.com/rryowa/fra_portal/internal/service"
	"github.com/rryowa/fra_portal/internal/util"
)

var _ ServerInterface = (*Controller)(nil)

// (GET /api/session).
func (c *Controller) GetSession(ctx echo.Context) error {
	status, err := c.auth.Status(ctx.Request().Context())
	if err != nil {
		return InternalError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, status)
}

// (POST /api/dss/score).
func (c *Controller) ScoreClaim(ctx echo.Context, params ScoreClaimParams) error {
	var claim models.Claim
	if err := ctx.Bind(&claim); err != nil {
		return InternalError(ctx, util.NewResponseError(http.StatusBadRequest, "invalid claim: %v", err))
	}

	resp, err := c.dss.Score(ctx.Request().Context(), deref(params.Mode), claim)
	if err != nil {
		return c.apiError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, resp)
}

// (POST /api/dss/score-batch).
func (c *Controller) ScoreBatch(ctx echo.Context, params ScoreBatchParams) error {
	var body models.BatchRequest
	if ctx.Request().ContentLength != 0 {
		if err := ctx.Bind(&body); err != nil {
			return InternalError(ctx, util.NewResponseError(http.StatusBadRequest, "invalid batch: %v", err))
		}
	}

	reqCtx := ctx.Request().Context()
	mode := deref(params.Mode)

	var (
		resp *models.BatchResponse
		err  error
	)
	if len(body.Claims) > 0 {
		resp, err = c.dss.ScoreBatch(reqCtx, mode, body.Claims)
		if err == nil {
			resp.Results = service.Rank(resp.Results)
		}
	} else {
		limit := 0
		if params.Limit != nil {
			limit = *params.Limit
		}
		resp, err = c.dss.SampleBatch(reqCtx, mode, limit)
	}
	if err != nil {
		return c.apiError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, resp)
}

// apiError maps façade errors onto JSON responses. A lost session is left to
// the HTTP error handler.
func (c *Controller) apiError(ctx echo.Context, err error) error {
	switch {
	case client.IsUnauthorized(err):
		return err
	case errors.Is(err, service.ErrInvalidMode):
		return InternalError(ctx, util.WrapResponseError(http.StatusBadRequest, err, "invalid scoring mode"))
	}
	c.zapLogger.Errorw("backend call failed", "uri", ctx.Request().RequestURI, "error", err)
	return InternalError(ctx, err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
