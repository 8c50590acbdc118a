package controller

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

//go:embed openapi.yaml
var openapiSpec []byte

// GetSwagger returns the portal's JSON API document.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := swagger.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return swagger, nil
}

type ScoreClaimParams struct {
	Mode *string `form:"mode,omitempty" json:"mode,omitempty"`
}

type ScoreBatchParams struct {
	Mode  *string `form:"mode,omitempty" json:"mode,omitempty"`
	Limit *int    `form:"limit,omitempty" json:"limit,omitempty"`
}

// ServerInterface is implemented by the JSON API handlers.
type ServerInterface interface {
	// (GET /api/session)
	GetSession(ctx echo.Context) error
	// (POST /api/dss/score)
	ScoreClaim(ctx echo.Context, params ScoreClaimParams) error
	// (POST /api/dss/score-batch)
	ScoreBatch(ctx echo.Context, params ScoreBatchParams) error
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) GetSession(ctx echo.Context) error {
	return w.Handler.GetSession(ctx)
}

func (w *ServerInterfaceWrapper) ScoreClaim(ctx echo.Context) error {
	var params ScoreClaimParams

	err := runtime.BindQueryParameter("form", true, false, "mode", ctx.QueryParams(), &params.Mode)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter mode: %s", err))
	}

	return w.Handler.ScoreClaim(ctx, params)
}

func (w *ServerInterfaceWrapper) ScoreBatch(ctx echo.Context) error {
	var params ScoreBatchParams

	err := runtime.BindQueryParameter("form", true, false, "mode", ctx.QueryParams(), &params.Mode)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter mode: %s", err))
	}

	err = runtime.BindQueryParameter("form", true, false, "limit", ctx.QueryParams(), &params.Limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter limit: %s", err))
	}

	return w.Handler.ScoreBatch(ctx, params)
}

// EchoRouter is satisfied by both *echo.Echo and *echo.Group.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers adds the JSON API routes. Paths in the document are
// absolute, so router must be rooted at "/".
func RegisterHandlers(router EchoRouter, si ServerInterface, m ...echo.MiddlewareFunc) {
	wrapper := ServerInterfaceWrapper{Handler: si}

	router.GET("/api/session", wrapper.GetSession, m...)
	router.POST("/api/dss/score", wrapper.ScoreClaim, m...)
	router.POST("/api/dss/score-batch", wrapper.ScoreBatch, m...)
}
