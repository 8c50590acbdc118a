package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/rryowa/fra_portal/internal/api"
	"github.com/rryowa/fra_portal/internal/bootstrap"
	"github.com/rryowa/fra_portal/internal/controller"
	"github.com/rryowa/fra_portal/internal/util"
)

func main() {
	ctx := context.Background()

	cfg, err := util.LoadConfig()
	if err != nil {
		util.NewZapLogger("").Fatal(zap.Error(err))
	}
	logger := util.NewZapLogger(cfg.Log.Level)

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	defer app.Close()

	renderer, err := controller.NewRenderer()
	if err != nil {
		logger.Fatal(zap.Error(err))
	}

	ctrl := controller.NewController(logger, app.Auth, app.Portal, app.DSS, app.Maps)
	apiServer := api.NewAPI(ctrl, renderer, logger, &cfg.Server)

	logger.Infow("portal starting", "api_base", app.Client.BaseURL(), "session_backend", cfg.Session.Backend)
	if err := apiServer.Run(ctx); err != nil {
		logger.Errorw("portal stopped", "error", err)
	}
}
