package main

import (
	"context"

	"github.com/locvowork/fluentexcel/internal/bootstrap"
	"github.com/locvowork/fluentexcel/internal/logger"
)

func main() {
	ctx := context.Background()

	app := bootstrap.NewApp()
	if err := app.Initialize(ctx); err != nil {
		logger.ErrorWithErr(ctx, err, "Failed to initialize application")
		panic(err)
	}

	if err := app.Run(); err != nil {
		logger.ErrorWithErr(ctx, err, "Server stopped")
	}
}
