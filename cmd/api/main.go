package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"user-record-service/cmd/api/app"
	"user-record-service/cmd/api/server"
)

func main() {
	ctx, stop := server.WithSignal(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		log.Fatalf("failed to start application: %v", err)
	}

	if err := a.Run(ctx); err != nil {
		a.Logger.Error("application exited with error", zap.Error(err))
		_ = a.Logger.Sync()
		stop()
		log.Fatalf("application exited with error: %v", err)
	}
}
