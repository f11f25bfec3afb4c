package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"chat-conversations/internal/bootstrap"
	"chat-conversations/internal/config"
	applog "chat-conversations/internal/log"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		logger := applog.Ctx(ctx)
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := applog.New(applog.Config{
		Level:       cfg.LogLevel,
		Pretty:      cfg.LogPretty,
		ServiceName: "chat-conversations",
	}, os.Stdout)

	// ---- Handler ----
	h, err := bootstrap.NewHandler(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create handler")
	}

	lambda.Start(h.Handle)
}
