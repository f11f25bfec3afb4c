// Command local serves the Lambda handler over plain HTTP for development.
// It reads a .env file when present and accepts the same environment
// variables as the Lambda, plus STORE=memory, LOCAL_GRANTS and LOCAL_ADDR.
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"chat-conversations/handler"
	"chat-conversations/internal/bootstrap"
	"chat-conversations/internal/config"
	applog "chat-conversations/internal/log"
)

func main() {
	ctx := context.Background()
	boot := applog.Ctx(ctx)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		boot.Fatal().Err(err).Msg("failed to read .env")
	}
	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := applog.New(applog.Config{
		Level:       cfg.LogLevel,
		Pretty:      cfg.LogPretty,
		ServiceName: "chat-conversations-local",
	}, os.Stdout)

	h, err := bootstrap.NewHandler(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create handler")
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.POST("/conversations/messages", proxy(h))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{Addr: cfg.LocalAddr, Handler: router}
	go func() {
		logger.Info().Str("addr", cfg.LocalAddr).Str("store", cfg.Store).Msg("starting local server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
}

// proxy translates an HTTP request into an API Gateway proxy event.
func proxy(h *handler.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		headers := make(map[string]string, len(c.Request.Header))
		for k := range c.Request.Header {
			headers[k] = c.Request.Header.Get(k)
		}

		resp, err := h.Handle(c.Request.Context(), events.APIGatewayProxyRequest{
			HTTPMethod: c.Request.Method,
			Path:       c.Request.URL.Path,
			Headers:    headers,
			Body:       string(body),
		})
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		for k, v := range resp.Headers {
			c.Header(k, v)
		}
		c.Data(resp.StatusCode, "application/json", []byte(resp.Body))
	}
}
