package telegram

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	applog "aspirebot/internal/log"
)

// WebhookPath derives a stable, unguessable route from the bot token.
func WebhookPath(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "/telegram/" + hex.EncodeToString(sum[:])[:32]
}

// WebhookURL joins the public base URL with WebhookPath.
func WebhookURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse webhook url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + WebhookPath(token)
	return u.String(), nil
}

// NewRouter serves the webhook at path and a health probe at /healthz.
// Updates are dispatched before the response so Telegram delivers the next
// update for a chat only after this one is handled; dispatch errors still
// answer 200 to stop redelivery.
func NewRouter(path string, dispatcher Dispatcher, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			applog.FieldDuration, time.Since(start).Milliseconds())
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST(path, func(c *gin.Context) {
		var u tgbotapi.Update
		if err := c.ShouldBindJSON(&u); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
			return
		}
		handleUpdate(c.Request.Context(), dispatcher, logger, u)
		c.Status(http.StatusOK)
	})

	return router
}

// WebhookServer registers the webhook with Telegram and serves updates.
type WebhookServer struct {
	bot    *tgbotapi.BotAPI
	url    string
	server *http.Server
	logger *slog.Logger
}

func NewWebhookServer(bot *tgbotapi.BotAPI, baseURL, listenAddr string, dispatcher Dispatcher, logger *slog.Logger) (*WebhookServer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	hookURL, err := WebhookURL(baseURL, bot.Token)
	if err != nil {
		return nil, err
	}
	return &WebhookServer{
		bot: bot,
		url: hookURL,
		server: &http.Server{
			Addr:              listenAddr,
			Handler:           NewRouter(WebhookPath(bot.Token), dispatcher, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}, nil
}

// Run registers the webhook and serves until ctx is done, then shuts the
// server down and removes the webhook.
func (s *WebhookServer) Run(ctx context.Context) error {
	wh, err := tgbotapi.NewWebhook(s.url)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := s.bot.Request(wh); err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Serving webhook", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("webhook server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("Webhook server shutdown", "error", err)
	}
	if _, err := s.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		s.logger.Warn("Failed to delete webhook", "error", err)
	}
	return ctx.Err()
}
