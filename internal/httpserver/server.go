package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/PratikDhanave/inquiry-notifier-service/internal/auth"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/gateway"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/handlers"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/logging"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/queue"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/store"
)

// Deps are the collaborators the router hands to each handler.
type Deps struct {
	Store    store.Store
	Queue    queue.Enqueuer
	Sender   gateway.Sender
	Renderer *gateway.Renderer
	Logger   zerolog.Logger

	DispatchURL   string
	DispatchToken string
	SMSSender     string
}

// NewRouter wires public endpoints and the queue-only dispatch endpoint.
// Public: /health, /ready, /webhook
// Queue-only: /send-sms
func NewRouter(d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.Middleware(d.Logger))

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the dedup store is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := d.Store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	handlers.RegisterWebhookRoutes(r, d.Store, d.Queue, handlers.DispatchTarget{
		URL:   d.DispatchURL,
		Token: d.DispatchToken,
	})

	// Dispatch group only accepts calls carrying the queue's token.
	dispatchGroup := r.Group("/")
	dispatchGroup.Use(auth.DispatchTokenMiddleware(d.DispatchToken))

	handlers.RegisterSMSRoutes(dispatchGroup, d.Sender, d.Renderer, d.SMSSender)

	return r
}
