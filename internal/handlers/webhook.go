package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/inquiry-notifier-service/internal/logging"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/models"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/queue"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/store"
)

// DispatchTarget is where queued tasks are delivered.
type DispatchTarget struct {
	URL   string
	Token string
}

// RegisterWebhookRoutes registers the ingestion endpoint.
//
// POST /webhook
// - 400 names the first missing field; nothing is written or enqueued
// - Idempotent: the (timestamp, phone) dedup key is claimed with a conditional create
// - 202 after the dispatch task is enqueued, 200 for duplicates (no enqueue)
func RegisterWebhookRoutes(r gin.IRoutes, st store.Store, q queue.Enqueuer, target DispatchTarget) {
	r.POST("/webhook", func(c *gin.Context) {
		log := logging.FromContext(c)

		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}

		ev, payload, err := models.ParseInboundEvent(body)
		if err != nil {
			var missing *models.MissingFieldError
			if errors.As(err, &missing) {
				c.JSON(http.StatusBadRequest, gin.H{"error": missing.Error()})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}

		rec := models.NewSubmissionRecord(ev, payload)
		log = log.With().Str("key", rec.Key).Logger()

		outcome, err := st.Create(c.Request.Context(), rec)
		if err != nil {
			log.Error().Err(err).Msg("submission write failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store write failed"})
			return
		}

		if outcome == store.AlreadyExists {
			log.Info().Msg("duplicate submission detected; skipping enqueue")
			c.Status(http.StatusOK)
			return
		}

		// Enqueue only after the record exists. A failure here leaves the record
		// without a scheduled delivery; it is logged and not compensated.
		h, err := q.Enqueue(c.Request.Context(), queue.NewDispatchTask(target.URL, payload, target.Token))
		if err != nil {
			log.Error().Err(err).Msg("submission stored but dispatch enqueue failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "dispatch enqueue failed"})
			return
		}

		log.Info().Str("task", h.Name).Msg("enqueued dispatch task")
		c.Status(http.StatusAccepted)
	})
}
