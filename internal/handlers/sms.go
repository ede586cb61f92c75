package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/inquiry-notifier-service/internal/gateway"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/logging"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/models"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/queue"
)

// Cloud Tasks sets this on every attempt.
const headerCloudTasksRetryCount = "X-CloudTasks-TaskRetryCount"

// RegisterSMSRoutes registers the dispatch endpoint the queue calls.
//
// POST /send-sms
// - Exactly one gateway send per call; redeliveries are independent sends
// - 204 when no recipient failed; 500 on any failure so the queue redelivers
func RegisterSMSRoutes(r gin.IRoutes, sender gateway.Sender, renderer *gateway.Renderer, from string) {
	r.POST("/send-sms", func(c *gin.Context) {
		log := logging.FromContext(c).With().
			Str("retry_count", retryCount(c)).
			Logger()

		body, err := c.GetRawData()
		if err != nil {
			log.Error().Err(err).Msg("SMS send error: read body")
			c.Status(http.StatusInternalServerError)
			return
		}

		p, err := models.ParseDispatchPayload(body)
		if err != nil {
			log.Error().Err(err).Msg("SMS send error: invalid payload")
			c.Status(http.StatusInternalServerError)
			return
		}

		text, err := renderer.Render(p.Name, p.Inquiry)
		if err != nil {
			log.Error().Err(err).Msg("SMS send error: render template")
			c.Status(http.StatusInternalServerError)
			return
		}

		res, err := sender.Send(c.Request.Context(), gateway.Message{From: from, To: p.Phone, Text: text})
		if err == nil {
			err = res.Err()
		}
		if err != nil {
			log.Error().Err(err).Msg("SMS send error")
			c.Status(http.StatusInternalServerError)
			return
		}

		log.Info().Int("registered", res.Registered).Msg("SMS sent")
		c.Status(http.StatusNoContent)
	})
}

func retryCount(c *gin.Context) string {
	if v := c.GetHeader(headerCloudTasksRetryCount); v != "" {
		return v
	}
	return c.GetHeader(queue.HeaderRetryCount)
}
