package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/line-webhook-service/internal/models"
)

// DeliveryCounter is implemented by the durable journal.
type DeliveryCounter interface {
	CountDeliveries(ctx context.Context, eventType models.EventType, from, to time.Time) (int64, error)
}

// parseRFC3339 parses an RFC3339 timestamp and normalizes it to UTC.
func parseRFC3339(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// RegisterDeliveryRoutes registers the journal query endpoint.
//
// GET /deliveries?event_type=...&from=...&to=...
// - Returns the number of recorded deliveries for the window [from,to)
func RegisterDeliveryRoutes(r gin.IRoutes, st DeliveryCounter) {
	r.GET("/deliveries", func(c *gin.Context) {
		eventTypeStr := c.Query("event_type")
		fromStr := c.Query("from")
		toStr := c.Query("to")

		if eventTypeStr == "" || fromStr == "" || toStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event_type, from, to are required"})
			return
		}

		eventType := models.ParseEventType(eventTypeStr)
		if eventType == models.EventUnknown && eventTypeStr != string(models.EventUnknown) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event_type"})
			return
		}

		from, err := parseRFC3339(fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		to, err := parseRFC3339(toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}

		if !from.Before(to) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be < to"})
			return
		}

		count, err := st.CountDeliveries(c.Request.Context(), eventType, from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"event_type": eventType,
			"count":      count,
		})
	})
}
