package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/fieldsync/internal/models"
	"gorm.io/gorm"
)

// conflictEvent holds data for a conflict SSE event.
type conflictEvent struct {
	ID         uint   `json:"id"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Winner     string `json:"winner"`
	QueueDepth int64  `json:"queueDepth"`
}

// handleSSE streams newly resolved conflicts to the client, with periodic
// heartbeats so proxies keep the connection open.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		if db == nil {
			return
		}

		// Only alert on conflicts resolved after the client connected.
		var lastSeenID uint
		var latest models.ConflictLog
		if err := db.Order("id DESC").Limit(1).First(&latest).Error; err == nil {
			lastSeenID = latest.ID
		}

		ctx := c.Request.Context()
		ticker := time.NewTicker(3 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				var fresh []models.ConflictLog
				db.Where("id > ?", lastSeenID).Order("id ASC").Find(&fresh)
				if len(fresh) == 0 {
					continue
				}
				lastSeenID = fresh[len(fresh)-1].ID

				var depth int64
				db.Model(&models.ChangeRecord{}).Count(&depth)

				newest := fresh[len(fresh)-1]
				writeSSE(c.Writer, "conflict", conflictEvent{
					ID:         newest.ID,
					EntityType: newest.EntityType,
					EntityID:   newest.EntityID,
					Winner:     newest.Winner,
					QueueDepth: depth,
				})
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
