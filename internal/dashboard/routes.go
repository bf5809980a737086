package dashboard

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// registerRoutes sets up all dashboard routes on the Gin router. The
// dashboard is read-only: it never mutates entities or the queue.
func registerRoutes(router *gin.Engine, db *gorm.DB, conn onlineReporter) {
	router.GET("/api/status", handleStatus(db, conn))
	router.GET("/api/queue", handleQueue(db))
	router.GET("/api/conflicts", handleConflicts(db))
	router.GET("/api/events", handleSSE(db))
}

// onlineReporter is the slice of connectivity.Monitor the dashboard needs.
type onlineReporter interface {
	Online() bool
}

func handleStatus(db *gorm.DB, conn onlineReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := Summary(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		online := false
		if conn != nil {
			online = conn.Online()
		}
		c.JSON(http.StatusOK, gin.H{
			"online":  online,
			"summary": summary,
		})
	}
}

func handleQueue(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := QueueList(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"changes": rows})
	}
}

func handleConflicts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		rows, err := RecentConflicts(db, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"conflicts": rows})
	}
}
