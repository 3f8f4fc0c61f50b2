package routes

import (
	"net/http"
	"time"

	"meetsync/handlers"
	"meetsync/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAssistantRoutes registers the conversational booking endpoints.
func RegisterAssistantRoutes(r *gin.Engine, assistant *handlers.AssistantHandler) {
	api := r.Group("/api/assistant")
	{
		api.POST("/chat", assistant.Chat)
		api.DELETE("/session/:sessionID", assistant.AbandonSession)
	}
}

// RegisterBookingRecordRoutes registers operator endpoints over completed bookings.
func RegisterBookingRecordRoutes(r *gin.Engine, records *handlers.BookingRecordsHandler) {
	api := r.Group("/api/bookings")
	{
		api.GET("", records.ListRecent)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "services": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, assistant *handlers.AssistantHandler, records *handlers.BookingRecordsHandler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterAssistantRoutes(r, assistant)
	RegisterBookingRecordRoutes(r, records)
}
