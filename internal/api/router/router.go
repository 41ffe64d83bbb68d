package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickscale/upscaler/internal/api/handler"
)

// Config holds router configuration beyond handler dependencies.
type Config struct {
	AllowedOrigins []string
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, cfg *Config) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware(cfg.AllowedOrigins))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "upscaler-api-service",
		})
	})

	// Initialize video handler
	videoHandler := handler.NewVideoHandler(deps)

	api := r.Group("/api")
	{
		// GET /api/ - service banner
		api.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"message": "QuickScale 1080 API",
			})
		})

		// POST /api/upload - upload a video, creating a new job
		api.POST("/upload", videoHandler.UploadVideo)

		// POST /api/process/:video_id - trigger background upscaling
		api.POST("/process/:video_id", videoHandler.TriggerProcessing)

		// GET /api/status/:video_id - poll job status
		api.GET("/status/:video_id", videoHandler.GetStatus)

		// GET /api/videos - list recent jobs, newest first
		api.GET("/videos", videoHandler.ListVideos)

		// GET /api/download/:video_id - fetch the processed result
		api.GET("/download/:video_id", videoHandler.DownloadVideo)
	}

	return r
}
