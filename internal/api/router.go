package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"storytopia-server/internal/middleware"
	"storytopia-server/internal/repository"
)

// NewRouter assembles the gin engine: recovery, request logging, CORS,
// prometheus instrumentation, a health probe and the authenticated API
// surface under /stories and /users.
func NewRouter(
	storyHandler *StoryHandler,
	userHandler *UserHandler,
	verifier middleware.TokenVerifier,
	users repository.UserRepository,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ZapLogger(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := middleware.Auth(verifier, users, logger)

	stories := router.Group("/stories", auth)
	storyHandler.RegisterRoutes(stories)

	usersGroup := router.Group("/users", auth)
	userHandler.RegisterRoutes(usersGroup)

	return router
}
