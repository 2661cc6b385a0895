package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storytopia-server/internal/middleware"
	"storytopia-server/internal/models"
	"storytopia-server/internal/service"
)

// StoryHandler exposes story lifecycle and social operations over HTTP.
type StoryHandler struct {
	stories service.StoryService
	logger  *zap.Logger
}

// NewStoryHandler creates a StoryHandler.
func NewStoryHandler(stories service.StoryService, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		stories: stories,
		logger:  logger.Named("story_handler"),
	}
}

// RegisterRoutes mounts the story routes on group. All routes require auth.
func (h *StoryHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/story", h.CreateStory)
	group.GET("/story/:id", h.GetStory)
	group.POST("/story/:id/audio", h.GenerateAudio)
	group.POST("/story/:id/like", h.LikeStory)
	group.POST("/story/:id/unlike", h.UnlikeStory)
	group.POST("/story/:id/save", h.SaveStory)
	group.POST("/story/:id/unsave", h.UnsaveStory)
	group.POST("/story/:id/toggle-privacy", h.TogglePrivacy)
	group.POST("/generate", h.GenerateStory)
	group.POST("/generate/background", h.GenerateStoryBackground)
	group.GET("/recent", h.GetRecentPublicStories)
	group.GET("/recommendations", h.GetRecommendations)
}

// CreateStory persists a user-authored story.
func (h *StoryHandler) CreateStory(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var post models.StoryPost
	if err := c.ShouldBindJSON(&post); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	story, err := h.stories.CreateStory(c.Request.Context(), user, post)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, story)
}

// GetStory returns a story; private stories are visible to their author only.
func (h *StoryHandler) GetStory(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	story, err := h.stories.GetStory(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, story)
}

// GenerateStory runs the full generation pipeline synchronously.
func (h *StoryHandler) GenerateStory(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req models.GenerateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	story, err := h.stories.GenerateStory(c.Request.Context(), user, req)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, story)
}

// GenerateStoryBackground schedules generation and returns the placeholder
// story immediately; clients poll its status field.
func (h *StoryHandler) GenerateStoryBackground(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req models.GenerateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	story, err := h.stories.GenerateStoryBackground(c.Request.Context(), user, req)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusAccepted, story)
}

// GenerateAudio narrates an existing story's pages.
func (h *StoryHandler) GenerateAudio(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	story, err := h.stories.GenerateAudioFiles(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, story)
}

func (h *StoryHandler) LikeStory(c *gin.Context) {
	h.socialAction(c, h.stories.LikeStory)
}

func (h *StoryHandler) UnlikeStory(c *gin.Context) {
	h.socialAction(c, h.stories.UnlikeStory)
}

func (h *StoryHandler) SaveStory(c *gin.Context) {
	h.socialAction(c, h.stories.SaveStory)
}

func (h *StoryHandler) UnsaveStory(c *gin.Context) {
	h.socialAction(c, h.stories.UnsaveStory)
}

func (h *StoryHandler) socialAction(c *gin.Context, action func(ctx context.Context, userID, storyID string) error) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := action(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// TogglePrivacy flips a story's privacy. Author only.
func (h *StoryHandler) TogglePrivacy(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	story, err := h.stories.ToggleStoryPrivacy(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, story)
}

// GetRecentPublicStories returns a page of public stories, newest first.
func (h *StoryHandler) GetRecentPublicStories(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	stories, err := h.stories.GetRecentPublicStories(c.Request.Context(), page, pageSize)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, stories)
}

// GetRecommendations suggests a next prompt from the caller's story history.
func (h *StoryHandler) GetRecommendations(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	rec, err := h.stories.GetRecommendations(c.Request.Context(), user.ID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, rec)
}
