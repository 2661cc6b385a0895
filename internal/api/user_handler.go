package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storytopia-server/internal/middleware"
	"storytopia-server/internal/models"
	"storytopia-server/internal/service"
)

// UserHandler exposes profile, follow-graph and book-list operations.
type UserHandler struct {
	users  service.UserService
	logger *zap.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger.Named("user_handler"),
	}
}

// RegisterRoutes mounts the user routes on group. All routes require auth.
func (h *UserHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/me", h.GetMe)
	group.PUT("/me", h.UpdateMe)
	group.GET("/me/public_posts", h.GetPublicPosts)
	group.GET("/me/private_posts", h.GetPrivatePosts)
	group.GET("/me/saved_posts", h.GetSavedPosts)
	group.GET("/me/liked_posts", h.GetLikedPosts)
	group.POST("/follow/:username", h.Follow)
	group.POST("/unfollow/:username", h.Unfollow)
	group.GET("/is-following/:username", h.IsFollowing)
	group.GET("/followers", h.GetFollowers)
	group.GET("/following", h.GetFollowing)
	group.GET("/username/:username", h.GetPublicUserInfo)
}

// GetMe returns the authenticated user's profile.
func (h *UserHandler) GetMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe applies a partial profile update.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var update models.UserUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	updated, err := h.users.UpdateUserDetails(c.Request.Context(), user.ID, update)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *UserHandler) Follow(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := h.users.FollowUser(c.Request.Context(), user.ID, c.Param("username")); err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *UserHandler) Unfollow(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := h.users.UnfollowUser(c.Request.Context(), user.ID, c.Param("username")); err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *UserHandler) IsFollowing(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	following, err := h.users.IsFollowing(c.Request.Context(), user.ID, c.Param("username"))
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_following": following})
}

func (h *UserHandler) GetFollowers(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	followers, err := h.users.GetFollowers(c.Request.Context(), user.ID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, followers)
}

func (h *UserHandler) GetFollowing(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	following, err := h.users.GetFollowing(c.Request.Context(), user.ID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, following)
}

// GetPublicUserInfo returns the public slice of a profile by username.
func (h *UserHandler) GetPublicUserInfo(c *gin.Context) {
	info, err := h.users.GetPublicUserInfo(c.Request.Context(), c.Param("username"))
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *UserHandler) GetPublicPosts(c *gin.Context) {
	h.bookList(c, func(user *models.User) []string { return user.PublicBooks })
}

func (h *UserHandler) GetPrivatePosts(c *gin.Context) {
	h.bookList(c, func(user *models.User) []string { return user.PrivateBooks })
}

func (h *UserHandler) GetSavedPosts(c *gin.Context) {
	h.bookList(c, func(user *models.User) []string { return user.SavedBooks })
}

func (h *UserHandler) GetLikedPosts(c *gin.Context) {
	h.bookList(c, func(user *models.User) []string { return user.LikedBooks })
}

func (h *UserHandler) bookList(c *gin.Context, pick func(*models.User) []string) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	stories, err := h.users.GetUserStories(c.Request.Context(), pick(user))
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, stories)
}
