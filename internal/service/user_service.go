package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"storytopia-server/internal/models"
	"storytopia-server/internal/repository"
)

// UserService owns profile and follow-graph operations.
type UserService interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	// UpdateUserDetails applies non-nil fields from update. A username change
	// to a name another user holds returns ErrUserAlreadyExists.
	UpdateUserDetails(ctx context.Context, userID string, update models.UserUpdate) (*models.User, error)
	// GetPublicUserInfo resolves a profile by username.
	GetPublicUserInfo(ctx context.Context, username string) (*models.PublicUserInfo, error)

	// FollowUser adds the target (resolved by username) to the current user's
	// following set and mirrors the current user into the target's followers.
	// Following an already-followed user is a no-op.
	FollowUser(ctx context.Context, currentUserID, username string) error
	// UnfollowUser reverses FollowUser. Unfollowing a user who is not
	// followed returns ErrNotFollowing.
	UnfollowUser(ctx context.Context, currentUserID, username string) error
	IsFollowing(ctx context.Context, currentUserID, username string) (bool, error)
	GetFollowers(ctx context.Context, userID string) ([]*models.User, error)
	GetFollowing(ctx context.Context, userID string) ([]*models.User, error)

	// GetUserStories resolves a list of story keys to stories.
	GetUserStories(ctx context.Context, storyIDs []string) ([]*models.Story, error)
	// GetUserPublicStories resolves story keys, dropping private stories.
	GetUserPublicStories(ctx context.Context, storyIDs []string) ([]*models.Story, error)
}

type userServiceImpl struct {
	users   repository.UserRepository
	stories repository.StoryRepository
	logger  *zap.Logger
}

// NewUserService creates the user service.
func NewUserService(users repository.UserRepository, stories repository.StoryRepository, logger *zap.Logger) UserService {
	return &userServiceImpl{
		users:   users,
		stories: stories,
		logger:  logger.Named("user_service"),
	}
}

func (s *userServiceImpl) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *userServiceImpl) UpdateUserDetails(ctx context.Context, userID string, update models.UserUpdate) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Username != nil && *update.Username != user.Username {
		exists, err := s.users.UsernameExists(ctx, *update.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if exists {
			return nil, models.ErrUserAlreadyExists
		}
		user.Username = *update.Username
	}
	if update.ProfilePicture != nil {
		user.ProfilePicture = *update.ProfilePicture
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *userServiceImpl) GetPublicUserInfo(ctx context.Context, username string) (*models.PublicUserInfo, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return &models.PublicUserInfo{
		Username:       user.Username,
		ProfilePicture: user.ProfilePicture,
		Bio:            user.Bio,
		PublicBooks:    user.PublicBooks,
	}, nil
}

func (s *userServiceImpl) FollowUser(ctx context.Context, currentUserID, username string) error {
	currentUser, err := s.users.GetByID(ctx, currentUserID)
	if err != nil {
		return err
	}
	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if target.ID == currentUserID {
		return models.ErrBadRequest
	}
	if models.ContainsKey(currentUser.Following, target.ID) {
		return nil
	}

	currentUser.Following = models.AddKey(currentUser.Following, target.ID)
	target.Followers = models.AddKey(target.Followers, currentUserID)
	if err := s.users.Update(ctx, currentUser); err != nil {
		return fmt.Errorf("failed to update follower: %w", err)
	}
	if err := s.users.Update(ctx, target); err != nil {
		currentUser.Following = models.RemoveKey(currentUser.Following, target.ID)
		if revertErr := s.users.Update(ctx, currentUser); revertErr != nil {
			s.logger.Error("Failed to revert follow after target update failure",
				zap.String("user_id", currentUserID),
				zap.String("target_id", target.ID),
				zap.Error(revertErr))
		}
		return fmt.Errorf("failed to update followed user: %w", err)
	}
	return nil
}

func (s *userServiceImpl) UnfollowUser(ctx context.Context, currentUserID, username string) error {
	currentUser, err := s.users.GetByID(ctx, currentUserID)
	if err != nil {
		return err
	}
	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if !models.ContainsKey(currentUser.Following, target.ID) {
		return models.ErrNotFollowing
	}

	currentUser.Following = models.RemoveKey(currentUser.Following, target.ID)
	target.Followers = models.RemoveKey(target.Followers, currentUserID)
	if err := s.users.Update(ctx, currentUser); err != nil {
		return fmt.Errorf("failed to update follower: %w", err)
	}
	if err := s.users.Update(ctx, target); err != nil {
		currentUser.Following = models.AddKey(currentUser.Following, target.ID)
		if revertErr := s.users.Update(ctx, currentUser); revertErr != nil {
			s.logger.Error("Failed to revert unfollow after target update failure",
				zap.String("user_id", currentUserID),
				zap.String("target_id", target.ID),
				zap.Error(revertErr))
		}
		return fmt.Errorf("failed to update unfollowed user: %w", err)
	}
	return nil
}

func (s *userServiceImpl) IsFollowing(ctx context.Context, currentUserID, username string) (bool, error) {
	currentUser, err := s.users.GetByID(ctx, currentUserID)
	if err != nil {
		return false, err
	}
	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return models.ContainsKey(currentUser.Following, target.ID), nil
}

func (s *userServiceImpl) GetFollowers(ctx context.Context, userID string) ([]*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolveUsers(ctx, user.Followers)
}

func (s *userServiceImpl) GetFollowing(ctx context.Context, userID string) ([]*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolveUsers(ctx, user.Following)
}

// resolveUsers loads each key, skipping dangling references.
func (s *userServiceImpl) resolveUsers(ctx context.Context, userIDs []string) ([]*models.User, error) {
	users := make([]*models.User, 0, len(userIDs))
	for _, id := range userIDs {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				s.logger.Warn("Dangling user reference", zap.String("user_id", id))
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *userServiceImpl) GetUserStories(ctx context.Context, storyIDs []string) ([]*models.Story, error) {
	return s.resolveStories(ctx, storyIDs, false)
}

func (s *userServiceImpl) GetUserPublicStories(ctx context.Context, storyIDs []string) ([]*models.Story, error) {
	return s.resolveStories(ctx, storyIDs, true)
}

func (s *userServiceImpl) resolveStories(ctx context.Context, storyIDs []string, publicOnly bool) ([]*models.Story, error) {
	stories := make([]*models.Story, 0, len(storyIDs))
	for _, id := range storyIDs {
		story, err := s.stories.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrStoryNotFound) {
				s.logger.Warn("Dangling story reference", zap.String("story_id", id))
				continue
			}
			return nil, err
		}
		if publicOnly && story.Private {
			continue
		}
		stories = append(stories, story)
	}
	return stories, nil
}
