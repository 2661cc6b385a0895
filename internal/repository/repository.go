package repository

import (
	"context"

	"storytopia-server/internal/models"
)

// StoryRepository is the persistence gateway for story documents. Keys are
// opaque strings assigned by the store on Create.
type StoryRepository interface {
	// Create persists the story, assigns it a server-generated key, writes
	// the key back into story.ID and returns it.
	Create(ctx context.Context, story *models.Story) (string, error)
	// GetByID returns models.ErrStoryNotFound when no document exists.
	GetByID(ctx context.Context, id string) (*models.Story, error)
	Update(ctx context.Context, story *models.Story) error
	// ListRecentPublic returns public stories ordered by descending creation
	// time, skipping offset records and returning at most limit.
	ListRecentPublic(ctx context.Context, offset, limit int) ([]*models.Story, error)
}

// UserRepository is the persistence gateway for user documents. Users are
// created by the identity layer; this gateway only reads and mutates them.
type UserRepository interface {
	// GetByID returns models.ErrUserNotFound when no document exists.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByUsername returns models.ErrUserNotFound when no document matches.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UsernameExists(ctx context.Context, username string) (bool, error)
}
