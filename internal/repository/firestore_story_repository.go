package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"storytopia-server/internal/models"
)

const storiesCollection = "stories"

// firestoreStoryRepository implements StoryRepository on Firestore.
// Documents are read back through the typed Story struct, so the schema is
// enforced at the gateway boundary.
type firestoreStoryRepository struct {
	client *firestore.Client
}

// NewFirestoreStoryRepository creates a StoryRepository backed by Firestore.
func NewFirestoreStoryRepository(client *firestore.Client) StoryRepository {
	return &firestoreStoryRepository{client: client}
}

func (r *firestoreStoryRepository) Create(ctx context.Context, story *models.Story) (string, error) {
	ref := r.client.Collection(storiesCollection).NewDoc()
	story.ID = ref.ID
	if _, err := ref.Set(ctx, story); err != nil {
		return "", fmt.Errorf("failed to create story document: %w", err)
	}
	return ref.ID, nil
}

func (r *firestoreStoryRepository) GetByID(ctx context.Context, id string) (*models.Story, error) {
	snap, err := r.client.Collection(storiesCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, models.ErrStoryNotFound
		}
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}

	var story models.Story
	if err := snap.DataTo(&story); err != nil {
		return nil, fmt.Errorf("failed to decode story %s: %w", id, err)
	}
	return &story, nil
}

func (r *firestoreStoryRepository) Update(ctx context.Context, story *models.Story) error {
	if story.ID == "" {
		return fmt.Errorf("%w: story has no ID", models.ErrBadRequest)
	}
	if _, err := r.client.Collection(storiesCollection).Doc(story.ID).Set(ctx, story); err != nil {
		return fmt.Errorf("failed to update story %s: %w", story.ID, err)
	}
	return nil
}

func (r *firestoreStoryRepository) ListRecentPublic(ctx context.Context, offset, limit int) ([]*models.Story, error) {
	query := r.client.Collection(storiesCollection).
		Where("private", "==", false).
		OrderBy("createdAt", firestore.Desc).
		Offset(offset).
		Limit(limit)

	iter := query.Documents(ctx)
	defer iter.Stop()

	stories := make([]*models.Story, 0, limit)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list public stories: %w", err)
		}
		var story models.Story
		if err := snap.DataTo(&story); err != nil {
			return nil, fmt.Errorf("failed to decode story %s: %w", snap.Ref.ID, err)
		}
		stories = append(stories, &story)
	}
	return stories, nil
}
