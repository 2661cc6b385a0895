package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"storytopia-server/internal/models"
)

const usersCollection = "users"

// firestoreUserRepository implements UserRepository on Firestore.
type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a UserRepository backed by Firestore.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	return &firestoreUserRepository{client: client}
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	snap, err := r.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}

	var user models.User
	if err := snap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", id, err)
	}
	return &user, nil
}

func (r *firestoreUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	iter := r.client.Collection(usersCollection).
		Where("username", "==", username).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user by username %q: %w", username, err)
	}

	var user models.User
	if err := snap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", snap.Ref.ID, err)
	}
	return &user, nil
}

func (r *firestoreUserRepository) Update(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return fmt.Errorf("%w: user has no ID", models.ErrBadRequest)
	}
	if _, err := r.client.Collection(usersCollection).Doc(user.ID).Set(ctx, user); err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	return nil
}

func (r *firestoreUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, models.ErrUserNotFound) {
		return false, nil
	}
	return false, err
}
