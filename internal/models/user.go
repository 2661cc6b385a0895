package models

// User represents an account in the system. Followers/Following are symmetric
// duplicate-free key sets; the four book lists mirror story membership:
// a story key appears in exactly one of PublicBooks/PrivateBooks for its
// author, and in LikedBooks/SavedBooks for every user who liked/saved it.
type User struct {
	ID             string   `firestore:"id" json:"id"`
	Username       string   `firestore:"username" json:"username"`
	ProfilePicture string   `firestore:"profile_picture" json:"profile_picture"`
	Bio            string   `firestore:"bio" json:"bio"`
	Followers      []string `firestore:"followers" json:"followers"`
	Following      []string `firestore:"following" json:"following"`
	LikedBooks     []string `firestore:"liked_books" json:"liked_books"`
	SavedBooks     []string `firestore:"saved_books" json:"saved_books"`
	PublicBooks    []string `firestore:"public_books" json:"public_books"`
	PrivateBooks   []string `firestore:"private_books" json:"private_books"`
	CreatedAt      string   `firestore:"createdAt" json:"createdAt"`
}

// UserUpdate carries the mutable profile fields. Nil means "leave unchanged".
type UserUpdate struct {
	Username       *string `json:"username,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
	Bio            *string `json:"bio,omitempty"`
}

// PublicUserInfo is the subset of a profile visible to other users.
type PublicUserInfo struct {
	Username       string   `json:"username"`
	ProfilePicture string   `json:"profile_picture"`
	Bio            string   `json:"bio"`
	PublicBooks    []string `json:"public_books"`
}
