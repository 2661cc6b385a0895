package models

// StoryStatus tracks a story's position in the generation pipeline.
// Stored on the record so clients can poll progress after the placeholder
// is returned.
type StoryStatus string

const (
	StatusCreated           StoryStatus = "created"            // placeholder persisted, nothing generated yet
	StatusGenerating        StoryStatus = "generating"         // text generation in progress
	StatusRenderingImages   StoryStatus = "rendering_images"   // scene images being rendered
	StatusSynthesizingAudio StoryStatus = "synthesizing_audio" // narration fan-out in progress
	StatusComplete          StoryStatus = "complete"           // pipeline finished
	StatusError             StoryStatus = "error"              // terminal failure, detail appended to description
)

// Story is a generated picture book owned by its author.
//
// Invariants once generation completes: len(StoryImages) == len(StoryPages)
// == len(AudioFiles); Likes and Saves are duplicate-free user-key sets
// mirrored by the corresponding User book lists.
type Story struct {
	ID          string      `firestore:"id" json:"id"`
	Title       string      `firestore:"title" json:"title"`
	Author      string      `firestore:"author" json:"author"`
	AuthorID    string      `firestore:"author_id" json:"author_id"`
	Description string      `firestore:"description" json:"description"`
	StoryPages  []string    `firestore:"story_pages" json:"story_pages"`
	StoryImages []string    `firestore:"story_images" json:"story_images"`
	AudioFiles  []string    `firestore:"audio_files" json:"audio_files"`
	Private     bool        `firestore:"private" json:"private"`
	Likes       []string    `firestore:"likes" json:"likes"`
	Saves       []string    `firestore:"saves" json:"saves"`
	Status      StoryStatus `firestore:"status" json:"status"`
	Disability  string      `firestore:"disability,omitempty" json:"disability,omitempty"`
	// CreatedAt is an ISO-8601 (RFC 3339, UTC) timestamp assigned once at
	// creation. Kept as a string so lexicographic order equals time order.
	CreatedAt string `firestore:"createdAt" json:"createdAt"`
}

// StoryPost is the payload for creating a story from user-authored content.
type StoryPost struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Private     bool   `json:"private"`
}

// GenerateStoryRequest is the payload for the generation pipeline.
type GenerateStoryRequest struct {
	Prompt     string `json:"prompt" binding:"required"`
	Style      string `json:"style" binding:"required"`
	Private    bool   `json:"private"`
	Disability string `json:"disability,omitempty"`
}

// RecommendationResponse carries a prompt suggestion for a user. IsNewUser is
// set when the user has no indexed history to draw from.
type RecommendationResponse struct {
	Recommendation string `json:"recommendation"`
	IsNewUser      bool   `json:"is_new_user"`
}
