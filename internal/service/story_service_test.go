package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storytopia-server/internal/mocks"
	"storytopia-server/internal/models"
	"storytopia-server/internal/service"
	"storytopia-server/pkg/taskmanager"
)

type storyServiceFixture struct {
	stories   *mocks.MockStoryRepository
	users     *mocks.MockUserRepository
	generator *mocks.MockStoryContentGenerator
	renderer  *mocks.MockSceneRenderer
	narrator  *mocks.MockAudioSynthesizer
	augmenter *mocks.MockPromptAugmenter
	notifier  *mocks.MockNotifier
	tasks     *taskmanager.Manager
	svc       service.StoryService
}

func newStoryServiceFixture(t *testing.T) *storyServiceFixture {
	t.Helper()
	f := &storyServiceFixture{
		stories:   mocks.NewMockStoryRepository(t),
		users:     mocks.NewMockUserRepository(t),
		generator: mocks.NewMockStoryContentGenerator(t),
		renderer:  mocks.NewMockSceneRenderer(t),
		narrator:  mocks.NewMockAudioSynthesizer(t),
		augmenter: mocks.NewMockPromptAugmenter(t),
		notifier:  mocks.NewMockNotifier(t),
		tasks:     taskmanager.New(taskmanager.Config{MaxTasks: 4}),
	}
	t.Cleanup(f.tasks.Close)
	f.svc = service.NewStoryService(
		f.stories, f.users, f.generator, f.renderer, f.narrator,
		f.augmenter, f.notifier, f.tasks,
		service.PipelineTimeouts{TextGen: 5 * time.Second, ImageGen: 5 * time.Second, Synthesis: 5 * time.Second},
		zap.NewNop(),
	)
	return f
}

func testUser() *models.User {
	return &models.User{
		ID:           "user-1",
		Username:     "alice",
		Followers:    []string{},
		Following:    []string{},
		LikedBooks:   []string{},
		SavedBooks:   []string{},
		PublicBooks:  []string{},
		PrivateBooks: []string{},
	}
}

func testContent(n int) *models.StoryContent {
	content := &models.StoryContent{
		Prompt: "a fox who learns to fly",
		Title:  "The Flying Fox",
	}
	for i := 0; i < n; i++ {
		content.Scenes = append(content.Scenes, "scene")
		content.Summaries = append(content.Summaries, "summary")
	}
	return content
}

func makeURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = "https://cdn.example.com/asset"
	}
	return urls
}

func expectCreate(f *storyServiceFixture, id string) {
	f.stories.On("Create", mock.Anything, mock.AnythingOfType("*models.Story")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Story).ID = id
		}).Return(id, nil).Once()
}

func TestStoryService_GenerateStory_Success(t *testing.T) {
	f := newStoryServiceFixture(t)
	user := testUser()
	req := models.GenerateStoryRequest{Prompt: "a fox who learns to fly", Style: "watercolor"}
	content := testContent(10)

	expectCreate(f, "story-1")
	f.augmenter.On("Augment", mock.Anything, req.Prompt, "story-1").Return("").Once()
	f.generator.On("Generate", mock.Anything, req.Prompt, "").Return(content, nil).Once()
	f.renderer.On("Render", mock.Anything, "story-1", content.Scenes, "watercolor", "").
		Return(makeURLs(10), nil).Once()
	f.narrator.On("Synthesize", mock.Anything, content.Summaries).Return(makeURLs(10), nil).Once()
	f.stories.On("Update", mock.Anything, mock.AnythingOfType("*models.Story")).Return(nil)
	f.users.On("Update", mock.Anything, user).Return(nil).Once()
	f.augmenter.On("IndexStory", mock.Anything, "user-1", "story-1", mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "The Flying Fox")
	})).Return(nil).Once()
	f.notifier.On("NotifyStoryReady", mock.Anything, "user-1", "The Flying Fox", req.Prompt).Return(nil).Once()

	story, err := f.svc.GenerateStory(context.Background(), user, req)

	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, story.Status)
	assert.Equal(t, "The Flying Fox", story.Title)
	assert.Equal(t, req.Prompt, story.Description)
	assert.Len(t, story.StoryPages, 10)
	assert.Len(t, story.StoryImages, 10)
	assert.Len(t, story.AudioFiles, 10)
	assert.Contains(t, user.PublicBooks, "story-1")
	f.generator.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestStoryService_GenerateStory_AugmentedPromptPassedToGenerator(t *testing.T) {
	f := newStoryServiceFixture(t)
	user := testUser()
	req := models.GenerateStoryRequest{Prompt: "the moon landing", Style: "realistic"}
	content := testContent(10)

	expectCreate(f, "story-2")
	f.augmenter.On("Augment", mock.Anything, req.Prompt, "story-2").
		Return("Apollo 11 landed in 1969.").Once()
	f.generator.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, req.Prompt) && strings.Contains(prompt, "Apollo 11 landed in 1969.")
	}), "").Return(content, nil).Once()
	f.renderer.On("Render", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(makeURLs(10), nil).Once()
	f.narrator.On("Synthesize", mock.Anything, mock.Anything).Return(makeURLs(10), nil).Once()
	f.stories.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.users.On("Update", mock.Anything, mock.Anything).Return(nil).Once()
	f.augmenter.On("IndexStory", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.notifier.On("NotifyStoryReady", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	story, err := f.svc.GenerateStory(context.Background(), user, req)

	require.NoError(t, err)
	// The stored description is the user's prompt, not the augmented one.
	assert.Equal(t, req.Prompt, story.Description)
	f.generator.AssertExpectations(t)
}

func TestStoryService_GenerateStory_GenerationFailure(t *testing.T) {
	f := newStoryServiceFixture(t)
	user := testUser()
	req := models.GenerateStoryRequest{Prompt: "a doomed prompt", Style: "any"}

	expectCreate(f, "story-3")
	f.augmenter.On("Augment", mock.Anything, mock.Anything, mock.Anything).Return("").Once()
	f.generator.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, models.ErrContentInvalid).Once()
	f.stories.On("Update", mock.Anything, mock.AnythingOfType("*models.Story")).Return(nil)
	f.notifier.On("NotifyStoryFailed", mock.Anything, "user-1", req.Prompt, mock.Anything).Return(nil).Once()

	story, err := f.svc.GenerateStory(context.Background(), user, req)

	require.Error(t, err)
	assert.Nil(t, story)
	f.renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertExpectations(t)
}

func TestStoryService_GenerateStory_FailureAppendsDetailToDescription(t *testing.T) {
	f := newStoryServiceFixture(t)
	user := testUser()
	req := models.GenerateStoryRequest{Prompt: "a fox", Style: "any"}

	var failed *models.Story
	expectCreate(f, "story-4")
	f.augmenter.On("Augment", mock.Anything, mock.Anything, mock.Anything).Return("").Once()
	f.generator.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(testContent(10), nil).Once()
	f.renderer.On("Render", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, models.ErrMaxRetriesExceeded).Once()
	f.stories.On("Update", mock.Anything, mock.AnythingOfType("*models.Story")).
		Run(func(args mock.Arguments) {
			s := args.Get(1).(*models.Story)
			if s.Status == models.StatusError {
				failed = s
			}
		}).Return(nil)
	f.notifier.On("NotifyStoryFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.svc.GenerateStory(context.Background(), user, req)

	require.Error(t, err)
	require.NotNil(t, failed, "failure must be persisted with error status")
	assert.Contains(t, failed.Description, "a fox")
	assert.Contains(t, failed.Description, "Generation failed:")
}

func TestStoryService_GenerateStory_AudioFailureStillCompletes(t *testing.T) {
	f := newStoryServiceFixture(t)
	user := testUser()
	req := models.GenerateStoryRequest{Prompt: "a quiet story", Style: "ink"}
	content := testContent(10)

	expectCreate(f, "story-5")
	f.augmenter.On("Augment", mock.Anything, mock.Anything, mock.Anything).Return("").Once()
	f.generator.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(content, nil).Once()
	f.renderer.On("Render", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(makeURLs(10), nil).Once()
	f.narrator.On("Synthesize", mock.Anything, mock.Anything).
		Return(nil, errors.New("tts unavailable")).Once()
	f.stories.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.users.On("Update", mock.Anything, mock.Anything).Return(nil).Once()
	f.augmenter.On("IndexStory", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.notifier.On("NotifyStoryReady", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	story, err := f.svc.GenerateStory(context.Background(), user, req)

	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, story.Status)
	assert.Empty(t, story.AudioFiles, "audio stays empty so it can be regenerated later")
	f.notifier.AssertNotCalled(t, "NotifyStoryFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStoryService_GenerateStoryBackground_ReturnsPlaceholderImmediately(t *testing.T) {
	f := newStoryServiceFixture(t)
	user := testUser()
	req := models.GenerateStoryRequest{Prompt: "a slow story", Style: "pastel", Private: true}
	content := testContent(10)

	release := make(chan struct{})
	done := make(chan struct{})

	var pipelineStory *models.Story
	f.stories.On("Create", mock.Anything, mock.AnythingOfType("*models.Story")).
		Run(func(args mock.Arguments) {
			pipelineStory = args.Get(1).(*models.Story)
			pipelineStory.ID = "story-6"
		}).Return("story-6", nil).Once()
	f.augmenter.On("Augment", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).Return("").Once()
	f.generator.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(content, nil).Once()
	f.renderer.On("Render", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(makeURLs(10), nil).Once()
	f.narrator.On("Synthesize", mock.Anything, mock.Anything).Return(makeURLs(10), nil).Once()
	f.stories.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.users.On("Update", mock.Anything, mock.Anything).Return(nil).Once()
	f.augmenter.On("IndexStory", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.notifier.On("NotifyStoryReady", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { close(done) }).Return(nil).Once()

	story, err := f.svc.GenerateStoryBackground(context.Background(), user, req)

	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, story.Status)
	assert.Equal(t, req.Prompt, story.Description)
	assert.True(t, story.Private)

	close(release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("background pipeline did not finish")
	}
	assert.Equal(t, models.StatusComplete, pipelineStory.Status)
	assert.Contains(t, user.PrivateBooks, "story-6")
	// The caller's copy is detached from the running pipeline.
	assert.Equal(t, models.StatusCreated, story.Status)
}

func TestStoryService_GenerateStoryBackground_ReturnedStoryIsDetached(t *testing.T) {
	f := newStoryServiceFixture(t)
	user := testUser()
	req := models.GenerateStoryRequest{Prompt: "a racing story"}

	done := make(chan struct{})

	expectCreate(f, "story-7")
	f.augmenter.On("Augment", mock.Anything, mock.Anything, mock.Anything).Return("").Once()
	f.generator.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(testContent(10), nil).Once()
	f.renderer.On("Render", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(makeURLs(10), nil).Once()
	f.narrator.On("Synthesize", mock.Anything, mock.Anything).Return(makeURLs(10), nil).Once()
	f.stories.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.users.On("Update", mock.Anything, mock.Anything).Return(nil).Once()
	f.augmenter.On("IndexStory", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.notifier.On("NotifyStoryReady", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { close(done) }).Return(nil).Once()

	story, err := f.svc.GenerateStoryBackground(context.Background(), user, req)
	require.NoError(t, err)

	// Serialize the returned record while the pipeline runs, the way the
	// handler does. The race detector flags this if the pipeline still
	// shares the instance.
	for i := 0; i < 100; i++ {
		if _, err := json.Marshal(story); err != nil {
			t.Fatalf("marshal returned story: %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("background pipeline did not finish")
	}
	assert.Equal(t, models.StatusCreated, story.Status)
	assert.Empty(t, story.StoryPages)
}

func TestStoryService_GetStory_PrivateDeniedForOthers(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{ID: "story-1", AuthorID: "user-1", Private: true}
	f.stories.On("GetByID", mock.Anything, "story-1").Return(story, nil).Twice()

	_, err := f.svc.GetStory(context.Background(), "user-2", "story-1")
	assert.True(t, errors.Is(err, models.ErrStoryPrivate))

	got, err := f.svc.GetStory(context.Background(), "user-1", "story-1")
	require.NoError(t, err)
	assert.Equal(t, story, got)
}

func TestStoryService_GenerateAudioFiles_Idempotent(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{
		ID:         "story-1",
		StoryPages: []string{"page"},
		AudioFiles: []string{"https://cdn.example.com/audio.mp3"},
	}
	f.stories.On("GetByID", mock.Anything, "story-1").Return(story, nil).Once()

	got, err := f.svc.GenerateAudioFiles(context.Background(), "story-1")

	require.NoError(t, err)
	assert.Equal(t, story.AudioFiles, got.AudioFiles)
	f.narrator.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything)
	f.stories.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestStoryService_GenerateAudioFiles_SynthesizesMissingAudio(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{
		ID:         "story-1",
		StoryPages: []string{"page one", "page two"},
		AudioFiles: []string{},
	}
	f.stories.On("GetByID", mock.Anything, "story-1").Return(story, nil).Once()
	f.narrator.On("Synthesize", mock.Anything, story.StoryPages).Return(makeURLs(2), nil).Once()
	f.stories.On("Update", mock.Anything, story).Return(nil).Once()

	got, err := f.svc.GenerateAudioFiles(context.Background(), "story-1")

	require.NoError(t, err)
	assert.Len(t, got.AudioFiles, 2)
	f.narrator.AssertExpectations(t)
}

func TestStoryService_LikeUnlike_RoundTrip(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{ID: "story-1", Likes: []string{}, Saves: []string{}}
	user := testUser()
	f.stories.On("GetByID", mock.Anything, "story-1").Return(story, nil)
	f.users.On("GetByID", mock.Anything, "user-1").Return(user, nil)
	f.stories.On("Update", mock.Anything, story).Return(nil)
	f.users.On("Update", mock.Anything, user).Return(nil)

	require.NoError(t, f.svc.LikeStory(context.Background(), "user-1", "story-1"))
	assert.Equal(t, []string{"user-1"}, story.Likes)
	assert.Equal(t, []string{"story-1"}, user.LikedBooks)

	// Liking again is a no-op on both records.
	require.NoError(t, f.svc.LikeStory(context.Background(), "user-1", "story-1"))
	assert.Equal(t, []string{"user-1"}, story.Likes)
	assert.Equal(t, []string{"story-1"}, user.LikedBooks)

	require.NoError(t, f.svc.UnlikeStory(context.Background(), "user-1", "story-1"))
	assert.Empty(t, story.Likes)
	assert.Empty(t, user.LikedBooks)
}

func TestStoryService_SaveUnsave_RoundTrip(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{ID: "story-1", Likes: []string{}, Saves: []string{}}
	user := testUser()
	f.stories.On("GetByID", mock.Anything, "story-1").Return(story, nil)
	f.users.On("GetByID", mock.Anything, "user-1").Return(user, nil)
	f.stories.On("Update", mock.Anything, story).Return(nil)
	f.users.On("Update", mock.Anything, user).Return(nil)

	require.NoError(t, f.svc.SaveStory(context.Background(), "user-1", "story-1"))
	assert.Equal(t, []string{"user-1"}, story.Saves)
	assert.Equal(t, []string{"story-1"}, user.SavedBooks)

	require.NoError(t, f.svc.UnsaveStory(context.Background(), "user-1", "story-1"))
	assert.Empty(t, story.Saves)
	assert.Empty(t, user.SavedBooks)
}

func TestStoryService_Like_RevertsStoryOnUserUpdateFailure(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{ID: "story-1", Likes: []string{}}
	user := testUser()
	f.stories.On("GetByID", mock.Anything, "story-1").Return(story, nil).Once()
	f.users.On("GetByID", mock.Anything, "user-1").Return(user, nil).Once()
	f.stories.On("Update", mock.Anything, story).Return(nil).Twice()
	f.users.On("Update", mock.Anything, user).Return(errors.New("firestore unavailable")).Once()

	err := f.svc.LikeStory(context.Background(), "user-1", "story-1")

	require.Error(t, err)
	assert.Empty(t, story.Likes, "story-side change must be reverted")
	f.stories.AssertExpectations(t)
}

func TestStoryService_TogglePrivacy(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{ID: "story-1", AuthorID: "user-1", Private: false}
	user := testUser()
	user.PublicBooks = []string{"story-1"}
	f.stories.On("GetByID", mock.Anything, "story-1").Return(story, nil)
	f.users.On("GetByID", mock.Anything, "user-1").Return(user, nil)
	f.stories.On("Update", mock.Anything, story).Return(nil)
	f.users.On("Update", mock.Anything, user).Return(nil)

	got, err := f.svc.ToggleStoryPrivacy(context.Background(), "user-1", "story-1")
	require.NoError(t, err)
	assert.True(t, got.Private)
	assert.Empty(t, user.PublicBooks)
	assert.Equal(t, []string{"story-1"}, user.PrivateBooks)

	// Toggling twice restores the original state.
	got, err = f.svc.ToggleStoryPrivacy(context.Background(), "user-1", "story-1")
	require.NoError(t, err)
	assert.False(t, got.Private)
	assert.Equal(t, []string{"story-1"}, user.PublicBooks)
	assert.Empty(t, user.PrivateBooks)
}

func TestStoryService_TogglePrivacy_NonAuthorForbidden(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{ID: "story-1", AuthorID: "user-1", Private: false}
	f.stories.On("GetByID", mock.Anything, "story-1").Return(story, nil).Once()

	_, err := f.svc.ToggleStoryPrivacy(context.Background(), "user-2", "story-1")

	assert.True(t, errors.Is(err, models.ErrForbidden))
	f.stories.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestStoryService_GetRecentPublicStories_Pagination(t *testing.T) {
	f := newStoryServiceFixture(t)
	f.stories.On("ListRecentPublic", mock.Anything, 5, 5).Return([]*models.Story{}, nil).Once()

	_, err := f.svc.GetRecentPublicStories(context.Background(), 2, 5)

	require.NoError(t, err)
	f.stories.AssertExpectations(t)
}

func TestStoryService_GetRecentPublicStories_DropsFailedStories(t *testing.T) {
	f := newStoryServiceFixture(t)
	f.stories.On("ListRecentPublic", mock.Anything, 0, 10).Return([]*models.Story{
		{ID: "ok-1", Status: models.StatusComplete},
		{ID: "bad", Status: models.StatusError},
		{ID: "ok-2", Status: models.StatusComplete},
	}, nil).Once()

	stories, err := f.svc.GetRecentPublicStories(context.Background(), 1, 10)

	require.NoError(t, err)
	require.Len(t, stories, 2)
	assert.Equal(t, "ok-1", stories[0].ID)
	assert.Equal(t, "ok-2", stories[1].ID)
}

func TestStoryService_GetRecentPublicStories_ClampsBadInput(t *testing.T) {
	f := newStoryServiceFixture(t)
	f.stories.On("ListRecentPublic", mock.Anything, 0, 10).Return([]*models.Story{}, nil).Once()

	_, err := f.svc.GetRecentPublicStories(context.Background(), -3, 9999)

	require.NoError(t, err)
	f.stories.AssertExpectations(t)
}

func TestStoryService_GetRecommendations(t *testing.T) {
	f := newStoryServiceFixture(t)
	f.augmenter.On("Recommend", mock.Anything, "user-1").
		Return("a story about deep sea creatures", false, nil).Once()

	rec, err := f.svc.GetRecommendations(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "a story about deep sea creatures", rec.Recommendation)
	assert.False(t, rec.IsNewUser)
}

func TestStoryService_CreateStory(t *testing.T) {
	f := newStoryServiceFixture(t)
	user := testUser()
	post := models.StoryPost{Title: "My Story", Description: "hand-written", Private: true}

	expectCreate(f, "story-7")
	// The scheduled audio task may run before the test ends.
	f.stories.On("GetByID", mock.Anything, "story-7").
		Return(&models.Story{ID: "story-7", StoryPages: []string{}}, nil).Maybe()

	story, err := f.svc.CreateStory(context.Background(), user, post)

	require.NoError(t, err)
	assert.Equal(t, "My Story", story.Title)
	assert.Equal(t, "alice", story.Author)
	assert.Equal(t, models.StatusComplete, story.Status)
	assert.True(t, story.Private)
	assert.NotEmpty(t, story.CreatedAt)
}
