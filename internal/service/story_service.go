package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"storytopia-server/internal/models"
	"storytopia-server/internal/notification"
	"storytopia-server/internal/repository"
	"storytopia-server/pkg/taskmanager"
)

// StoryContentGenerator produces validated story content for a prompt.
type StoryContentGenerator interface {
	Generate(ctx context.Context, prompt, disability string) (*models.StoryContent, error)
}

// SceneRenderer turns scene descriptions into hosted image URLs, one per scene.
type SceneRenderer interface {
	Render(ctx context.Context, storyID string, scenes []string, style, disability string) ([]string, error)
}

// AudioSynthesizer narrates story pages into hosted audio URLs, one per page.
type AudioSynthesizer interface {
	Synthesize(ctx context.Context, pages []string) ([]string, error)
}

// PromptAugmenter enriches prompts with background material and maintains
// the per-user story index behind recommendations.
type PromptAugmenter interface {
	Augment(ctx context.Context, prompt, scope string) string
	IndexStory(ctx context.Context, authorID, storyID, text string) error
	Recommend(ctx context.Context, userID string) (string, bool, error)
}

// PipelineTimeouts bounds the individual stages of the generation pipeline.
type PipelineTimeouts struct {
	TextGen   time.Duration
	ImageGen  time.Duration
	Synthesis time.Duration
}

// StoryService owns story lifecycle and social operations.
type StoryService interface {
	// GenerateStoryBackground persists a placeholder story, schedules the
	// generation pipeline and returns the placeholder immediately. Clients
	// poll the story's status field for progress.
	GenerateStoryBackground(ctx context.Context, user *models.User, req models.GenerateStoryRequest) (*models.Story, error)
	// GenerateStory runs the full pipeline synchronously.
	GenerateStory(ctx context.Context, user *models.User, req models.GenerateStoryRequest) (*models.Story, error)
	// CreateStory persists a user-authored story without running generation.
	CreateStory(ctx context.Context, user *models.User, post models.StoryPost) (*models.Story, error)
	// GetStory returns ErrStoryPrivate when the story is private and the
	// requester is not its author.
	GetStory(ctx context.Context, requesterID, storyID string) (*models.Story, error)
	// GenerateAudioFiles narrates a story's pages. A story that already has
	// audio is returned unchanged.
	GenerateAudioFiles(ctx context.Context, storyID string) (*models.Story, error)

	LikeStory(ctx context.Context, userID, storyID string) error
	UnlikeStory(ctx context.Context, userID, storyID string) error
	SaveStory(ctx context.Context, userID, storyID string) error
	UnsaveStory(ctx context.Context, userID, storyID string) error
	// ToggleStoryPrivacy flips the story's privacy and moves its key between
	// the author's public and private book lists. Author only.
	ToggleStoryPrivacy(ctx context.Context, userID, storyID string) (*models.Story, error)

	GetRecentPublicStories(ctx context.Context, page, pageSize int) ([]*models.Story, error)
	GetRecommendations(ctx context.Context, userID string) (*models.RecommendationResponse, error)
}

type storyServiceImpl struct {
	stories   repository.StoryRepository
	users     repository.UserRepository
	generator StoryContentGenerator
	renderer  SceneRenderer
	narrator  AudioSynthesizer
	augmenter PromptAugmenter
	notifier  notification.Notifier
	tasks     *taskmanager.Manager
	timeouts  PipelineTimeouts
	logger    *zap.Logger
}

// NewStoryService creates the story service.
func NewStoryService(
	stories repository.StoryRepository,
	users repository.UserRepository,
	generator StoryContentGenerator,
	renderer SceneRenderer,
	narrator AudioSynthesizer,
	augmenter PromptAugmenter,
	notifier notification.Notifier,
	tasks *taskmanager.Manager,
	timeouts PipelineTimeouts,
	logger *zap.Logger,
) StoryService {
	return &storyServiceImpl{
		stories:   stories,
		users:     users,
		generator: generator,
		renderer:  renderer,
		narrator:  narrator,
		augmenter: augmenter,
		notifier:  notifier,
		tasks:     tasks,
		timeouts:  timeouts,
		logger:    logger.Named("story_service"),
	}
}

func (s *storyServiceImpl) GenerateStoryBackground(ctx context.Context, user *models.User, req models.GenerateStoryRequest) (*models.Story, error) {
	story := newPlaceholder(user, req)
	if _, err := s.stories.Create(ctx, story); err != nil {
		return nil, fmt.Errorf("failed to create placeholder story: %w", err)
	}

	taskID, err := s.tasks.Submit(ctx, user.ID, func(taskCtx context.Context) error {
		return s.runPipeline(taskCtx, story, user, req)
	})
	if err != nil {
		s.markFailed(ctx, story, req.Prompt, fmt.Sprintf("could not schedule generation: %v", err))
		return nil, fmt.Errorf("failed to schedule generation: %w", err)
	}
	s.logger.Info("Story generation scheduled",
		zap.String("story_id", story.ID),
		zap.String("user_id", user.ID),
		zap.String("task_id", taskID.String()))

	// The pipeline goroutine keeps mutating story; hand the caller a
	// detached snapshot so serializing the response never races with it.
	snapshot := *story
	return &snapshot, nil
}

func (s *storyServiceImpl) GenerateStory(ctx context.Context, user *models.User, req models.GenerateStoryRequest) (*models.Story, error) {
	story := newPlaceholder(user, req)
	if _, err := s.stories.Create(ctx, story); err != nil {
		return nil, fmt.Errorf("failed to create placeholder story: %w", err)
	}
	if err := s.runPipeline(ctx, story, user, req); err != nil {
		return nil, err
	}
	return story, nil
}

// runPipeline drives a placeholder story through generation to completion.
// Text and image failures are terminal; augmentation, narration, indexing
// and notification are best-effort.
func (s *storyServiceImpl) runPipeline(ctx context.Context, story *models.Story, user *models.User, req models.GenerateStoryRequest) error {
	MetricsIncrementPipelineStarted()
	log := s.logger.With(zap.String("story_id", story.ID), zap.String("user_id", user.ID))

	augCtx, cancelAug := context.WithTimeout(ctx, s.timeouts.TextGen)
	background := s.augmenter.Augment(augCtx, req.Prompt, story.ID)
	cancelAug()

	s.setStatus(ctx, story, models.StatusGenerating, log)

	prompt := req.Prompt
	if background != "" {
		prompt = fmt.Sprintf("%s\n\nBackground context:\n%s", req.Prompt, background)
	}

	genStart := time.Now()
	genCtx, cancelGen := context.WithTimeout(ctx, s.timeouts.TextGen)
	content, err := s.generator.Generate(genCtx, prompt, req.Disability)
	cancelGen()
	MetricsRecordStageDuration("generate", time.Since(genStart))
	if err != nil {
		log.Error("Story generation failed", zap.Error(err))
		s.markFailed(ctx, story, req.Prompt, err.Error())
		return err
	}

	s.setStatus(ctx, story, models.StatusRenderingImages, log)

	renderStart := time.Now()
	renderCtx, cancelRender := context.WithTimeout(ctx, s.timeouts.ImageGen)
	imageURLs, err := s.renderer.Render(renderCtx, story.ID, content.Scenes, req.Style, req.Disability)
	cancelRender()
	MetricsRecordStageDuration("render", time.Since(renderStart))
	if err != nil {
		log.Error("Image rendering failed", zap.Error(err))
		s.markFailed(ctx, story, req.Prompt, err.Error())
		return err
	}

	story.Title = content.Title
	story.Description = req.Prompt
	story.StoryPages = content.Summaries
	story.StoryImages = imageURLs
	story.Status = models.StatusSynthesizingAudio
	if err := s.stories.Update(ctx, story); err != nil {
		log.Error("Failed to persist generated story", zap.Error(err))
		s.markFailed(ctx, story, req.Prompt, fmt.Sprintf("could not persist story: %v", err))
		return err
	}

	s.addToBookList(ctx, user, story, log)

	synthStart := time.Now()
	synthCtx, cancelSynth := context.WithTimeout(ctx, s.timeouts.Synthesis)
	audioURLs, err := s.narrator.Synthesize(synthCtx, story.StoryPages)
	cancelSynth()
	MetricsRecordStageDuration("synthesize", time.Since(synthStart))
	if err != nil {
		// Narration failure is not terminal: the story stays readable and
		// audio can be regenerated later.
		log.Error("Audio synthesis failed, completing without narration", zap.Error(err))
	} else {
		story.AudioFiles = audioURLs
	}

	story.Status = models.StatusComplete
	if err := s.stories.Update(ctx, story); err != nil {
		log.Error("Failed to mark story complete", zap.Error(err))
		return fmt.Errorf("failed to mark story complete: %w", err)
	}

	indexText := story.Title + "\n" + strings.Join(story.StoryPages, "\n")
	if err := s.augmenter.IndexStory(ctx, story.AuthorID, story.ID, indexText); err != nil {
		log.Warn("Failed to index story for recommendations", zap.Error(err))
	}

	if err := s.notifier.NotifyStoryReady(ctx, user.ID, story.Title, story.Description); err != nil {
		log.Warn("Failed to send completion notification", zap.Error(err))
	}

	MetricsIncrementPipelineCompleted("complete")
	log.Info("Story generation complete", zap.Int("pages", len(story.StoryPages)))
	return nil
}

func (s *storyServiceImpl) setStatus(ctx context.Context, story *models.Story, status models.StoryStatus, log *zap.Logger) {
	story.Status = status
	if err := s.stories.Update(ctx, story); err != nil {
		log.Warn("Failed to persist story status", zap.String("status", string(status)), zap.Error(err))
	}
}

// markFailed records a terminal pipeline failure: the status flips to error,
// the failure detail is appended to the description so the record explains
// itself, and the author is notified.
func (s *storyServiceImpl) markFailed(ctx context.Context, story *models.Story, prompt, detail string) {
	story.Status = models.StatusError
	story.Description = fmt.Sprintf("%s\n\nGeneration failed: %s", prompt, detail)
	if err := s.stories.Update(ctx, story); err != nil {
		s.logger.Error("Failed to persist story failure",
			zap.String("story_id", story.ID), zap.Error(err))
	}
	if err := s.notifier.NotifyStoryFailed(ctx, story.AuthorID, prompt, detail); err != nil {
		s.logger.Warn("Failed to send failure notification",
			zap.String("story_id", story.ID), zap.Error(err))
	}
	MetricsIncrementPipelineCompleted("error")
}

// addToBookList records the finished story in the author's public or private
// book list. A failure here leaves the story intact and queryable, so it is
// logged rather than propagated.
func (s *storyServiceImpl) addToBookList(ctx context.Context, user *models.User, story *models.Story, log *zap.Logger) {
	if story.Private {
		user.PrivateBooks = models.AddKey(user.PrivateBooks, story.ID)
	} else {
		user.PublicBooks = models.AddKey(user.PublicBooks, story.ID)
	}
	if err := s.users.Update(ctx, user); err != nil {
		log.Error("Failed to add story to author's book list", zap.Error(err))
	}
}

func (s *storyServiceImpl) CreateStory(ctx context.Context, user *models.User, post models.StoryPost) (*models.Story, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	story := &models.Story{
		Title:       post.Title,
		Author:      user.Username,
		AuthorID:    user.ID,
		Description: post.Description,
		StoryPages:  []string{},
		StoryImages: []string{},
		AudioFiles:  []string{},
		Private:     post.Private,
		Likes:       []string{},
		Saves:       []string{},
		Status:      models.StatusComplete,
		CreatedAt:   now,
	}
	if _, err := s.stories.Create(ctx, story); err != nil {
		return nil, fmt.Errorf("failed to create story: %w", err)
	}

	if _, err := s.tasks.Submit(ctx, user.ID, func(taskCtx context.Context) error {
		_, audioErr := s.GenerateAudioFiles(taskCtx, story.ID)
		return audioErr
	}); err != nil {
		s.logger.Warn("Failed to schedule audio generation",
			zap.String("story_id", story.ID), zap.Error(err))
	}
	return story, nil
}

func (s *storyServiceImpl) GetStory(ctx context.Context, requesterID, storyID string) (*models.Story, error) {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.Private && story.AuthorID != requesterID {
		return nil, models.ErrStoryPrivate
	}
	return story, nil
}

func (s *storyServiceImpl) GenerateAudioFiles(ctx context.Context, storyID string) (*models.Story, error) {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if len(story.AudioFiles) > 0 {
		s.logger.Debug("Audio files already exist", zap.String("story_id", storyID))
		return story, nil
	}
	if len(story.StoryPages) == 0 {
		return story, nil
	}

	synthCtx, cancel := context.WithTimeout(ctx, s.timeouts.Synthesis)
	defer cancel()
	urls, err := s.narrator.Synthesize(synthCtx, story.StoryPages)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize narration: %w", err)
	}
	story.AudioFiles = urls
	if err := s.stories.Update(ctx, story); err != nil {
		return nil, fmt.Errorf("failed to persist audio files: %w", err)
	}
	return story, nil
}

func (s *storyServiceImpl) LikeStory(ctx context.Context, userID, storyID string) error {
	return s.updatePair(ctx, userID, storyID,
		func(story *models.Story, user *models.User) bool {
			if models.ContainsKey(story.Likes, userID) {
				return false
			}
			story.Likes = models.AddKey(story.Likes, userID)
			user.LikedBooks = models.AddKey(user.LikedBooks, storyID)
			return true
		},
		func(story *models.Story) {
			story.Likes = models.RemoveKey(story.Likes, userID)
		})
}

func (s *storyServiceImpl) UnlikeStory(ctx context.Context, userID, storyID string) error {
	return s.updatePair(ctx, userID, storyID,
		func(story *models.Story, user *models.User) bool {
			if !models.ContainsKey(story.Likes, userID) {
				return false
			}
			story.Likes = models.RemoveKey(story.Likes, userID)
			user.LikedBooks = models.RemoveKey(user.LikedBooks, storyID)
			return true
		},
		func(story *models.Story) {
			story.Likes = models.AddKey(story.Likes, userID)
		})
}

func (s *storyServiceImpl) SaveStory(ctx context.Context, userID, storyID string) error {
	return s.updatePair(ctx, userID, storyID,
		func(story *models.Story, user *models.User) bool {
			if models.ContainsKey(story.Saves, userID) {
				return false
			}
			story.Saves = models.AddKey(story.Saves, userID)
			user.SavedBooks = models.AddKey(user.SavedBooks, storyID)
			return true
		},
		func(story *models.Story) {
			story.Saves = models.RemoveKey(story.Saves, userID)
		})
}

func (s *storyServiceImpl) UnsaveStory(ctx context.Context, userID, storyID string) error {
	return s.updatePair(ctx, userID, storyID,
		func(story *models.Story, user *models.User) bool {
			if !models.ContainsKey(story.Saves, userID) {
				return false
			}
			story.Saves = models.RemoveKey(story.Saves, userID)
			user.SavedBooks = models.RemoveKey(user.SavedBooks, storyID)
			return true
		},
		func(story *models.Story) {
			story.Saves = models.AddKey(story.Saves, userID)
		})
}

// updatePair applies a mirrored mutation to a story and a user. The story is
// written first; if the user write fails, revert undoes the story-side change
// so the two records stay consistent. apply reports whether anything changed.
func (s *storyServiceImpl) updatePair(
	ctx context.Context,
	userID, storyID string,
	apply func(*models.Story, *models.User) bool,
	revert func(*models.Story),
) error {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !apply(story, user) {
		return nil
	}
	if err := s.stories.Update(ctx, story); err != nil {
		return fmt.Errorf("failed to update story: %w", err)
	}
	if err := s.users.Update(ctx, user); err != nil {
		revert(story)
		if revertErr := s.stories.Update(ctx, story); revertErr != nil {
			s.logger.Error("Failed to revert story after user update failure",
				zap.String("story_id", storyID),
				zap.String("user_id", userID),
				zap.Error(revertErr))
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *storyServiceImpl) ToggleStoryPrivacy(ctx context.Context, userID, storyID string) (*models.Story, error) {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.AuthorID != userID {
		return nil, models.ErrForbidden
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	wasPrivate := story.Private
	story.Private = !story.Private
	if story.Private {
		user.PublicBooks = models.RemoveKey(user.PublicBooks, storyID)
		user.PrivateBooks = models.AddKey(user.PrivateBooks, storyID)
	} else {
		user.PrivateBooks = models.RemoveKey(user.PrivateBooks, storyID)
		user.PublicBooks = models.AddKey(user.PublicBooks, storyID)
	}

	if err := s.stories.Update(ctx, story); err != nil {
		return nil, fmt.Errorf("failed to update story: %w", err)
	}
	if err := s.users.Update(ctx, user); err != nil {
		story.Private = wasPrivate
		if revertErr := s.stories.Update(ctx, story); revertErr != nil {
			s.logger.Error("Failed to revert story privacy after user update failure",
				zap.String("story_id", storyID), zap.Error(revertErr))
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return story, nil
}

func (s *storyServiceImpl) GetRecentPublicStories(ctx context.Context, page, pageSize int) ([]*models.Story, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 50 {
		pageSize = 10
	}
	stories, err := s.stories.ListRecentPublic(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	// Firestore can't combine a status inequality with ordering on createdAt,
	// so failed generations are dropped here.
	visible := make([]*models.Story, 0, len(stories))
	for _, story := range stories {
		if story.Status == models.StatusError {
			continue
		}
		visible = append(visible, story)
	}
	return visible, nil
}

func (s *storyServiceImpl) GetRecommendations(ctx context.Context, userID string) (*models.RecommendationResponse, error) {
	recommendation, isNewUser, err := s.augmenter.Recommend(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation: %w", err)
	}
	return &models.RecommendationResponse{
		Recommendation: recommendation,
		IsNewUser:      isNewUser,
	}, nil
}

func newPlaceholder(user *models.User, req models.GenerateStoryRequest) *models.Story {
	return &models.Story{
		Title:       "",
		Author:      user.Username,
		AuthorID:    user.ID,
		Description: req.Prompt,
		StoryPages:  []string{},
		StoryImages: []string{},
		AudioFiles:  []string{},
		Private:     req.Private,
		Likes:       []string{},
		Saves:       []string{},
		Status:      models.StatusCreated,
		Disability:  req.Disability,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
}
