package service

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storytopia-server/internal/models"
	"storytopia-server/internal/storage"
)

// ImageGenerator is the image-model capability: prompt in, temporary URL out.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

const rewriteSystemPrompt = "You are a helpful assistant that rewrites image descriptions to avoid content policy violations while maintaining the essence of the original description. Respond only with the rewritten description."

// ImageRenderer renders one public image URL per scene description.
//
// Image generation failures are typically content-policy rejections specific
// to one scene's wording, so the retry policy is per scene: the offending
// description is rewritten by the text model before each retry instead of
// re-running the whole batch.
type ImageRenderer struct {
	ai              TextGenerator
	images          ImageGenerator
	store           storage.ObjectStore
	httpClient      *http.Client
	folder          string
	retriesPerScene int
	logger          *zap.Logger

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// NewImageRenderer creates an ImageRenderer. retriesPerScene is the number of
// retries after the first attempt.
func NewImageRenderer(
	ai TextGenerator,
	images ImageGenerator,
	store storage.ObjectStore,
	folder string,
	retriesPerScene int,
	logger *zap.Logger,
) *ImageRenderer {
	if retriesPerScene < 0 {
		retriesPerScene = 2
	}
	return &ImageRenderer{
		ai:              ai,
		images:          images,
		store:           store,
		httpClient:      &http.Client{Timeout: 60 * time.Second},
		folder:          folder,
		retriesPerScene: retriesPerScene,
		logger:          logger.Named("image_renderer"),
		sleep:           time.Sleep,
	}
}

// Render produces a public image URL per scene, in scene order. Any scene
// exhausting its retries fails the whole call; no partial list is returned.
func (r *ImageRenderer) Render(ctx context.Context, storyID string, scenes []string, style, disability string) ([]string, error) {
	start := time.Now()
	urls := make([]string, len(scenes))

	// Scenes are independent; each scene's retries stay sequential in place.
	g, gctx := errgroup.WithContext(ctx)
	for i, scene := range scenes {
		g.Go(func() error {
			url, err := r.renderScene(gctx, storyID, i, scene, style, disability)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, u := range urls {
		if u == "" {
			return nil, fmt.Errorf("%w: no image produced for scene %d", models.ErrCardinalityMismatch, i+1)
		}
	}

	r.logger.Info("All scene images rendered",
		zap.String("story_id", storyID),
		zap.Int("count", len(urls)),
		zap.Duration("elapsed", time.Since(start)))
	return urls, nil
}

func (r *ImageRenderer) renderScene(ctx context.Context, storyID string, index int, scene, style, disability string) (string, error) {
	description := scene
	var lastErr error

	for attempt := 0; attempt <= r.retriesPerScene; attempt++ {
		url, err := r.renderOnce(ctx, storyID, index, description, style, disability)
		if err == nil {
			return url, nil
		}
		lastErr = err
		r.logger.Warn("Scene image attempt failed",
			zap.String("story_id", storyID),
			zap.Int("scene", index+1),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt == r.retriesPerScene {
			break
		}
		// Once the stage deadline fires there is no point rewriting or
		// backing off for the remaining attempts.
		if ctx.Err() != nil {
			return "", fmt.Errorf("image generation for scene %d aborted: %w", index+1, ctx.Err())
		}

		MetricsIncrementImageRetried()
		rewritten, rewriteErr := r.RewriteDescription(ctx, description)
		if rewriteErr != nil {
			// Keep the current description when the rewrite itself fails.
			r.logger.Warn("Description rewrite failed",
				zap.Int("scene", index+1), zap.Error(rewriteErr))
		} else {
			description = rewritten
		}

		r.sleep(randomBackoff())
	}

	return "", fmt.Errorf("%w: failed to generate image for scene %d after %d attempts: %v",
		models.ErrMaxRetriesExceeded, index+1, r.retriesPerScene+1, lastErr)
}

func (r *ImageRenderer) renderOnce(ctx context.Context, storyID string, index int, description, style, disability string) (string, error) {
	prompt := r.buildPrompt(description, style, disability)

	tempURL, err := r.images.GenerateImage(ctx, prompt)
	if err != nil {
		return "", err
	}

	data, err := r.download(ctx, tempURL)
	if err != nil {
		return "", err
	}

	// Timestamp plus a short random suffix keeps regenerated scenes from
	// colliding in the bucket.
	timestamp := time.Now().Format("20060102150405")
	path := fmt.Sprintf("%s/%s/scene_%d_%s_%s.png",
		r.folder, storyID, index+1, timestamp, uuid.NewString()[:8])

	publicURL, err := r.store.UploadPublic(ctx, path, data, "image/png")
	if err != nil {
		return "", err
	}
	return publicURL, nil
}

// RewriteDescription asks the text model for a policy-safer rewording that
// preserves the scene's meaning.
func (r *ImageRenderer) RewriteDescription(ctx context.Context, description string) (string, error) {
	userPrompt := fmt.Sprintf("Please rewrite the following image description to avoid potential policy violations, while keeping the main idea intact: '%s'", description)
	rewritten, err := r.ai.Complete(ctx, rewriteSystemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(rewritten), nil
}

func (r *ImageRenderer) buildPrompt(description, style, disability string) string {
	var b strings.Builder
	b.WriteString(description)
	b.WriteString(" | Remove all dialogue and embedded text from the image.")
	fmt.Fprintf(&b, " Use this artistic style for the image: %s.", style)
	if disability != "" {
		fmt.Fprintf(&b, " The viewer has the following accessibility needs: %s. If this affects vision, such as color blindness, render the image so it remains easy to view.", disability)
	}
	return b.String()
}

func (r *ImageRenderer) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	return data, nil
}

// randomBackoff returns a jittered delay of one to three seconds.
func randomBackoff() time.Duration {
	return time.Duration(float64(time.Second) * (1 + 2*rand.Float64()))
}
