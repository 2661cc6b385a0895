package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storytopia-server/internal/storage"
)

// SpeechSynthesizer is the text-to-speech capability.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Narrator produces one public audio URL per story page. Pages are
// independent, so synthesis is dispatched concurrently; collection is
// ordered (page i maps to audio i).
type Narrator struct {
	tts    SpeechSynthesizer
	store  storage.ObjectStore
	folder string
	logger *zap.Logger
}

// NewNarrator creates a Narrator uploading audio under folder.
func NewNarrator(tts SpeechSynthesizer, store storage.ObjectStore, folder string, logger *zap.Logger) *Narrator {
	return &Narrator{
		tts:    tts,
		store:  store,
		folder: folder,
		logger: logger.Named("narrator"),
	}
}

// Synthesize narrates every page. A failure on any page fails the whole
// batch; callers must not persist a partial result.
func (n *Narrator) Synthesize(ctx context.Context, pages []string) ([]string, error) {
	start := time.Now()
	urls := make([]string, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	for i, page := range pages {
		g.Go(func() error {
			audio, err := n.tts.Synthesize(gctx, page)
			if err != nil {
				return fmt.Errorf("failed to synthesize page %d: %w", i+1, err)
			}
			path := fmt.Sprintf("%s/%s.mp3", n.folder, uuid.NewString())
			url, err := n.store.UploadPublic(gctx, path, audio, "audio/mpeg")
			if err != nil {
				return fmt.Errorf("failed to upload audio for page %d: %w", i+1, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n.logger.Info("Narration synthesized",
		zap.Int("pages", len(pages)),
		zap.Duration("elapsed", time.Since(start)))
	return urls, nil
}
