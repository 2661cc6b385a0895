package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Searcher finds background articles for a prompt.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Article, error)
	FetchExtract(ctx context.Context, title string) (string, error)
}

// Index is the retrieval/index capability the augmenter builds on.
type Index interface {
	EnsureIndex(ctx context.Context, scope string) error
	AddDocuments(ctx context.Context, scope string, docs []Document) error
	Query(ctx context.Context, scope, query string, topK int) ([]string, error)
	DeleteAll(ctx context.Context, scope string) error
}

// Answerer distills retrieved passages into usable text.
type Answerer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const augmentSystemPrompt = "You are a research assistant. Given background passages and a story prompt, produce a short factual summary of the background most relevant to the prompt. Respond with the summary only."

const recommendSystemPrompt = "You are a creative assistant. Given summaries of stories a user has generated before, suggest one new story prompt they would enjoy. Respond with the prompt suggestion only."

// Augmenter enriches generation prompts with external background material
// and maintains the durable per-user index behind prompt recommendations.
// Every stage of the transient lookup is best-effort: a failure is logged
// and generation proceeds without context.
type Augmenter struct {
	wiki        Searcher
	index       Index
	ai          Answerer
	searchLimit int
	logger      *zap.Logger
}

// NewAugmenter creates an Augmenter. searchLimit bounds the number of
// candidate articles per lookup.
func NewAugmenter(wiki Searcher, index Index, ai Answerer, searchLimit int, logger *zap.Logger) *Augmenter {
	if searchLimit <= 0 {
		searchLimit = 5
	}
	return &Augmenter{
		wiki:        wiki,
		index:       index,
		ai:          ai,
		searchLimit: searchLimit,
		logger:      logger.Named("augmenter"),
	}
}

// Augment looks up background material for prompt in a transient index named
// after scope and returns a relevant summary, or "" when any stage fails.
// The transient index contents are always deleted before returning,
// regardless of outcome, so one-shot lookups cannot accumulate storage.
func (a *Augmenter) Augment(ctx context.Context, prompt, scope string) string {
	transientScope := "ctx:" + scope
	defer func() {
		if err := a.index.DeleteAll(ctx, transientScope); err != nil {
			a.logger.Warn("Failed to clean up transient index",
				zap.String("scope", transientScope), zap.Error(err))
		}
	}()

	articles, err := a.wiki.Search(ctx, prompt, a.searchLimit)
	if err != nil {
		a.logger.Warn("Background search failed, continuing without context", zap.Error(err))
		return ""
	}
	if len(articles) == 0 {
		return ""
	}

	docs := make([]Document, 0, len(articles))
	for i, art := range articles {
		extract, err := a.wiki.FetchExtract(ctx, art.Title)
		if err != nil {
			a.logger.Warn("Failed to fetch article extract, skipping",
				zap.String("title", art.Title), zap.Error(err))
			continue
		}
		docs = append(docs, Document{ID: fmt.Sprintf("art-%d", i), Text: extract})
	}
	if len(docs) == 0 {
		return ""
	}

	if err := a.index.EnsureIndex(ctx, transientScope); err != nil {
		a.logger.Warn("Failed to set up transient index, continuing without context", zap.Error(err))
		return ""
	}
	if err := a.index.AddDocuments(ctx, transientScope, docs); err != nil {
		a.logger.Warn("Failed to index background material, continuing without context", zap.Error(err))
		return ""
	}

	passages, err := a.index.Query(ctx, transientScope, prompt, 3)
	if err != nil {
		a.logger.Warn("Transient index query failed, continuing without context", zap.Error(err))
		return ""
	}
	if len(passages) == 0 {
		return ""
	}

	userPrompt := fmt.Sprintf("Story prompt: %s\n\nBackground passages:\n%s", prompt, strings.Join(passages, "\n---\n"))
	summary, err := a.ai.Complete(ctx, augmentSystemPrompt, userPrompt)
	if err != nil {
		a.logger.Warn("Context distillation failed, continuing without context", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(summary)
}

// IndexStory upserts a finished story's text into the author's durable
// index, keyed by author id, feeding the recommendation feature.
func (a *Augmenter) IndexStory(ctx context.Context, authorID, storyID, text string) error {
	scope := userScope(authorID)
	if err := a.index.EnsureIndex(ctx, scope); err != nil {
		return fmt.Errorf("failed to set up user index: %w", err)
	}
	if err := a.index.AddDocuments(ctx, scope, []Document{{ID: storyID, Text: text}}); err != nil {
		return fmt.Errorf("failed to index story: %w", err)
	}
	return nil
}

// Recommend suggests a next prompt from the user's story history. The second
// return value is true for a new user with no indexed history.
func (a *Augmenter) Recommend(ctx context.Context, userID string) (string, bool, error) {
	passages, err := a.index.Query(ctx, userScope(userID), "themes and topics of these stories", 5)
	if err != nil {
		return "", false, fmt.Errorf("failed to query user index: %w", err)
	}
	if len(passages) == 0 {
		return "Tell me about a topic you love, and I'll turn it into a story!", true, nil
	}

	userPrompt := fmt.Sprintf("Previously generated stories:\n%s", strings.Join(passages, "\n---\n"))
	suggestion, err := a.ai.Complete(ctx, recommendSystemPrompt, userPrompt)
	if err != nil {
		return "", false, fmt.Errorf("failed to generate recommendation: %w", err)
	}
	return strings.TrimSpace(suggestion), false, nil
}

func userScope(userID string) string { return "user:" + userID }
