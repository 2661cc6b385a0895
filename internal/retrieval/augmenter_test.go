package retrieval

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSearcher struct {
	articles   []Article
	searchErr  error
	extractErr error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]Article, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.articles, nil
}

func (f *fakeSearcher) FetchExtract(ctx context.Context, title string) (string, error) {
	if f.extractErr != nil {
		return "", f.extractErr
	}
	return "extract for " + title, nil
}

type fakeIndex struct {
	mu            sync.Mutex
	ensureErr     error
	addErr        error
	queryErr      error
	passages      []string
	addedScopes   []string
	deletedScopes []string
	addedDocs     map[string][]Document
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{addedDocs: map[string][]Document{}}
}

func (f *fakeIndex) EnsureIndex(ctx context.Context, scope string) error {
	return f.ensureErr
}

func (f *fakeIndex) AddDocuments(ctx context.Context, scope string, docs []Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.addedScopes = append(f.addedScopes, scope)
	f.addedDocs[scope] = append(f.addedDocs[scope], docs...)
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, scope, query string, topK int) ([]string, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.passages, nil
}

func (f *fakeIndex) DeleteAll(ctx context.Context, scope string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedScopes = append(f.deletedScopes, scope)
	return nil
}

type fakeAnswerer struct {
	response string
	err      error
}

func (f *fakeAnswerer) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestAugmenter_Augment_HappyPath(t *testing.T) {
	wiki := &fakeSearcher{articles: []Article{{Title: "Apollo 11"}, {Title: "Moon"}}}
	index := newFakeIndex()
	index.passages = []string{"Apollo 11 landed in 1969."}
	ai := &fakeAnswerer{response: "  The first Moon landing happened in 1969.  "}
	a := NewAugmenter(wiki, index, ai, 5, zap.NewNop())

	got := a.Augment(context.Background(), "the moon landing", "story-1")

	assert.Equal(t, "The first Moon landing happened in 1969.", got)
	require.Len(t, index.addedScopes, 1)
	assert.Equal(t, "ctx:story-1", index.addedScopes[0])
	assert.Len(t, index.addedDocs["ctx:story-1"], 2)
	// The transient scope is always cleaned up.
	assert.Equal(t, []string{"ctx:story-1"}, index.deletedScopes)
}

func TestAugmenter_Augment_SearchFailureYieldsEmpty(t *testing.T) {
	wiki := &fakeSearcher{searchErr: errors.New("wikipedia unavailable")}
	index := newFakeIndex()
	a := NewAugmenter(wiki, index, &fakeAnswerer{}, 5, zap.NewNop())

	got := a.Augment(context.Background(), "anything", "story-2")

	assert.Empty(t, got)
	// Cleanup still runs even when nothing was indexed.
	assert.Equal(t, []string{"ctx:story-2"}, index.deletedScopes)
}

func TestAugmenter_Augment_IndexFailureYieldsEmpty(t *testing.T) {
	wiki := &fakeSearcher{articles: []Article{{Title: "Foxes"}}}
	index := newFakeIndex()
	index.addErr = errors.New("redis down")
	a := NewAugmenter(wiki, index, &fakeAnswerer{}, 5, zap.NewNop())

	got := a.Augment(context.Background(), "a fox", "story-3")

	assert.Empty(t, got)
	assert.Equal(t, []string{"ctx:story-3"}, index.deletedScopes)
}

func TestAugmenter_Augment_DistillationFailureYieldsEmpty(t *testing.T) {
	wiki := &fakeSearcher{articles: []Article{{Title: "Foxes"}}}
	index := newFakeIndex()
	index.passages = []string{"foxes are canids"}
	a := NewAugmenter(wiki, index, &fakeAnswerer{err: errors.New("model error")}, 5, zap.NewNop())

	got := a.Augment(context.Background(), "a fox", "story-4")

	assert.Empty(t, got)
	assert.Equal(t, []string{"ctx:story-4"}, index.deletedScopes)
}

func TestAugmenter_Augment_AllExtractsFailYieldsEmpty(t *testing.T) {
	wiki := &fakeSearcher{
		articles:   []Article{{Title: "One"}, {Title: "Two"}},
		extractErr: errors.New("article gone"),
	}
	index := newFakeIndex()
	a := NewAugmenter(wiki, index, &fakeAnswerer{}, 5, zap.NewNop())

	got := a.Augment(context.Background(), "anything", "story-5")

	assert.Empty(t, got)
	assert.Empty(t, index.addedScopes, "nothing to index when every extract fails")
}

func TestAugmenter_IndexStory_UsesDurableUserScope(t *testing.T) {
	index := newFakeIndex()
	a := NewAugmenter(&fakeSearcher{}, index, &fakeAnswerer{}, 5, zap.NewNop())

	err := a.IndexStory(context.Background(), "user-1", "story-1", "The Flying Fox\npage text")

	require.NoError(t, err)
	require.Len(t, index.addedScopes, 1)
	assert.Equal(t, "user:user-1", index.addedScopes[0])
	docs := index.addedDocs["user:user-1"]
	require.Len(t, docs, 1)
	assert.Equal(t, "story-1", docs[0].ID)
	assert.True(t, strings.Contains(docs[0].Text, "The Flying Fox"))
	assert.Empty(t, index.deletedScopes, "durable scopes are never cleaned up")
}

func TestAugmenter_Recommend_NewUser(t *testing.T) {
	index := newFakeIndex()
	a := NewAugmenter(&fakeSearcher{}, index, &fakeAnswerer{}, 5, zap.NewNop())

	suggestion, isNewUser, err := a.Recommend(context.Background(), "user-1")

	require.NoError(t, err)
	assert.True(t, isNewUser)
	assert.NotEmpty(t, suggestion, "new users still get a usable prompt")
}

func TestAugmenter_Recommend_FromHistory(t *testing.T) {
	index := newFakeIndex()
	index.passages = []string{"a story about the ocean", "a story about whales"}
	ai := &fakeAnswerer{response: "a story about coral reefs"}
	a := NewAugmenter(&fakeSearcher{}, index, ai, 5, zap.NewNop())

	suggestion, isNewUser, err := a.Recommend(context.Background(), "user-1")

	require.NoError(t, err)
	assert.False(t, isNewUser)
	assert.Equal(t, "a story about coral reefs", suggestion)
}

func TestAugmenter_Recommend_QueryError(t *testing.T) {
	index := newFakeIndex()
	index.queryErr = errors.New("redis down")
	a := NewAugmenter(&fakeSearcher{}, index, &fakeAnswerer{}, 5, zap.NewNop())

	_, _, err := a.Recommend(context.Background(), "user-1")

	assert.Error(t, err)
}
