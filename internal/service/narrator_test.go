package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storytopia-server/internal/mocks"
	"storytopia-server/internal/service"
)

func TestNarrator_Synthesize_OneURLPerPage(t *testing.T) {
	tts := mocks.NewMockSpeechSynthesizer(t)
	store := mocks.NewMockObjectStore(t)
	narrator := service.NewNarrator(tts, store, "storytopia_audio", zap.NewNop())

	pages := []string{"page one text", "page two text", "page three text"}
	for _, page := range pages {
		tts.On("Synthesize", mock.Anything, page).Return([]byte("mp3-"+page), nil).Once()
	}
	store.On("UploadPublic", mock.Anything, mock.MatchedBy(func(path string) bool {
		return len(path) > len("storytopia_audio/") && path[:len("storytopia_audio/")] == "storytopia_audio/"
	}), mock.Anything, "audio/mpeg").Return("https://cdn.example.com/audio.mp3", nil).Times(3)

	urls, err := narrator.Synthesize(context.Background(), pages)

	require.NoError(t, err)
	require.Len(t, urls, 3)
	for i, u := range urls {
		assert.NotEmpty(t, u, "page %d url", i+1)
	}
	tts.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestNarrator_Synthesize_FailsWholeBatch(t *testing.T) {
	tts := mocks.NewMockSpeechSynthesizer(t)
	store := mocks.NewMockObjectStore(t)
	narrator := service.NewNarrator(tts, store, "storytopia_audio", zap.NewNop())

	tts.On("Synthesize", mock.Anything, mock.Anything).
		Return(nil, errors.New("synthesis quota exceeded")).Maybe()
	store.On("UploadPublic", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("https://cdn.example.com/audio.mp3", nil).Maybe()

	urls, err := narrator.Synthesize(context.Background(), []string{"one", "two"})

	require.Error(t, err)
	assert.Nil(t, urls, "no partial result on failure")
}

func TestNarrator_Synthesize_EmptyPages(t *testing.T) {
	tts := mocks.NewMockSpeechSynthesizer(t)
	store := mocks.NewMockObjectStore(t)
	narrator := service.NewNarrator(tts, store, "storytopia_audio", zap.NewNop())

	urls, err := narrator.Synthesize(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, urls)
}
