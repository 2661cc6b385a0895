package clients

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
)

// GoogleTTSClient synthesizes narration audio with Google Cloud
// Text-to-Speech. Pages are narrated with a neutral en-US voice as MP3.
type GoogleTTSClient struct {
	client *texttospeech.Client
}

// NewGoogleTTSClient wraps an initialized texttospeech client.
func NewGoogleTTSClient(client *texttospeech.Client) *GoogleTTSClient {
	return &GoogleTTSClient{client: client}
}

// Synthesize converts text to MP3 audio bytes.
func (c *GoogleTTSClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: "en-US",
			SsmlGender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	return resp.AudioContent, nil
}
