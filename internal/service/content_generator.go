package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storytopia-server/internal/models"
)

// TextGenerator is the text-model capability used by the pipeline.
// GenerateJSON produces the structured story document; Complete handles the
// secondary tasks (corrective re-prompts, description rewriting).
type TextGenerator interface {
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const generatorSystemPrompt = "You are a children's book author. You respond only with valid JSON matching the requested structure, with no additional commentary."

const repairSystemPrompt = "You are a helpful assistant that fixes JSON formatting and structure issues. Respond only with the corrected JSON."

// ContentGenerator turns a free-text prompt into a schema-validated
// StoryContent with a fixed number of scenes and summaries. Malformed model
// output is self-healed by re-prompting with the validation error.
type ContentGenerator struct {
	ai          TextGenerator
	sceneCount  int
	maxAttempts int
	logger      *zap.Logger
}

// NewContentGenerator creates a ContentGenerator. sceneCount is the required
// number of scenes/summaries; maxAttempts bounds generation plus self-heal
// re-prompts.
func NewContentGenerator(ai TextGenerator, sceneCount, maxAttempts int, logger *zap.Logger) *ContentGenerator {
	if sceneCount <= 0 {
		sceneCount = 10
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &ContentGenerator{
		ai:          ai,
		sceneCount:  sceneCount,
		maxAttempts: maxAttempts,
		logger:      logger.Named("content_generator"),
	}
}

// Generate produces validated story content for the prompt. The disability
// hint, when present, steers scene descriptions toward accessible imagery.
// No persistence happens here; the only side effects are the model calls.
func (g *ContentGenerator) Generate(ctx context.Context, prompt, disability string) (*models.StoryContent, error) {
	userPrompt := g.buildPrompt(prompt, disability)

	var lastRaw string
	var lastValidationErr error

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		var raw string
		var err error
		if attempt == 1 {
			raw, err = g.ai.GenerateJSON(ctx, generatorSystemPrompt, userPrompt)
		} else {
			// Self-heal: show the model its previous output together with
			// the specific validation error.
			raw, err = g.ai.Complete(ctx, repairSystemPrompt, g.buildRepairPrompt(prompt, lastRaw, lastValidationErr))
		}
		if err != nil {
			g.logger.Warn("Text model call failed",
				zap.Int("attempt", attempt), zap.Error(err))
			lastValidationErr = err
			MetricsIncrementGenerationRetried("model_error")
			continue
		}
		lastRaw = raw

		content, validationErr := g.validate(raw, prompt)
		if validationErr == nil {
			g.logger.Info("Story content generated",
				zap.Int("attempt", attempt),
				zap.String("title", content.Title))
			return content, nil
		}

		g.logger.Warn("Generated content failed validation",
			zap.Int("attempt", attempt),
			zap.Error(validationErr))
		lastValidationErr = validationErr
		MetricsIncrementGenerationRetried("validation_error")
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", models.ErrContentInvalid, g.maxAttempts, lastValidationErr)
}

// validate parses raw output and checks it against the shape contract. A
// drifted Prompt field is repaired locally rather than treated as a failure.
func (g *ContentGenerator) validate(raw, originalPrompt string) (*models.StoryContent, error) {
	var content models.StoryContent
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &content); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %v", err)
	}

	if content.Title == "" {
		return nil, fmt.Errorf("missing required key %q", "Title")
	}
	if len(content.Scenes) == 0 {
		return nil, fmt.Errorf("missing required key %q", "Scenes")
	}
	if len(content.Summaries) == 0 {
		return nil, fmt.Errorf("missing required key %q", "Summaries")
	}
	if len(content.Scenes) != g.sceneCount || len(content.Summaries) != g.sceneCount {
		return nil, fmt.Errorf("expected %d scenes and %d summaries, got %d and %d",
			g.sceneCount, g.sceneCount, len(content.Scenes), len(content.Summaries))
	}
	for i, s := range content.Scenes {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("scene %d is empty", i+1)
		}
	}
	for i, s := range content.Summaries {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("summary %d is empty", i+1)
		}
	}

	// Cheap repair: the echo of the original prompt is authoritative on our
	// side, so drift is overwritten instead of re-queried.
	if content.Prompt != originalPrompt {
		content.Prompt = originalPrompt
	}
	return &content, nil
}

func (g *ContentGenerator) buildPrompt(prompt, disability string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a picture book story title and %d scene descriptions based on the following prompt: %s\n\n", g.sceneCount, prompt)
	b.WriteString("The output must be a JSON object with this structure:\n")
	b.WriteString(`{
  "Prompt": "The original prompt, echoed verbatim",
  "Title": "The story title",
  "Scenes": ["Detailed scene 1 description", "..."],
  "Summaries": ["Scene 1 story text", "..."]
}
`)
	fmt.Fprintf(&b, "\nThere must be exactly %d entries in \"Scenes\" and exactly %d entries in \"Summaries\".\n", g.sceneCount, g.sceneCount)
	b.WriteString(`
For each detailed scene description in "Scenes":
- Focus on clear, visually descriptive elements that can be depicted in a single image.
- Include relevant visual details about characters, setting, and action.
- Ensure the scenes contribute to a cohesive and engaging narrative arc.
- Keep the description suitable for a general audience; avoid sensitive or controversial content.
- Do not reference copyrighted characters, logos, branded content, or real people.
- Do not include explicit violence, gore, or disturbing imagery.

For each story text in "Summaries":
- Provide 3 to 4 sentences per scene.
- Make it engaging, enjoyable and educational to read.
`)
	if disability != "" {
		fmt.Fprintf(&b, "\nThe reader has the following accessibility needs: %s. Adapt the scene descriptions so the resulting images remain clear for this reader (for example, avoid relying on color alone for meaning when the reader is color blind).\n", disability)
	}
	return b.String()
}

func (g *ContentGenerator) buildRepairPrompt(prompt, invalidOutput string, validationErr error) string {
	var b strings.Builder
	b.WriteString("The following text was supposed to be a valid JSON object describing a story, but it failed validation.\n")
	fmt.Fprintf(&b, "Validation error: %v\n\n", validationErr)
	b.WriteString("Required structure:\n")
	b.WriteString(`{
  "Prompt": "The original prompt, echoed verbatim",
  "Title": "The story title",
  "Scenes": ["Detailed scene 1 description", "..."],
  "Summaries": ["Scene 1 story text", "..."]
}
`)
	fmt.Fprintf(&b, "\nThe \"Prompt\" field must be exactly: %s\n", prompt)
	fmt.Fprintf(&b, "There must be exactly %d scenes and %d summaries.\n\n", g.sceneCount, g.sceneCount)
	fmt.Fprintf(&b, "Here is the invalid output:\n%s\n\n", invalidOutput)
	b.WriteString("Provide only the corrected JSON as your response, with no additional explanation.")
	return b.String()
}

// stripCodeFence removes a surrounding markdown code fence if the model
// wrapped its JSON in one.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
