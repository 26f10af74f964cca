package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements Client using Google's Gemini API with JSON response
// mode.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiClient creates a new Gemini structured-generation client.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("llm: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("llm: failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		modelID: modelID,
	}, nil
}

// GenerateStructured sends a JSON-mode generation request to Gemini.
func (c *GeminiClient) GenerateStructured(ctx context.Context, req Request) (Result, error) {
	model := c.client.GenerativeModel(c.modelID)

	if req.Temperature >= 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(req.MaxOutputTokens)
	}

	model.ResponseMIMEType = "application/json"
	if req.Schema != nil {
		model.ResponseSchema = geminiSchema(req.Schema)
	}
	if len(req.Safety) > 0 {
		model.SafetySettings = geminiSafetySettings(req.Safety)
	}
	if system := strings.TrimSpace(req.System); system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	parts := make([]genai.Part, 0, 1+len(req.Images))
	parts = append(parts, genai.Text(req.Prompt))
	for _, img := range req.Images {
		parts = append(parts, genai.Blob{MIMEType: img.MIMEType, Data: img.Data})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return Result{}, fmt.Errorf("llm: gemini generation failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		// The prompt itself can be blocked before any candidate exists.
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return Result{
				FinishReason: FinishSafety,
				SafetyNotes:  resp.PromptFeedback.BlockReason.String(),
			}, nil
		}
		return Result{}, errors.New("llm: gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	result := Result{FinishReason: normalizeFinishReason(candidate.FinishReason)}
	result.SafetyNotes = blockedCategories(candidate.SafetyRatings)

	if candidate.Content != nil {
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
		result.Raw = []byte(strings.TrimSpace(text.String()))
	}

	if resp.UsageMetadata != nil {
		result.Usage = TokenUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}

	return result, nil
}

// Close releases resources held by the Gemini client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func normalizeFinishReason(reason genai.FinishReason) string {
	switch reason {
	case genai.FinishReasonStop:
		return FinishStop
	case genai.FinishReasonSafety:
		return FinishSafety
	case genai.FinishReasonMaxTokens:
		return FinishMaxTokens
	default:
		return reason.String()
	}
}

func blockedCategories(ratings []*genai.SafetyRating) string {
	var blocked []string
	for _, r := range ratings {
		if r != nil && r.Blocked {
			blocked = append(blocked, r.Category.String())
		}
	}
	return strings.Join(blocked, ", ")
}

func geminiSchema(schema *OutputSchema) *genai.Schema {
	properties := make(map[string]*genai.Schema, len(schema.Fields))
	for _, f := range schema.Fields {
		prop := &genai.Schema{Description: f.Description}
		switch f.Type {
		case FieldInteger:
			prop.Type = genai.TypeInteger
		default:
			prop.Type = genai.TypeString
		}
		properties[f.Name] = prop
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: properties,
		Required:   schema.Required,
	}
}

func geminiSafetySettings(settings []SafetySetting) []*genai.SafetySetting {
	out := make([]*genai.SafetySetting, 0, len(settings))
	for _, s := range settings {
		category, ok := geminiHarmCategory(s.Category)
		if !ok {
			continue
		}
		threshold, ok := geminiHarmThreshold(s.Threshold)
		if !ok {
			continue
		}
		out = append(out, &genai.SafetySetting{Category: category, Threshold: threshold})
	}
	return out
}

func geminiHarmCategory(category string) (genai.HarmCategory, bool) {
	switch category {
	case HarmCategoryHarassment:
		return genai.HarmCategoryHarassment, true
	case HarmCategoryHateSpeech:
		return genai.HarmCategoryHateSpeech, true
	case HarmCategorySexuallyExplicit:
		return genai.HarmCategorySexuallyExplicit, true
	case HarmCategoryDangerousContent:
		return genai.HarmCategoryDangerousContent, true
	default:
		// Categories the SDK has no enum for (e.g. civic integrity) are
		// dropped rather than sent with a bogus value.
		return 0, false
	}
}

func geminiHarmThreshold(threshold string) (genai.HarmBlockThreshold, bool) {
	switch threshold {
	case ThresholdBlockNone:
		return genai.HarmBlockNone, true
	case ThresholdBlockOnlyHigh:
		return genai.HarmBlockOnlyHigh, true
	case ThresholdBlockMediumAndAbove:
		return genai.HarmBlockMediumAndAbove, true
	case ThresholdBlockLowAndAbove:
		return genai.HarmBlockLowAndAbove, true
	default:
		return 0, false
	}
}
