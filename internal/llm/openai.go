package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// openAIAPI is the slice of the go-openai client we use, extracted so tests
// can stub it.
type openAIAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient implements Client against any OpenAI-compatible endpoint.
// A custom base URL covers the "custom OpenAI" provider option.
type OpenAIClient struct {
	api     openAIAPI
	modelID string
}

// NewOpenAIClient creates a structured-generation client for an
// OpenAI-compatible API.
func NewOpenAIClient(apiKey, baseURL, modelID string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("llm: openai api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gpt-4o-mini"
	}

	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}

	return &OpenAIClient{
		api:     openai.NewClientWithConfig(cfg),
		modelID: modelID,
	}, nil
}

// GenerateStructured sends a JSON-mode chat completion request.
func (c *OpenAIClient) GenerateStructured(ctx context.Context, req Request) (Result, error) {
	system := strings.TrimSpace(req.System)
	if req.Schema != nil {
		system = strings.TrimSpace(system + "\n\n" + schemaInstructions(req.Schema))
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	userMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(req.Images) == 0 {
		userMsg.Content = req.Prompt
	} else {
		// Vision input requires the multi-part content form.
		userMsg.MultiContent = append(userMsg.MultiContent, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: req.Prompt,
		})
		for _, img := range req.Images {
			userMsg.MultiContent = append(userMsg.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: dataURL(img),
				},
			})
		}
	}
	messages = append(messages, userMsg)

	completion := openai.ChatCompletionRequest{
		Model:    c.modelID,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if req.Temperature >= 0 {
		completion.Temperature = req.Temperature
	}
	if req.MaxOutputTokens > 0 {
		completion.MaxTokens = int(req.MaxOutputTokens)
	}

	resp, err := c.api.CreateChatCompletion(ctx, completion)
	if err != nil {
		return Result{}, fmt.Errorf("llm: openai generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, errors.New("llm: openai returned no choices")
	}

	choice := resp.Choices[0]
	result := Result{
		Raw:          []byte(extractJSONObject(choice.Message.Content)),
		FinishReason: openAIFinishReason(choice.FinishReason),
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}
	return result, nil
}

func openAIFinishReason(reason openai.FinishReason) string {
	switch reason {
	case openai.FinishReasonStop:
		return FinishStop
	case openai.FinishReasonLength:
		return FinishMaxTokens
	case openai.FinishReasonContentFilter:
		return FinishSafety
	default:
		return string(reason)
	}
}

func dataURL(img InlineImage) string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// extractJSONObject trims any stray prose around the outermost JSON object.
func extractJSONObject(content string) string {
	content = strings.TrimSpace(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}

func schemaInstructions(schema *OutputSchema) string {
	var b strings.Builder
	b.WriteString("Respond with a single JSON object containing exactly these fields:\n")
	for _, f := range schema.Fields {
		fmt.Fprintf(&b, "- %q (%s)", f.Name, f.Type)
		if f.Description != "" {
			b.WriteString(": " + f.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("Do not add any other fields, explanations, or commentary.")
	return b.String()
}
