package llm

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOpenAI struct {
	lastReq openai.ChatCompletionRequest
	resp    openai.ChatCompletionResponse
	err     error
}

func (s *stubOpenAI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.lastReq = req
	return s.resp, s.err
}

func newStubClient(stub *stubOpenAI) *OpenAIClient {
	return &OpenAIClient{api: stub, modelID: "test-model"}
}

func TestOpenAIGenerateStructured(t *testing.T) {
	stub := &stubOpenAI{
		resp: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Content: "Sure thing: {\"favorability\": 70}"},
				FinishReason: openai.FinishReasonStop,
			}},
			Usage: openai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		},
	}
	client := newStubClient(stub)

	res, err := client.GenerateStructured(context.Background(), Request{
		System:      "You calibrate scores.",
		Prompt:      "re-evaluate",
		Temperature: 0.5,
		Schema: &OutputSchema{
			Fields:   []SchemaField{{Name: "favorability", Type: FieldInteger}},
			Required: []string{"favorability"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, `{"favorability": 70}`, string(res.Raw))
	assert.Equal(t, FinishStop, res.FinishReason)
	assert.Equal(t, int32(15), res.Usage.TotalTokens)

	// The schema is enforced through the system prompt in JSON mode.
	require.NotEmpty(t, stub.lastReq.Messages)
	assert.Equal(t, openai.ChatMessageRoleSystem, stub.lastReq.Messages[0].Role)
	assert.Contains(t, stub.lastReq.Messages[0].Content, `"favorability" (integer)`)
	require.NotNil(t, stub.lastReq.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, stub.lastReq.ResponseFormat.Type)
}

func TestOpenAIGenerateStructuredError(t *testing.T) {
	stub := &stubOpenAI{err: errors.New("connection refused")}
	client := newStubClient(stub)

	_, err := client.GenerateStructured(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai generation failed")
}

func TestOpenAIFinishReasonMapping(t *testing.T) {
	tests := []struct {
		in   openai.FinishReason
		want string
	}{
		{openai.FinishReasonStop, FinishStop},
		{openai.FinishReasonLength, FinishMaxTokens},
		{openai.FinishReasonContentFilter, FinishSafety},
		{openai.FinishReason("weird"), "weird"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, openAIFinishReason(tt.in))
	}
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSONObject("Here you go:\n{\"a\":1}\nthanks"))
	assert.Equal(t, `{"a":1}`, extractJSONObject(`{"a":1}`))
	assert.Equal(t, "no braces", extractJSONObject("no braces"))
}

func TestNewOpenAIClientValidation(t *testing.T) {
	_, err := NewOpenAIClient("", "", "")
	require.Error(t, err)

	client, err := NewOpenAIClient("sk-test", "https://llm.internal/v1/", "")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", client.modelID)
}
