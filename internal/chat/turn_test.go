package chat

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyuchat/persona-ai-platform/internal/llm"
	"github.com/moyuchat/persona-ai-platform/internal/persona"
)

type fakeClient struct {
	res     llm.Result
	err     error
	lastReq llm.Request
	calls   int
}

func (f *fakeClient) GenerateStructured(_ context.Context, req llm.Request) (llm.Result, error) {
	f.lastReq = req
	f.calls++
	return f.res, f.err
}

func testPersona() *persona.Persona {
	return &persona.Persona{
		ID:           "p-1",
		Name:         "Luna",
		Favorability: 50,
		Profile: map[string]any{
			"personality": "curious and warm",
		},
	}
}

func TestProcessTurnApplied(t *testing.T) {
	client := &fakeClient{res: llm.Result{
		Raw:          []byte(`{"aiResponse":"  Hello!  ","favorability":62}`),
		FinishReason: llm.FinishStop,
	}}
	tp := NewTurnProcessor(client, time.Second, nil, nil)

	res := tp.ProcessTurn(context.Background(), TurnInput{
		Persona:     testPersona(),
		UserMessage: "hi",
	})

	assert.True(t, res.UpdateSucceeded)
	assert.Equal(t, "Hello!", res.AIResponse)
	assert.Equal(t, 62, res.Favorability)
}

func TestProcessTurnRejectsOutOfRangeFavorability(t *testing.T) {
	for _, value := range []int{-5, 101, 150} {
		t.Run(fmt.Sprintf("value_%d", value), func(t *testing.T) {
			client := &fakeClient{res: llm.Result{
				Raw:          []byte(fmt.Sprintf(`{"aiResponse":"ok","favorability":%d}`, value)),
				FinishReason: llm.FinishStop,
			}}
			tp := NewTurnProcessor(client, time.Second, nil, nil)

			res := tp.ProcessTurn(context.Background(), TurnInput{
				Persona:     testPersona(),
				UserMessage: "hi",
			})

			assert.False(t, res.UpdateSucceeded)
			assert.Equal(t, 50, res.Favorability, "prior value must be kept")
			assert.Contains(t, res.AIResponse, "unexpected format")
		})
	}
}

func TestProcessTurnMissingFields(t *testing.T) {
	client := &fakeClient{res: llm.Result{
		Raw:          []byte(`{"favorability":70}`),
		FinishReason: llm.FinishStop,
	}}
	tp := NewTurnProcessor(client, time.Second, nil, nil)

	res := tp.ProcessTurn(context.Background(), TurnInput{
		Persona:     testPersona(),
		UserMessage: "hi",
	})

	assert.False(t, res.UpdateSucceeded)
	assert.Equal(t, 50, res.Favorability)
	assert.Contains(t, res.AIResponse, "Luna")
}

func TestProcessTurnSafetyBlocked(t *testing.T) {
	client := &fakeClient{res: llm.Result{
		FinishReason: llm.FinishSafety,
		SafetyNotes:  "HARM_CATEGORY_HARASSMENT",
	}}
	tp := NewTurnProcessor(client, time.Second, nil, nil)

	res := tp.ProcessTurn(context.Background(), TurnInput{
		Persona:     testPersona(),
		UserMessage: "hi",
	})

	assert.False(t, res.UpdateSucceeded)
	assert.Equal(t, 50, res.Favorability)
	assert.Contains(t, res.AIResponse, "rather talk about something else")
	assert.Contains(t, res.AIResponse, "HARM_CATEGORY_HARASSMENT")
}

func TestProcessTurnTransportError(t *testing.T) {
	client := &fakeClient{err: fmt.Errorf("connection refused")}
	tp := NewTurnProcessor(client, time.Second, nil, nil)

	res := tp.ProcessTurn(context.Background(), TurnInput{
		Persona:     testPersona(),
		UserMessage: "hi",
	})

	assert.False(t, res.UpdateSucceeded)
	assert.Equal(t, 50, res.Favorability)
	assert.Contains(t, res.AIResponse, "connection refused")
}

func TestProcessTurnDefaultsAndOverrides(t *testing.T) {
	client := &fakeClient{res: llm.Result{
		Raw:          []byte(`{"aiResponse":"ok","favorability":55}`),
		FinishReason: llm.FinishStop,
	}}
	tp := NewTurnProcessor(client, time.Second, nil, nil)

	tp.ProcessTurn(context.Background(), TurnInput{
		Persona:     testPersona(),
		UserMessage: "hi",
	})
	assert.InDelta(t, 0.7, client.lastReq.Temperature, 1e-6)
	assert.Equal(t, int32(500), client.lastReq.MaxOutputTokens)

	temp := float32(0.2)
	maxLen := int32(128)
	tp.ProcessTurn(context.Background(), TurnInput{
		Persona:     testPersona(),
		UserMessage: "hi",
		Settings:    &Settings{Temperature: &temp, MaxLength: &maxLen},
	})
	assert.InDelta(t, 0.2, client.lastReq.Temperature, 1e-6)
	assert.Equal(t, int32(128), client.lastReq.MaxOutputTokens)
}

func TestProcessTurnHistoryTruncation(t *testing.T) {
	client := &fakeClient{res: llm.Result{
		Raw:          []byte(`{"aiResponse":"ok","favorability":55}`),
		FinishReason: llm.FinishStop,
	}}
	tp := NewTurnProcessor(client, time.Second, nil, nil)

	var history []Message
	for i := 0; i < 15; i++ {
		history = append(history, Message{
			Role:    RoleUser,
			Content: fmt.Sprintf("message-%d", i),
		})
	}

	tp.ProcessTurn(context.Background(), TurnInput{
		Persona:     testPersona(),
		History:     history,
		UserMessage: "hi",
	})

	assert.NotContains(t, client.lastReq.Prompt, "message-4")
	assert.Contains(t, client.lastReq.Prompt, "message-5")
	assert.Contains(t, client.lastReq.Prompt, "message-14")
}

func TestProcessTurnKeywordHints(t *testing.T) {
	client := &fakeClient{res: llm.Result{
		Raw:          []byte(`{"aiResponse":"ok","favorability":55}`),
		FinishReason: llm.FinishStop,
	}}
	tp := NewTurnProcessor(client, time.Second, nil, nil)

	tp.ProcessTurn(context.Background(), TurnInput{
		Persona:     testPersona(),
		UserMessage: "tell me about the lighthouse",
		ActiveKeywords: []MemoryKeyword{
			{Term: "lighthouse", Details: "Luna grew up next to a lighthouse.", Enabled: true},
		},
	})

	assert.Contains(t, client.lastReq.System, "lighthouse")
	assert.Contains(t, client.lastReq.System, "grew up next to a lighthouse")
}

func TestParseDataURL(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	img, ok := parseDataURL("data:image/png;base64," + payload)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, []byte("png-bytes"), img.Data)

	_, ok = parseDataURL("/uploads/avatars/a.png")
	assert.False(t, ok)
	_, ok = parseDataURL("data:image/png;base64,%%%")
	assert.False(t, ok)
}
