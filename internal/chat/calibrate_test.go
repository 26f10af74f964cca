package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/moyuchat/persona-ai-platform/internal/llm"
)

func TestCalibrateAdjusts(t *testing.T) {
	client := &fakeClient{res: llm.Result{
		Raw:          []byte(`{"favorability":35}`),
		FinishReason: llm.FinishStop,
	}}
	c := NewCalibrator(client, time.Second, nil, nil)

	res := c.Calibrate(context.Background(), CalibrateInput{
		Persona:             testPersona(),
		CurrentFavorability: 50,
	})

	assert.Equal(t, 35, res.Favorability)
	assert.InDelta(t, 0.5, client.lastReq.Temperature, 1e-6)
}

func TestCalibrateFallsBackOnFailure(t *testing.T) {
	cases := []struct {
		name string
		res  llm.Result
		err  error
	}{
		{name: "transport error", err: fmt.Errorf("deadline exceeded")},
		{name: "empty output", res: llm.Result{FinishReason: llm.FinishStop}},
		{name: "not json", res: llm.Result{Raw: []byte("oops"), FinishReason: llm.FinishStop}},
		{name: "missing field", res: llm.Result{Raw: []byte(`{}`), FinishReason: llm.FinishStop}},
		{name: "out of range", res: llm.Result{Raw: []byte(`{"favorability":140}`), FinishReason: llm.FinishStop}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeClient{res: tc.res, err: tc.err}
			c := NewCalibrator(client, time.Second, nil, nil)

			res := c.Calibrate(context.Background(), CalibrateInput{
				Persona:             testPersona(),
				CurrentFavorability: 48,
			})

			assert.Equal(t, 48, res.Favorability, "must fall back to the current value")
		})
	}
}

func TestCalibratePromptMentionsLastMessage(t *testing.T) {
	client := &fakeClient{res: llm.Result{
		Raw:          []byte(`{"favorability":50}`),
		FinishReason: llm.FinishStop,
	}}
	c := NewCalibrator(client, time.Second, nil, nil)

	c.Calibrate(context.Background(), CalibrateInput{
		Persona:             testPersona(),
		CurrentFavorability: 50,
		UserName:            "Ava",
		LastUserMessage:     "do you still remember our trip?",
	})

	assert.Contains(t, client.lastReq.Prompt, "Ava: do you still remember our trip?")
	assert.Contains(t, client.lastReq.Prompt, "current favorability towards the user is 50")
}
