package chat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/moyuchat/persona-ai-platform/internal/llm"
	"github.com/moyuchat/persona-ai-platform/internal/observability/metrics"
	"github.com/moyuchat/persona-ai-platform/internal/persona"
	"github.com/moyuchat/persona-ai-platform/pkg/logging"
)

const (
	// historyLimit bounds the history suffix passed to generation.
	historyLimit = 10

	defaultTemperature    = 0.7
	defaultMaxLength      = 500
	defaultGenerationWait = 45 * time.Second
)

// Settings are optional per-session generation parameters.
type Settings struct {
	Temperature    *float32            `json:"temperature,omitempty"` // 0..1
	MaxLength      *int32              `json:"maxLength,omitempty"`   // 1..8192
	SafetySettings []llm.SafetySetting `json:"safetySettings,omitempty"`
}

// TurnInput is everything one chat turn needs.
type TurnInput struct {
	Persona        *persona.Persona
	History        []Message
	UserMessage    string
	UserImage      string // data URL, optional
	Settings       *Settings
	ActiveKeywords []MemoryKeyword
	UserName       string
	RolePlay       *RolePlaySettings
}

// TurnResult is the definite outcome of one turn. UpdateSucceeded
// distinguishes an applied favorability update from "keep the previous
// value".
type TurnResult struct {
	AIResponse      string `json:"aiResponse"`
	Favorability    int    `json:"favorability"`
	UpdateSucceeded bool   `json:"updateSucceeded"`
}

// turnOutput is the wire shape requested from the model.
type turnOutput struct {
	AIResponse   *string `json:"aiResponse"`
	Favorability *int    `json:"favorability"`
}

var turnSchema = &llm.OutputSchema{
	Fields: []llm.SchemaField{
		{Name: "aiResponse", Type: llm.FieldString, Description: "The AI-generated response text, including dialogue and scene descriptions."},
		{Name: "favorability", Type: llm.FieldInteger, Description: "The updated favorability level (0-100) of the persona after this interaction."},
	},
	Required: []string{"aiResponse", "favorability"},
}

// TurnProcessor executes chat turns against a structured-generation client.
// It never returns an error: every failure is folded into a diagnostic
// TurnResult that keeps the prior favorability.
type TurnProcessor struct {
	client  llm.Client
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.ChatMetrics
}

// NewTurnProcessor creates a turn processor. A non-positive timeout falls
// back to the default generation wait.
func NewTurnProcessor(client llm.Client, timeout time.Duration, logger *logging.Logger, m *metrics.ChatMetrics) *TurnProcessor {
	if timeout <= 0 {
		timeout = defaultGenerationWait
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TurnProcessor{client: client, timeout: timeout, logger: logger, metrics: m}
}

// ProcessTurn runs one turn and classifies the generation output into a
// definite state transition. See TurnResult.
func (tp *TurnProcessor) ProcessTurn(ctx context.Context, in TurnInput) TurnResult {
	name := in.Persona.Name

	userName := effectiveUserName(in.UserName, in.RolePlay)
	req := llm.Request{
		System:          buildTurnSystemPrompt(in.Persona, userName, in.RolePlay, in.ActiveKeywords),
		Prompt:          buildTurnPrompt(in.Persona, in.History, in.UserMessage, userName, in.UserImage != ""),
		Temperature:     defaultTemperature,
		MaxOutputTokens: defaultMaxLength,
		Safety:          llm.MergeSafetySettings(nil),
		Schema:          turnSchema,
	}
	if in.Settings != nil {
		if in.Settings.Temperature != nil {
			req.Temperature = *in.Settings.Temperature
		}
		if in.Settings.MaxLength != nil {
			req.MaxOutputTokens = *in.Settings.MaxLength
		}
		req.Safety = llm.MergeSafetySettings(in.Settings.SafetySettings)
	}
	if img, ok := parseDataURL(in.UserImage); ok {
		req.Images = append(req.Images, img)
	}

	ctx, cancel := context.WithTimeout(ctx, tp.timeout)
	defer cancel()

	start := time.Now()
	res, err := tp.client.GenerateStructured(ctx, req)
	tp.metrics.ObserveGenerationLatency("turn", time.Since(start).Seconds())

	if err != nil {
		tp.logger.Error("turn generation failed", "persona", name, "error", err)
		tp.metrics.ObserveTurn(metrics.TurnFailed)
		return TurnResult{
			AIResponse:   fmt.Sprintf("%s ran into a little trouble while thinking. Details: %v. Please try again later.", name, err),
			Favorability: in.Persona.Favorability,
		}
	}

	var out turnOutput
	if len(res.Raw) > 0 {
		if err := json.Unmarshal(res.Raw, &out); err != nil {
			tp.logger.Warn("turn output was not valid JSON", "persona", name, "error", err)
			out = turnOutput{}
		}
	}

	if out.AIResponse != nil && trimmed(*out.AIResponse) != "" &&
		out.Favorability != nil && persona.ValidFavorability(*out.Favorability) {
		tp.metrics.ObserveTurn(metrics.TurnApplied)
		return TurnResult{
			AIResponse:      trimmed(*out.AIResponse),
			Favorability:    *out.Favorability,
			UpdateSucceeded: true,
		}
	}

	// Out-of-range favorability is rejected, never clamped.
	tp.logger.Warn("turn output malformed",
		"persona", name,
		"finish_reason", res.FinishReason,
		"safety_notes", res.SafetyNotes,
	)
	tp.metrics.ObserveTurn(metrics.TurnMalformed)
	return TurnResult{
		AIResponse:   malformedDiagnostic(name, res),
		Favorability: in.Persona.Favorability,
	}
}

func malformedDiagnostic(name string, res llm.Result) string {
	switch res.FinishReason {
	case llm.FinishSafety:
		msg := fmt.Sprintf("%s felt this topic (%s) was not quite appropriate and would rather talk about something else.", name, res.FinishReason)
		if res.SafetyNotes != "" {
			msg += fmt.Sprintf(" Specific reason: %s.", res.SafetyNotes)
		}
		return msg
	case llm.FinishMaxTokens:
		return fmt.Sprintf("%s had so much to say it could not finish. Shall we pick this part up next time?", name)
	case llm.FinishStop, "":
		return fmt.Sprintf("%s returned data in an unexpected format, missing the reply or the favorability level.", name)
	default:
		return fmt.Sprintf("%s ran into a small problem (reason: %s), please try again later.", name, res.FinishReason)
	}
}

// parseDataURL decodes a base64 data URL into an inline image.
func parseDataURL(raw string) (llm.InlineImage, bool) {
	raw = trimmed(raw)
	if !strings.HasPrefix(raw, "data:") {
		return llm.InlineImage{}, false
	}
	meta, payload, found := strings.Cut(raw[len("data:"):], ",")
	if !found || !strings.HasSuffix(meta, ";base64") {
		return llm.InlineImage{}, false
	}
	mime := strings.TrimSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || mime == "" {
		return llm.InlineImage{}, false
	}
	return llm.InlineImage{MIMEType: mime, Data: data}, true
}
