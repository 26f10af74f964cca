package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/moyuchat/persona-ai-platform/internal/llm"
	"github.com/moyuchat/persona-ai-platform/internal/observability/metrics"
	"github.com/moyuchat/persona-ai-platform/internal/persona"
	"github.com/moyuchat/persona-ai-platform/pkg/logging"
)

// calibrationTemperature keeps re-evaluation less creative than chat turns.
const calibrationTemperature = 0.5

// CalibrateInput is the context a calibration re-derives favorability from.
type CalibrateInput struct {
	Persona             *persona.Persona
	History             []Message
	CurrentFavorability int
	UserName            string
	LastUserMessage     string
}

// CalibrationResult always carries a well-defined favorability: the
// recalibrated value on success, the pre-calibration value otherwise.
type CalibrationResult struct {
	Favorability int `json:"favorability"`
}

var calibrationSchema = &llm.OutputSchema{
	Fields: []llm.SchemaField{
		{Name: "favorability", Type: llm.FieldInteger, Description: "The recalibrated favorability score (0-100)."},
	},
	Required: []string{"favorability"},
}

// Calibrator independently re-derives a favorability score suspected to be
// stuck. It never fails: any error falls back to the current value.
type Calibrator struct {
	client  llm.Client
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.ChatMetrics
}

// NewCalibrator creates a calibrator. A non-positive timeout falls back to
// the default generation wait.
func NewCalibrator(client llm.Client, timeout time.Duration, logger *logging.Logger, m *metrics.ChatMetrics) *Calibrator {
	if timeout <= 0 {
		timeout = defaultGenerationWait
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Calibrator{client: client, timeout: timeout, logger: logger, metrics: m}
}

// Calibrate re-evaluates favorability from the persona/history context
// without the incremental per-turn bias.
func (c *Calibrator) Calibrate(ctx context.Context, in CalibrateInput) CalibrationResult {
	userName := in.UserName
	if trimmed(userName) == "" {
		userName = defaultUserName
	}

	req := llm.Request{
		Prompt:      buildCalibrationPrompt(in.Persona, in.History, in.CurrentFavorability, userName, in.LastUserMessage),
		Temperature: calibrationTemperature,
		Schema:      calibrationSchema,
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	res, err := c.client.GenerateStructured(ctx, req)
	c.metrics.ObserveGenerationLatency("calibration", time.Since(start).Seconds())

	if err != nil {
		c.logger.Error("calibration generation failed", "persona", in.Persona.Name, "error", err)
		c.metrics.ObserveCalibration(metrics.CalibrationFailed)
		return CalibrationResult{Favorability: in.CurrentFavorability}
	}

	var decoded struct {
		Favorability *int `json:"favorability"`
	}
	malformed := len(res.Raw) == 0
	if !malformed {
		err := json.Unmarshal(res.Raw, &decoded)
		malformed = err != nil || decoded.Favorability == nil || !persona.ValidFavorability(*decoded.Favorability)
	}
	if malformed {
		c.logger.Warn("calibration output malformed",
			"persona", in.Persona.Name,
			"finish_reason", res.FinishReason,
		)
		c.metrics.ObserveCalibration(metrics.CalibrationFailed)
		return CalibrationResult{Favorability: in.CurrentFavorability}
	}

	if *decoded.Favorability == in.CurrentFavorability {
		c.metrics.ObserveCalibration(metrics.CalibrationUnchanged)
	} else {
		c.metrics.ObserveCalibration(metrics.CalibrationAdjusted)
	}
	return CalibrationResult{Favorability: *decoded.Favorability}
}
