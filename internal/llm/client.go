package llm

import "context"

// Finish reasons normalized across providers.
const (
	FinishStop      = "STOP"
	FinishSafety    = "SAFETY"
	FinishMaxTokens = "MAX_TOKENS"
)

// SafetySetting maps a harm category to a blocking threshold.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// FieldType is the JSON type of a schema field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
)

// SchemaField describes one property of a structured output object.
type SchemaField struct {
	Name        string
	Type        FieldType
	Description string
}

// OutputSchema constrains the model to a flat JSON object. A nil schema on a
// Request still forces JSON output, but leaves the shape to the prompt.
type OutputSchema struct {
	Fields   []SchemaField
	Required []string
}

// TokenUsage reports token counts for a generation call.
type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// InlineImage is an image attached to the current prompt.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// Request is a single structured-generation request.
type Request struct {
	System          string
	Prompt          string
	Images          []InlineImage
	Temperature     float32 // negative means provider default
	MaxOutputTokens int32
	Safety          []SafetySetting
	Schema          *OutputSchema
}

// Result carries the raw JSON the model produced. Raw may be empty when the
// provider blocked or truncated the output; FinishReason then says why.
type Result struct {
	Raw          []byte
	FinishReason string
	SafetyNotes  string
	Usage        TokenUsage
}

// Client generates structured (JSON) output from a prompt.
type Client interface {
	GenerateStructured(ctx context.Context, req Request) (Result, error)
}
