package persona

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/moyuchat/persona-ai-platform/internal/llm"
)

const generatePersonaPrompt = `You are an AI that generates character personas based on a description.

Given the following description, create a detailed character persona:
%s

Respond with a single JSON object of this shape:
{
  "name": "the persona's name",
  "favorability": 50,
  "profile": {
    "age": 0,
    "identity": "occupation or role",
    "personality traits": [],
    "speaking style": [],
    "likes": [],
    "dislikes": [],
    "family background": "",
    "signature attire": "",
    "cinematic style": "how third-person scene descriptions should read"
  }
}
Ensure that the persona is creative, consistent and embodies the description provided.
Initialize "favorability" to a value between 0 and 100, defaulting to 50 if the description doesn't imply a specific level.
Return only valid JSON.`

const refinePersonaPrompt = `You are an AI that refines existing character personas.

Here is the current persona as JSON:
%s

Apply the following instructions to it:
%s

Respond with the complete updated persona as a JSON object with the same shape
("name", "favorability", "profile"). Keep every field the instructions do not
touch unchanged. Return only valid JSON.`

// generatedPersona is the wire shape both flows produce.
type generatedPersona struct {
	Name         string         `json:"name"`
	Favorability *int           `json:"favorability"`
	Profile      map[string]any `json:"profile"`
}

// Generator derives persona profiles from free-text descriptions.
type Generator struct {
	client llm.Client
}

// NewGenerator creates a persona generator on top of a structured client.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client}
}

// Generate creates a new persona from a description. The result is not
// persisted; callers store it through the Store.
func (g *Generator) Generate(ctx context.Context, description string) (*Persona, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, errors.New("persona: description is required")
	}

	res, err := g.client.GenerateStructured(ctx, llm.Request{
		Prompt:      fmt.Sprintf(generatePersonaPrompt, description),
		Temperature: -1,
	})
	if err != nil {
		return nil, fmt.Errorf("persona: generation failed: %w", err)
	}
	return decodeGenerated(res.Raw)
}

// Refine rewrites an existing persona according to free-text instructions.
// The persona's id and avatar are preserved.
func (g *Generator) Refine(ctx context.Context, p *Persona, instructions string) (*Persona, error) {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return nil, errors.New("persona: refine instructions are required")
	}
	if p == nil {
		return nil, errors.New("persona: persona is required")
	}

	current, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("persona: failed to encode persona: %w", err)
	}

	res, err := g.client.GenerateStructured(ctx, llm.Request{
		Prompt:      fmt.Sprintf(refinePersonaPrompt, current, instructions),
		Temperature: -1,
	})
	if err != nil {
		return nil, fmt.Errorf("persona: refinement failed: %w", err)
	}

	refined, err := decodeGenerated(res.Raw)
	if err != nil {
		return nil, err
	}
	refined.ID = p.ID
	refined.AvatarImage = p.AvatarImage
	return refined, nil
}

func decodeGenerated(raw []byte) (*Persona, error) {
	if len(raw) == 0 {
		return nil, errors.New("persona: model returned no output")
	}
	var gen generatedPersona
	if err := json.Unmarshal(raw, &gen); err != nil {
		return nil, fmt.Errorf("persona: model returned invalid JSON: %w", err)
	}
	if strings.TrimSpace(gen.Name) == "" {
		return nil, errors.New("persona: model output is missing a name")
	}

	favorability := DefaultFavorability
	if gen.Favorability != nil && ValidFavorability(*gen.Favorability) {
		favorability = *gen.Favorability
	}

	return &Persona{
		Name:         strings.TrimSpace(gen.Name),
		Favorability: favorability,
		Profile:      gen.Profile,
	}, nil
}
