package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/moyuchat/persona-ai-platform/internal/persona"
)

const defaultUserName = "Guest"

// RolePlaySettings carries the user's temporary identity and the style
// instruction for third-person scene descriptions.
type RolePlaySettings struct {
	UserGender        string `json:"userGender,omitempty"`
	UserRelationship  string `json:"userRelationship,omitempty"`
	UserTemporaryName string `json:"userTemporaryName,omitempty"`
	VisualNovelPrompt string `json:"visualNovelPrompt,omitempty"`
}

// effectiveUserName resolves the name the persona addresses the user by:
// temporary role-play name first, then profile name, then a default.
func effectiveUserName(userName string, rp *RolePlaySettings) string {
	if rp != nil && trimmed(rp.UserTemporaryName) != "" {
		return trimmed(rp.UserTemporaryName)
	}
	if trimmed(userName) != "" {
		return trimmed(userName)
	}
	return defaultUserName
}

func trimmed(s string) string { return strings.TrimSpace(s) }

// buildTurnSystemPrompt renders the persona instructions, role-play context,
// keyword hints and scene-description rules for one turn.
func buildTurnSystemPrompt(p *persona.Persona, userName string, rp *RolePlaySettings, keywords []MemoryKeyword) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an AI role-playing as %s.\n", p.Name)
	b.WriteString("Your responses should be consistent with this persona's traits, background, and speaking style.\n")
	b.WriteString("Engage with the user naturally based on their messages and the ongoing conversation.\n\n")

	fmt.Fprintf(&b, "The user's name is %q. Refer to them as such or by a nickname if the persona would.\n", userName)
	if rp != nil {
		if g := trimmed(rp.UserGender); g != "" {
			fmt.Fprintf(&b, "The user's chosen gender for this interaction is: %s.\n", g)
		}
		if rel := trimmed(rp.UserRelationship); rel != "" {
			fmt.Fprintf(&b, "The user describes their relationship to you or your world as: %q.\n", rel)
		}
	}

	fmt.Fprintf(&b, "\nThe persona's current favorability level towards the user is %d out of 100.\n", p.Favorability)
	b.WriteString("Based on the user's current message and the overall tone of the conversation, you MUST adjust this favorability level.\n")
	b.WriteString("- If the interaction is positive, increase it.\n")
	b.WriteString("- If the interaction is negative, decrease it.\n")
	b.WriteString("- If neutral, it may remain similar or change slightly.\n")
	b.WriteString("The favorability level must be an integer between 0 and 100.\n\n")

	b.WriteString("The persona details are:\n")
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	b.WriteString(renderProfile(p.Profile))

	if len(keywords) > 0 {
		b.WriteString("\nKey Information to Consider (Active Keywords):\n")
		b.WriteString("If the current conversation touches upon any of these keywords, naturally incorporate or be influenced by the details provided. Adapt this information to fit your persona and the conversational flow. Do not simply regurgitate the details.\n")
		for _, kw := range keywords {
			fmt.Fprintf(&b, "- Keyword: %q\n  Details: %q\n", kw.Term, kw.Details)
		}
	}

	b.WriteString("\nScene Descriptions:\n")
	b.WriteString("In addition to your dialogue, generate descriptive, third-person cinematic passages to enhance the visual novel experience, when appropriate.\n")
	if rp != nil && trimmed(rp.VisualNovelPrompt) != "" {
		instruction := strings.NewReplacer("{char}", p.Name, "{user}", userName).Replace(rp.VisualNovelPrompt)
		fmt.Fprintf(&b, "Follow these specific instructions for scene descriptions:\n%q\n", instruction)
	} else {
		fmt.Fprintf(&b, "These passages should be detailed, focusing on %s's expressions, actions, appearance, and the environment.\n", p.Name)
	}
	b.WriteString("Format them like this: <scene>: (your description here), woven naturally with your dialogue.\n")

	b.WriteString("\nRespond with a JSON object carrying your reply in \"aiResponse\" and the updated favorability level in \"favorability\". Do not add anything outside that JSON object.\n")

	return b.String()
}

// buildTurnPrompt renders the conversation transcript ending with the
// current user message.
func buildTurnPrompt(p *persona.Persona, history []Message, userMessage, userName string, hasImage bool) string {
	var b strings.Builder

	b.WriteString("Conversation History:\n")
	for _, m := range promptHistory(history, historyLimit) {
		b.WriteString(speakerPrefix(m.Role, userName, p.Name))
		b.WriteString(m.Content)
		if m.ImageURL != "" {
			b.WriteString(" [image attached]")
		}
		b.WriteString("\n")
	}
	b.WriteString("---\n")
	fmt.Fprintf(&b, "%s: %s", userName, userMessage)
	if hasImage {
		b.WriteString(" [image attached]")
	}
	fmt.Fprintf(&b, "\n%s:", p.Name)

	return b.String()
}

// buildCalibrationPrompt frames an independent re-evaluation of a favorability
// score suspected to be stuck.
func buildCalibrationPrompt(p *persona.Persona, history []Message, current int, userName, lastUserMessage string) string {
	var b strings.Builder

	b.WriteString("You are an AI assistant tasked with calibrating a character's favorability score (0-100).\n")
	b.WriteString("The character's details are:\n")
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	b.WriteString(renderProfile(p.Profile))

	fmt.Fprintf(&b, "\nThe user's name is %q.\n", userName)
	fmt.Fprintf(&b, "The character's current favorability towards the user is %d. This score seems to have been static or inaccurately reported recently, and needs re-evaluation.\n\n", current)

	b.WriteString("Based on the following recent conversation history:\n")
	for _, m := range promptHistory(history, historyLimit) {
		b.WriteString(speakerPrefix(m.Role, userName, p.Name))
		b.WriteString(m.Content)
		b.WriteString("\n")
	}

	b.WriteString("\nAnd the user's latest message in the main chat (which led to this calibration check):\n")
	if trimmed(lastUserMessage) != "" {
		fmt.Fprintf(&b, "%s: %s\n", userName, lastUserMessage)
	} else {
		b.WriteString("(No specific last user message provided for this calibration context)\n")
	}

	fmt.Fprintf(&b, "\nPlease re-evaluate and provide a new favorability level for %s towards %s.\n", p.Name, userName)
	b.WriteString("This new score should be an integer between 0 and 100.\n")
	b.WriteString("Respond with a JSON object with a single field \"favorability\". Do not add anything outside that JSON object.\n")

	return b.String()
}

func speakerPrefix(role, userName, personaName string) string {
	if role == RoleUser {
		return userName + ": "
	}
	return personaName + ": "
}

// renderProfile prints the opaque profile map as indented key/value lines in
// stable key order. Values are rendered, never interpreted.
func renderProfile(profile map[string]any) string {
	if len(profile) == 0 {
		return ""
	}
	keys := make([]string, 0, len(profile))
	for k := range profile {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, renderProfileValue(profile[k]))
	}
	return b.String()
}

func renderProfileValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, renderProfileValue(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, renderProfileValue(val[k])))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprintf("%v", val)
	}
}
