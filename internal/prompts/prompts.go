// Package prompts builds the system and user prompts sent to the LLM for
// post, caption, and reply generation. The default persona is a generic
// creative social media author; operators can replace it wholesale with a
// persona file.
package prompts

import (
	"fmt"
	"os"
	"strings"
)

// defaultPersona is the system prompt used when no persona file is
// configured.
const defaultPersona = `You are a creative social media content creator.
Write engaging, authentic posts in a casual, conversational voice.
Be dynamic and avoid templates. Make everything feel natural and human,
never AI-generated. Stay friendly and safe for all audiences.`

// Persona holds the system prompt shared by every generation request.
type Persona struct {
	System string
}

// DefaultPersona returns the built-in persona.
func DefaultPersona() Persona {
	return Persona{System: defaultPersona}
}

// LoadPersona reads a persona file and returns it as the system prompt.
// An empty path returns the default persona.
func LoadPersona(path string) (Persona, error) {
	if path == "" {
		return DefaultPersona(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("load persona: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return DefaultPersona(), nil
	}
	return Persona{System: text}, nil
}

// PostUser builds the user prompt for a text post from a seed idea.
func PostUser(seed string) string {
	return fmt.Sprintf(`Create a single engaging social media post based on this seed idea:

%s

Requirements:
- Create ONE engaging post (not a thread)
- Maximum 500 characters
- Casual, conversational tone
- Make it authentic, interesting, and engaging
- Be creative and unique
- No numbering or formatting, just the post text
- No emojis unless needed for context
- Feel natural and human, not AI-generated`, seed)
}

// CaptionUser builds the user prompt for an image caption. The style hint
// comes from the configured prompt seeds.
func CaptionUser(style string) string {
	return fmt.Sprintf(`Analyze this image and create a SHORT caption (under 150 characters).

Style guide: %s

Requirements:
- MAXIMUM 150 characters
- One or two sentences max, punchy rather than long-winded
- Natural and human tone
- NO emojis
- Focus on what makes the image interesting or relatable`, style)
}

// ReplyUser builds the user prompt for replying to a comment under one of
// our own posts.
func ReplyUser(postText, commentText, username string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original post: %q\n\n", postText)
	fmt.Fprintf(&b, "Comment from user: %q\n", commentText)
	if username != "" {
		fmt.Fprintf(&b, "(Username: @%s)\n", username)
	}
	b.WriteString(`
Write a single short reply (max 160 characters) in your voice.
You can ask a small question or keep it as a playful statement.
Do NOT use emojis unless they feel very natural.
Keep it brief, engaging, and make the commenter feel noticed.`)
	return b.String()
}
