package llm

import (
	"strings"
	"unicode"
)

// unsafeKeywords flags generated text that must never be published.
// Substring match, lowercased input.
var unsafeKeywords = []string{
	"sex", "sexual", "nude", "naked", "porn", "xxx", "nsfw",
	"fuck", "bitch", "slut", "whore",
	"i'm a minor", "i am a minor", "i'm underage", "i am underage",
	"i'm under 18", "i am under 18",
}

// genericReplies are throwaway responses not worth posting.
var genericReplies = map[string]struct{}{
	"haha thanks": {}, "thanks": {}, "thank you": {}, "lol": {}, "haha": {},
	"ok": {}, "okay": {}, "cool": {}, "nice": {}, "yeah": {}, "yes": {}, "no": {},
	"sure": {}, "maybe": {}, "idk": {}, "i guess": {}, "i think so": {},
}

// IsUnsafeContent reports whether generated text contains content that must
// not be published.
func IsUnsafeContent(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range unsafeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsTooGeneric reports whether a generated reply is a throwaway response or
// too short to be worth posting.
func IsTooGeneric(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 10 {
		return true
	}
	_, generic := genericReplies[strings.ToLower(trimmed)]
	return generic
}

// CleanResponse strips surrounding quotes and leading numbering or bullets
// that models sometimes add despite instructions.
func CleanResponse(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, `"'`)
	text = strings.TrimSpace(text)

	if text == "" {
		return text
	}
	r := []rune(text)
	if unicode.IsDigit(r[0]) || r[0] == '-' {
		i := 0
		for i < len(r) && (unicode.IsDigit(r[i]) || r[i] == '.' || r[i] == ')' || r[i] == '-' || unicode.IsSpace(r[i])) {
			i++
		}
		if i < len(r) {
			return strings.TrimSpace(string(r[i:]))
		}
	}
	return text
}

// ClampLength cuts text to at most max characters, preferring a sentence
// boundary when one falls reasonably deep into the text, otherwise
// truncating with an ellipsis.
func ClampLength(text string, max int) string {
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	head := string(r[:max])
	if idx := strings.LastIndex(head, "."); idx > max/3 {
		return head[:idx+1]
	}
	return string(r[:max-3]) + "..."
}
