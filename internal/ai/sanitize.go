package ai

import (
	"regexp"
	"strings"
)

// maxInputLength caps sanitized commands so a single message cannot blow
// up the prompt budget.
const maxInputLength = 500

var (
	roleInjectionRe = regexp.MustCompile(`(?i)system:|assistant:|user:`)
	thinkBlockRe    = regexp.MustCompile(`(?is)<think>.*?</think>`)
	thinkTagRe      = regexp.MustCompile(`(?i)</?think>`)
)

// noisePatterns match greetings, acknowledgements and small talk in
// Russian and English. Matching messages are ignored silently so no LLM
// budget is spent on conversational filler.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(привет|hello|hi|hey|здравствуй|добрый день|доброе утро|добрый вечер)$`),
	regexp.MustCompile(`(?i)^(спасибо|thanks|thank you|thx|благодарю)$`),
	regexp.MustCompile(`(?i)^(пока|bye|goodbye|до свидания)$`),
	regexp.MustCompile(`(?i)^(да|нет|yes|no|ок|ok|okay)$`),
	regexp.MustCompile(`(?i)^(как дела|how are you|что нового)$`),
	regexp.MustCompile(`(?i)^(ты тут|you there|есть кто|кто здесь)$`),
	regexp.MustCompile(`(?i)^(помощь|help|справка|\?)$`),
	regexp.MustCompile(`(?i)^(хм+|ммм+|эм+|um+|uh+)$`),
}

// SanitizeInput normalizes a raw user command before it reaches the LLM.
// It strips role-injection tokens and thinking tags, caps the length and
// trims whitespace. Returns "" when nothing usable remains.
func SanitizeInput(text string) string {
	if text == "" {
		return ""
	}

	sanitized := roleInjectionRe.ReplaceAllString(text, "")
	sanitized = thinkBlockRe.ReplaceAllString(sanitized, "")
	sanitized = thinkTagRe.ReplaceAllString(sanitized, "")

	runes := []rune(sanitized)
	if len(runes) > maxInputLength {
		sanitized = string(runes[:maxInputLength])
	}

	return strings.TrimSpace(sanitized)
}

// IsNoise reports whether text is a greeting or other small talk that
// should be ignored without calling the LLM. Texts shorter than 2
// characters are noise as well.
func IsNoise(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if len([]rune(normalized)) < 2 {
		return true
	}

	for _, pattern := range noisePatterns {
		if pattern.MatchString(normalized) {
			return true
		}
	}
	return false
}
