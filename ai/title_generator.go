package ai

import (
	"context"
	"strings"
	"time"
)

// Title generation parameters. Titles are display strings, so inputs are
// truncated hard and the output is clamped.
const (
	titleTimeout      = 15 * time.Second
	titleMaxInputLen  = 500
	titleMaxRuneCount = 50
)

const titleSystemPrompt = `You generate short titles for chat conversations.
Reply with the title only: no quotes, no trailing punctuation, at most eight words, in the language of the conversation.`

// TitleGenerator produces a human-readable title from the opening exchange
// of a conversation.
type TitleGenerator struct {
	llm LLMService
}

// NewTitleGenerator creates a title generator on top of the LLM service.
func NewTitleGenerator(llm LLMService) *TitleGenerator {
	return &TitleGenerator{llm: llm}
}

// Generate derives a title from the first user message and assistant reply.
func (tg *TitleGenerator) Generate(ctx context.Context, userMessage, assistantReply string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()

	prompt := "User message: " + truncate(userMessage, titleMaxInputLen) +
		"\n\nAssistant reply: " + truncate(assistantReply, titleMaxInputLen) +
		"\n\nGenerate a short title for this conversation."

	title, err := tg.llm.Chat(ctx, []Message{
		SystemPrompt(titleSystemPrompt),
		UserMessage(prompt),
	})
	if err != nil {
		return "", err
	}

	return clampTitle(title), nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// clampTitle strips quoting the model tends to add and bounds the length.
func clampTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.Trim(title, `"'`)
	title = strings.TrimSpace(title)

	runes := []rune(title)
	if len(runes) > titleMaxRuneCount {
		title = string(runes[:titleMaxRuneCount])
	}
	return title
}
