package service

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/ragdesk/ai"
	"github.com/hrygo/ragdesk/chat"
)

// TitleSuggester adapts the AI title generator to the dispatcher's Titler
// interface. It titles a conversation from its opening exchange.
type TitleSuggester struct {
	generator *ai.TitleGenerator
}

func NewTitleSuggester(generator *ai.TitleGenerator) *TitleSuggester {
	return &TitleSuggester{generator: generator}
}

// SuggestTitle derives a title from the first user message and the first
// assistant reply in the given messages.
func (t *TitleSuggester) SuggestTitle(ctx context.Context, messages []chat.Message) (string, error) {
	var userMessage, assistantReply string
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleUser:
			if userMessage == "" {
				userMessage = msg.Content
			}
		case chat.RoleAssistant:
			if assistantReply == "" {
				assistantReply = msg.Content
			}
		}
		if userMessage != "" && assistantReply != "" {
			break
		}
	}
	if userMessage == "" {
		return "", errors.New("no user message to title from")
	}
	return t.generator.Generate(ctx, userMessage, assistantReply)
}
