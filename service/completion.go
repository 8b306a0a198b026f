package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/hrygo/ragdesk/ai"
	"github.com/hrygo/ragdesk/chat"
	"github.com/hrygo/ragdesk/store"
)

const (
	// historyWindow caps how many prior messages are replayed to the model.
	historyWindow = 20

	// retrievalLimit is how many chunks a grounded completion retrieves.
	retrievalLimit = 5

	// snippetRunes caps the citation snippet length.
	snippetRunes = 200
)

const generalSystemPrompt = `You are a helpful assistant in a chat dashboard. Answer clearly and concisely.`

const groundedSystemPrompt = `You are a helpful assistant in a chat dashboard. Answer using ONLY the document excerpts provided in the context block. If the excerpts do not contain the answer, say so instead of guessing. Cite the document titles you used.`

// chunkSearcher is the vector search slice of the store.
type chunkSearcher interface {
	SearchDocumentChunks(ctx context.Context, opts *store.ChunkSearchOptions) ([]*store.DocumentChunkWithScore, error)
}

// Completion generates chat responses. General mode goes straight to the
// LLM; grounded mode retrieves chunks from the selected documents first and
// returns the retrieved chunks as citations.
type Completion struct {
	llm      ai.LLMService
	embedder ai.EmbeddingService
	searcher chunkSearcher
	limiter  *rate.Limiter
	logger   *slog.Logger
}

func NewCompletion(llm ai.LLMService, embedder ai.EmbeddingService, searcher chunkSearcher, logger *slog.Logger) *Completion {
	if logger == nil {
		logger = slog.Default()
	}
	return &Completion{
		llm:      llm,
		embedder: embedder,
		searcher: searcher,
		// Provider-side quota protection across all sessions.
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		logger:  logger,
	}
}

// Send runs one completion round-trip for the request.
func (c *Completion) Send(ctx context.Context, req *chat.CompletionRequest) (*chat.CompletionResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait aborted")
	}

	switch req.Mode {
	case chat.ModeGrounded:
		return c.sendGrounded(ctx, req)
	default:
		return c.sendGeneral(ctx, req)
	}
}

func (c *Completion) sendGeneral(ctx context.Context, req *chat.CompletionRequest) (*chat.CompletionResult, error) {
	messages := make([]ai.Message, 0, historyWindow+2)
	messages = append(messages, ai.SystemPrompt(generalSystemPrompt))
	messages = append(messages, toLLMHistory(req.History)...)
	messages = append(messages, ai.UserMessage(req.Message))

	content, err := c.llm.Chat(ctx, messages)
	if err != nil {
		return nil, errors.Wrap(err, "completion failed")
	}
	return &chat.CompletionResult{Content: content}, nil
}

func (c *Completion) sendGrounded(ctx context.Context, req *chat.CompletionRequest) (*chat.CompletionResult, error) {
	if len(req.DocumentIDs) == 0 {
		return nil, errors.New("grounded completion requires selected documents")
	}

	vector, err := c.embedder.Embed(ctx, req.Message)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed query")
	}

	hits, err := c.searcher.SearchDocumentChunks(ctx, &store.ChunkSearchOptions{
		Vector:       vector,
		DocumentUIDs: req.DocumentIDs,
		Limit:        retrievalLimit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "retrieval failed")
	}

	messages := make([]ai.Message, 0, historyWindow+2)
	messages = append(messages, ai.SystemPrompt(groundedSystemPrompt+"\n\n"+contextBlock(hits)))
	messages = append(messages, toLLMHistory(req.History)...)
	messages = append(messages, ai.UserMessage(req.Message))

	content, err := c.llm.Chat(ctx, messages)
	if err != nil {
		return nil, errors.Wrap(err, "completion failed")
	}

	return &chat.CompletionResult{
		Content: content,
		Sources: toSources(hits),
	}, nil
}

// contextBlock renders the retrieved chunks as the model's grounding context.
func contextBlock(hits []*store.DocumentChunkWithScore) string {
	if len(hits) == 0 {
		return "Context: no relevant excerpts were found in the selected documents."
	}
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, hit := range hits {
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, hit.DocumentTitle, hit.Chunk.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func toSources(hits []*store.DocumentChunkWithScore) []chat.Source {
	sources := make([]chat.Source, 0, len(hits))
	for _, hit := range hits {
		// Cosine similarity can go negative; citation scores stay in [0, 1].
		score := hit.Score
		if score < 0 {
			score = 0
		}
		sources = append(sources, chat.Source{
			DocumentID: hit.DocumentUID,
			Title:      hit.DocumentTitle,
			Snippet:    snippet(hit.Chunk.Content),
			Score:      score,
		})
	}
	return sources
}

func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetRunes {
		return content
	}
	return string(runes[:snippetRunes]) + "…"
}

func toLLMHistory(history []chat.Message) []ai.Message {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	messages := make([]ai.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case chat.RoleAssistant:
			messages = append(messages, ai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, ai.UserMessage(msg.Content))
		}
	}
	return messages
}
