package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/ragdesk/ai"
	"github.com/hrygo/ragdesk/chat"
	"github.com/hrygo/ragdesk/store"
)

// MockLLM is a mock for ai.LLMService.
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

// MockChunkSearcher is a mock for chunkSearcher.
type MockChunkSearcher struct {
	mock.Mock
}

func (m *MockChunkSearcher) SearchDocumentChunks(ctx context.Context, opts *store.ChunkSearchOptions) ([]*store.DocumentChunkWithScore, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.DocumentChunkWithScore), args.Error(1)
}

func TestCompletion_General(t *testing.T) {
	ctx := context.Background()

	mockLLM := new(MockLLM)
	mockLLM.On("Chat", mock.Anything, mock.MatchedBy(func(messages []ai.Message) bool {
		// system + one history message + the new user message
		return len(messages) == 3 &&
			messages[0].Role == "system" &&
			messages[2].Content == "and now?"
	})).Return("an answer", nil)

	completion := NewCompletion(mockLLM, new(MockEmbedder), new(MockChunkSearcher), nil)
	result, err := completion.Send(ctx, &chat.CompletionRequest{
		Message: "and now?",
		History: []chat.Message{{Role: chat.RoleUser, Content: "earlier"}},
		Mode:    chat.ModeGeneral,
	})
	require.NoError(t, err)
	assert.Equal(t, "an answer", result.Content)
	assert.Empty(t, result.Sources)
	mockLLM.AssertExpectations(t)
}

func TestCompletion_Grounded(t *testing.T) {
	ctx := context.Background()

	mockEmbedder := new(MockEmbedder)
	mockEmbedder.On("Embed", mock.Anything, "what is the refund policy?").
		Return([]float32{0.1, 0.2, 0.3}, nil)

	hits := []*store.DocumentChunkWithScore{
		{
			Chunk:         &store.DocumentChunk{Content: "Refunds are issued within 14 days."},
			DocumentUID:   "doc-a",
			DocumentTitle: "Terms of Service",
			Score:         0.91,
		},
	}
	mockSearcher := new(MockChunkSearcher)
	mockSearcher.On("SearchDocumentChunks", mock.Anything, mock.MatchedBy(func(opts *store.ChunkSearchOptions) bool {
		return len(opts.DocumentUIDs) == 1 && opts.DocumentUIDs[0] == "doc-a" && opts.Limit == retrievalLimit
	})).Return(hits, nil)

	mockLLM := new(MockLLM)
	mockLLM.On("Chat", mock.Anything, mock.MatchedBy(func(messages []ai.Message) bool {
		return strings.Contains(messages[0].Content, "Terms of Service") &&
			strings.Contains(messages[0].Content, "Refunds are issued")
	})).Return("within 14 days", nil)

	completion := NewCompletion(mockLLM, mockEmbedder, mockSearcher, nil)
	result, err := completion.Send(ctx, &chat.CompletionRequest{
		Message:     "what is the refund policy?",
		Mode:        chat.ModeGrounded,
		DocumentIDs: []string{"doc-a"},
	})
	require.NoError(t, err)
	assert.Equal(t, "within 14 days", result.Content)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "doc-a", result.Sources[0].DocumentID)
	assert.Equal(t, "Terms of Service", result.Sources[0].Title)
	assert.InDelta(t, 0.91, result.Sources[0].Score, 0.001)
}

func TestToSources_ClampsNegativeScores(t *testing.T) {
	hits := []*store.DocumentChunkWithScore{
		{
			Chunk:         &store.DocumentChunk{Content: "unrelated text"},
			DocumentUID:   "doc-b",
			DocumentTitle: "Appendix",
			Score:         -0.13,
		},
		{
			Chunk:         &store.DocumentChunk{Content: "relevant text"},
			DocumentUID:   "doc-a",
			DocumentTitle: "Terms of Service",
			Score:         0.74,
		},
	}

	sources := toSources(hits)
	require.Len(t, sources, 2)
	assert.Equal(t, float32(0), sources[0].Score)
	assert.InDelta(t, 0.74, sources[1].Score, 0.001)
}

func TestCompletion_Grounded_RequiresDocuments(t *testing.T) {
	completion := NewCompletion(new(MockLLM), new(MockEmbedder), new(MockChunkSearcher), nil)
	_, err := completion.Send(context.Background(), &chat.CompletionRequest{
		Message: "hello",
		Mode:    chat.ModeGrounded,
	})
	assert.Error(t, err)
}

func TestCompletion_HistoryWindow(t *testing.T) {
	history := make([]chat.Message, historyWindow+10)
	for i := range history {
		history[i] = chat.Message{Role: chat.RoleUser, Content: "msg"}
	}
	messages := toLLMHistory(history)
	assert.Len(t, messages, historyWindow)
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("x", snippetRunes+50)
	s := snippet(long)
	assert.Equal(t, snippetRunes+1, len([]rune(s)))
	assert.True(t, strings.HasSuffix(s, "…"))

	assert.Equal(t, "short", snippet("short"))
}
