package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/ragdesk/store"
)

// MockCatalogStore is a mock for catalogStore.
type MockCatalogStore struct {
	mock.Mock
}

func (m *MockCatalogStore) CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error) {
	args := m.Called(ctx, create)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Document), args.Error(1)
}

func (m *MockCatalogStore) ListDocuments(ctx context.Context, find *store.FindDocument) ([]*store.Document, error) {
	args := m.Called(ctx, find)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Document), args.Error(1)
}

func (m *MockCatalogStore) UpdateDocument(ctx context.Context, update *store.UpdateDocument) (*store.Document, error) {
	args := m.Called(ctx, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Document), args.Error(1)
}

func (m *MockCatalogStore) DeleteDocument(ctx context.Context, delete *store.DeleteDocument) error {
	args := m.Called(ctx, delete)
	return args.Error(0)
}

func (m *MockCatalogStore) CreateDocumentChunk(ctx context.Context, create *store.DocumentChunk) (*store.DocumentChunk, error) {
	args := m.Called(ctx, create)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.DocumentChunk), args.Error(1)
}

func (m *MockCatalogStore) DeleteDocumentChunks(ctx context.Context, documentID int32) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

// MockEmbedder is a mock for ai.EmbeddingService.
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockEmbedder) Dimensions() int {
	args := m.Called()
	return args.Int(0)
}

func TestCatalog_Ingest(t *testing.T) {
	ctx := context.Background()

	t.Run("chunks, embeds and flips HasEmbedding", func(t *testing.T) {
		created := &store.Document{ID: 3, UID: "doc-uid", Title: "Handbook", CreatorID: 42}
		ready := &store.Document{ID: 3, UID: "doc-uid", Title: "Handbook", CreatorID: 42, HasEmbedding: true}

		mockStore := new(MockCatalogStore)
		mockStore.On("CreateDocument", ctx, mock.MatchedBy(func(d *store.Document) bool {
			return d.Title == "Handbook" && d.CreatorID == 42 && !d.HasEmbedding && d.WordCount == 3
		})).Return(created, nil)
		mockStore.On("CreateDocumentChunk", ctx, mock.MatchedBy(func(c *store.DocumentChunk) bool {
			return c.DocumentID == 3 && c.ChunkIndex == 0 && len(c.Embedding) == 2
		})).Return(&store.DocumentChunk{ID: 1}, nil)
		mockStore.On("UpdateDocument", ctx, mock.MatchedBy(func(u *store.UpdateDocument) bool {
			return u.ID == 3 && u.HasEmbedding != nil && *u.HasEmbedding
		})).Return(ready, nil)

		mockEmbedder := new(MockEmbedder)
		mockEmbedder.On("EmbedBatch", mock.Anything, []string{"short handbook text"}).
			Return([][]float32{{0.1, 0.2}}, nil)

		mockNotifications := new(MockNotificationStore)
		mockNotifications.On("CreateNotification", ctx, mock.MatchedBy(func(n *store.Notification) bool {
			return n.Kind == store.NotificationDocumentReady && n.UserID == 42
		})).Return(&store.Notification{ID: 1}, nil)

		catalog := NewCatalog(mockStore, mockEmbedder, NewNotificationService(mockNotifications, nil), nil)
		document, err := catalog.Ingest(ctx, &IngestRequest{
			CreatorID:   42,
			Title:       "Handbook",
			ContentType: "text/plain",
			Content:     "short handbook text",
		})
		require.NoError(t, err)
		assert.True(t, document.HasEmbedding)
		mockStore.AssertExpectations(t)
		mockNotifications.AssertExpectations(t)
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		catalog := NewCatalog(new(MockCatalogStore), new(MockEmbedder), nil, nil)
		_, err := catalog.Ingest(ctx, &IngestRequest{CreatorID: 42, Title: "Empty", Content: "   "})
		assert.Error(t, err)
	})

	t.Run("embedding failure leaves the document retryable", func(t *testing.T) {
		created := &store.Document{ID: 3, UID: "doc-uid", CreatorID: 42}
		mockStore := new(MockCatalogStore)
		mockStore.On("CreateDocument", ctx, mock.Anything).Return(created, nil)

		mockEmbedder := new(MockEmbedder)
		mockEmbedder.On("EmbedBatch", mock.Anything, mock.Anything).
			Return(nil, assert.AnError)

		catalog := NewCatalog(mockStore, mockEmbedder, nil, nil)
		document, err := catalog.Ingest(ctx, &IngestRequest{CreatorID: 42, Title: "Doc", Content: "some text"})
		require.Error(t, err)
		require.NotNil(t, document)
		assert.False(t, document.HasEmbedding)
		mockStore.AssertNotCalled(t, "UpdateDocument", mock.Anything, mock.Anything)
	})
}

func TestCatalog_List_Caches(t *testing.T) {
	ctx := context.Background()
	documents := []*store.Document{{ID: 1, UID: "doc-a"}}

	mockStore := new(MockCatalogStore)
	mockStore.On("ListDocuments", ctx, mock.Anything).Return(documents, nil).Once()

	catalog := NewCatalog(mockStore, new(MockEmbedder), nil, nil)

	first, err := catalog.List(ctx, 42)
	require.NoError(t, err)
	second, err := catalog.List(ctx, 42)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	mockStore.AssertExpectations(t)
}

func TestCatalog_SelectableRefs(t *testing.T) {
	ctx := context.Background()
	documents := []*store.Document{
		{ID: 1, UID: "doc-ready", Title: "Ready", WordCount: 1200, HasEmbedding: true},
		{ID: 2, UID: "doc-pending", Title: "Pending", HasEmbedding: false},
	}

	mockStore := new(MockCatalogStore)
	mockStore.On("ListDocuments", ctx, mock.Anything).Return(documents, nil)

	catalog := NewCatalog(mockStore, new(MockEmbedder), nil, nil)
	refs, err := catalog.SelectableRefs(ctx, 42)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "doc-ready", refs[0].ID)
	assert.Equal(t, int32(1200), refs[0].WordCount)
	assert.True(t, refs[0].HasEmbedding)
}

func TestCatalog_Delete(t *testing.T) {
	ctx := context.Background()
	document := &store.Document{ID: 3, UID: "doc-uid", CreatorID: 42}

	mockStore := new(MockCatalogStore)
	mockStore.On("ListDocuments", ctx, mock.Anything).Return([]*store.Document{document}, nil)
	mockStore.On("DeleteDocumentChunks", ctx, int32(3)).Return(nil)
	mockStore.On("DeleteDocument", ctx, &store.DeleteDocument{ID: 3}).Return(nil)

	catalog := NewCatalog(mockStore, new(MockEmbedder), nil, nil)
	require.NoError(t, catalog.Delete(ctx, "doc-uid"))
	mockStore.AssertExpectations(t)
}

func TestSplitChunks(t *testing.T) {
	t.Run("short text is a single chunk", func(t *testing.T) {
		chunks := splitChunks("hello world")
		require.Len(t, chunks, 1)
		assert.Equal(t, "hello world", chunks[0])
	})

	t.Run("long text overlaps across windows", func(t *testing.T) {
		text := strings.Repeat("a", chunkSize) + strings.Repeat("b", chunkSize)
		chunks := splitChunks(text)
		require.True(t, len(chunks) >= 2)

		// The second window starts chunkOverlap runes before the first ends.
		assert.Contains(t, chunks[1], "a")
		assert.Contains(t, chunks[1], "b")
	})
}
