package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/ragdesk/ai"
	"github.com/hrygo/ragdesk/chat"
	"github.com/hrygo/ragdesk/store"
)

// ErrDocumentNotFound is returned when no document matches the UID.
var ErrDocumentNotFound = errors.New("document not found")

const (
	// catalogCacheTTL bounds how stale the document list shown in the
	// selection panel can get.
	catalogCacheTTL = time.Minute

	// Chunking parameters, in runes. Overlapping windows keep sentences
	// that straddle a boundary retrievable from both sides.
	chunkSize    = 1000
	chunkOverlap = 200

	// Embedding batches per provider request and concurrent requests
	// during ingest.
	embedBatchSize   = 16
	embedConcurrency = 4
)

// catalogStore is the slice of the store the catalog needs.
type catalogStore interface {
	CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error)
	ListDocuments(ctx context.Context, find *store.FindDocument) ([]*store.Document, error)
	UpdateDocument(ctx context.Context, update *store.UpdateDocument) (*store.Document, error)
	DeleteDocument(ctx context.Context, delete *store.DeleteDocument) error
	CreateDocumentChunk(ctx context.Context, create *store.DocumentChunk) (*store.DocumentChunk, error)
	DeleteDocumentChunks(ctx context.Context, documentID int32) error
}

// IngestRequest is an uploaded document handed to the ingest pipeline.
type IngestRequest struct {
	CreatorID   int32
	Title       string
	ContentType string
	Content     string
}

// Catalog manages the document inventory backing grounded chat: listing for
// the selection panel, the chunk-and-embed ingest pipeline and deletion.
type Catalog struct {
	store    catalogStore
	embedder ai.EmbeddingService
	notifier *NotificationService
	cache    *gocache.Cache
	logger   *slog.Logger
}

// NewCatalog creates a catalog. notifier may be nil; document-ready
// notifications are then skipped.
func NewCatalog(st catalogStore, embedder ai.EmbeddingService, notifier *NotificationService, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		store:    st,
		embedder: embedder,
		notifier: notifier,
		cache:    gocache.New(catalogCacheTTL, 5*time.Minute),
		logger:   logger,
	}
}

// List returns the creator's documents. Results are cached briefly because
// the selection panel polls this on every open.
func (c *Catalog) List(ctx context.Context, creatorID int32) ([]*store.Document, error) {
	cacheKey := catalogCacheKey(creatorID)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]*store.Document), nil
	}

	documents, err := c.store.ListDocuments(ctx, &store.FindDocument{CreatorID: &creatorID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	c.cache.Set(cacheKey, documents, gocache.DefaultExpiration)
	return documents, nil
}

// Get returns a single document by UID.
func (c *Catalog) Get(ctx context.Context, uid string) (*store.Document, error) {
	documents, err := c.store.ListDocuments(ctx, &store.FindDocument{UID: &uid})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find document %s", uid)
	}
	if len(documents) == 0 {
		return nil, ErrDocumentNotFound
	}
	return documents[0], nil
}

// SelectableRefs returns the creator's embedded documents as selection
// candidates for grounded chat.
func (c *Catalog) SelectableRefs(ctx context.Context, creatorID int32) ([]chat.DocumentRef, error) {
	documents, err := c.List(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	refs := make([]chat.DocumentRef, 0, len(documents))
	for _, doc := range documents {
		if !doc.HasEmbedding {
			continue
		}
		refs = append(refs, toDocumentRef(doc))
	}
	return refs, nil
}

// Ingest stores the document, chunks and embeds its content and flips
// HasEmbedding once the document became selectable. On embedding failure the
// document row stays with HasEmbedding=false so ingest can be retried.
func (c *Catalog) Ingest(ctx context.Context, req *IngestRequest) (*store.Document, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, errors.New("document content cannot be empty")
	}

	now := time.Now().Unix()
	document, err := c.store.CreateDocument(ctx, &store.Document{
		UID:           shortuuid.New(),
		Title:         req.Title,
		ContentType:   req.ContentType,
		FileSizeBytes: int64(len(content)),
		WordCount:     int32(len(strings.Fields(content))),
		CreatorID:     req.CreatorID,
		CreatedTs:     now,
		UpdatedTs:     now,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create document")
	}
	c.cache.Delete(catalogCacheKey(req.CreatorID))

	chunks := splitChunks(content)
	vectors, err := c.embedChunks(ctx, chunks)
	if err != nil {
		return document, errors.Wrapf(err, "failed to embed document %s", document.UID)
	}

	for i, chunk := range chunks {
		_, err := c.store.CreateDocumentChunk(ctx, &store.DocumentChunk{
			DocumentID: document.ID,
			ChunkIndex: int32(i),
			Content:    chunk,
			Embedding:  vectors[i],
			CreatedTs:  now,
		})
		if err != nil {
			return document, errors.Wrapf(err, "failed to store chunk %d of document %s", i, document.UID)
		}
	}

	hasEmbedding := true
	updatedTs := time.Now().Unix()
	updated, err := c.store.UpdateDocument(ctx, &store.UpdateDocument{
		ID:           document.ID,
		HasEmbedding: &hasEmbedding,
		UpdatedTs:    &updatedTs,
	})
	if err != nil {
		return document, errors.Wrapf(err, "failed to finalize document %s", document.UID)
	}
	document = updated
	c.cache.Delete(catalogCacheKey(req.CreatorID))

	c.logger.Info("document ingested",
		"document", document.UID,
		"chunks", len(chunks),
		"words", document.WordCount,
	)

	if c.notifier != nil {
		if err := c.notifier.Notify(ctx, req.CreatorID, store.NotificationDocumentReady,
			"Document ready", fmt.Sprintf("%q is now available for grounded chat.", document.Title)); err != nil {
			c.logger.Warn("failed to notify document ready", "document", document.UID, "error", err)
		}
	}
	return document, nil
}

// Delete removes the document and its chunks.
func (c *Catalog) Delete(ctx context.Context, uid string) error {
	document, err := c.Get(ctx, uid)
	if err != nil {
		return err
	}
	if err := c.store.DeleteDocumentChunks(ctx, document.ID); err != nil {
		return errors.Wrapf(err, "failed to delete chunks of document %s", uid)
	}
	if err := c.store.DeleteDocument(ctx, &store.DeleteDocument{ID: document.ID}); err != nil {
		return errors.Wrapf(err, "failed to delete document %s", uid)
	}
	c.cache.Delete(catalogCacheKey(document.CreatorID))
	return nil
}

// embedChunks embeds all chunks in bounded parallel batches, preserving
// chunk order in the result.
func (c *Catalog) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		start, end := start, end
		g.Go(func() error {
			batch, err := c.embedder.EmbedBatch(gctx, chunks[start:end])
			if err != nil {
				return err
			}
			if len(batch) != end-start {
				return errors.Errorf("embedding batch size mismatch: want %d, got %d", end-start, len(batch))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// splitChunks splits text into overlapping rune windows. Windows that end up
// all whitespace are dropped.
func splitChunks(text string) []string {
	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - chunkOverlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func toDocumentRef(doc *store.Document) chat.DocumentRef {
	ref := chat.DocumentRef{
		ID:            doc.UID,
		Title:         doc.Title,
		ContentType:   doc.ContentType,
		FileSizeBytes: doc.FileSizeBytes,
		WordCount:     doc.WordCount,
		HasEmbedding:  doc.HasEmbedding,
		UploadedTs:    doc.CreatedTs,
	}
	if doc.Summary != nil {
		ref.Summary = *doc.Summary
	}
	return ref
}

func catalogCacheKey(creatorID int32) string {
	return fmt.Sprintf("documents:%d", creatorID)
}
