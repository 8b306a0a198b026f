package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/ragdesk/service"
	"github.com/hrygo/ragdesk/store"
)

// maxDocumentBytes caps uploaded document content.
const maxDocumentBytes = 4 << 20

// DocumentService exposes the document catalog: listing for the selection
// panel, text ingest and deletion.
type DocumentService struct {
	Catalog *service.Catalog
}

func (s *DocumentService) Register(g *echo.Group) {
	g.GET("/documents", s.ListDocuments)
	g.POST("/documents", s.CreateDocument)
	g.DELETE("/documents/:id", s.DeleteDocument)
}

type documentResponse struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	ContentType   string  `json:"contentType"`
	Summary       *string `json:"summary,omitempty"`
	FileSizeBytes int64   `json:"fileSizeBytes"`
	WordCount     int32   `json:"wordCount"`
	HasEmbedding  bool    `json:"hasEmbedding"`
	CreatedTs     int64   `json:"createdTs"`
}

func toDocumentResponse(d *store.Document) documentResponse {
	return documentResponse{
		ID:            d.UID,
		Title:         d.Title,
		ContentType:   d.ContentType,
		Summary:       d.Summary,
		FileSizeBytes: d.FileSizeBytes,
		WordCount:     d.WordCount,
		HasEmbedding:  d.HasEmbedding,
		CreatedTs:     d.CreatedTs,
	}
}

// ListDocuments returns the user's documents with their embedding status.
func (s *DocumentService) ListDocuments(c echo.Context) error {
	documents, err := s.Catalog.List(c.Request().Context(), currentUserID(c))
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to list documents")
	}

	response := make([]documentResponse, 0, len(documents))
	for _, document := range documents {
		response = append(response, toDocumentResponse(document))
	}
	return c.JSON(http.StatusOK, response)
}

type createDocumentRequest struct {
	Title       string `json:"title"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// CreateDocument ingests a text document: chunk, embed, store. The document
// becomes selectable for grounded chat once HasEmbedding flips.
func (s *DocumentService) CreateDocument(c echo.Context) error {
	var req createDocumentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if req.Title == "" || req.Content == "" {
		return badRequest(c, "title and content are required")
	}
	if len(req.Content) > maxDocumentBytes {
		return errorJSON(c, http.StatusRequestEntityTooLarge, "document exceeds the 4 MiB limit")
	}
	if req.ContentType == "" {
		req.ContentType = "text/plain"
	}

	document, err := s.Catalog.Ingest(c.Request().Context(), &service.IngestRequest{
		CreatorID:   currentUserID(c),
		Title:       req.Title,
		ContentType: req.ContentType,
		Content:     req.Content,
	})
	if err != nil {
		if document != nil {
			// Stored but not embedded; the client can retry the ingest.
			return c.JSON(http.StatusAccepted, toDocumentResponse(document))
		}
		return errorJSON(c, http.StatusInternalServerError, "failed to ingest document")
	}
	return c.JSON(http.StatusCreated, toDocumentResponse(document))
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentService) DeleteDocument(c echo.Context) error {
	err := s.Catalog.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			return errorJSON(c, http.StatusNotFound, "document not found")
		}
		return errorJSON(c, http.StatusInternalServerError, "failed to delete document")
	}
	return c.NoContent(http.StatusNoContent)
}
