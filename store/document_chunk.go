package store

import (
	"github.com/pkg/errors"
)

// DocumentChunk is one embedded slice of a document.
type DocumentChunk struct {
	ID         int64
	DocumentID int32
	ChunkIndex int32
	Content    string
	Embedding  []float32
	CreatedTs  int64
}

type FindDocumentChunk struct {
	DocumentID *int32
}

// ChunkSearchOptions configures a nearest-neighbour search over document
// chunks, restricted to the given document UIDs.
type ChunkSearchOptions struct {
	Vector       []float32
	DocumentUIDs []string
	Limit        int
}

// Validate checks the options and applies the default limit.
func (o *ChunkSearchOptions) Validate() error {
	if len(o.Vector) == 0 {
		return errors.New("vector cannot be empty")
	}
	if len(o.DocumentUIDs) == 0 {
		return errors.New("document uid filter cannot be empty")
	}
	if o.Limit < 0 {
		return errors.Errorf("limit cannot be negative: %d", o.Limit)
	}
	if o.Limit == 0 {
		o.Limit = 5
	}
	return nil
}

// DocumentChunkWithScore is a vector search hit with its similarity score
// and the display fields of the owning document.
type DocumentChunkWithScore struct {
	Chunk         *DocumentChunk
	DocumentUID   string
	DocumentTitle string
	Score         float32 // cosine similarity in [0, 1], higher is closer
}
